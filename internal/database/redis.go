package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis returns a client for addr, or nil when addr is empty.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Printf("Redis connection established (%s).", addr)
	return client, nil
}
