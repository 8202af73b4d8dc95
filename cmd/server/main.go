package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bkpconnect/backend/internal/account"
	"bkpconnect/backend/internal/blob"
	"bkpconnect/backend/internal/cache"
	"bkpconnect/backend/internal/config"
	"bkpconnect/backend/internal/database"
	"bkpconnect/backend/internal/events"
	"bkpconnect/backend/internal/handler"
	"bkpconnect/backend/internal/hub"
	"bkpconnect/backend/internal/metrics"
	"bkpconnect/backend/internal/post"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/realtime"
	"bkpconnect/backend/internal/relationship"
	"bkpconnect/backend/internal/roomlog"
	"bkpconnect/backend/internal/store"
	"bkpconnect/backend/internal/store/gormstore"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/store/mongostore"
	"bkpconnect/backend/internal/suggestion"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Swagger imports
	_ "bkpconnect/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		s := mongostore.New(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		log.Printf("Using MongoDB store (%s)", cfg.MongoDatabase)
		return s, nil
	case "postgres":
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s, err := gormstore.New(db)
		if err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Println("Using Postgres store")
		return s, nil
	case "memory":
		log.Println("Using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func openObjectStore(ctx context.Context, cfg *config.Config) (blob.ObjectStore, error) {
	if cfg.MinIOEndpoint == "" {
		log.Printf("MINIO_ENDPOINT not set, storing uploads in %s", cfg.UploadDir)
		return blob.NewDiskStore(cfg.UploadDir, "/uploads")
	}
	return blob.NewMinIOStore(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey,
		cfg.MinIOBucket, cfg.MinIOUseSSL, cfg.MinIOPublicURL)
}

func openProfileCache(ctx context.Context, cfg *config.Config) cache.ProfileCache {
	client, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("Redis unavailable, profile cache disabled: %v", err)
		return cache.NewNoopProfileCache()
	}
	if client == nil {
		return cache.NewNoopProfileCache()
	}
	return cache.NewRedisProfileCache(client, cfg.ProfileCacheTTL)
}

func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NewNoopPublisher()
	}
	pub, err := events.NewPublisher(cfg.AMQPURL, cfg.EventsExchange)
	if err != nil {
		log.Printf("RabbitMQ unavailable, domain events disabled: %v", err)
		return events.NewNoopPublisher()
	}
	return pub
}

// @title           bkpconnect API
// @version         1.0
// @description     Social network backend: posts, friendships, suggestions, chat and realtime rooms.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.AppConfig
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}
	pub := openPublisher(cfg)
	defer pub.Close()

	metrics.Register(prometheus.DefaultRegisterer)

	profiles := profile.NewDirectory(st, openProfileCache(ctx, cfg))
	gateway := blob.NewGateway(objects, cfg.UploadMaxBytes, cfg.UploadTimeout)
	ledger := suggestion.NewLedger(st, st, profiles)
	messages := roomlog.NewMessageLog(st, profiles, pub)
	comments := roomlog.NewCommentLog(st, profiles, pub)
	h := hub.NewHub()
	pipeline := realtime.NewPipeline(h, messages, comments)

	api := handler.New(handler.Services{
		Accounts:    account.NewService(st, ledger, profiles, gateway, pub, cfg.JWTSecret, cfg.TokenTTL),
		Relations:   relationship.NewService(st, st, profiles, pub),
		Suggestions: ledger,
		Posts:       post.NewService(st, st, st, profiles, gateway),
		Messages:    messages,
		Comments:    comments,
		Pipeline:    pipeline,
		Realtime:    realtime.NewServer(h, realtime.NewDispatcher(pipeline), cfg.WSAllowedOrigins),
		Uploads:     gateway,
	})

	router := gin.Default()
	router.Use(metrics.Middleware())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.MinIOEndpoint == "" {
		router.Static("/uploads", cfg.UploadDir)
	}

	api.RegisterRoutes(router, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server is running on :%s", cfg.Port)
		log.Printf("Swagger UI is available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Printf("Store close: %v", err)
	}
}
