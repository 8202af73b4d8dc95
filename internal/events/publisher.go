// Package events publishes domain events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"bkpconnect/backend/internal/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	UserSignedUp        = "user.signed_up"
	FriendRequestSent   = "friend.request.sent"
	FriendshipCreated   = "friendship.created"
	ChatMessageAppended = "chat.message.appended"
	PostCommentAdded    = "post.comment.added"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type publisher struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchangeName string
	mu           sync.Mutex
}

// NewPublisher creates a RabbitMQ publisher and declares the provided exchange.
func NewPublisher(amqpURL, exchangeName string) (Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &publisher{conn: conn, channel: ch, exchangeName: exchangeName}, nil
}

func (p *publisher) Publish(ctx context.Context, routingKey string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return amqp.ErrClosed
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// The publish outlives request cancellation but not a stuck broker.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(ctx,
		p.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (p *publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
func (noopPublisher) Close() error                               { return nil }

// Emit publishes event and only logs a failure. Domain events never fail the operation
// that produced them.
func Emit(ctx context.Context, p Publisher, routingKey string, event any) {
	if p == nil {
		return
	}
	err := p.Publish(ctx, routingKey, event)
	metrics.IncEventPublished(routingKey, metrics.Status(err))
	if err != nil {
		log.Printf("events: publish %s failed: %v", routingKey, err)
	}
}
