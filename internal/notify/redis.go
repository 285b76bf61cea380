// Package notify delivers per-user status-changed events to the realtime
// layer. Payloads are self-sufficient so clients never have to re-query.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Notification is one status-changed event for one user.
type Notification struct {
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	SentAt    time.Time      `json:"sentAt"`
}

type Publisher interface {
	StatusChanged(ctx context.Context, notification Notification) error
}

// RedisPublisher publishes notifications on a per-session, per-user channel.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisPublisher{
		client: client,
		prefix: "mwf:",
	}, nil
}

// NewRedisPublisherWithClient creates a publisher from an existing client.
func NewRedisPublisherWithClient(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: "mwf:",
	}
}

func (p *RedisPublisher) channel(sessionID, userID string) string {
	return p.prefix + "session:" + sessionID + ":user:" + userID
}

func (p *RedisPublisher) StatusChanged(ctx context.Context, notification Notification) error {
	if notification.SentAt.IsZero() {
		notification.SentAt = time.Now()
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	channel := p.channel(notification.SessionID, notification.UserID)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Ping checks if Redis is reachable
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// NoopPublisher drops notifications; used when Redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) StatusChanged(context.Context, Notification) error { return nil }
