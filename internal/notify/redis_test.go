package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisPublisherStatusChanged(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	publisher := NewRedisPublisherWithClient(client)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "mwf:session:s1:user:alice")
	t.Cleanup(func() { sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	err := publisher.StatusChanged(ctx, Notification{
		SessionID: "s1",
		UserID:    "alice",
		Kind:      "empathy_status",
		Message:   "ready to continue",
		Payload:   map[string]any{"status": "READY"},
	})
	if err != nil {
		t.Fatalf("StatusChanged: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Notification
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.Kind != "empathy_status" || got.UserID != "alice" {
			t.Fatalf("notification = %+v", got)
		}
		if got.SentAt.IsZero() {
			t.Fatal("SentAt was not stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestRedisPublisherPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	publisher := NewRedisPublisherWithClient(client)
	if err := publisher.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestNoopPublisher(t *testing.T) {
	if err := (NoopPublisher{}).StatusChanged(context.Background(), Notification{}); err != nil {
		t.Fatalf("StatusChanged: %v", err)
	}
}
