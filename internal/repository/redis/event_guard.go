// Package redis holds the Redis-backed helpers. Nothing here is a source of
// truth: the unique indexes in MongoDB are what make grants idempotent, the
// guard only short-circuits redeliveries before they reach the database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyNamespace = "planmarket"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Exists(context.Context, ...string) *redis.IntCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
}

// Connect parses a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// EventGuard remembers handled webhook event IDs for a bounded time.
type EventGuard struct {
	store cmdable
	ttl   time.Duration
	scope string
}

func NewEventGuard(client *redis.Client, ttl time.Duration, scope string) (*EventGuard, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newEventGuard(client, ttl, scope)
}

func newEventGuard(store cmdable, ttl time.Duration, scope string) (*EventGuard, error) {
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &EventGuard{store: store, ttl: ttl, scope: scope}, nil
}

func (g *EventGuard) key(eventID string) string {
	return fmt.Sprintf("%s:event:%s:%s", keyNamespace, g.scope, eventID)
}

// Seen reports whether eventID was marked as handled.
func (g *EventGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	n, err := g.store.Exists(ctx, g.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("check event key: %w", err)
	}
	return n > 0, nil
}

// Mark records eventID as handled. Call it only once the event's effect is
// durable; a key set earlier would hide an event that was never applied.
func (g *EventGuard) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	if err := g.store.Set(ctx, g.key(eventID), "1", g.ttl).Err(); err != nil {
		return fmt.Errorf("set event key: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (g *EventGuard) Ping(ctx context.Context) error {
	return g.store.Ping(ctx).Err()
}
