package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/honeytail/internal/domain"
)

const defaultKeyPrefix = "honeypot_events"

// EventStore keeps one string key per event_id. SET NX gives first-write-wins
// semantics without a separate index.
type EventStore struct {
	client *redis.Client
	prefix string
}

// Open parses a redis:// or rediss:// URL and creates a client. No connection
// is made until Ping.
func Open(rawURL, collection string) (*EventStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewEventStore(redis.NewClient(opts), collection), nil
}

// NewEventStore wraps an existing client.
func NewEventStore(client *redis.Client, collection string) *EventStore {
	if collection == "" {
		collection = defaultKeyPrefix
	}
	return &EventStore{client: client, prefix: collection}
}

// Ping checks connectivity.
func (s *EventStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// EnsureUniqueIndex is a no-op: keys are unique by construction.
func (s *EventStore) EnsureUniqueIndex(ctx context.Context) error {
	return nil
}

// InsertIfAbsent stores the event under <collection>:<event_id> unless the key exists.
func (s *EventStore) InsertIfAbsent(ctx context.Context, event domain.NormalizedEvent) (bool, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.Key(event.EventID), payload, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to SETNX event: %w", err)
	}
	return ok, nil
}

// Key returns the redis key for an event id.
func (s *EventStore) Key(eventID string) string {
	return s.prefix + ":" + eventID
}

// Close closes the client.
func (s *EventStore) Close() error {
	return s.client.Close()
}
