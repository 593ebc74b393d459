package domain

import "context"

// LineSource yields raw log lines. Next blocks until a line is available or
// ctx is done.
type LineSource interface {
	Next(ctx context.Context) (string, error)
}

// EventJournal is the local durable, append-only record of shipped events.
type EventJournal interface {
	// Append persists one event. It must not return before the record is durable.
	Append(ctx context.Context, event NormalizedEvent) error

	// Replay reads journaled events in order and passes each to handler.
	Replay(ctx context.Context, handler func(event NormalizedEvent) error) error
}

// EventStore is a remote document store keyed by event_id.
type EventStore interface {
	// Ping performs a lightweight liveness check.
	Ping(ctx context.Context) error

	// EnsureUniqueIndex establishes a uniqueness constraint on event_id.
	// Failure is tolerated by callers.
	EnsureUniqueIndex(ctx context.Context) error

	// InsertIfAbsent stores the event unless one with the same event_id
	// exists. It reports whether a new document was written.
	InsertIfAbsent(ctx context.Context, event NormalizedEvent) (bool, error)

	Close() error
}

// RemoteSink forwards events to a remote store on a best-effort basis.
type RemoteSink interface {
	Enabled() bool
	Upsert(ctx context.Context, event NormalizedEvent) error
}

// EventPublisher fans shipped events out to live observers. Publish must not block.
type EventPublisher interface {
	Publish(event NormalizedEvent)
}

// APIKeyRepository defines the interface for validating API keys.
type APIKeyRepository interface {
	// IsValid checks if the provided API key is valid and active.
	IsValid(ctx context.Context, key string) (bool, error)
}
