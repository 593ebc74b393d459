package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/honeytail/internal/domain"
)

const (
	codeUniqueViolation   = "23505"
	codeNoConflictTarget  = "42P10"
	defaultCollectionName = "honeypot_events"
)

// EventStore stores normalized events as JSONB documents keyed by event_id.
type EventStore struct {
	db          *sql.DB
	logger      *slog.Logger
	table       string
	index       string
	uniqueIndex bool
}

// Open creates a store for dsn. No connection is made until Ping.
func Open(dsn, collection string, logger *slog.Logger) (*EventStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return NewEventStore(db, collection, logger), nil
}

// NewEventStore wraps an existing database handle.
func NewEventStore(db *sql.DB, collection string, logger *slog.Logger) *EventStore {
	if collection == "" {
		collection = defaultCollectionName
	}
	return &EventStore{
		db:     db,
		logger: logger.With("component", "postgres_event_store"),
		table:  pq.QuoteIdentifier(collection),
		index:  pq.QuoteIdentifier(collection + "_event_id_key"),
	}
}

// Ping checks connectivity.
func (s *EventStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureUniqueIndex creates the events table if needed and a unique index on
// event_id. Either step may fail for lack of privilege; inserts then fall back
// to a guarded conditional insert.
func (s *EventStore) EnsureUniqueIndex(ctx context.Context) error {
	s.uniqueIndex = false

	createTable := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		event_id  TEXT NOT NULL,
		document  JSONB NOT NULL,
		stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		s.logger.Warn("could not create events table", "error", err)
	}

	createIndex := `CREATE UNIQUE INDEX IF NOT EXISTS ` + s.index + ` ON ` + s.table + ` (event_id)`
	if _, err := s.db.ExecContext(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create unique index on event_id: %w", err)
	}
	s.uniqueIndex = true
	return nil
}

// InsertIfAbsent writes the event unless its event_id is already stored.
func (s *EventStore) InsertIfAbsent(ctx context.Context, event domain.NormalizedEvent) (bool, error) {
	doc, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}

	if s.uniqueIndex {
		inserted, err := s.exec(ctx, `INSERT INTO `+s.table+` (event_id, document) VALUES ($1, $2::jsonb)
			ON CONFLICT (event_id) DO NOTHING`, event.EventID, string(doc))
		if !isPQCode(err, codeNoConflictTarget) {
			return inserted, err
		}
		// The index was dropped after we connected.
		s.logger.Warn("unique index on event_id missing, falling back to guarded insert")
		s.uniqueIndex = false
	}

	return s.exec(ctx, `INSERT INTO `+s.table+` (event_id, document)
		SELECT $1::text, $2::jsonb
		WHERE NOT EXISTS (SELECT 1 FROM `+s.table+` WHERE event_id = $1::text)`, event.EventID, string(doc))
}

// Close closes the database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}

func (s *EventStore) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isPQCode(err, codeUniqueViolation) {
			return false, domain.ErrDuplicateEvent
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
