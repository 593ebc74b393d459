package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/V4T54L/honeytail/internal/domain"
)

// MockJournal is a mock implementation of domain.EventJournal for testing.
type MockJournal struct {
	mu        sync.Mutex
	Appended  []domain.NormalizedEvent
	AppendErr error
	ReplayErr error
}

func (m *MockJournal) Append(ctx context.Context, event domain.NormalizedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Appended = append(m.Appended, event)
	return nil
}

func (m *MockJournal) Replay(ctx context.Context, handler func(event domain.NormalizedEvent) error) error {
	m.mu.Lock()
	events := append([]domain.NormalizedEvent(nil), m.Appended...)
	m.mu.Unlock()
	if m.ReplayErr != nil {
		return m.ReplayErr
	}
	for _, e := range events {
		if err := handler(e); err != nil {
			return err
		}
	}
	return nil
}

// MockRemoteSink is a mock implementation of domain.RemoteSink for testing.
type MockRemoteSink struct {
	mu        sync.Mutex
	Disabled  bool
	Upserted  []domain.NormalizedEvent
	UpsertErr error
}

func (m *MockRemoteSink) Enabled() bool { return !m.Disabled }

func (m *MockRemoteSink) Upsert(ctx context.Context, event domain.NormalizedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.Upserted = append(m.Upserted, event)
	return nil
}

// MockEventStore is an in-memory domain.EventStore. Documents are keyed by
// event_id and never overwritten.
type MockEventStore struct {
	mu        sync.Mutex
	Docs      map[string]domain.NormalizedEvent
	Inserts   int
	Closed    int
	PingErr   error
	EnsureErr error
	InsertErr error
}

func (m *MockEventStore) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockEventStore) EnsureUniqueIndex(ctx context.Context) error { return m.EnsureErr }

func (m *MockEventStore) InsertIfAbsent(ctx context.Context, event domain.NormalizedEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return false, m.InsertErr
	}
	if m.Docs == nil {
		m.Docs = make(map[string]domain.NormalizedEvent)
	}
	if _, ok := m.Docs[event.EventID]; ok {
		return false, nil
	}
	m.Docs[event.EventID] = event
	m.Inserts++
	return true, nil
}

func (m *MockEventStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed++
	return nil
}

// MockLineSource replays a fixed list of lines and then returns io.EOF.
type MockLineSource struct {
	Lines []string
	pos   int
}

func (m *MockLineSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.pos >= len(m.Lines) {
		return "", io.EOF
	}
	line := m.Lines[m.pos]
	m.pos++
	return line, nil
}

// MockPublisher records published events.
type MockPublisher struct {
	mu        sync.Mutex
	Published []domain.NormalizedEvent
}

func (m *MockPublisher) Publish(event domain.NormalizedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, event)
}
