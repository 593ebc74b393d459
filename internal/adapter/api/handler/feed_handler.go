package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/domain"
)

const (
	DefaultFeedLimit = 250
	MinFeedLimit     = 10
	MaxFeedLimit     = 1500

	clientBufferSize = 64
)

// EventFeed keeps the most recently shipped events in a ring buffer and fans
// new ones out to connected SSE clients.
type EventFeed struct {
	logger  *slog.Logger
	metrics *metrics.ShipperMetrics

	mu      sync.RWMutex
	ring    []domain.NormalizedEvent
	next    int
	full    bool
	clients map[string]chan []byte
}

// NewEventFeed creates a feed retaining up to size events. m may be nil.
func NewEventFeed(size int, logger *slog.Logger, m *metrics.ShipperMetrics) *EventFeed {
	if size <= 0 {
		size = MaxFeedLimit
	}
	return &EventFeed{
		logger:  logger.With("component", "event_feed"),
		metrics: m,
		ring:    make([]domain.NormalizedEvent, size),
		clients: make(map[string]chan []byte),
	}
}

// Publish records event and broadcasts it. It never blocks; slow clients
// miss messages.
func (f *EventFeed) Publish(event domain.NormalizedEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		f.logger.Error("failed to marshal feed event", "event_id", event.EventID, "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.ring[f.next] = event
	f.next = (f.next + 1) % len(f.ring)
	if f.next == 0 {
		f.full = true
	}

	for id, client := range f.clients {
		select {
		case client <- msg:
		default:
			if f.metrics != nil {
				f.metrics.FeedDropped.Inc()
			}
			f.logger.Debug("feed client is slow, dropping event", "client_id", id)
		}
	}
}

// Recent returns up to limit of the newest events, oldest first.
func (f *EventFeed) Recent(limit int) []domain.NormalizedEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.recentLocked(limit)
}

func (f *EventFeed) recentLocked(limit int) []domain.NormalizedEvent {
	n := f.next
	if f.full {
		n = len(f.ring)
	}
	if limit > n {
		limit = n
	}
	out := make([]domain.NormalizedEvent, 0, limit)
	start := f.next - limit
	for i := 0; i < limit; i++ {
		out = append(out, f.ring[(start+i+len(f.ring))%len(f.ring)])
	}
	return out
}

// ClientCount returns the number of connected stream clients.
func (f *EventFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// subscribe registers a client and snapshots the backlog atomically so no
// event is both missed and unreplayed.
func (f *EventFeed) subscribe(limit int) (string, chan []byte, []domain.NormalizedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan []byte, clientBufferSize)
	f.clients[id] = ch
	return id, ch, f.recentLocked(limit)
}

func (f *EventFeed) unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, id)
}

// ServeHTTP streams the backlog followed by live events as Server-Sent Events.
func (f *EventFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	id, messages, backlog := f.subscribe(ParseLimit(r))
	defer f.unsubscribe(id)
	f.logger.Info("feed client connected", "client_id", id, "backlog", len(backlog))
	defer f.logger.Info("feed client disconnected", "client_id", id)

	for _, event := range backlog {
		msg, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", msg)
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-messages:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// RecentHandler serves the backlog as a JSON array.
func (f *EventFeed) RecentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(f.Recent(ParseLimit(r))); err != nil {
			f.logger.Error("failed to encode recent events", "error", err)
		}
	}
}

// ParseLimit reads the limit query parameter, clamped to [MinFeedLimit, MaxFeedLimit].
func ParseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultFeedLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultFeedLimit
	}
	return max(MinFeedLimit, min(n, MaxFeedLimit))
}
