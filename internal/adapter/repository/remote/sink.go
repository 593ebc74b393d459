package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/domain"
)

const defaultTimeout = 5 * time.Second

var (
	// ErrSinkDisabled is returned by Upsert when no remote store is configured.
	ErrSinkDisabled = errors.New("remote sink is disabled")
	// ErrReconnectThrottled is returned when the reconnect limiter denies an attempt.
	ErrReconnectThrottled = errors.New("remote reconnect throttled")
)

// State is the connection state of a Sink.
type State int

const (
	StateDisabled State = iota
	StateDisconnected
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dialer establishes a new store connection.
type Dialer func(ctx context.Context) (domain.EventStore, error)

// Option configures a Sink.
type Option func(*Sink)

// WithTimeout bounds every connect and write.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithReconnectRate limits connection attempts to perSecond. Zero or less
// leaves reconnects unlimited.
func WithReconnectRate(perSecond float64) Option {
	return func(s *Sink) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.ShipperMetrics) Option {
	return func(s *Sink) { s.metrics = m }
}

// Sink is the best-effort remote upsert sink. It owns the store handle and
// recreates it wholesale after any failure.
type Sink struct {
	dial    Dialer
	logger  *slog.Logger
	metrics *metrics.ShipperMetrics
	limiter *rate.Limiter
	timeout time.Duration

	mu    sync.Mutex
	state State
	store domain.EventStore
}

// NewSink creates a Sink in the Disconnected state; the first Upsert connects.
func NewSink(dial Dialer, logger *slog.Logger, opts ...Option) *Sink {
	s := &Sink{
		dial:    dial,
		logger:  logger.With("component", "remote_sink"),
		limiter: rate.NewLimiter(rate.Inf, 1),
		timeout: defaultTimeout,
		state:   StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setState(StateDisconnected)
	return s
}

// NewDisabledSink creates a Sink that never connects.
func NewDisabledSink(logger *slog.Logger, opts ...Option) *Sink {
	s := &Sink{
		logger:  logger.With("component", "remote_sink"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setState(StateDisabled)
	return s
}

// State returns the current connection state.
func (s *Sink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the current state name.
func (s *Sink) Status() string {
	return s.State().String()
}

// Enabled reports whether the sink will attempt remote writes.
func (s *Sink) Enabled() bool {
	return s.State() != StateDisabled
}

// Upsert writes event unless a document with the same event_id exists.
// Duplicates are a successful no-op. Any other failure drops the connection
// and is returned; the event is not retried.
func (s *Sink) Upsert(ctx context.Context, event domain.NormalizedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisabled:
		return ErrSinkDisabled
	case StateDisconnected:
		if err := s.connect(ctx); err != nil {
			return err
		}
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	inserted, err := s.store.InsertIfAbsent(writeCtx, event)
	switch {
	case err == nil && inserted:
		s.countWrite("inserted")
		return nil
	case err == nil, errors.Is(err, domain.ErrDuplicateEvent):
		s.countWrite("duplicate")
		s.logger.Debug("event already stored remotely", "event_id", event.EventID)
		return nil
	}

	s.countWrite("failed")
	s.drop()
	s.logger.Error("remote write failed, connection dropped", "event_id", event.EventID, "error", err)
	return fmt.Errorf("remote insert of %s failed: %w", event.EventID, err)
}

// Close releases the store handle. The sink reconnects on the next Upsert
// unless it is disabled.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	if s.state == StateConnected {
		s.setState(StateDisconnected)
	}
	return err
}

// connect must be called with mu held.
func (s *Sink) connect(ctx context.Context) error {
	if !s.limiter.Allow() {
		s.countConnect("throttled")
		return ErrReconnectThrottled
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	store, err := s.dial(dialCtx)
	if err != nil {
		s.countConnect("failed")
		s.logger.Error("failed to connect to remote store", "error", err)
		return fmt.Errorf("remote connect failed: %w", err)
	}

	if err := store.Ping(dialCtx); err != nil {
		_ = store.Close()
		s.countConnect("failed")
		s.logger.Error("remote store liveness check failed", "error", err)
		return fmt.Errorf("remote ping failed: %w", err)
	}

	if err := store.EnsureUniqueIndex(dialCtx); err != nil {
		s.logger.Warn("could not ensure unique event_id index, server-side duplicate protection is weakened", "error", err)
	}

	s.store = store
	s.setState(StateConnected)
	s.countConnect("connected")
	s.logger.Info("connected to remote store")
	return nil
}

// drop must be called with mu held.
func (s *Sink) drop() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close remote store handle", "error", err)
		}
		s.store = nil
	}
	s.setState(StateDisconnected)
}

func (s *Sink) setState(st State) {
	s.state = st
	if s.metrics != nil {
		s.metrics.RemoteState.Set(float64(st))
	}
}

func (s *Sink) countWrite(result string) {
	if s.metrics != nil {
		s.metrics.RemoteWritesTotal.WithLabelValues(result).Inc()
	}
}

func (s *Sink) countConnect(result string) {
	if s.metrics != nil {
		s.metrics.RemoteReconnects.WithLabelValues(result).Inc()
	}
}
