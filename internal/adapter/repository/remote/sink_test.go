package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/domain"
	"github.com/V4T54L/honeytail/internal/domain/mocks"
)

func testEvent(id string) domain.NormalizedEvent {
	return domain.NormalizedEvent{EventID: id, DstIP: "9.9.9.9", DstPort: json.Number("22"), AttackType: "ssh_login_attempt"}
}

// dialerFor returns a Dialer handing out stores from the list in order and
// counting the calls.
func dialerFor(calls *int, stores ...*mocks.MockEventStore) Dialer {
	return func(ctx context.Context) (domain.EventStore, error) {
		*calls++
		if len(stores) == 0 {
			return nil, errors.New("connection refused")
		}
		s := stores[0]
		if len(stores) > 1 {
			stores = stores[1:]
		}
		return s, nil
	}
}

func TestSink(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("Disabled never dials", func(t *testing.T) {
		s := NewDisabledSink(logger)
		if s.Enabled() {
			t.Fatal("disabled sink must not be enabled")
		}
		if err := s.Upsert(ctx, testEvent("a")); !errors.Is(err, ErrSinkDisabled) {
			t.Errorf("expected ErrSinkDisabled, got %v", err)
		}
		if s.State() != StateDisabled {
			t.Errorf("expected disabled, got %s", s.State())
		}
	})

	t.Run("Lazy connect then insert", func(t *testing.T) {
		var calls int
		store := &mocks.MockEventStore{}
		s := NewSink(dialerFor(&calls, store), logger)

		if s.State() != StateDisconnected || calls != 0 {
			t.Fatalf("sink must start disconnected without dialing, state=%s calls=%d", s.State(), calls)
		}
		if err := s.Upsert(ctx, testEvent("a")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := s.Upsert(ctx, testEvent("b")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected a single dial, got %d", calls)
		}
		if s.State() != StateConnected {
			t.Errorf("expected connected, got %s", s.State())
		}
		if store.Inserts != 2 {
			t.Errorf("expected 2 inserts, got %d", store.Inserts)
		}
	})

	t.Run("First write wins", func(t *testing.T) {
		var calls int
		store := &mocks.MockEventStore{}
		s := NewSink(dialerFor(&calls, store), logger)

		first := testEvent("same")
		second := testEvent("same")
		second.LogType = "changed"

		if err := s.Upsert(ctx, first); err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}
		if err := s.Upsert(ctx, second); err != nil {
			t.Fatalf("duplicate upsert must succeed, got %v", err)
		}
		if store.Inserts != 1 {
			t.Errorf("expected 1 stored document, got %d", store.Inserts)
		}
		if store.Docs["same"].LogType != nil {
			t.Errorf("stored document was overwritten: %+v", store.Docs["same"])
		}
	})

	t.Run("Duplicate race error is a no-op", func(t *testing.T) {
		var calls int
		store := &mocks.MockEventStore{InsertErr: domain.ErrDuplicateEvent}
		s := NewSink(dialerFor(&calls, store), logger)

		if err := s.Upsert(ctx, testEvent("a")); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if s.State() != StateConnected {
			t.Errorf("duplicate must not drop the connection, got %s", s.State())
		}
	})

	t.Run("Connect failure stays disconnected and retries on next event", func(t *testing.T) {
		var calls int
		s := NewSink(dialerFor(&calls), logger)

		for i := 0; i < 3; i++ {
			if err := s.Upsert(ctx, testEvent("a")); err == nil {
				t.Fatal("expected connect error")
			}
		}
		if calls != 3 {
			t.Errorf("expected one dial per event, got %d", calls)
		}
		if s.State() != StateDisconnected {
			t.Errorf("expected disconnected, got %s", s.State())
		}
	})

	t.Run("Ping failure releases the store", func(t *testing.T) {
		var calls int
		store := &mocks.MockEventStore{PingErr: errors.New("auth failed")}
		s := NewSink(dialerFor(&calls, store), logger)

		if err := s.Upsert(ctx, testEvent("a")); err == nil {
			t.Fatal("expected ping error")
		}
		if store.Closed != 1 {
			t.Errorf("expected store to be closed once, got %d", store.Closed)
		}
		if s.State() != StateDisconnected {
			t.Errorf("expected disconnected, got %s", s.State())
		}
	})

	t.Run("Unique index failure is tolerated", func(t *testing.T) {
		var calls int
		store := &mocks.MockEventStore{EnsureErr: errors.New("permission denied")}
		s := NewSink(dialerFor(&calls, store), logger)

		if err := s.Upsert(ctx, testEvent("a")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.State() != StateConnected {
			t.Errorf("expected connected, got %s", s.State())
		}
	})

	t.Run("Write failure drops and recreates the connection", func(t *testing.T) {
		var calls int
		broken := &mocks.MockEventStore{InsertErr: errors.New("i/o timeout")}
		healthy := &mocks.MockEventStore{}
		reg := prometheus.NewRegistry()
		m := metrics.NewShipperMetrics(reg)
		s := NewSink(dialerFor(&calls, broken, healthy), logger, WithMetrics(m))

		if err := s.Upsert(ctx, testEvent("a")); err == nil {
			t.Fatal("expected write error")
		}
		if broken.Closed != 1 {
			t.Errorf("expected broken store to be released, closed=%d", broken.Closed)
		}
		if s.State() != StateDisconnected {
			t.Errorf("expected disconnected, got %s", s.State())
		}
		if got := testutil.ToFloat64(m.RemoteState); got != float64(StateDisconnected) {
			t.Errorf("expected state gauge %d, got %v", StateDisconnected, got)
		}

		if err := s.Upsert(ctx, testEvent("b")); err != nil {
			t.Fatalf("expected reconnect and write, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 dials, got %d", calls)
		}
		if _, ok := healthy.Docs["a"]; ok {
			t.Error("failed event must not be requeued")
		}
		if _, ok := healthy.Docs["b"]; !ok {
			t.Error("expected event b on the new connection")
		}
		if got := testutil.ToFloat64(m.RemoteWritesTotal.WithLabelValues("failed")); got != 1 {
			t.Errorf("expected 1 failed write, got %v", got)
		}
		if got := testutil.ToFloat64(m.RemoteWritesTotal.WithLabelValues("inserted")); got != 1 {
			t.Errorf("expected 1 inserted write, got %v", got)
		}
	})

	t.Run("Reconnect throttling", func(t *testing.T) {
		var calls int
		s := NewSink(dialerFor(&calls), logger, WithReconnectRate(0.001))

		if err := s.Upsert(ctx, testEvent("a")); err == nil || errors.Is(err, ErrReconnectThrottled) {
			t.Fatalf("expected first attempt to dial and fail, got %v", err)
		}
		if err := s.Upsert(ctx, testEvent("b")); !errors.Is(err, ErrReconnectThrottled) {
			t.Errorf("expected ErrReconnectThrottled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 dial, got %d", calls)
		}
	})

	t.Run("Close then reconnect", func(t *testing.T) {
		var calls int
		store := &mocks.MockEventStore{}
		s := NewSink(dialerFor(&calls, store), logger)

		_ = s.Upsert(ctx, testEvent("a"))
		if err := s.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if s.State() != StateDisconnected {
			t.Errorf("expected disconnected after close, got %s", s.State())
		}
		_ = s.Upsert(ctx, testEvent("b"))
		if calls != 2 {
			t.Errorf("expected reconnect after close, calls=%d", calls)
		}
	})
}
