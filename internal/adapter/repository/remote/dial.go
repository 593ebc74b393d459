package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/adapter/repository/opensearch"
	"github.com/V4T54L/honeytail/internal/adapter/repository/postgres"
	"github.com/V4T54L/honeytail/internal/adapter/repository/redis"
	"github.com/V4T54L/honeytail/internal/domain"
	"github.com/V4T54L/honeytail/internal/pkg/config"
)

// DialerFor selects a store implementation from the URI scheme. Each call of
// the returned Dialer builds a fresh client.
func DialerFor(rc config.RemoteConfig, logger *slog.Logger) (Dialer, error) {
	switch scheme := rc.Scheme(); scheme {
	case "postgres", "postgresql":
		return func(ctx context.Context) (domain.EventStore, error) {
			return postgres.Open(rc.URI, rc.Collection, logger)
		}, nil
	case "redis", "rediss":
		return func(ctx context.Context) (domain.EventStore, error) {
			return redis.Open(rc.URI, rc.Collection)
		}, nil
	case "http", "https":
		return func(ctx context.Context) (domain.EventStore, error) {
			return opensearch.Open(rc.URI, rc.Collection)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported remote store scheme %q", scheme)
	}
}

// NewSinkFromConfig builds the sink described by cfg. When no usable remote
// is configured it returns a disabled sink together with the reason.
func NewSinkFromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.ShipperMetrics) (*Sink, error) {
	opts := []Option{
		WithTimeout(cfg.RemoteTimeout),
		WithReconnectRate(cfg.RemoteReconnectRate),
		WithMetrics(m),
	}

	rc, err := cfg.LoadRemote()
	if err != nil {
		return NewDisabledSink(logger, opts...), err
	}
	dial, err := DialerFor(rc, logger)
	if err != nil {
		return NewDisabledSink(logger, opts...), err
	}
	return NewSink(dial, logger, opts...), nil
}
