package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/honeytail/internal/adapter/api/handler"
	"github.com/V4T54L/honeytail/internal/adapter/api/middleware"
)

// NewAdminRouter creates the admin HTTP router: metrics, health and the live
// event feed. The feed routes require an API key unless keys is empty.
func NewAdminRouter(
	logger *slog.Logger,
	gatherer prometheus.Gatherer,
	remote handler.RemoteStatus,
	feed *handler.EventFeed,
	keys *middleware.StaticKeys,
) http.Handler {
	mux := http.NewServeMux()

	healthHandler := handler.NewHealthHandler(remote, feed, logger)

	protect := func(h http.Handler) http.Handler { return h }
	if keys != nil && !keys.Empty() {
		protect = middleware.Auth(keys, logger)
	}

	// Routes
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", healthHandler.HealthCheck)
	mux.Handle("GET /events/recent", protect(feed.RecentHandler()))
	mux.Handle("GET /events/stream", protect(feed))

	return middleware.Logging(logger)(mux)
}
