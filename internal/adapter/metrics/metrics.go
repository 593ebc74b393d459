package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ShipperMetrics holds all Prometheus metrics for the shipper.
type ShipperMetrics struct {
	LinesTotal        *prometheus.CounterVec
	EventsJournaled   prometheus.Counter
	RemoteWritesTotal *prometheus.CounterVec
	RemoteReconnects  *prometheus.CounterVec
	RemoteState       prometheus.Gauge
	FeedDropped       prometheus.Counter
}

// NewShipperMetrics initializes the metrics and registers them with reg.
// A nil reg registers with the default registry.
func NewShipperMetrics(reg prometheus.Registerer) *ShipperMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &ShipperMetrics{
		LinesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeytail",
			Subsystem: "source",
			Name:      "lines_total",
			Help:      "Total number of non-blank source lines by status.",
		}, []string{"status"}), // status: accepted, malformed, filtered
		EventsJournaled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "honeytail",
			Subsystem: "journal",
			Name:      "events_total",
			Help:      "Total number of events appended to the local journal.",
		}),
		RemoteWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeytail",
			Subsystem: "remote",
			Name:      "writes_total",
			Help:      "Total number of remote upsert attempts by result.",
		}, []string{"result"}), // result: inserted, duplicate, failed
		RemoteReconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeytail",
			Subsystem: "remote",
			Name:      "connect_attempts_total",
			Help:      "Total number of remote connection attempts by result.",
		}, []string{"result"}), // result: connected, failed, throttled
		RemoteState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "honeytail",
			Subsystem: "remote",
			Name:      "state",
			Help:      "Remote sink state (0 disabled, 1 disconnected, 2 connected).",
		}),
		FeedDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "honeytail",
			Subsystem: "feed",
			Name:      "dropped_total",
			Help:      "Total number of live feed messages dropped for slow clients.",
		}),
	}
}
