package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery status labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Cycle outcome labels.
const (
	CycleDelivered      = "delivered"
	CycleForced         = "forced"
	CycleNoDestinations = "no_destinations"
	CycleDuplicate      = "duplicate"
	CycleCanceled       = "canceled"
)

var (
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_deliveries_total",
		Help: "The total number of per-destination delivery attempts",
	}, []string{"status"})

	DeliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_delivery_errors_total",
		Help: "Delivery failures by error class",
	}, []string{"class"})

	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_cycles_total",
		Help: "Delivery cycles by outcome",
	}, []string{"outcome"})

	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_cycle_duration_seconds",
		Help:    "Duration of a full delivery cycle",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
	})

	QuarantineSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_quarantine_size",
		Help: "Number of destinations currently quarantined",
	})

	Destinations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_destinations",
		Help: "Number of destinations selected by the last discovery",
	})

	DiscoveryProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_discovery_probes_total",
		Help: "Permission and participant probes issued during discovery",
	}, []string{"kind", "status"})

	BotRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_requests_total",
		Help: "Bot interactions by access decision",
	}, []string{"decision"})
)
