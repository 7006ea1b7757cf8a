package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Observable metrics
	ObservableUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_observable_updates_total",
			Help: "Total number of observable state changes by operation (update, reset, crash)",
		},
		[]string{"op"},
	)

	ObservableDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tether_observable_deliveries_total",
			Help: "Total number of notification messages handed to subscribers",
		},
	)

	ObservableSubscribersPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tether_observable_subscribers_pruned_total",
			Help: "Total number of dead subscribers removed during broadcast",
		},
	)

	ObservableBroadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tether_observable_broadcast_duration_seconds",
			Help:    "Time spent holding the observable lock while broadcasting",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	// Observer metrics
	ObserverMailboxDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tether_observer_mailbox_depth",
			Help: "Number of undelivered messages queued in an observer mailbox",
		},
		[]string{"observer"},
	)

	// Registry metrics
	RegistryObservables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tether_registry_observables",
			Help: "Number of observables currently bound to a live owner",
		},
	)

	RegistryCrashes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tether_registry_crashes_total",
			Help: "Total number of observables crashed because their owner exited",
		},
	)

	// Agent metrics
	WorkerRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_agent_worker_restarts_total",
			Help: "Total number of agent worker restarts by worker",
		},
		[]string{"worker"},
	)

	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tether_agent_health_check_duration_seconds",
			Help:    "Health check duration in seconds by check",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"check"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ObservableUpdates)
	prometheus.MustRegister(ObservableDeliveries)
	prometheus.MustRegister(ObservableSubscribersPruned)
	prometheus.MustRegister(ObservableBroadcastDuration)
	prometheus.MustRegister(ObserverMailboxDepth)
	prometheus.MustRegister(RegistryObservables)
	prometheus.MustRegister(RegistryCrashes)
	prometheus.MustRegister(WorkerRestarts)
	prometheus.MustRegister(HealthCheckDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
