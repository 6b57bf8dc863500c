package router

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "light_client"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of router operations, labeled by client kind, operation and
	// result ("ok" or the error kind).
	Verifications metrics.Counter

	// Time spent in router operations, labeled by client kind and
	// operation.
	VerificationSeconds metrics.Histogram

	// Number of clients frozen by misbehaviour, labeled by client kind.
	Frozen metrics.Counter

	// 1 for the last observed status of a client, 0 for the others. Labeled
	// by client id and status.
	ClientStatus metrics.Gauge
}

// PrometheusMetrics returns Metrics built using the Prometheus client
// library. Optionally, labels can be provided along with their values
// ("foo", "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Verifications: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verifications",
			Help:      "Number of light client operations.",
		}, append(labels, "kind", "operation", "result")).With(labelsAndValues...),
		VerificationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verification_seconds",
			Help:      "Time spent in light client operations.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, append(labels, "kind", "operation")).With(labelsAndValues...),
		Frozen: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "frozen",
			Help:      "Number of clients frozen by misbehaviour.",
		}, append(labels, "kind")).With(labelsAndValues...),
		ClientStatus: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "client_status",
			Help:      "Last observed status of a client.",
		}, append(labels, "client_id", "status")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Verifications:       discard.NewCounter(),
		VerificationSeconds: discard.NewHistogram(),
		Frozen:              discard.NewCounter(),
		ClientStatus:        discard.NewGauge(),
	}
}
