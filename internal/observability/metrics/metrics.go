// Package metrics provides Prometheus instrumentation for deployctl.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	enabled     bool
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Deploy flow metrics
	deployRunsTotal    *prometheus.CounterVec
	deployDuration     *prometheus.HistogramVec
	verificationTotal  *prometheus.CounterVec
	historyRecordTotal *prometheus.CounterVec
)

// Init initializes the metrics system. Each call starts a fresh registry.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	// HTTP request counter
	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Deploy run counter
	deployRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployctl_deploy_runs_total",
			Help: "Total number of deploy runs",
		},
		[]string{"network", "contract", "status"},
	)

	// Deploy duration, including the confirmation wait
	deployDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deployctl_deploy_duration_seconds",
			Help:    "Time from sending the creation transaction to the last confirmation",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"network"},
	)

	// Verification outcome counter
	verificationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployctl_verification_total",
			Help: "Total number of explorer verification outcomes",
		},
		[]string{"network", "outcome"},
	)

	// History write counter
	historyRecordTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployctl_history_record_total",
			Help: "Total number of deployment history writes",
		},
		[]string{"status"},
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Push sends the current metric values to a Prometheus Pushgateway. The CLI
// exits right after a run, so pushing is the only way a scrape sees them.
func Push(ctx context.Context, url string) error {
	if !enabled || url == "" {
		return nil
	}
	err := push.New(url, serviceName).
		Gatherer(registry).
		Grouping("instance", serviceName).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
