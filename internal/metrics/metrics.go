// Package metrics exposes Prometheus counters for digest runs and keeps
// the last-run health state served on /health.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "policydigest"

var (
	// ItemsTotal counts feed items by stage: fetched, seen, relevant, rejected.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Feed items by pipeline stage",
		},
		[]string{"stage"},
	)

	// RelevanceTotal counts relevance decisions by outcome.
	RelevanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relevance_decisions_total",
			Help:      "Relevance decisions by outcome",
		},
		[]string{"outcome"},
	)

	// EventsTotal counts distinct events per run.
	EventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Distinct events after aggregation",
		},
	)

	// SummariesTotal counts briefs by source: ai or fallback.
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Event summaries by source",
		},
		[]string{"source"},
	)

	// ProviderRequestsTotal counts provider calls by outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderDuration measures provider call latency.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 45},
		},
		[]string{"provider"},
	)

	// RunDuration measures full pipeline runs.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of digest runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// DeliveriesTotal counts report deliveries by channel and status.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Report deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// ObserveProvider records one provider call. It matches ai.Observer.
func ObserveProvider(provider, outcome string, elapsed time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	if elapsed > 0 {
		ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// RecordDelivery records a delivery attempt.
func RecordDelivery(channel string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DeliveriesTotal.WithLabelValues(channel, status).Inc()
}

// Health is the state reported by the monitoring endpoint.
type Health struct {
	mu sync.RWMutex

	RunsCompleted   int64
	EventsDelivered int64

	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Health{IsHealthy: true}

// RecordRun stores a completed run and clears the unhealthy flag.
func (h *Health) RecordRun(duration time.Duration, events int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.RunsCompleted++
	h.EventsDelivered += int64(events)
	h.LastProcessingTime = duration
	h.TotalProcessingTime += duration
	h.AverageProcessingTime = h.TotalProcessingTime / time.Duration(h.RunsCompleted)
	h.LastRunTime = time.Now()
	h.IsHealthy = true

	RunDuration.Observe(duration.Seconds())
}

func (h *Health) SetError(err string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastError = err
	h.LastErrorTime = time.Now()
	h.IsHealthy = false
}

func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.IsHealthy
}

func (h *Health) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"runs_completed":             h.RunsCompleted,
		"events_delivered":           h.EventsDelivered,
		"last_processing_time_ms":    h.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": h.AverageProcessingTime.Milliseconds(),
		"last_run_time":              h.LastRunTime.Format(time.RFC3339),
		"last_error_time":            h.LastErrorTime.Format(time.RFC3339),
		"last_error":                 h.LastError,
		"is_healthy":                 h.IsHealthy,
	}
}
