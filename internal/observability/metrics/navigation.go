package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/docnav/internal/core/domain"
)

// NavigationMetrics implements the navigation and batch observers of the usecase layer.
type NavigationMetrics struct {
	service string

	switchTotal      *prometheus.CounterVec
	switchDuration   *prometheus.HistogramVec
	resolutionTotal  *prometheus.CounterVec
	highlightTotal   *prometheus.CounterVec
	batchPollTotal   *prometheus.CounterVec
	batchTerminal    *prometheus.CounterVec
	breakerOpenState *prometheus.GaugeVec
}

func NewNavigationMetrics(service string, registry prometheus.Registerer) *NavigationMetrics {
	switchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "switch_total",
			Help:      "Document switches by outcome.",
		},
		[]string{"service", "outcome"},
	)
	switchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "switch_duration_seconds",
			Help:      "Time from switch request to document swap.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "outcome"},
	)
	resolutionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "resolution_total",
			Help:      "Chunk reference resolutions by method.",
		},
		[]string{"service", "method"},
	)
	highlightTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "highlight_total",
			Help:      "Highlight attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	batchPollTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "polls_total",
			Help:      "Batch job status polls by result.",
		},
		[]string{"service", "result"},
	)
	batchTerminal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "jobs_finished_total",
			Help:      "Tracked batch jobs that reached a terminal status.",
		},
		[]string{"service", "status"},
	)
	breakerOpenState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker of an operation is not closed.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(switchTotal, switchDuration, resolutionTotal, highlightTotal, batchPollTotal, batchTerminal, breakerOpenState)

	return &NavigationMetrics{
		service:          service,
		switchTotal:      switchTotal,
		switchDuration:   switchDuration,
		resolutionTotal:  resolutionTotal,
		highlightTotal:   highlightTotal,
		batchPollTotal:   batchPollTotal,
		batchTerminal:    batchTerminal,
		breakerOpenState: breakerOpenState,
	}
}

func (m *NavigationMetrics) ObserveSwitch(outcome string, duration time.Duration) {
	m.switchTotal.WithLabelValues(m.service, outcome).Inc()
	m.switchDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *NavigationMetrics) ObserveResolution(resolution domain.Resolution) {
	m.resolutionTotal.WithLabelValues(m.service, string(resolution)).Inc()
}

func (m *NavigationMetrics) ObserveHighlight(outcome string) {
	m.highlightTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *NavigationMetrics) ObservePoll(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.batchPollTotal.WithLabelValues(m.service, result).Inc()
}

func (m *NavigationMetrics) ObserveBatchTerminal(status domain.BatchJobStatus) {
	m.batchTerminal.WithLabelValues(m.service, string(status)).Inc()
}

// ObserveBreakerState matches resilience.StateListener.
func (m *NavigationMetrics) ObserveBreakerState(operation, _, to string) {
	value := 1.0
	if to == "closed" {
		value = 0
	}
	m.breakerOpenState.WithLabelValues(m.service, operation).Set(value)
}
