package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Requests     *prometheus.CounterVec
	StageLatency *prometheus.HistogramVec
	TurnLatency  prometheus.Histogram
	Failures     *prometheus.CounterVec
	Extractions  *prometheus.CounterVec
	SilentTurns  prometheus.Counter
	BreakerState *prometheus.GaugeVec

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_requests_total",
			Help:      "Voice turn requests by HTTP status code.",
		}, []string{"code"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Upstream stage latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}, []string{"stage"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end voice turn latency in milliseconds.",
			Buckets:   []float64{500, 1000, 2000, 3000, 5000, 8000, 12000, 20000},
		}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_failures_total",
			Help:      "Pipeline failures by stage and error kind.",
		}, []string{"stage", "kind"}),
		Extractions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_extractions_total",
			Help:      "Structured reply extractions by winning strategy.",
		}, []string{"strategy"}),
		SilentTurns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "silent_turns_total",
			Help:      "Turns whose transcript was empty.",
		}),
		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Upstream circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"upstream"}),
		stages: newStageWindow(256),
	}
}

// ObserveStage records one stage duration in both the histogram and the rolling window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stages.Observe(stage, ms)
}

func (m *Metrics) ObserveTurn(code string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.Requests.WithLabelValues(code).Inc()
	m.TurnLatency.Observe(ms)
	m.stages.Observe("turn_total", ms)
}

func (m *Metrics) ObserveFailure(stage, kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(stage, kind).Inc()
	m.stages.ObserveIndicator("error_" + kind)
}

func (m *Metrics) ObserveExtraction(strategy string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(strategy).Inc()
	m.stages.ObserveIndicator("extract_" + strategy)
}

func (m *Metrics) ObserveSilence() {
	if m == nil {
		return
	}
	m.SilentTurns.Inc()
	m.stages.ObserveIndicator("silence")
}

func (m *Metrics) SetBreakerState(upstream string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(upstream).Set(state)
}

// SnapshotStages returns rolling latency percentiles for every observed stage.
func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return StageSnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
