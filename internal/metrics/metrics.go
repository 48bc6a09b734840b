package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// RPC metrics
	RPCRequestsTotal    *prometheus.CounterVec
	RPCRequestDuration  *prometheus.HistogramVec
	RPCRequestsInFlight prometheus.Gauge

	// Matchmaking metrics
	MatchmakingWaitTime  *prometheus.HistogramVec
	MatchmakingQueueSize *prometheus.GaugeVec
	MatchmakingTimeouts  *prometheus.CounterVec
	ActiveMatches        prometheus.Gauge
	MatchDuration        *prometheus.HistogramVec

	// Power-up metrics
	PowerUpActivations *prometheus.CounterVec
	PowerUpRejections  *prometheus.CounterVec

	// Hint metrics
	HintRequestsTotal *prometheus.CounterVec

	// Judging metrics
	JudgingDuration    *prometheus.HistogramVec
	JudgingErrors      *prometheus.CounterVec
	SandboxTimeouts    prometheus.Counter
	RatingUpdateErrors prometheus.Counter

	// Replay metrics
	ReplayEventsAppended prometheus.Counter
	ReplayFlushDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		RPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpc_requests_total",
				Help: "Total number of RPC requests",
			},
			[]string{"method", "status"},
		),
		RPCRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rpc_request_duration_seconds",
				Help:    "Duration of RPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"method"},
		),
		RPCRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rpc_requests_in_flight",
				Help: "Number of RPC requests currently being processed",
			},
		),

		MatchmakingWaitTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchmaking_wait_time_seconds",
				Help:    "Time players wait in matchmaking queue",
				Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90, 120},
			},
			[]string{"rating_band"},
		),
		MatchmakingQueueSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchmaking_queue_size",
				Help: "Number of players in matchmaking queue",
			},
			[]string{"rating_band"},
		),
		MatchmakingTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchmaking_timeouts_total",
				Help: "Total number of matchmaking timeouts",
			},
			[]string{"rating_band"},
		),
		ActiveMatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_matches",
				Help: "Number of matches currently in progress",
			},
		),
		MatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "match_duration_seconds",
				Help:    "Duration of matches from start to completion",
				Buckets: []float64{30, 60, 120, 180, 240, 300, 420, 600, 900},
			},
			[]string{"difficulty"},
		),

		PowerUpActivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "power_up_activations_total",
				Help: "Total number of power-up activations",
			},
			[]string{"power_up_type"},
		),
		PowerUpRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "power_up_rejections_total",
				Help: "Total number of rejected power-up activation attempts",
			},
			[]string{"power_up_type", "reason"},
		),

		HintRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hint_requests_total",
				Help: "Total number of hint requests",
			},
			[]string{"status"},
		),

		JudgingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "judging_duration_seconds",
				Help:    "Duration of the judging pipeline from submission to result",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
			},
			[]string{"language"},
		),
		JudgingErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judging_errors_total",
				Help: "Total number of judging pipeline errors",
			},
			[]string{"stage"},
		),
		SandboxTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_timeouts_total",
				Help: "Total number of sandbox executions that exceeded their deadline",
			},
		),
		RatingUpdateErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rating_update_errors_total",
				Help: "Total number of failed atomic rating updates",
			},
		),

		ReplayEventsAppended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "replay_events_appended_total",
				Help: "Total number of replay events appended to the buffer",
			},
		),
		ReplayFlushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "replay_flush_duration_seconds",
				Help:    "Duration of replay buffer flushes to durable storage",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RPCRequestsTotal,
		m.RPCRequestDuration,
		m.RPCRequestsInFlight,
		m.MatchmakingWaitTime,
		m.MatchmakingQueueSize,
		m.MatchmakingTimeouts,
		m.ActiveMatches,
		m.MatchDuration,
		m.PowerUpActivations,
		m.PowerUpRejections,
		m.HintRequestsTotal,
		m.JudgingDuration,
		m.JudgingErrors,
		m.SandboxTimeouts,
		m.RatingUpdateErrors,
		m.ReplayEventsAppended,
		m.ReplayFlushDuration,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records metrics for an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRPCRequest records metrics for an RPC request
func (m *Metrics) RecordRPCRequest(method, status string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.RPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordMatchmakingWait records matchmaking wait time
func (m *Metrics) RecordMatchmakingWait(ratingBand string, duration time.Duration) {
	m.MatchmakingWaitTime.WithLabelValues(ratingBand).Observe(duration.Seconds())
}

// SetQueueSize sets the current queue size for a rating band
func (m *Metrics) SetQueueSize(ratingBand string, size float64) {
	m.MatchmakingQueueSize.WithLabelValues(ratingBand).Set(size)
}

// RecordMatchmakingTimeout records a matchmaking timeout
func (m *Metrics) RecordMatchmakingTimeout(ratingBand string) {
	m.MatchmakingTimeouts.WithLabelValues(ratingBand).Inc()
}

// SetActiveMatches sets the number of active matches
func (m *Metrics) SetActiveMatches(count float64) {
	m.ActiveMatches.Set(count)
}

// RecordMatchDuration records the duration of a completed match
func (m *Metrics) RecordMatchDuration(difficulty string, duration time.Duration) {
	m.MatchDuration.WithLabelValues(difficulty).Observe(duration.Seconds())
}

// RecordPowerUpActivation records a successful power-up activation
func (m *Metrics) RecordPowerUpActivation(powerUpType string) {
	m.PowerUpActivations.WithLabelValues(powerUpType).Inc()
}

// RecordPowerUpRejection records a rejected power-up activation attempt
func (m *Metrics) RecordPowerUpRejection(powerUpType, reason string) {
	m.PowerUpRejections.WithLabelValues(powerUpType, reason).Inc()
}

// RecordHintRequest records a hint request outcome
func (m *Metrics) RecordHintRequest(status string) {
	m.HintRequestsTotal.WithLabelValues(status).Inc()
}

// RecordJudgingDuration records the duration of a judging pipeline run
func (m *Metrics) RecordJudgingDuration(language string, duration time.Duration) {
	m.JudgingDuration.WithLabelValues(language).Observe(duration.Seconds())
}

// RecordJudgingError records a judging pipeline error by stage
func (m *Metrics) RecordJudgingError(stage string) {
	m.JudgingErrors.WithLabelValues(stage).Inc()
}

// RecordSandboxTimeout records a sandbox execution that hit its deadline
func (m *Metrics) RecordSandboxTimeout() {
	m.SandboxTimeouts.Inc()
}

// RecordRatingUpdateError records a failed atomic rating update
func (m *Metrics) RecordRatingUpdateError() {
	m.RatingUpdateErrors.Inc()
}

// RecordReplayEventAppended records a replay event append
func (m *Metrics) RecordReplayEventAppended() {
	m.ReplayEventsAppended.Inc()
}

// RecordReplayFlush records a replay buffer flush duration
func (m *Metrics) RecordReplayFlush(duration time.Duration) {
	m.ReplayFlushDuration.Observe(duration.Seconds())
}
