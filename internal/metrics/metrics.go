package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions created",
		},
	)

	sessionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Quiz sessions finalized with a result",
		},
	)

	quizScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_score_percent",
			Help:    "Distribution of submitted quiz scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	providerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_provider_errors_total",
			Help: "Trivia provider failures by response code",
		},
		[]string{"code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	activePlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_ws_players",
			Help: "Connected play websockets",
		},
	)
)

func SessionStarted() { sessionsStarted.Inc() }

// SessionCompleted records a finalized session and its score.
func SessionCompleted(score int) {
	sessionsCompleted.Inc()
	quizScore.Observe(float64(score))
}

// ProviderError counts a provider failure. Code 0 covers transport and decode failures.
func ProviderError(code int) {
	providerErrors.WithLabelValues(strconv.Itoa(code)).Inc()
}

func ObserveHTTP(route, method string, status int, seconds float64) {
	httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(seconds)
}

func PlayerConnected()    { activePlayers.Inc() }
func PlayerDisconnected() { activePlayers.Dec() }
