package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	commandsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_bot_commands_failed_total",
		Help: "Total number of commands that ended in an error",
	}, []string{"command"})

	// Acknowledgment metrics
	ackTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_bot_ack_timeouts_total",
		Help: "Total number of interactions lost to the acknowledgment deadline",
	})

	// Provider metrics
	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_bot_provider_request_duration_seconds",
		Help:    "Duration of completion provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_bot_provider_requests_total",
		Help: "Total number of completion provider requests",
	}, []string{"model", "status"})

	// History metrics
	historyEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_bot_history_evictions_total",
		Help: "Total number of chat entries evicted by the token budget",
	})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_bot_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_bot_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_bot_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"user_id"})

	// Active users gauge
	activeUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_bot_active_users",
		Help: "Number of users in the session table",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordCommandFailed records a command that ended in an error
func (m *Metrics) RecordCommandFailed(command string) {
	commandsFailed.WithLabelValues(command).Inc()
}

// RecordAckTimeout records a missed acknowledgment deadline
func (m *Metrics) RecordAckTimeout() {
	ackTimeouts.Inc()
}

// RecordProviderRequest records a completion provider request
func (m *Metrics) RecordProviderRequest(model, status string, duration time.Duration) {
	providerRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	providerRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordEviction records a token-budget eviction
func (m *Metrics) RecordEviction() {
	historyEvictions.Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(userID string) {
	rateLimitExceeded.WithLabelValues(userID).Inc()
}

// SetActiveUsers sets the number of users in the session table
func (m *Metrics) SetActiveUsers(count float64) {
	activeUsers.Set(count)
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
