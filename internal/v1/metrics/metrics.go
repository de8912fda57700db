package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the lobby server.
//
// Naming convention: namespace_subsystem_name
// - namespace: blazer (application-level grouping)
// - subsystem: session, room, game, store (feature-level grouping)
//
// Metric types:
// - Gauge: current state (registered sessions)
// - Counter: cumulative events (rooms created, games started, events sent)

var (
	// ActiveSessions tracks the current number of registered streaming sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blazer",
		Subsystem: "session",
		Name:      "active_total",
		Help:      "Current number of registered streaming sessions",
	})

	// EventsSent tracks fan-out outcomes per event type.
	EventsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blazer",
		Subsystem: "session",
		Name:      "events_sent_total",
		Help:      "Membership events enqueued to session sinks",
	}, []string{"event_type", "status"})

	// RoomsCreated counts private rooms created via CreateRoom.
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blazer",
		Subsystem: "room",
		Name:      "created_total",
		Help:      "Total private rooms created",
	})

	// GamesStarted counts games created on room fill.
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blazer",
		Subsystem: "game",
		Name:      "started_total",
		Help:      "Total games started on room fill",
	})

	// CircuitBreakerState tracks breaker state per backend (0=closed, 1=open, 2=half-open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "blazer",
		Subsystem: "store",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"backend"})

	// CircuitBreakerFailures counts calls rejected by an open breaker.
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blazer",
		Subsystem: "store",
		Name:      "circuit_breaker_failures_total",
		Help:      "Calls rejected by an open circuit breaker",
	}, []string{"backend"})

	// RateLimitExceeded counts requests rejected by the rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blazer",
		Subsystem: "rpc",
		Name:      "rate_limit_exceeded_total",
		Help:      "RPCs rejected by the rate limiter",
	}, []string{"method"})
)
