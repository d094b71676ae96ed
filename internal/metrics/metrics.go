// Package metrics holds the Prometheus collectors of the Q&A board.
//
// All collectors register with the default registry through promauto, so
// promhttp.Handler() on /metrics exposes them without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qanda"

var (
	// HTTPRequests counts finished requests.
	// Labels: method, route (chi route pattern, not the raw path), status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	// HTTPDuration measures request latency.
	// Labels: method, route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RateLimited counts requests rejected with 429.
	// Labels: route
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-IP rate limiter",
	}, []string{"route"})

	// Logins counts login attempts.
	// Labels: method (password, github), result (success, failure)
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by method and result",
	}, []string{"method", "result"})

	// Registrations counts created accounts.
	// Labels: method (password, github, cli)
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Accounts created by method",
	}, []string{"method"})

	// ContentChanges counts question and answer mutations.
	// Labels: kind (question, answer), action (create, update, delete, restore)
	ContentChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "changes_total",
		Help:      "Question and answer mutations by kind and action",
	}, []string{"kind", "action"})

	// LikeToggles counts like/unlike actions.
	// Labels: action (like, unlike)
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "like_toggles_total",
		Help:      "Answer like and unlike actions",
	}, []string{"action"})
)
