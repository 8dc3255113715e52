// Package metrics exposes Prometheus collectors for the voting API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ReasonDuplicate = "duplicate"
	ReasonMalformed = "malformed"

	// UnmatchedRoute labels requests no route matched.
	UnmatchedRoute = "unmatched"
)

type Metrics struct {
	votesCast       prometheus.Counter
	votesRejected   *prometheus.CounterVec
	publishFailures prometheus.Counter
	publishDuration prometheus.Histogram
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers all collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		votesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "votes_cast_total",
			Help: "Total number of votes published to the broker",
		}),
		votesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "votes_rejected_total",
			Help: "Total number of vote requests rejected before publishing",
		}, []string{"reason"}),
		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vote_publish_failures_total",
			Help: "Total number of votes that could not be published",
		}),
		publishDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vote_publish_duration_seconds",
			Help:    "Time spent publishing a vote to the broker",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
}

func (m *Metrics) VoteCast() {
	m.votesCast.Inc()
}

func (m *Metrics) VoteRejected(reason string) {
	m.votesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) PublishFailed() {
	m.publishFailures.Inc()
}

func (m *Metrics) ObservePublish(d time.Duration) {
	m.publishDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by the chi route
// pattern. Requests that match no route share the UnmatchedRoute label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := UnmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
