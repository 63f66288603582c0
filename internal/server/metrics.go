package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dqguard",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dqguard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dqguard",
		Name:      "pipeline_duration_seconds",
		Help:      "Time spent in each pipeline stage.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
	}, []string{"stage"})

	rowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dqguard",
		Name:      "rows_processed_total",
		Help:      "Dataset rows loaded from uploads.",
	})

	rowsFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dqguard",
		Name:      "rows_flagged_total",
		Help:      "Rows flagged as anomalous.",
	})
)

// instrument records request counts and latency keyed by the chi route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func observeStage(stage string, start time.Time) {
	pipelineDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func observeElapsed(stage string, d time.Duration) {
	pipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}
