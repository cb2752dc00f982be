// Package metrics exposes Prometheus collectors for the job search service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal          *prometheus.CounterVec
	searchDurationSeconds  *prometheus.HistogramVec
	jobsFetchedTotal       prometheus.Counter
	analysisBatchesTotal   *prometheus.CounterVec
	backgroundJobsActive   prometheus.Gauge
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec

	once sync.Once
)

// Search execution modes reported on searches_total.
const (
	ModeSync       = "sync"
	ModeBackground = "background"
)

// Analysis batch outcomes reported on analysis_batches_total.
const (
	BatchOK     = "ok"
	BatchFailed = "failed"
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsearch_searches_total",
				Help: "Total number of search requests accepted, labeled by execution mode.",
			},
			[]string{"mode"},
		)

		searchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobsearch_search_duration_seconds",
				Help:    "Histogram of end-to-end search durations, labeled by execution mode.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		)

		jobsFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobsearch_jobs_fetched_total",
				Help: "Total number of raw job records returned by the fetch collaborator.",
			},
		)

		analysisBatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsearch_analysis_batches_total",
				Help: "Total number of analysis batches processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		backgroundJobsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobsearch_background_jobs_active",
				Help: "Number of background search jobs currently running.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method"},
		)
	})
}

// RecordSearch counts an accepted search request.
func RecordSearch(mode string) {
	if searchesTotal != nil {
		searchesTotal.WithLabelValues(mode).Inc()
	}
}

// ObserveSearchDuration records how long a search took end to end.
func ObserveSearchDuration(mode string, d time.Duration) {
	if searchDurationSeconds != nil {
		searchDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
	}
}

// AddJobsFetched accumulates raw fetch counts.
func AddJobsFetched(n int) {
	if jobsFetchedTotal != nil && n > 0 {
		jobsFetchedTotal.Add(float64(n))
	}
}

// RecordBatch counts one analysis batch by outcome.
func RecordBatch(outcome string) {
	if analysisBatchesTotal != nil {
		analysisBatchesTotal.WithLabelValues(outcome).Inc()
	}
}

// BackgroundJobStarted increments the active background job gauge.
func BackgroundJobStarted() {
	if backgroundJobsActive != nil {
		backgroundJobsActive.Inc()
	}
}

// BackgroundJobFinished decrements the active background job gauge.
func BackgroundJobFinished() {
	if backgroundJobsActive != nil {
		backgroundJobsActive.Dec()
	}
}

// Middleware instruments HTTP handlers with request counts and latencies.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		if httpRequestsTotal != nil {
			httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
		}
		if httpRequestDurationSec != nil {
			httpRequestDurationSec.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
