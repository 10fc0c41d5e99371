// Package metrics exposes Prometheus counters for the remote workflow, token refreshes and HTTP
// requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moodlist"

// Recorder owns a private registry so several recorders can coexist in one process.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	WorkflowsTotal  *prometheus.CounterVec
	WorkflowSeconds prometheus.Histogram
	RefreshesTotal  *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestSeconds  *prometheus.HistogramVec
	TracksMatched   prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		WorkflowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_workflows_total",
				Help:      "Remote playlist workflows by outcome step",
			},
			[]string{"step", "status"},
		),
		WorkflowSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_workflow_seconds",
				Help:      "Duration of remote playlist workflows",
				Buckets:   prometheus.DefBuckets,
			},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Access token refresh attempts by status",
			},
			[]string{"status"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, path and status code",
			},
			[]string{"method", "path", "code"},
		),
		RequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TracksMatched: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tracks_matched",
				Help:      "Tracks returned per remote search",
				Buckets:   prometheus.LinearBuckets(0, 5, 11),
			},
		),
	}

	r.registry.MustRegister(
		r.WorkflowsTotal,
		r.WorkflowSeconds,
		r.RefreshesTotal,
		r.RequestsTotal,
		r.RequestSeconds,
		r.TracksMatched,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordWorkflow counts a finished workflow. step is empty on success.
func (r *Recorder) RecordWorkflow(step string, d time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if step != "" {
		status = "error"
	} else {
		step = "done"
	}
	r.WorkflowsTotal.WithLabelValues(step, status).Inc()
	r.WorkflowSeconds.Observe(d.Seconds())
}

func (r *Recorder) RecordRefresh(err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.RefreshesTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordRequest(method, path string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	r.RequestSeconds.WithLabelValues(method, path).Observe(d.Seconds())
}

func (r *Recorder) RecordMatches(n int) {
	if r == nil {
		return
	}
	r.TracksMatched.Observe(float64(n))
}
