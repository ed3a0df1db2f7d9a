package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by all counters.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

var BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docqa_backend_requests_total",
	Help: "Backend requests labelled by operation and outcome",
}, []string{"operation", "outcome"})

var backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "docqa_backend_request_duration_seconds",
	Help:    "Latency of backend calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"operation"})

var UploadedFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docqa_uploaded_files_total",
	Help: "Files processed by the upload pipeline, by outcome",
}, []string{"outcome"})

var QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docqa_questions_total",
	Help: "Question cycles completed by the conversation engine, by outcome",
}, []string{"outcome"})

var questionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "docqa_questions_in_flight",
	Help: "Questions awaiting an answer",
})

func CaptureBackendRequest(operation, outcome string, elapsed time.Duration) {
	BackendRequestsTotal.WithLabelValues(operation, outcome).Inc()
	backendLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func CaptureUpload(outcome string) {
	UploadedFilesTotal.WithLabelValues(outcome).Inc()
}

func QuestionStarted() {
	questionsInFlight.Inc()
}

func QuestionFinished(outcome string) {
	questionsInFlight.Dec()
	QuestionsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry on /metrics.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}
