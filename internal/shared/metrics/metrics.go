package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	interviewsStartedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "interviews_started_total",
		Help: "Total interview sessions started",
	})
	interviewsCompletedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "interviews_completed_total",
		Help: "Total interview sessions completed",
	})
	interviewAnswersTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "interview_answers_total",
		Help: "Total interview answers accepted",
	})

	resumeParsedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "resume_parsed_total",
		Help: "Resumes parsed by source tier",
	}, []string{"source"})
	aiCallsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_calls_total",
		Help: "AI gateway calls by operation and outcome",
	}, []string{"op", "outcome"})
	aiFallbacksTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_fallbacks_total",
		Help: "Operations served by a fallback result",
	}, []string{"op"})

	aiCallDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ai_call_duration_ms",
		Help:    "AI gateway call duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	}, []string{"op"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncInterviewStarted increments the started interviews counter.
func IncInterviewStarted() {
	interviewsStartedTotal.Inc()
}

// IncInterviewAnswered increments the accepted answers counter.
func IncInterviewAnswered() {
	interviewAnswersTotal.Inc()
}

// IncInterviewCompleted increments the completed interviews counter.
func IncInterviewCompleted() {
	interviewsCompletedTotal.Inc()
}

// IncResumeParsed counts a parsed resume by the tier that produced it.
func IncResumeParsed(source string) {
	resumeParsedTotal.WithLabelValues(source).Inc()
}

// IncAIFallback counts an operation that fell back to its fixed or heuristic result.
func IncAIFallback(op string) {
	aiFallbacksTotal.WithLabelValues(op).Inc()
}

// ObserveAICall records one gateway call and its duration in milliseconds.
func ObserveAICall(op string, ok bool, durationMs float64) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	aiCallsTotal.WithLabelValues(op, outcome).Inc()
	if durationMs < 0 {
		durationMs = 0
	}
	aiCallDuration.WithLabelValues(op).Observe(durationMs)
}

// Handler exposes the registry in Prometheus exposition format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
}
