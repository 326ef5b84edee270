package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabeledCountersTrackEachSeries(t *testing.T) {
	before := testutil.ToFloat64(resumeParsedTotal.WithLabelValues("heuristic"))
	IncResumeParsed("heuristic")
	IncResumeParsed("heuristic")
	assert.Equal(t, before+2, testutil.ToFloat64(resumeParsedTotal.WithLabelValues("heuristic")))

	fallbacks := testutil.ToFloat64(aiFallbacksTotal.WithLabelValues("interview.feedback"))
	IncAIFallback("interview.feedback")
	assert.Equal(t, fallbacks+1, testutil.ToFloat64(aiFallbacksTotal.WithLabelValues("interview.feedback")))
}

func TestObserveAICallSplitsOutcome(t *testing.T) {
	failed := testutil.ToFloat64(aiCallsTotal.WithLabelValues("resume.parse_text", "error"))
	ok := testutil.ToFloat64(aiCallsTotal.WithLabelValues("resume.parse_text", "ok"))

	ObserveAICall("resume.parse_text", false, 120)
	ObserveAICall("resume.parse_text", true, -5)

	assert.Equal(t, failed+1, testutil.ToFloat64(aiCallsTotal.WithLabelValues("resume.parse_text", "error")))
	assert.Equal(t, ok+1, testutil.ToFloat64(aiCallsTotal.WithLabelValues("resume.parse_text", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(aiCallDuration, "ai_call_duration_ms"))
}

func TestInterviewCounters(t *testing.T) {
	started := testutil.ToFloat64(interviewsStartedTotal)
	answered := testutil.ToFloat64(interviewAnswersTotal)
	completed := testutil.ToFloat64(interviewsCompletedTotal)

	IncInterviewStarted()
	IncInterviewAnswered()
	IncInterviewAnswered()
	IncInterviewCompleted()

	assert.Equal(t, started+1, testutil.ToFloat64(interviewsStartedTotal))
	assert.Equal(t, answered+2, testutil.ToFloat64(interviewAnswersTotal))
	assert.Equal(t, completed+1, testutil.ToFloat64(interviewsCompletedTotal))
}

func TestHandlerServesExpositionFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "interviews_started_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
