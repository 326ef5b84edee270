package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/extract"
	"jobprep-backend/internal/interviews"
	"jobprep-backend/internal/resumes"
	"jobprep-backend/internal/shared/config"
	"jobprep-backend/internal/shared/server/middleware"
	localstore "jobprep-backend/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, limit *middleware.RateLimitConfig) http.Handler {
	t.Helper()
	catalog := prompts.Default()
	gw := ai.Disabled{}
	resumeSvc := resumes.NewService(
		resumes.NewMemoryRepo(),
		localstore.New(t.TempDir()),
		resumes.NewParser(gw, extract.Extractor{}, catalog),
		resumes.NewScorer(gw, catalog),
		resumes.NewAdvisor(gw, catalog),
	)
	interviewSvc := interviews.NewService(interviews.NewMemoryStore(time.Now), gw, catalog)

	return NewRouter(RouterDeps{
		Config:           config.Config{Env: "dev", CORSAllowOrigin: []string{"http://localhost:5173"}},
		ResumeHandler:    resumes.NewHandler(resumeSvc),
		InterviewHandler: interviews.NewHandler(interviewSvc),
		RateLimit:        limit,
	})
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestHealthNeedsNoIdentity(t *testing.T) {
	r := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "interviews_started_total")
}

func TestResumeRoutesRequireIdentity(t *testing.T) {
	r := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil))

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decode(t, resp)["code"])
}

func TestMeReturnsGuestIdentity(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	user, ok := decode(t, resp)["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "guest:abc", user["id"])
	assert.Equal(t, true, user["isGuest"])
}

func TestInterviewStartThroughRouter(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interviews/ai/iv-1/start",
		strings.NewReader(`{"role":"Backend Engineer","difficulty":"easy"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, decode(t, resp)["success"])
}

func TestDefaultRateLimitThrottlesModelRoutes(t *testing.T) {
	limit := DefaultRateLimit()
	limit.Rules = map[string]middleware.RateLimitRule{
		"DEFAULT":                   {Rate: 100, Burst: 100},
		middleware.AIRateLimitGroup: {Rate: 0.001, Burst: 1},
	}
	r := newTestRouter(t, &limit)

	send := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Guest-Id", "limited")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/v1/interviews/ai/iv-2/start", `{}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/v1/interviews/ai/iv-3/start", `{}`))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/v1/resumes", ""))
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
