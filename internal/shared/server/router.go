package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobprep-backend/internal/interviews"
	"jobprep-backend/internal/resumes"
	"jobprep-backend/internal/shared/config"
	"jobprep-backend/internal/shared/metrics"
	"jobprep-backend/internal/shared/server/middleware"
	"jobprep-backend/internal/shared/server/respond"
)

// RouterDeps are the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config           config.Config
	ResumeHandler    *resumes.Handler
	InterviewHandler *interviews.Handler
	RateLimit        *middleware.RateLimitConfig
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.Success(c, http.StatusOK, gin.H{"status": "ok", "env": deps.Config.Env})
	})

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Config.Env))
	if deps.RateLimit != nil {
		authed.Use(middleware.RateLimit(*deps.RateLimit))
	}
	registerMeRoutes(authed)
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(authed)
	}
	if deps.InterviewHandler != nil {
		deps.InterviewHandler.RegisterRoutes(authed)
	}

	return r
}

// DefaultRateLimit throttles the routes that call the model harder than the rest.
func DefaultRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT":                   {Rate: 10, Burst: 40},
			middleware.AIRateLimitGroup: {Rate: 0.5, Burst: 10},
		},
		GroupFor: aiRouteGroup,
	}
}

var aiRoutes = map[string]struct{}{
	http.MethodPost + " /api/v1/resumes/upload":           {},
	http.MethodPost + " /api/v1/resumes/:id/chat":         {},
	http.MethodPost + " /api/v1/resumes/:id/analyze":      {},
	http.MethodPost + " /api/v1/interviews/ai/:id/start":  {},
	http.MethodPost + " /api/v1/interviews/ai/:id/answer": {},
	http.MethodPost + " /api/v1/interviews/ai/:id/end":    {},
}

func aiRouteGroup(c *gin.Context) string {
	if _, ok := aiRoutes[c.Request.Method+" "+c.FullPath()]; ok {
		return middleware.AIRateLimitGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
