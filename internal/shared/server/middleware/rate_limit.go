package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"jobprep-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// AIRateLimitGroup covers routes that call the model.
	AIRateLimitGroup = "AI"
)

// RateLimitRule is a token bucket refilled at Rate tokens per second.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) unlimited() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

// RateLimitConfig maps route groups to rules. GroupFor picks the group for a
// request; an empty result means DefaultGroup.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps a separate set of callers per group, so spending the AI
// allowance leaves the default allowance untouched.
type RateLimiter struct {
	mu     sync.Mutex
	groups map[string]*groupLimiters
	now    func() time.Time
}

// groupLimiters holds one limiter per principal, all built from the same rule.
type groupLimiters struct {
	rule       RateLimitRule
	principals map[string]*rate.Limiter
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{groups: make(map[string]*groupLimiters), now: now}
}

// Allow spends one token from principal's bucket in group. When the bucket is
// empty it reports how long until the next token.
func (l *RateLimiter) Allow(group, principal string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.unlimited() {
		return true, 0
	}
	now := l.now()
	lim := l.limiterFor(group, principal, rule)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

func (l *RateLimiter) limiterFor(group, principal string, rule RateLimitRule) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.groups[group]
	if !ok || g.rule != rule {
		g = &groupLimiters{rule: rule, principals: make(map[string]*rate.Limiter)}
		l.groups[group] = g
	}
	lim, ok := g.principals[principal]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
		g.principals[principal] = lim
	}
	return lim
}

// RateLimit throttles callers per group. Routes whose group has no rule are
// not limited. Callers are identified by user ID, or client IP before auth.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.group(c)
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = c.ClientIP()
		}
		if allowed, wait := cfg.Limiter.Allow(group, principal, rule); !allowed {
			rejectRateLimited(c, wait)
			return
		}
		c.Next()
	}
}

func (cfg RateLimitConfig) group(c *gin.Context) string {
	if cfg.GroupFor != nil {
		if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
			return g
		}
	}
	return cfg.DefaultGroup
}

func rejectRateLimited(c *gin.Context, wait time.Duration) {
	if wait < time.Millisecond {
		wait = time.Second
	}
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", gin.H{
		"retryAfterMs": wait.Milliseconds(),
	})
}
