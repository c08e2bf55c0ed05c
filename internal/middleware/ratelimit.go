package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/pharmassist-medsafety/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client. Idle clients age out of a
// bounded LRU.
type RateLimiter struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst per client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	limiter, ok := rl.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients.Add(client, limiter)
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects clients over their budget with 429. Authenticated
// requests are keyed by user id, anonymous ones by client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := "1"
	if rl.limit > 0 && rl.limit < 1 {
		retryAfter = strconv.Itoa(int(1/float64(rl.limit) + 0.5))
	}
	return func(c *gin.Context) {
		client := c.GetString(userIDKey)
		if client == "" {
			client = "ip:" + c.ClientIP()
		}
		if !rl.Allow(client) {
			c.Header("Retry-After", retryAfter)
			Abort(c, http.StatusTooManyRequests, domain.CodeRateLimit, "Too many requests")
			return
		}
		c.Next()
	}
}

// RateLimit builds the middleware from config, or a pass-through when rate
// limiting is disabled.
func RateLimit(cfg domain.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst).Middleware()
}
