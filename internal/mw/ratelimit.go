package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

// IPRateLimiter keeps one token bucket per client IP. Buckets expire after
// idle without requests, so the set stays bounded by recent clients.
type IPRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	idle     time.Duration
	r        rate.Limit
	b        int
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: cache.New(idle, 2*idle),
		idle:     idle,
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the bucket for ip, creating it if needed. Every call
// pushes the bucket's expiry out by the idle window.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.limiters.Set(ip, limiter, i.idle)
	return limiter.(*rate.Limiter)
}

// RateLimiter is a middleware for per-client token bucket rate limiting.
// clientIP resolves the bucket key for a request.
func RateLimiter(r rate.Limit, b int, clientIP func(*gin.Context) string) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b, limiterIdleTTL)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(clientIP(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
