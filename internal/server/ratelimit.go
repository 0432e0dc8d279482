// -------------------------------------------------------------------------------
// Ratelimit - Per-Client Request Throttling
//
// Project: KCloud / Author: Alex Freidah
//
// Token-bucket rate limiting keyed by client IP. Buckets are created lazily
// and swept periodically so the map does not grow without bound under
// churn from many distinct clients.
// -------------------------------------------------------------------------------

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nestorara/kcloud-music-api/internal/config"
)

const (
	limiterIdleEvict   = 10 * time.Minute
	limiterSweepPeriod = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter tracks a token bucket per client IP.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(cfg.RequestsPerSec),
		burst:   cfg.Burst,
	}
	go rl.sweep()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = client
	}
	client.lastSeen = time.Now()
	return client.limiter.Allow()
}

func (rl *rateLimiter) sweep() {
	for range time.Tick(limiterSweepPeriod) {
		rl.mu.Lock()
		for ip, client := range rl.clients {
			if time.Since(client.lastSeen) > limiterIdleEvict {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// rateLimitMiddleware returns 429 when a client exhausts its bucket.
func rateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	rl := newRateLimiter(cfg)
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Message:   "too many requests",
				ErrorCode: "RATELIMITERROR",
			})
			return
		}
		c.Next()
	}
}
