package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"kosh/pkg/metrics"
)

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// clientLimiter is one client's token bucket plus the activity timestamp the
// sweeper uses to expire it.
type clientLimiter struct {
	bucket   *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (l *clientLimiter) touch() {
	l.mu.Lock()
	l.lastSeen = time.Now()
	l.mu.Unlock()
}

func (l *clientLimiter) seen() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeen
}

// limiterPool maps client IPs to their buckets. Entries idle longer than
// maxAge are swept periodically so the map does not grow without bound.
type limiterPool struct {
	mu       sync.RWMutex
	clients  map[string]*clientLimiter
	rps      float64
	burst    int
	maxAge   time.Duration
	interval time.Duration
}

func newLimiterPool(config RateLimitConfig) *limiterPool {
	p := &limiterPool{
		clients:  make(map[string]*clientLimiter),
		rps:      config.RPS,
		burst:    config.Burst,
		maxAge:   config.MaxAge,
		interval: config.CleanupInterval,
	}
	go p.sweep()
	return p
}

func (p *limiterPool) get(clientIP string) *clientLimiter {
	p.mu.RLock()
	limiter, ok := p.clients[clientIP]
	p.mu.RUnlock()
	if ok {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if limiter, ok = p.clients[clientIP]; ok {
		return limiter
	}
	limiter = &clientLimiter{
		bucket:   rate.NewLimiter(rate.Limit(p.rps), p.burst),
		lastSeen: time.Now(),
	}
	p.clients[clientIP] = limiter
	return limiter
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-p.maxAge)
		p.mu.Lock()
		for ip, limiter := range p.clients {
			if limiter.seen().Before(cutoff) {
				delete(p.clients, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimitMiddleware enforces a per-client-IP token bucket and reports the
// limit state in X-RateLimit headers.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(config)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		limiter := pool.get(clientIP)
		limiter.touch()

		c.Header("X-RateLimit-Limit", strconv.Itoa(int(config.RPS)))

		if !limiter.bucket.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			c.Abort()
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		remaining := limiter.bucket.Burst() - int(limiter.bucket.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}
