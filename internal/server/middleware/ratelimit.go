package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

const (
	// DefaultClientTTL is how long an idle client bucket is kept.
	DefaultClientTTL = 10 * time.Minute
	// DefaultCleanupInterval is the period of the idle bucket sweep.
	DefaultCleanupInterval = time.Minute

	retryAfterSeconds = "1"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out token buckets, one shared bucket or one per
// client IP.
type RateLimiter struct {
	limit     rate.Limit
	burst     int
	perClient bool
	clientTTL time.Duration

	shared  *rate.Limiter
	mu      sync.Mutex
	buckets map[string]*bucket

	logger  observability.Logger
	metrics *observability.Metrics

	stop     chan struct{}
	stopOnce sync.Once
}

// RateLimiterOption customizes a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger logs rejections and sweeps to logger.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) { rl.logger = logger }
}

// WithRateLimiterMetrics counts rejections in metrics.
func WithRateLimiterMetrics(metrics *observability.Metrics) RateLimiterOption {
	return func(rl *RateLimiter) { rl.metrics = metrics }
}

// WithClientTTL sets how long an idle client bucket survives a sweep.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) { rl.clientTTL = ttl }
}

// NewRateLimiter allows rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int, perClient bool, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		perClient: perClient,
		clientTTL: DefaultClientTTL,
		shared:    rate.NewLimiter(rate.Limit(rps), burst),
		buckets:   map[string]*bucket{},
		logger:    observability.NopLogger(),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow takes one token for clientIP.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if !rl.perClient {
		return rl.shared.Allow()
	}
	return rl.allowPerClient(clientIP, time.Now())
}

func (rl *RateLimiter) allowPerClient(clientIP string, now time.Time) bool {
	rl.mu.Lock()
	b := rl.buckets[clientIP]
	if b == nil {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[clientIP] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// CleanupOldClients drops client buckets unused for longer than maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	rl.mu.Lock()
	before := len(rl.buckets)
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
	after := len(rl.buckets)
	rl.mu.Unlock()

	if before != after {
		rl.logger.Debug("rate limiter buckets swept",
			observability.Int("removed", before-after),
			observability.Int("remaining", after),
		)
	}
}

// StartCleanup sweeps idle client buckets every interval until Stop. It
// does nothing for a shared limiter.
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	if !rl.perClient {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				rl.CleanupOldClients(rl.clientTTL)
			}
		}
	}()
}

// Stop ends the sweep goroutine. Repeated calls are no-ops.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// ClientCount is the number of tracked client buckets.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// RateLimit rejects requests beyond the limit with 429 and a Retry-After
// header. A nil limiter lets everything through.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rl.Allow(ip) {
			c.Next()
			return
		}

		route := routeLabel(c)
		rl.logger.WithContext(c.Request.Context()).Warn("rate limit exceeded",
			observability.String("client_ip", ip),
			observability.String("route", route),
		)
		if rl.metrics != nil {
			rl.metrics.RecordRateLimitHit(route)
		}

		c.Header("Retry-After", retryAfterSeconds)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
	}
}
