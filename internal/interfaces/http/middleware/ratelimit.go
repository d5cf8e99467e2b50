package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// RateLimiter keeps one token bucket per client key. Each bucket holds limit
// tokens and refills one token every period/limit, so a client gets limit
// requests per period on average and a full burst after period of silence.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	period  time.Duration
	every   rate.Limit
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Decision describes the outcome of one Take
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the wait until the next token when the request was denied
	RetryAfter time.Duration
	// ResetAt is when the bucket will be full again
	ResetAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per period and
// starts its cleanup loop. Call Close to stop the loop.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		period:  period,
		every:   rate.Every(period / time.Duration(limit)),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup(period)
	return rl
}

// cleanup drops clients idle for a full period; their buckets are full again
// so dropping them loses no state.
func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, c := range rl.clients {
				if now.Sub(c.lastSeen) >= rl.period {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the cleanup loop
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Take consumes one token for key
func (rl *RateLimiter) Take(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay, ResetAt: rl.resetAt(c.limiter, now)}
	}

	return Decision{
		Allowed:   true,
		Remaining: int(math.Floor(c.limiter.TokensAt(now))),
		ResetAt:   rl.resetAt(c.limiter, now),
	}
}

func (rl *RateLimiter) resetAt(l *rate.Limiter, now time.Time) time.Time {
	missing := float64(rl.limit) - l.TokensAt(now)
	if missing <= 0 {
		return now
	}
	interval := rl.period / time.Duration(rl.limit)
	return now.Add(time.Duration(missing * float64(interval)))
}

// Allow reports whether a request from key is allowed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.Take(key).Allowed
}

// Limit returns the bucket size
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// RateLimit returns a middleware limiting requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Take(keyFunc(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(dto.MsgTooManyRequests))
			return
		}
		c.Next()
	}
}
