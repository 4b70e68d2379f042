package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter throttles API traffic per client IP, with a tighter budget for
// verification attempts so code guessing stays impractical even within the
// stored attempt limit.
type RateLimiter struct {
	ipLimiters        map[string]*rate.Limiter
	verifyLimiters    map[string]*rate.Limiter
	ipMutex           sync.RWMutex
	verifyMutex       sync.RWMutex
	ipLimiterRate     rate.Limit
	verifyLimiterRate rate.Limit
	ipBurst           int
	verifyBurst       int
	cleanupTicker     *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(ipRequestsPerSecond, verifyRequestsPerMinute float64, ipBurst, verifyBurst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:        make(map[string]*rate.Limiter),
		verifyLimiters:    make(map[string]*rate.Limiter),
		ipLimiterRate:     rate.Limit(ipRequestsPerSecond),
		verifyLimiterRate: rate.Limit(verifyRequestsPerMinute / 60),
		ipBurst:           ipBurst,
		verifyBurst:       verifyBurst,
		cleanupTicker:     time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically removes old limiters to prevent memory leaks
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.ipMutex.Lock()
		rl.ipLimiters = make(map[string]*rate.Limiter)
		rl.ipMutex.Unlock()

		rl.verifyMutex.Lock()
		rl.verifyLimiters = make(map[string]*rate.Limiter)
		rl.verifyMutex.Unlock()
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.RLock()
	limiter, exists := rl.ipLimiters[ip]
	rl.ipMutex.RUnlock()

	if !exists {
		rl.ipMutex.Lock()
		limiter = rate.NewLimiter(rl.ipLimiterRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
		rl.ipMutex.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) getVerifyLimiter(key string) *rate.Limiter {
	rl.verifyMutex.RLock()
	limiter, exists := rl.verifyLimiters[key]
	rl.verifyMutex.RUnlock()

	if !exists {
		rl.verifyMutex.Lock()
		limiter = rate.NewLimiter(rl.verifyLimiterRate, rl.verifyBurst)
		rl.verifyLimiters[key] = limiter
		rl.verifyMutex.Unlock()
	}

	return limiter
}

// IPRateLimiterMiddleware limits requests based on IP address
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getIPLimiter(ip)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// VerifyRateLimiterMiddleware limits verification attempts per IP and
// verification ID, layered on top of the per-verification attempt budget.
func (rl *RateLimiter) VerifyRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		ipLimiter := rl.getIPLimiter(ip)
		if !ipLimiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded",
			})
			c.Abort()
			return
		}

		key := ip + ":" + c.Param("id")
		verifyLimiter := rl.getVerifyLimiter(key)
		if !verifyLimiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many verification attempts, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
