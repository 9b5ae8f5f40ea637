package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"uplora/internal/auth"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRetryAfter    = "Retry-After"
	msgRateLimited      = "rate limit exceeded"
)

// RateLimiter implements token bucket rate limiting per identity
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware limits authenticated callers by user id and everyone else by
// client address.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if userID, err := auth.GetUserID(c); err == nil {
				key = "user:" + userID.String()
			}

			limiter := rl.getLimiter(key)
			header := c.Response().Header()
			header.Set(headerRateLimit, strconv.Itoa(rl.burst))

			if !limiter.Allow() {
				header.Set(headerRateRemaining, "0")
				header.Set(headerRetryAfter, "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, msgRateLimited)
			}

			header.Set(headerRateRemaining, strconv.Itoa(int(limiter.Tokens())))
			return next(c)
		}
	}
}

// NewStrictRateLimiter is used on the unauthenticated auth endpoints.
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 10)
}

// NewGlobalRateLimiter applies to every request.
func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(100, 200)
}
