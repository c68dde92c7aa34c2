package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/config"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idle limiters are evicted after this long, a returning client starts with a full bucket
const limiterIdleTTL = 15 * time.Minute

// RateLimiter throttles a route per client IP with a token bucket
type RateLimiter struct {
	limiters *gocache.Cache
	limit    rate.Limit
	burst    int
	logger   *logger.Logger
}

// NewLoginRateLimiter builds the limiter guarding the login route from auth.login_rate and auth.login_burst
func NewLoginRateLimiter(cfg *config.Configuration, logger *logger.Logger) *RateLimiter {
	return NewRateLimiter(rate.Limit(cfg.Auth.LoginRate), cfg.Auth.LoginBurst, logger)
}

func NewRateLimiter(limit rate.Limit, burst int, logger *logger.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: gocache.New(limiterIdleTTL, 2*limiterIdleTTL),
		limit:    limit,
		burst:    burst,
		logger:   logger,
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			l.logger.WithContext(c.Request.Context()).Warnw("rate limit exceeded", "ip", ip, "path", c.FullPath())
			_ = c.Error(ierr.NewErrorf("rate limit exceeded for %s", ip).
				WithHint("Too many attempts. Please try again later").
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if cached, ok := l.limiters.Get(key); ok {
		l.limiters.SetDefault(key, cached)
		return cached.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	// Add fails when another request stored a limiter for key first
	if err := l.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		if cached, ok := l.limiters.Get(key); ok {
			return cached.(*rate.Limiter)
		}
	}
	return limiter
}
