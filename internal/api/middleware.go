package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an ID, reusing the caller's if present,
// and attaches a logger carrying it to the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		logger := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

// ZerologMiddleware logs one line per request. Health checks are skipped.
func ZerologMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		query := c.Request.URL.RawQuery

		c.Next()

		ev := zerolog.Ctx(c.Request.Context()).Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = zerolog.Ctx(c.Request.Context()).Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Str("client_ip", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP Request")
	}
}

// RecoveryMiddleware turns a handler panic into a 500.
func RecoveryMiddleware(c *gin.Context) {
	defer func() {
		if err := recover(); err != nil {
			zerolog.Ctx(c.Request.Context()).Error().
				Interface("panic", err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("PANIC_RECOVERED")

			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
				Error:   "internal_error",
				Message: "internal server error",
			})
		}
	}()
	c.Next()
}

// RateLimiter allows perSecond requests per client IP with the given burst.
// Idle limiters expire after ten minutes. perSecond <= 0 disables limiting.
func RateLimiter(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := gocache.New(10*time.Minute, 20*time.Minute)
	retryAfter := strconv.Itoa(int(max(1, 1/perSecond)))

	return func(c *gin.Context) {
		ip := c.ClientIP()

		limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
		if err := limiters.Add(ip, limiter, gocache.DefaultExpiration); err != nil {
			if v, ok := limiters.Get(ip); ok {
				limiter = v.(*rate.Limiter)
			}
		}

		if !limiter.Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error:   "rate_limited",
				Message: "too many requests, retry after " + retryAfter + "s",
			})
			return
		}
		c.Next()
	}
}
