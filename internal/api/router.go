// Package api exposes the query service over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"WeeklyStockPrice/internal/model"
	"WeeklyStockPrice/internal/query"
	"WeeklyStockPrice/internal/recorder"
)

// Options configures the router.
type Options struct {
	RateLimit float64
	RateBurst int
}

// NewRouter wires middleware and controllers.
func NewRouter(q *query.Service, rec recorder.Recorder, watchlist []model.Company, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RecoveryMiddleware, ZerologMiddleware())

	NewHealthController(q).RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(RateLimiter(opts.RateLimit, opts.RateBurst))
	{
		NewStockController(q).RegisterRoutes(api)
		NewWeeklyController(rec).RegisterRoutes(api)
		NewCompanyController(watchlist).RegisterRoutes(api)
	}
	return r
}
