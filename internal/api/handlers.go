package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/calculator"
	"WeeklyStockPrice/internal/model"
	"WeeklyStockPrice/internal/query"
	"WeeklyStockPrice/internal/recorder"
)

const (
	defaultMoversLimit = 10
	maxMoversLimit     = 100
)

// StockController serves the price, trend and analysis endpoints.
type StockController struct {
	Query *query.Service
}

func NewStockController(q *query.Service) *StockController {
	return &StockController{Query: q}
}

func (ctrl *StockController) RegisterRoutes(router *gin.RouterGroup) {
	stocks := router.Group("/stocks/:symbol")
	stocks.GET("/price", ctrl.price)
	stocks.GET("/trend", ctrl.trend)
	stocks.GET("/analysis", ctrl.analysis)
	stocks.DELETE("/cache", ctrl.invalidate)
}

type trendResponse struct {
	Symbol model.Symbol `json:"symbol"`
	Period model.Period `json:"period"`
	model.TrendResult
	StartTime  time.Time       `json:"startTime"`
	EndTime    time.Time       `json:"endTime"`
	StartPrice decimal.Decimal `json:"startPrice"`
	EndPrice   decimal.Decimal `json:"endPrice"`
}

type analysisResponse struct {
	Symbol  model.Symbol `json:"symbol"`
	Period  model.Period `json:"period"`
	Windows []int        `json:"windows"`
	model.AnalysisResult
}

func (ctrl *StockController) price(c *gin.Context) {
	symbol, err := model.ParseSymbol(c.Param("symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	q, err := ctrl.Query.Latest(c.Request.Context(), symbol)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (ctrl *StockController) trend(c *gin.Context) {
	symbol, err := model.ParseSymbol(c.Param("symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	period, err := model.ParsePeriod(c.DefaultQuery("period", string(model.Period1M)))
	if err != nil {
		abortWithError(c, err)
		return
	}
	t, err := ctrl.Query.Trend(c.Request.Context(), symbol, period)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trendResponse{
		Symbol:      symbol,
		Period:      period,
		TrendResult: t,
		StartTime:   t.First.Time,
		EndTime:     t.Last.Time,
		StartPrice:  t.First.Price,
		EndPrice:    t.Last.Price,
	})
}

func (ctrl *StockController) analysis(c *gin.Context) {
	symbol, err := model.ParseSymbol(c.Param("symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	var period model.Period
	if raw := c.Query("period"); raw != "" {
		if period, err = model.ParsePeriod(raw); err != nil {
			abortWithError(c, err)
			return
		}
	}
	windows, err := parseWindows(c.Query("windows"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := ctrl.Query.Analysis(c.Request.Context(), symbol, period, windows)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if period == "" {
		period = ctrl.Query.AnalysisPeriod()
	}
	if len(windows) == 0 {
		windows = query.DefaultWindows
	}
	windows, _ = calculator.NormalizeWindows(windows)
	c.JSON(http.StatusOK, analysisResponse{
		Symbol:         symbol,
		Period:         period,
		Windows:        windows,
		AnalysisResult: res,
	})
}

func (ctrl *StockController) invalidate(c *gin.Context) {
	symbol, err := model.ParseSymbol(c.Param("symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	n, err := ctrl.Query.Invalidate(c.Request.Context(), symbol)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "invalidated": n})
}

// parseWindows reads a comma-separated list of window sizes. Empty means default.
func parseWindows(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: window %q is not an integer", apperr.ErrInvalidInput, p)
		}
		out = append(out, w)
	}
	return out, nil
}

// WeeklyController serves the collected weekly snapshots.
type WeeklyController struct {
	Recorder recorder.Recorder
}

func NewWeeklyController(rec recorder.Recorder) *WeeklyController {
	return &WeeklyController{Recorder: rec}
}

func (ctrl *WeeklyController) RegisterRoutes(router *gin.RouterGroup) {
	weekly := router.Group("/weekly")
	weekly.GET("/top-gainers", ctrl.topGainers)
	weekly.GET("/top-losers", ctrl.topLosers)
	weekly.GET("/stats", ctrl.stats)
	weekly.GET("/latest", ctrl.latest)
}

func (ctrl *WeeklyController) topGainers(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	snaps, err := ctrl.Recorder.TopGainers(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(snaps))
}

func (ctrl *WeeklyController) topLosers(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	snaps, err := ctrl.Recorder.TopLosers(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(snaps))
}

func (ctrl *WeeklyController) stats(c *gin.Context) {
	stats, err := ctrl.Recorder.MarketStats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ctrl *WeeklyController) latest(c *gin.Context) {
	snaps, err := ctrl.Recorder.LatestWeekly(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(snaps))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultMoversLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxMoversLimit {
		return 0, fmt.Errorf("%w: limit must be an integer between 1 and %d", apperr.ErrInvalidInput, maxMoversLimit)
	}
	return n, nil
}

func nonNil(snaps []model.WeeklySnapshot) []model.WeeklySnapshot {
	if snaps == nil {
		return []model.WeeklySnapshot{}
	}
	return snaps
}

// CompanyController serves the watchlist registry.
type CompanyController struct {
	Watchlist []model.Company
}

func NewCompanyController(watchlist []model.Company) *CompanyController {
	return &CompanyController{Watchlist: watchlist}
}

func (ctrl *CompanyController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/companies", ctrl.list)
}

// list returns the watchlist, optionally filtered by ?country= and ?market=.
func (ctrl *CompanyController) list(c *gin.Context) {
	country := strings.ToUpper(c.Query("country"))
	market := strings.ToUpper(c.Query("market"))
	out := make([]model.Company, 0, len(ctrl.Watchlist))
	for _, co := range ctrl.Watchlist {
		if country != "" && strings.ToUpper(co.Country) != country {
			continue
		}
		if market != "" && strings.ToUpper(co.Market) != market {
			continue
		}
		out = append(out, co)
	}
	c.JSON(http.StatusOK, gin.H{"total": len(out), "companies": out})
}

// HealthController reports liveness plus cache counters.
type HealthController struct {
	Query   *query.Service
	Started time.Time
}

func NewHealthController(q *query.Service) *HealthController {
	return &HealthController{Query: q, Started: time.Now()}
}

func (ctrl *HealthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", ctrl.healthCheck)
	router.HEAD("/health", ctrl.healthCheck)
}

func (ctrl *HealthController) healthCheck(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"source": ctrl.Query.Source(),
		"uptime": time.Since(ctrl.Started).Round(time.Second).String(),
		"cache":  ctrl.Query.CacheStats(),
	})
}
