package adminhttp

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"autopilot/internal/autopilot"
	"autopilot/internal/logger"
	"autopilot/internal/risk"
	"autopilot/internal/store/reportstore"
)

// SchedulerControl is the slice of the scheduler the admin surface needs.
type SchedulerControl interface {
	Start()
	Stop()
	SetInterval(interval time.Duration) error
	SetWatchlist(symbols []string) error
	SetConstraints(constraints autopilot.Constraints)
	SetDryRun(dryRun bool)
	Status() autopilot.Status
}

// RiskStatus exposes the read side of the risk policy.
type RiskStatus interface {
	Limits() risk.Limits
	Watermarks() (peak, dailyStart float64, dailyDate string)
}

// ReportReader lists persisted cycle reports.
type ReportReader interface {
	ListReports(ctx context.Context, limit int) ([]reportstore.CycleReportModel, error)
	FindReport(ctx context.Context, id string) (*reportstore.CycleReportModel, error)
}

type handlers struct {
	scheduler SchedulerControl
	risk      RiskStatus
	reports   ReportReader
}

func (h *handlers) register(group *gin.RouterGroup) {
	group.GET("/status", h.handleStatus)
	group.POST("/start", h.handleStart)
	group.POST("/stop", h.handleStop)
	group.PUT("/interval", h.handleSetInterval)
	group.PUT("/watchlist", h.handleSetWatchlist)
	group.PUT("/constraints", h.handleSetConstraints)
	group.PUT("/dry-run", h.handleSetDryRun)
	group.GET("/risk", h.handleRisk)
	group.GET("/reports", h.handleListReports)
	group.GET("/reports/:id", h.handleReportByID)
}

func (h *handlers) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *handlers) handleStart(c *gin.Context) {
	h.scheduler.Start()
	logger.Infof("[api] autopilot started ip=%s", c.ClientIP())
	c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *handlers) handleStop(c *gin.Context) {
	h.scheduler.Stop()
	logger.Infof("[api] autopilot stopped ip=%s", c.ClientIP())
	c.JSON(http.StatusOK, h.scheduler.Status())
}

type intervalRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
}

func (h *handlers) handleSetInterval(c *gin.Context) {
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.scheduler.SetInterval(time.Duration(req.IntervalSeconds) * time.Second); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] interval set to %ds ip=%s", req.IntervalSeconds, c.ClientIP())
	c.JSON(http.StatusOK, h.scheduler.Status())
}

type watchlistRequest struct {
	Watchlist []string `json:"watchlist"`
}

func (h *handlers) handleSetWatchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.scheduler.SetWatchlist(req.Watchlist); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] watchlist set (%d symbols) ip=%s", len(req.Watchlist), c.ClientIP())
	c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *handlers) handleSetConstraints(c *gin.Context) {
	var req autopilot.Constraints
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.scheduler.SetConstraints(req)
	c.JSON(http.StatusOK, h.scheduler.Status())
}

type dryRunRequest struct {
	DryRun *bool `json:"dry_run"`
}

func (h *handlers) handleSetDryRun(c *gin.Context) {
	var req dryRunRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DryRun == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run is required"})
		return
	}
	h.scheduler.SetDryRun(*req.DryRun)
	logger.Infof("[api] dry-run set to %v ip=%s", *req.DryRun, c.ClientIP())
	c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *handlers) handleRisk(c *gin.Context) {
	if h.risk == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "risk policy unavailable"})
		return
	}
	peak, dailyStart, dailyDate := h.risk.Watermarks()
	c.JSON(http.StatusOK, gin.H{
		"limits":           h.risk.Limits(),
		"peak_value":       peak,
		"daily_start":      dailyStart,
		"daily_start_date": dailyDate,
	})
}

func (h *handlers) handleListReports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report store unavailable"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	reports, err := h.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] list reports failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *handlers) handleReportByID(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report store unavailable"})
		return
	}
	report, err := h.reports.FindReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Errorf("[api] report lookup failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
