package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"callsight/internal/backend"
)

// AnalyticsClient is the slice of the backend client the dashboard needs
type AnalyticsClient interface {
	CallRecords(ctx context.Context, query backend.CallRecordsQuery) (*backend.CallRecordsPage, error)
	Metrics(ctx context.Context, start, end time.Time) (json.RawMessage, error)
	Dashboard(ctx context.Context, start, end time.Time) (json.RawMessage, error)
	CallerInsights(ctx context.Context, start, end time.Time) (json.RawMessage, error)
	DirectionAnalysis(ctx context.Context, start, end time.Time) (json.RawMessage, error)
}

// AnalyticsHandler proxies call analytics from the backend to the
// dashboard UI. All computation is backend-owned; this layer only
// forwards date ranges and filters.
type AnalyticsHandler struct {
	client AnalyticsClient
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(client AnalyticsClient, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		client: client,
		logger: logger,
	}
}

// dateRange parses start_date/end_date query params, defaulting to the
// last 7 days.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid start_date, use YYYY-MM-DD",
				"code":  "INVALID_DATE",
			})
			return start, end, false
		}
		start = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid end_date, use YYYY-MM-DD",
				"code":  "INVALID_DATE",
			})
			return start, end, false
		}
		end = parsed
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "end_date must be after start_date",
			"code":  "INVALID_DATE",
		})
		return start, end, false
	}
	return start, end, true
}

// ListCallRecords returns a filtered page of the call log
// GET /v1/call-records
func (h *AnalyticsHandler) ListCallRecords(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	query := backend.CallRecordsQuery{
		StartDate:   start,
		EndDate:     end,
		Disposition: c.Query("disposition"),
		Direction:   c.Query("direction"),
		Source:      c.Query("src"),
		Destination: c.Query("dst"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}
	if raw := c.Query("limit"); raw != "" {
		query.Limit, _ = strconv.Atoi(raw)
	}
	if raw := c.Query("offset"); raw != "" {
		query.Offset, _ = strconv.Atoi(raw)
	}

	page, err := h.client.CallRecords(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list call records", "component", "web", "error", err)
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetMetrics returns aggregate call metrics
// GET /v1/call-records/metrics
func (h *AnalyticsHandler) GetMetrics(c *gin.Context) {
	h.proxy(c, h.client.Metrics)
}

// GetDashboard returns the precomputed dashboard payload
// GET /v1/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	h.proxy(c, h.client.Dashboard)
}

// GetCallerInsights returns per-caller analytics
// GET /v1/caller-insights
func (h *AnalyticsHandler) GetCallerInsights(c *gin.Context) {
	h.proxy(c, h.client.CallerInsights)
}

// GetDirectionAnalysis returns inbound/outbound/internal breakdowns
// GET /v1/direction-analysis
func (h *AnalyticsHandler) GetDirectionAnalysis(c *gin.Context) {
	h.proxy(c, h.client.DirectionAnalysis)
}

func (h *AnalyticsHandler) proxy(c *gin.Context, fetch func(ctx context.Context, start, end time.Time) (json.RawMessage, error)) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	payload, err := fetch(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("analytics request failed",
			"component", "web",
			"path", c.Request.URL.Path,
			"error", err,
		)
		writeAuthError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}
