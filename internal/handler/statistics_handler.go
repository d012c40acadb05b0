package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Auth
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Auth) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/statistics")
	statsGroup.Use(h.auth.RequirePermission("dashboard.read"))
	{
		statsGroup.GET("", h.GetStatistics)
		statsGroup.GET("/revenue", h.GetRevenue)
	}
}

// GetStatistics returns the dashboard counters
// @Summary      Get dashboard statistics
// @Description  Status counts for every record kind created in the range, open tickets by priority and invoice money
// @Tags         statistics
// @Produce      json
// @Param        start_date  query     string  false  "Start (RFC3339), defaults to the first of the month"
// @Param        end_date    query     string  false  "End (RFC3339), defaults to now"
// @Success      200         {object}  response.Response{data=model.DashboardStatistics}
// @Failure      400         {object}  response.Response
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDate, endDate, ok := h.dateRange(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetRevenue returns paid invoice revenue bucketed by period
// @Summary      Get revenue
// @Tags         statistics
// @Produce      json
// @Param        group_by    query     string  false  "week, month, quarter or year (default month)"
// @Param        start_date  query     string  false  "Start (RFC3339)"
// @Param        end_date    query     string  false  "End (RFC3339)"
// @Success      200         {object}  response.Response{data=[]model.RevenuePoint}
// @Failure      400         {object}  response.Response
// @Security     BearerAuth
// @Router       /api/statistics/revenue [get]
func (h *StatisticsHandler) GetRevenue(c *gin.Context) {
	startDate, endDate, ok := h.dateRange(c)
	if !ok {
		return
	}

	points, err := h.statisticsService.GetRevenue(c.Request.Context(), c.Query("group_by"), startDate, endDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}

// dateRange reads start_date/end_date, defaulting to the current month so far
func (h *StatisticsHandler) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := h.now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	if s := c.Query("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "invalid start_date format, expected RFC3339")
			return time.Time{}, time.Time{}, false
		}
		startDate = t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "invalid end_date format, expected RFC3339")
			return time.Time{}, time.Time{}, false
		}
		endDate = t
	}
	return startDate, endDate, true
}
