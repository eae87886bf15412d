package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fieldtrack/api/internal/service"
)

// ViolationHandler exposes the violation ledger, alert center and reporting
type ViolationHandler struct {
	violationService *service.ViolationService
	notifierService  *service.NotifierService
	reportService    *service.ReportService
	jetstream        *service.JetStreamService
}

// NewViolationHandler creates a new violation handler
func NewViolationHandler(violationService *service.ViolationService, notifierService *service.NotifierService, reportService *service.ReportService, jetstream *service.JetStreamService) *ViolationHandler {
	return &ViolationHandler{
		violationService: violationService,
		notifierService:  notifierService,
		reportService:    reportService,
		jetstream:        jetstream,
	}
}

// List returns ledger records, newest first
// @Summary List violations
// @Tags Violations
// @Produce json
// @Security BearerAuth
// @Param worker_id query int false "Worker ID"
// @Param geofence_id query int false "Geofence ID"
// @Param open_only query bool false "Only open violations"
// @Param start query string false "Start time (RFC3339)"
// @Param end query string false "End time (RFC3339)"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /violations [get]
func (h *ViolationHandler) List(c *gin.Context) {
	var filter service.ViolationFilter

	if v := c.Query("worker_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker_id"})
			return
		}
		filter.WorkerID = uint(id)
	}
	if v := c.Query("geofence_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence_id"})
			return
		}
		filter.GeofenceID = uint(id)
	}
	filter.OpenOnly = c.Query("open_only") == "true"

	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start time"})
			return
		}
		filter.Start = &t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end time"})
			return
		}
		filter.End = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.violationService.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetStats summarizes the ledger
// @Summary Violation statistics
// @Tags Violations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ViolationStats
// @Router /violations/stats [get]
func (h *ViolationHandler) GetStats(c *gin.Context) {
	stats, err := h.violationService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetOpen reports whether a worker is currently in violation of a geofence
// @Summary Open violation for a pair
// @Tags Violations
// @Produce json
// @Security BearerAuth
// @Param worker_id query int true "Worker ID"
// @Param geofence_id query int true "Geofence ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /violations/open [get]
func (h *ViolationHandler) GetOpen(c *gin.Context) {
	workerID, err := strconv.Atoi(c.Query("worker_id"))
	if err != nil || workerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker_id"})
		return
	}
	geofenceID, err := strconv.Atoi(c.Query("geofence_id"))
	if err != nil || geofenceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence_id"})
		return
	}

	rec, err := h.violationService.OpenFor(c.Request.Context(), uint(workerID), uint(geofenceID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"violating": rec != nil,
		"violation": rec,
	})
}

// Export streams an XLSX violation report
// @Summary Export violations
// @Description Generate an XLSX report of violations in a time range
// @Tags Violations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start query string true "Start time (RFC3339)"
// @Param end query string true "End time (RFC3339)"
// @Param worker_id query int false "Worker ID"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /violations/export [get]
func (h *ViolationHandler) Export(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start time"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end time"})
		return
	}

	var workerID uint
	if v := c.Query("worker_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker_id"})
			return
		}
		workerID = uint(id)
	}

	buf, err := h.reportService.GenerateViolationReport(c.Request.Context(), start, end, workerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("violations_%s_%s.xlsx", start.Format("20060102"), end.Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ListAlerts returns persisted alerts for the dashboard alert center
// @Summary List alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (unread, read)"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /alerts [get]
func (h *ViolationHandler) ListAlerts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	alerts, total, err := h.notifierService.ListAlerts(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      alerts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// MarkAlertRead flags one alert as read
// @Summary Mark alert read
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Alert ID"
// @Success 200 {object} map[string]string
// @Router /alerts/{id}/read [post]
func (h *ViolationHandler) MarkAlertRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := h.notifierService.MarkRead(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "alert marked read"})
}

// GetUnreadCount returns the unread alert badge count
// @Summary Unread alert count
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Router /alerts/unread-count [get]
func (h *ViolationHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.notifierService.UnreadCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// ReplayAlerts replays historical alerts from the durable stream
// @Summary Replay alerts
// @Description Replay alert messages from the durable stream within a time range
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Router /jetstream/alerts/replay [post]
func (h *ViolationHandler) ReplayAlerts(c *gin.Context) {
	if h.jetstream == nil || !h.jetstream.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "JetStream is not enabled"})
		return
	}

	var req struct {
		WorkerID  uint      `json:"worker_id"`
		StartTime time.Time `json:"start_time" binding:"required"`
		EndTime   time.Time `json:"end_time" binding:"required"`
		BatchSize int       `json:"batch_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}

	alerts, hasMore, err := h.jetstream.ReplayAlerts(c.Request.Context(), req.WorkerID, req.StartTime, req.EndTime, req.BatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":   alerts,
		"count":    len(alerts),
		"has_more": hasMore,
	})
}

// GetStreamInfo returns durable stream state
// @Summary Stream info
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param name path string true "Stream name"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Router /jetstream/streams/{name} [get]
func (h *ViolationHandler) GetStreamInfo(c *gin.Context) {
	if h.jetstream == nil || !h.jetstream.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "JetStream is not enabled"})
		return
	}

	info, err := h.jetstream.GetStreamInfo(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     info.Config.Name,
		"subjects": info.Config.Subjects,
		"state":    info.State,
		"created":  info.Created,
		"max_age":  info.Config.MaxAge,
		"storage":  info.Config.Storage,
	})
}
