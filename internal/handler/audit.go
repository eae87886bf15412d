package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// AuditHandler exposes the login audit trail
type AuditHandler struct {
	db *gorm.DB
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// ListLogs returns login attempts, newest first
// @Summary List login logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param username query string false "Filter by username"
// @Param success query bool false "Filter by outcome"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /audit-logs [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	query := h.db.Model(&model.LoginLog{})

	if username := c.Query("username"); username != "" {
		query = query.Where("username = ?", username)
	}
	if success := c.Query("success"); success != "" {
		query = query.Where("success = ?", success == "true")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	query.Count(&total)

	var logs []model.LoginLog
	offset := (page - 1) * pageSize
	query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetStats returns today's login activity
// @Summary Login statistics
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Router /audit-logs/stats [get]
func (h *AuditHandler) GetStats(c *gin.Context) {
	var todayLogins int64
	h.db.Model(&model.LoginLog{}).Where("DATE(created_at) = CURRENT_DATE").Count(&todayLogins)

	var failedLogins int64
	h.db.Model(&model.LoginLog{}).Where("success = ? AND DATE(created_at) = CURRENT_DATE", false).Count(&failedLogins)

	var activeUsers int64
	h.db.Model(&model.LoginLog{}).Where("success = ? AND DATE(created_at) = CURRENT_DATE", true).Distinct("user_id").Count(&activeUsers)

	c.JSON(http.StatusOK, gin.H{
		"today_logins":  todayLogins,
		"failed_logins": failedLogins,
		"active_users":  activeUsers,
	})
}
