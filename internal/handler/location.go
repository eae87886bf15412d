package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldtrack/api/internal/service"
)

// LocationHandler handles location ingestion and queries. Ingestion is the
// hot path: every ping runs the violation engine.
type LocationHandler struct {
	engine          *service.ViolationEngine
	positionService *service.PositionService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(engine *service.ViolationEngine, positionService *service.PositionService) *LocationHandler {
	return &LocationHandler{
		engine:          engine,
		positionService: positionService,
	}
}

// RecordLocation ingests one position and evaluates it
// @Summary Record location
// @Description Persist a worker position and evaluate it against every active geofence assignment
// @Tags Locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Param location body object true "Coordinates"
// @Success 200 {object} service.ObservationResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /workers/{id}/locations [post]
func (h *LocationHandler) RecordLocation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	var req struct {
		Longitude *float64 `json:"longitude" binding:"required"`
		Latitude  *float64 `json:"latitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "longitude and latitude are required"})
		return
	}

	result, err := h.engine.RecordObservation(c.Request.Context(), uint(id), *req.Longitude, *req.Latitude)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWorkerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "worker not found"})
		case errors.Is(err, service.ErrInvalidCoordinates):
			c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if result.NoAssignments {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "no geofences assigned to this worker",
			"location": result.Position,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHistory returns recent positions for a worker, newest first
// @Summary Location history
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Param limit query int false "Limit" default(100)
// @Success 200 {object} map[string]interface{}
// @Router /workers/{id}/locations [get]
func (h *LocationHandler) GetHistory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	positions, err := h.positionService.GetHistory(c.Request.Context(), uint(id), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"list": positions})
}

// GetLatest returns the most recent position for a worker
// @Summary Latest location
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Success 200 {object} model.PositionRecord
// @Failure 404 {object} map[string]string
// @Router /workers/{id}/locations/latest [get]
func (h *LocationHandler) GetLatest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	pos, err := h.positionService.GetLatest(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no location recorded"})
		return
	}

	c.JSON(http.StatusOK, pos)
}

// GetAllLatest returns the last known position of every worker from the
// Redis shadow cache
// @Summary All latest locations
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /locations/latest [get]
func (h *LocationHandler) GetAllLatest(c *gin.Context) {
	shadows, err := h.positionService.GetAllShadows(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":  shadows,
		"count": len(shadows),
	})
}
