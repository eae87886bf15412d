package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
	"fieldtrack/api/internal/service"
)

// GeofenceHandler handles geofence management requests
type GeofenceHandler struct {
	geofenceService *service.GeofenceService
}

// NewGeofenceHandler creates a new geofence handler
func NewGeofenceHandler(geofenceService *service.GeofenceService) *GeofenceHandler {
	return &GeofenceHandler{geofenceService: geofenceService}
}

// List returns a page of geofences
// @Summary List geofences
// @Tags Geofences
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /geofences [get]
func (h *GeofenceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	geofences, total, err := h.geofenceService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      geofences,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns one geofence
// @Summary Get geofence
// @Tags Geofences
// @Produce json
// @Security BearerAuth
// @Param id path int true "Geofence ID"
// @Success 200 {object} model.Geofence
// @Failure 404 {object} map[string]string
// @Router /geofences/{id} [get]
func (h *GeofenceHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return
	}

	geofence, err := h.geofenceService.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, geofence)
}

// Create registers a new zone
// @Summary Create geofence
// @Tags Geofences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param geofence body model.Geofence true "Geofence"
// @Success 201 {object} model.Geofence
// @Failure 400 {object} map[string]string
// @Router /geofences [post]
func (h *GeofenceHandler) Create(c *gin.Context) {
	var geofence model.Geofence
	if err := c.ShouldBindJSON(&geofence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if geofence.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	// name is unique among live zones
	existing, err := h.geofenceService.GetByName(c.Request.Context(), geofence.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geofence name already exists"})
		return
	}

	if err := h.geofenceService.Create(c.Request.Context(), &geofence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, geofence)
}

// Update changes a zone's boundary or metadata
// @Summary Update geofence
// @Tags Geofences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Geofence ID"
// @Param geofence body model.Geofence true "Geofence"
// @Success 200 {object} model.Geofence
// @Failure 404 {object} map[string]string
// @Router /geofences/{id} [put]
func (h *GeofenceHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return
	}

	existing, err := h.geofenceService.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var geofence model.Geofence
	if err := c.ShouldBindJSON(&geofence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	geofence.ID = existing.ID
	geofence.CreatedAt = existing.CreatedAt

	if err := h.geofenceService.Update(c.Request.Context(), &geofence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, geofence)
}

// Delete soft-deletes a zone
// @Summary Delete geofence
// @Tags Geofences
// @Produce json
// @Security BearerAuth
// @Param id path int true "Geofence ID"
// @Success 200 {object} map[string]string
// @Router /geofences/{id} [delete]
func (h *GeofenceHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return
	}

	if err := h.geofenceService.Delete(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "geofence deleted"})
}
