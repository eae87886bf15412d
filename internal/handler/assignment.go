package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldtrack/api/internal/model"
	"fieldtrack/api/internal/service"
)

// AssignmentHandler handles worker-geofence assignment requests
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// Assign binds a geofence to a worker
// @Summary Assign geofence
// @Description Bind a geofence to a worker with an access policy and a daily time window
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignment body model.GeofenceAssignment true "Assignment"
// @Success 201 {object} model.GeofenceAssignment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var assignment model.GeofenceAssignment
	if err := c.ShouldBindJSON(&assignment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if assignment.WorkerID == 0 || assignment.GeofenceID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "worker_id and geofence_id are required"})
		return
	}

	if err := h.assignmentService.Assign(c.Request.Context(), &assignment); err != nil {
		if errors.Is(err, service.ErrWorkerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "worker not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// ListForWorker returns all assignments of a worker
// @Summary List worker assignments
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Success 200 {object} map[string]interface{}
// @Router /workers/{id}/assignments [get]
func (h *AssignmentHandler) ListForWorker(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	assignments, err := h.assignmentService.ListForWorker(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"list": assignments})
}

// Disable deactivates an assignment
// @Summary Disable assignment
// @Description Deactivate the assignment; the engine stops evaluating it
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /assignments/disable [post]
func (h *AssignmentHandler) Disable(c *gin.Context) {
	var req struct {
		WorkerID   uint `json:"worker_id" binding:"required"`
		GeofenceID uint `json:"geofence_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.assignmentService.Disable(c.Request.Context(), req.WorkerID, req.GeofenceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "assignment disabled"})
}
