package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldtrack/api/internal/model"
	"fieldtrack/api/internal/service"
)

// WorkerHandler handles worker CRUD requests
type WorkerHandler struct {
	workerService *service.WorkerService
}

// NewWorkerHandler creates a new worker handler
func NewWorkerHandler(workerService *service.WorkerService) *WorkerHandler {
	return &WorkerHandler{workerService: workerService}
}

// List returns a page of workers
// @Summary List workers
// @Tags Workers
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /workers [get]
func (h *WorkerHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	workers, total, err := h.workerService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      workers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns one worker
// @Summary Get worker
// @Tags Workers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Success 200 {object} model.Worker
// @Failure 404 {object} map[string]string
// @Router /workers/{id} [get]
func (h *WorkerHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	worker, err := h.workerService.GetWorker(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrWorkerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "worker not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, worker)
}

// Create registers a new worker
// @Summary Create worker
// @Tags Workers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param worker body model.Worker true "Worker"
// @Success 201 {object} model.Worker
// @Failure 400 {object} map[string]string
// @Router /workers [post]
func (h *WorkerHandler) Create(c *gin.Context) {
	var worker model.Worker
	if err := c.ShouldBindJSON(&worker); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if worker.FirstName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first_name is required"})
		return
	}

	if err := h.workerService.Create(c.Request.Context(), &worker); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, worker)
}

// Update changes worker fields
// @Summary Update worker
// @Tags Workers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Param worker body model.Worker true "Worker"
// @Success 200 {object} model.Worker
// @Failure 404 {object} map[string]string
// @Router /workers/{id} [put]
func (h *WorkerHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	existing, err := h.workerService.GetWorker(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrWorkerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "worker not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var worker model.Worker
	if err := c.ShouldBindJSON(&worker); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	worker.ID = existing.ID
	worker.CreatedAt = existing.CreatedAt

	if err := h.workerService.Update(c.Request.Context(), &worker); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, worker)
}

// Delete soft-deletes a worker
// @Summary Delete worker
// @Tags Workers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Worker ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /workers/{id} [delete]
func (h *WorkerHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	if _, err := h.workerService.GetWorker(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, service.ErrWorkerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "worker not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.workerService.Delete(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "worker deleted"})
}
