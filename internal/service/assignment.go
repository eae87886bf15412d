package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// AssignmentService manages worker-geofence assignments and implements the
// AssignmentStore contract consumed by the violation engine
type AssignmentService struct {
	db *gorm.DB
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db}
}

// Assign binds a geofence to a worker with a policy type and time window
func (s *AssignmentService) Assign(ctx context.Context, a *model.GeofenceAssignment) error {
	if a.Type != model.AccessAuthorized && a.Type != model.AccessRestricted {
		return fmt.Errorf("invalid assignment type %q", a.Type)
	}
	if a.StartTime == "" {
		a.StartTime = "00:00:00"
	}
	if a.EndTime == "" {
		a.EndTime = "23:59:59"
	}
	if _, err := parseTimeOfDay(a.StartTime); err != nil {
		return fmt.Errorf("invalid start_time: %w", err)
	}
	if _, err := parseTimeOfDay(a.EndTime); err != nil {
		return fmt.Errorf("invalid end_time: %w", err)
	}

	var workerCount int64
	if err := s.db.Model(&model.Worker{}).Where("id = ?", a.WorkerID).Count(&workerCount).Error; err != nil {
		return err
	}
	if workerCount == 0 {
		return ErrWorkerNotFound
	}

	var geofenceCount int64
	if err := s.db.Model(&model.Geofence{}).Where("id = ?", a.GeofenceID).Count(&geofenceCount).Error; err != nil {
		return err
	}
	if geofenceCount == 0 {
		return fmt.Errorf("geofence %d not found", a.GeofenceID)
	}

	a.IsActive = true
	a.IsViolating = false
	return s.db.Create(a).Error
}

// ListForWorker returns all assignments of a worker, including inactive ones
func (s *AssignmentService) ListForWorker(ctx context.Context, workerID uint) ([]model.GeofenceAssignment, error) {
	var assignments []model.GeofenceAssignment
	err := s.db.Where("worker_id = ?", workerID).
		Preload("Geofence").
		Find(&assignments).Error
	return assignments, err
}

// Disable soft-disables an assignment; the engine stops evaluating it
func (s *AssignmentService) Disable(ctx context.Context, workerID, geofenceID uint) error {
	return s.db.Model(&model.GeofenceAssignment{}).
		Where("worker_id = ? AND geofence_id = ?", workerID, geofenceID).
		Update("is_active", false).Error
}

// ActiveAssignmentsFor returns every active assignment for the worker joined
// with its geofence name and boundary. Soft-deleted workers and geofences are
// excluded, so a deleted zone silently stops producing violations.
func (s *AssignmentService) ActiveAssignmentsFor(ctx context.Context, workerID uint) ([]model.WorkerZoneAssignment, error) {
	var rows []model.WorkerZoneAssignment
	err := s.db.Table("geofence_assignments AS ga").
		Select("ga.id, ga.worker_id, ga.geofence_id, ga.type, ga.start_time, ga.end_time, ga.is_violating, g.name AS geofence_name, g.boundary").
		Joins("JOIN geofences g ON g.id = ga.geofence_id AND g.deleted_at IS NULL").
		Joins("JOIN workers w ON w.id = ga.worker_id AND w.deleted_at IS NULL").
		Where("ga.worker_id = ? AND ga.is_active = ?", workerID, true).
		Order("ga.id").
		Scan(&rows).Error
	return rows, err
}

// SetViolating updates the violation flag for the (worker, geofence) pair.
// A plain UPDATE, so writing the current value again is a no-op.
func (s *AssignmentService) SetViolating(ctx context.Context, workerID, geofenceID uint, violating bool) error {
	return s.db.Model(&model.GeofenceAssignment{}).
		Where("worker_id = ? AND geofence_id = ?", workerID, geofenceID).
		Update("is_violating", violating).Error
}
