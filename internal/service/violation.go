package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// ViolationService is the violation ledger plus the console read side
type ViolationService struct {
	db *gorm.DB
}

// NewViolationService creates a new violation service
func NewViolationService(db *gorm.DB) *ViolationService {
	return &ViolationService{db: db}
}

// OpenViolation inserts a new open ledger record. The engine guarantees, via
// its per-worker lock, that no other open record exists for the pair.
func (s *ViolationService) OpenViolation(ctx context.Context, positionID, workerID, geofenceID uint, violationType string, observedAt time.Time) (*model.ViolationRecord, error) {
	rec := &model.ViolationRecord{
		PositionRecordID: positionID,
		WorkerID:         workerID,
		GeofenceID:       geofenceID,
		ViolationType:    violationType,
		StartTime:        observedAt,
	}
	if err := s.db.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// CloseViolation sets end_time on the open record for the (worker, geofence)
// pair. Scoping by worker as well as geofence keeps two workers sharing a
// zone from closing each other's violations.
func (s *ViolationService) CloseViolation(ctx context.Context, workerID, geofenceID uint, observedAt time.Time) error {
	return s.db.Model(&model.ViolationRecord{}).
		Where("worker_id = ? AND geofence_id = ? AND end_time IS NULL", workerID, geofenceID).
		Update("end_time", observedAt).Error
}

// ViolationFilter narrows ledger queries
type ViolationFilter struct {
	WorkerID   uint
	GeofenceID uint
	OpenOnly   bool
	Start      *time.Time
	End        *time.Time
}

// List returns ledger records with pagination, newest first
func (s *ViolationService) List(ctx context.Context, filter ViolationFilter, page, pageSize int) ([]model.ViolationRecord, int64, error) {
	query := s.db.Model(&model.ViolationRecord{})
	query = applyViolationFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.ViolationRecord
	offset := (page - 1) * pageSize
	if err := query.Order("start_time DESC").
		Offset(offset).Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// OpenFor returns the open record for the pair, nil when compliant
func (s *ViolationService) OpenFor(ctx context.Context, workerID, geofenceID uint) (*model.ViolationRecord, error) {
	var rec model.ViolationRecord
	err := s.db.Where("worker_id = ? AND geofence_id = ? AND end_time IS NULL", workerID, geofenceID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Stats summarizes the ledger for the dashboard
func (s *ViolationService) Stats(ctx context.Context) (*model.ViolationStats, error) {
	var stats model.ViolationStats
	stats.ByType = make(map[string]int64)

	s.db.Model(&model.ViolationRecord{}).Count(&stats.Total)
	s.db.Model(&model.ViolationRecord{}).Where("end_time IS NULL").Count(&stats.Open)
	stats.Closed = stats.Total - stats.Open

	today := time.Now().Format("2006-01-02")
	s.db.Model(&model.ViolationRecord{}).Where("DATE(start_time) = ?", today).Count(&stats.Today)

	var typeStats []struct {
		ViolationType string
		Count         int64
	}
	s.db.Model(&model.ViolationRecord{}).
		Select("violation_type, COUNT(*) as count").
		Group("violation_type").
		Scan(&typeStats)
	for _, ts := range typeStats {
		stats.ByType[ts.ViolationType] = ts.Count
	}

	return &stats, nil
}

func applyViolationFilter(query *gorm.DB, filter ViolationFilter) *gorm.DB {
	if filter.WorkerID != 0 {
		query = query.Where("worker_id = ?", filter.WorkerID)
	}
	if filter.GeofenceID != 0 {
		query = query.Where("geofence_id = ?", filter.GeofenceID)
	}
	if filter.OpenOnly {
		query = query.Where("end_time IS NULL")
	}
	if filter.Start != nil {
		query = query.Where("start_time >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("start_time <= ?", *filter.End)
	}
	return query
}
