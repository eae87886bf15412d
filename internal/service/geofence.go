package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// GeofenceService handles geofence management
type GeofenceService struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewGeofenceService creates a new geofence service
func NewGeofenceService(db *gorm.DB, redisClient *redis.Client) *GeofenceService {
	return &GeofenceService{
		db:    db,
		redis: redisClient,
	}
}

// Create creates a new geofence
func (s *GeofenceService) Create(ctx context.Context, geofence *model.Geofence) error {
	if err := validateBoundary(geofence.Boundary); err != nil {
		return err
	}

	if err := s.db.Create(geofence).Error; err != nil {
		return err
	}

	s.cacheGeofence(ctx, geofence)

	return nil
}

// GetByID returns a geofence by ID
func (s *GeofenceService) GetByID(ctx context.Context, id uint) (*model.Geofence, error) {
	var geofence model.Geofence
	if err := s.db.First(&geofence, id).Error; err != nil {
		return nil, err
	}
	return &geofence, nil
}

// GetByName returns a non-deleted geofence by its unique name
func (s *GeofenceService) GetByName(ctx context.Context, name string) (*model.Geofence, error) {
	var geofence model.Geofence
	if err := s.db.Where("name = ?", name).First(&geofence).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &geofence, nil
}

// List returns geofences with pagination
func (s *GeofenceService) List(ctx context.Context, page, pageSize int) ([]model.Geofence, int64, error) {
	var geofences []model.Geofence
	var total int64

	offset := (page - 1) * pageSize

	if err := s.db.Model(&model.Geofence{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := s.db.Offset(offset).Limit(pageSize).Find(&geofences).Error; err != nil {
		return nil, 0, err
	}

	return geofences, total, nil
}

// Update updates a geofence
func (s *GeofenceService) Update(ctx context.Context, geofence *model.Geofence) error {
	if err := validateBoundary(geofence.Boundary); err != nil {
		return err
	}

	if err := s.db.Save(geofence).Error; err != nil {
		return err
	}

	s.cacheGeofence(ctx, geofence)

	return nil
}

// Delete soft-deletes a geofence; assignments bound to it stop resolving
func (s *GeofenceService) Delete(ctx context.Context, id uint) error {
	if err := s.db.Delete(&model.Geofence{}, id).Error; err != nil {
		return err
	}

	if s.redis != nil {
		s.redis.Del(ctx, fmt.Sprintf("ftrack:geofence:%d", id))
	}

	return nil
}

// validateBoundary validates a polygon boundary before persisting it
func validateBoundary(boundary model.Boundary) error {
	if len(boundary) < 3 {
		return fmt.Errorf("polygon must have at least 3 vertices")
	}
	for _, v := range boundary {
		if v.Latitude < -90 || v.Latitude > 90 {
			return fmt.Errorf("invalid latitude in polygon")
		}
		if v.Longitude < -180 || v.Longitude > 180 {
			return fmt.Errorf("invalid longitude in polygon")
		}
	}
	return nil
}

// cacheGeofence caches a geofence in Redis for quick boundary lookups
func (s *GeofenceService) cacheGeofence(ctx context.Context, geofence *model.Geofence) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf("ftrack:geofence:%d", geofence.ID)
	data, _ := json.Marshal(geofence)
	s.redis.Set(ctx, key, data, 0)
}
