package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// PositionService handles position persistence and the live-position shadow
type PositionService struct {
	db    *gorm.DB
	redis *redis.Client
	nats  *nats.Conn
}

// NewPositionService creates a new position service
func NewPositionService(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) *PositionService {
	return &PositionService{
		db:    db,
		redis: redisClient,
		nats:  natsConn,
	}
}

// SavePosition persists a position record, refreshes the worker's Redis
// shadow, and publishes the update for live dashboards
func (s *PositionService) SavePosition(ctx context.Context, pos *model.PositionRecord) error {
	if err := s.db.Create(pos).Error; err != nil {
		return err
	}

	shadow := model.WorkerShadow{
		WorkerID:  pos.WorkerID,
		Lat:       pos.Latitude,
		Lon:       pos.Longitude,
		Timestamp: pos.CreatedAt.Unix(),
	}
	if s.redis != nil {
		key := fmt.Sprintf("ftrack:shadow:%d", pos.WorkerID)
		if data, err := json.Marshal(shadow); err == nil {
			s.redis.Set(ctx, key, data, 0)
		}
	}

	if s.nats != nil {
		locMsg := model.LocationMessage{
			WorkerID:  pos.WorkerID,
			Lat:       pos.Latitude,
			Lon:       pos.Longitude,
			Timestamp: pos.CreatedAt.Unix(),
		}
		if data, err := json.Marshal(locMsg); err == nil {
			if err := s.nats.Publish("ftrack.uplink.LOCATION", data); err != nil {
				log.Printf("[Position] Failed to publish location: %v", err)
			}
		}
	}

	return nil
}

// GetHistory returns all positions for a worker, newest first
func (s *PositionService) GetHistory(ctx context.Context, workerID uint, limit int) ([]model.PositionRecord, error) {
	var positions []model.PositionRecord

	query := s.db.Where("worker_id = ?", workerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}

// GetLatest returns the latest position for a worker
func (s *PositionService) GetLatest(ctx context.Context, workerID uint) (*model.PositionRecord, error) {
	var position model.PositionRecord

	if err := s.db.Where("worker_id = ?", workerID).
		Order("created_at DESC").
		First(&position).Error; err != nil {
		return nil, err
	}

	return &position, nil
}

// GetAllShadows returns the last known position of every recently seen worker
func (s *PositionService) GetAllShadows(ctx context.Context) ([]model.WorkerShadow, error) {
	if s.redis == nil {
		return nil, nil
	}

	keys, err := s.redis.Keys(ctx, "ftrack:shadow:*").Result()
	if err != nil {
		return nil, err
	}

	var shadows []model.WorkerShadow
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var shadow model.WorkerShadow
		if err := json.Unmarshal([]byte(data), &shadow); err != nil {
			continue
		}
		shadows = append(shadows, shadow)
	}

	return shadows, nil
}
