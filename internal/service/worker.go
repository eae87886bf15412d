package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// WorkerService handles the worker directory
type WorkerService struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewWorkerService creates a new worker service
func NewWorkerService(db *gorm.DB, redisClient *redis.Client) *WorkerService {
	return &WorkerService{
		db:    db,
		redis: redisClient,
	}
}

// Create creates a new worker
func (s *WorkerService) Create(ctx context.Context, worker *model.Worker) error {
	return s.db.Create(worker).Error
}

// GetWorker returns a worker by ID, trying the Redis cache first. This sits
// on the ping hot path, one lookup per observation.
func (s *WorkerService) GetWorker(ctx context.Context, workerID uint) (*model.Worker, error) {
	cacheKey := fmt.Sprintf("ftrack:worker:%d", workerID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var worker model.Worker
			if err := json.Unmarshal([]byte(cached), &worker); err == nil {
				return &worker, nil
			}
		}
	}

	var worker model.Worker
	if err := s.db.First(&worker, workerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(&worker); err == nil {
			s.redis.Set(ctx, cacheKey, data, 1*time.Hour)
		}
	}

	return &worker, nil
}

// List returns workers with pagination
func (s *WorkerService) List(ctx context.Context, page, pageSize int) ([]model.Worker, int64, error) {
	var workers []model.Worker
	var total int64

	offset := (page - 1) * pageSize

	if err := s.db.Model(&model.Worker{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := s.db.Offset(offset).Limit(pageSize).Find(&workers).Error; err != nil {
		return nil, 0, err
	}

	return workers, total, nil
}

// Update updates a worker and invalidates its cache entry
func (s *WorkerService) Update(ctx context.Context, worker *model.Worker) error {
	if err := s.db.Save(worker).Error; err != nil {
		return err
	}
	s.invalidate(ctx, worker.ID)
	return nil
}

// Delete soft-deletes a worker; its assignments stop resolving through the
// assignment join from that point on
func (s *WorkerService) Delete(ctx context.Context, workerID uint) error {
	if err := s.db.Delete(&model.Worker{}, workerID).Error; err != nil {
		return err
	}
	s.invalidate(ctx, workerID)
	return nil
}

func (s *WorkerService) invalidate(ctx context.Context, workerID uint) {
	if s.redis != nil {
		s.redis.Del(ctx, fmt.Sprintf("ftrack:worker:%d", workerID))
	}
}
