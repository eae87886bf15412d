package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldtrack/api/internal/model"
)

// SubjectViolation is the NATS subject carrying violation transitions
const SubjectViolation = "ftrack.alert.VIOLATION"

// WSHubInterface is the WebSocket hub surface the notifier pushes to
type WSHubInterface interface {
	Broadcast(data []byte)
}

// NATSAlertPublisher publishes violation transitions to NATS on behalf of the
// violation engine
type NATSAlertPublisher struct {
	nc *nats.Conn
	js *JetStreamService
}

// NewNATSAlertPublisher creates a publisher. The JetStream service may be nil.
func NewNATSAlertPublisher(nc *nats.Conn, js *JetStreamService) *NATSAlertPublisher {
	return &NATSAlertPublisher{nc: nc, js: js}
}

// PublishViolation publishes a transition to the shared subject, a
// worker-specific subject, and the durable stream when enabled
func (p *NATSAlertPublisher) PublishViolation(ctx context.Context, msg *model.AlertMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	if err := p.nc.Publish(SubjectViolation, data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	// Worker-specific subject for targeted subscribers
	p.nc.Publish(fmt.Sprintf("%s.%d", SubjectViolation, msg.WorkerID), data)

	if p.js != nil && p.js.IsEnabled() {
		if err := p.js.PublishAlert(ctx, msg); err != nil {
			log.Printf("[Notifier] Failed to publish alert to JetStream: %v", err)
		}
	}

	return nil
}

// NotifierService consumes violation transitions, persists alert rows for the
// console, pushes to connected WebSocket clients, and keeps a recent-alert
// list in Redis
type NotifierService struct {
	db    *gorm.DB
	nats  *nats.Conn
	redis *redis.Client
	wsHub WSHubInterface
	sub   *nats.Subscription
}

// NewNotifierService creates a new notifier
func NewNotifierService(db *gorm.DB, natsConn *nats.Conn, redisClient *redis.Client, wsHub WSHubInterface) *NotifierService {
	return &NotifierService{
		db:    db,
		nats:  natsConn,
		redis: redisClient,
		wsHub: wsHub,
	}
}

// Start subscribes to violation transitions
func (s *NotifierService) Start() error {
	sub, err := s.nats.Subscribe(SubjectViolation, s.handleAlertMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s failed: %w", SubjectViolation, err)
	}
	s.sub = sub

	log.Println("[Notifier] Subscribed to violation alerts")
	return nil
}

// Stop stops the notifier
func (s *NotifierService) Stop() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	log.Println("[Notifier] Stopped")
}

// handleAlertMessage persists and fans out one violation transition
func (s *NotifierService) handleAlertMessage(msg *nats.Msg) {
	var alertMsg model.AlertMessage
	if err := json.Unmarshal(msg.Data, &alertMsg); err != nil {
		log.Printf("[Notifier] Failed to unmarshal alert message: %v", err)
		return
	}

	alert := model.Alert{
		Kind:         alertMsg.Kind,
		WorkerID:     alertMsg.WorkerID,
		WorkerName:   alertMsg.WorkerName,
		GeofenceID:   alertMsg.GeofenceID,
		GeofenceName: alertMsg.GeofenceName,
		ViolationID:  alertMsg.ViolationID,
		Message:      alertMsg.Message,
		Lat:          alertMsg.Lat,
		Lon:          alertMsg.Lon,
		Status:       model.AlertStatusUnread,
	}

	if err := s.db.Create(&alert).Error; err != nil {
		log.Printf("[Notifier] Failed to create alert: %v", err)
		// Continue fan-out even when the alert row could not be written
	}

	if s.wsHub != nil {
		data, _ := json.Marshal(map[string]interface{}{
			"type": "alert",
			"data": alert,
		})
		s.wsHub.Broadcast(data)
	}

	s.cacheAlert(alertMsg)
}

// cacheAlert keeps the latest alert per worker and a capped recent list
func (s *NotifierService) cacheAlert(msg model.AlertMessage) {
	if s.redis == nil {
		return
	}
	ctx := context.Background()
	data, _ := json.Marshal(msg)

	key := fmt.Sprintf("ftrack:alert:%d", msg.WorkerID)
	s.redis.Set(ctx, key, data, 24*time.Hour)

	listKey := "ftrack:alerts:recent"
	s.redis.LPush(ctx, listKey, data)
	s.redis.LTrim(ctx, listKey, 0, 99)
}

// ListAlerts returns alert rows with pagination, newest first
func (s *NotifierService) ListAlerts(ctx context.Context, status string, page, pageSize int) ([]model.Alert, int64, error) {
	query := s.db.Model(&model.Alert{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []model.Alert
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// MarkRead marks an alert as read
func (s *NotifierService) MarkRead(ctx context.Context, alertID uint) error {
	return s.db.Model(&model.Alert{}).
		Where("id = ?", alertID).
		Update("status", model.AlertStatusRead).Error
}

// UnreadCount returns the number of unread alerts
func (s *NotifierService) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.Model(&model.Alert{}).
		Where("status = ?", model.AlertStatusUnread).
		Count(&count).Error
	return count, err
}
