package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"fieldtrack/api/internal/model"
)

// Stream configuration
const (
	StreamAlerts       = "FTRACK_ALERTS"
	subjectAlertStream = "ftrack.alerts.violation"
)

// JetStreamService persists violation alerts in a durable NATS stream so the
// console can replay transitions after the fact
type JetStreamService struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	enabled bool
}

// NewJetStreamService creates the service and ensures the alert stream
// exists. JetStream being unavailable on the server is not fatal; the service
// reports disabled and publishing becomes a no-op.
func NewJetStreamService(nc *nats.Conn) (*JetStreamService, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	s := &JetStreamService{nc: nc, js: js}

	cfg := &nats.StreamConfig{
		Name:      StreamAlerts,
		Subjects:  []string{"ftrack.alerts.*"},
		Retention: nats.LimitsPolicy,
		MaxMsgs:   -1,
		MaxBytes:  5 * 1024 * 1024 * 1024,
		MaxAge:    30 * 24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	}

	if _, err := s.js.AddStream(cfg); err != nil {
		if err == nats.ErrStreamNameAlreadyInUse {
			if _, err := s.js.UpdateStream(cfg); err != nil {
				return nil, fmt.Errorf("failed to update stream %s: %w", cfg.Name, err)
			}
		} else {
			// No JetStream on this server; run degraded
			return s, nil
		}
	}

	s.enabled = true
	return s, nil
}

// IsEnabled reports whether the durable stream is available
func (s *JetStreamService) IsEnabled() bool {
	return s != nil && s.enabled
}

// PublishAlert publishes an alert message to the durable stream
func (s *JetStreamService) PublishAlert(ctx context.Context, msg *model.AlertMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = s.js.Publish(subjectAlertStream, payload)
	return err
}

// ReplayAlerts returns alert messages from the stream within [start, end],
// up to batchSize, and whether more remain
func (s *JetStreamService) ReplayAlerts(ctx context.Context, workerID uint, start, end time.Time, batchSize int) ([]*model.AlertMessage, bool, error) {
	sub, err := s.js.SubscribeSync(subjectAlertStream,
		nats.StartTime(start),
		nats.OrderedConsumer(),
	)
	if err != nil {
		return nil, false, err
	}
	defer sub.Unsubscribe()

	var alerts []*model.AlertMessage
	hasMore := false

	for len(alerts) < batchSize {
		msg, err := sub.NextMsg(2 * time.Second)
		if err != nil {
			if err == nats.ErrTimeout {
				break // no more messages
			}
			return nil, false, err
		}

		var alert model.AlertMessage
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			continue
		}

		ts := time.Unix(alert.Timestamp, 0)
		if ts.After(end) {
			break
		}
		if workerID != 0 && alert.WorkerID != workerID {
			continue
		}

		alerts = append(alerts, &alert)
	}

	if len(alerts) == batchSize {
		hasMore = true
	}

	return alerts, hasMore, nil
}

// GetStreamInfo returns stream metadata
func (s *JetStreamService) GetStreamInfo(stream string) (*nats.StreamInfo, error) {
	return s.js.StreamInfo(stream)
}

// Close releases resources held by the service
func (s *JetStreamService) Close() {
}
