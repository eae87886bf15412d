package model

import "time"

// Violation types
const (
	ViolationEntry = "Entry" // entered a restricted zone
	ViolationExit  = "Exit"  // left an authorized zone
)

// ViolationRecord is one entry in the violation ledger. Opened when a worker
// transitions into the Violating state for an assignment, closed (EndTime set,
// exactly once) when the worker returns to compliance. At most one record per
// (worker, geofence) pair may be open at any time.
type ViolationRecord struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	PositionRecordID uint       `json:"position_record_id" gorm:"not null"`
	WorkerID         uint       `json:"worker_id" gorm:"index:idx_violation_pair;not null"`
	GeofenceID       uint       `json:"geofence_id" gorm:"index:idx_violation_pair;not null"`
	ViolationType    string     `json:"violation_type" gorm:"size:10;not null"` // Entry, Exit
	StartTime        time.Time  `json:"start_time" gorm:"not null"`
	EndTime          *time.Time `json:"end_time" gorm:"index"` // null means open/ongoing
	CreatedAt        time.Time  `json:"created_at"`
}

// Alert kinds
const (
	AlertViolationOpened = "VIOLATION_OPENED"
	AlertViolationClosed = "VIOLATION_CLOSED"
)

// Alert statuses
const (
	AlertStatusUnread = "unread"
	AlertStatusRead   = "read"
)

// Alert is a notification derived from a violation transition, persisted by
// the notifier for the dashboard alert center
type Alert struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Kind         string    `json:"kind" gorm:"size:30;not null"`
	WorkerID     uint      `json:"worker_id" gorm:"index"`
	WorkerName   string    `json:"worker_name" gorm:"size:100"`
	GeofenceID   uint      `json:"geofence_id" gorm:"index"`
	GeofenceName string    `json:"geofence_name" gorm:"size:100"`
	ViolationID  uint      `json:"violation_id"`
	Message      string    `json:"message"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Status       string    `json:"status" gorm:"size:10;default:unread"`
	CreatedAt    time.Time `json:"created_at"`
}

// AlertMessage is the wire form of a violation transition on NATS
type AlertMessage struct {
	Kind          string  `json:"kind"` // VIOLATION_OPENED, VIOLATION_CLOSED
	WorkerID      uint    `json:"worker_id"`
	WorkerName    string  `json:"worker_name"`
	GeofenceID    uint    `json:"geofence_id"`
	GeofenceName  string  `json:"geofence_name"`
	ViolationID   uint    `json:"violation_id,omitempty"`
	ViolationType string  `json:"violation_type,omitempty"` // Entry, Exit
	Message       string  `json:"message"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Timestamp     int64   `json:"timestamp"`
}

// ViolationStats summarizes the ledger for the dashboard
type ViolationStats struct {
	Total  int64            `json:"total"`
	Open   int64            `json:"open"`
	Closed int64            `json:"closed"`
	Today  int64            `json:"today"`
	ByType map[string]int64 `json:"by_type"`
}
