package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Access policy of a geofence assignment
const (
	AccessAuthorized = "Authorized" // worker must stay inside during the window
	AccessRestricted = "Restricted" // worker must stay outside during the window
)

// Vertex is a single polygon corner
type Vertex struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Boundary is the ordered vertex list of a geofence polygon, stored as JSONB.
// The ring is not necessarily closed; callers close it before geometric tests.
type Boundary []Vertex

// Value implements driver.Valuer for JSONB storage
func (b Boundary) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner
func (b *Boundary) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported boundary type %T", value)
	}
}

// Geofence represents a named polygonal zone
type Geofence struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description string         `json:"description"`
	Boundary    Boundary       `json:"boundary" gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// GeofenceAssignment binds a worker to a geofence with an access policy and a
// daily time-of-day window. IsViolating is the current state of the
// per-assignment violation state machine; it is mutated only by the violation
// engine, never by assignment management.
type GeofenceAssignment struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	WorkerID    uint       `json:"worker_id" gorm:"index:idx_assignment_pair;not null"`
	GeofenceID  uint       `json:"geofence_id" gorm:"index:idx_assignment_pair;not null"`
	Worker      *Worker    `json:"worker,omitempty"`
	Geofence    *Geofence  `json:"geofence,omitempty"`
	Type        string     `json:"type" gorm:"size:20;not null"` // Authorized, Restricted
	StartDate   *time.Time `json:"start_date"`                   // validity window, advisory
	EndDate     *time.Time `json:"end_date"`
	StartTime   string     `json:"start_time" gorm:"size:8;default:'00:00:00'"` // HH:mm:ss
	EndTime     string     `json:"end_time" gorm:"size:8;default:'23:59:59'"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	IsViolating bool       `json:"is_violating" gorm:"default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WorkerZoneAssignment is an active assignment joined with its geofence, the
// unit the violation engine evaluates a position against
type WorkerZoneAssignment struct {
	AssignmentID uint     `json:"assignment_id" gorm:"column:id"`
	WorkerID     uint     `json:"worker_id"`
	GeofenceID   uint     `json:"geofence_id"`
	Type         string   `json:"type"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	IsViolating  bool     `json:"is_violating"`
	GeofenceName string   `json:"geofence_name"`
	Boundary     Boundary `json:"boundary" gorm:"type:jsonb"`
}
