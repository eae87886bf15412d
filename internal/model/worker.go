package model

import (
	"time"

	"gorm.io/gorm"
)

// Worker represents a field worker whose position is tracked
type Worker struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	FirstName string         `json:"first_name" gorm:"size:50;not null"`
	LastName  string         `json:"last_name" gorm:"size:50"`
	Email     string         `json:"email" gorm:"uniqueIndex;size:100"`
	Phone     string         `json:"phone" gorm:"size:20"`
	Branch    string         `json:"branch" gorm:"size:100"`
	Status    int            `json:"status" gorm:"default:1"` // 0: inactive, 1: active
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// FullName returns the worker's display name
func (w *Worker) FullName() string {
	if w.LastName == "" {
		return w.FirstName
	}
	return w.FirstName + " " + w.LastName
}

// WorkerShadow represents the last known position of a worker (stored in Redis)
type WorkerShadow struct {
	WorkerID  uint    `json:"worker_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp int64   `json:"ts"`
}
