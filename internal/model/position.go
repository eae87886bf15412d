package model

import "time"

// PositionRecord is a single location observation for a worker. Append-only:
// created once per ping, never mutated.
type PositionRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	WorkerID  uint      `json:"worker_id" gorm:"index;not null"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// LocationMessage is a live location update published on NATS for dashboards
type LocationMessage struct {
	WorkerID  uint    `json:"worker_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp int64   `json:"timestamp"`
}
