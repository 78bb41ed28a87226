package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus enumerates the lifecycle states of a support task.
type TaskStatus string

const (
	StatusNew        TaskStatus = "new"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Trackable reports whether time may be tracked against a task in this
// status. Terminal statuses never track.
func (s TaskStatus) Trackable() bool {
	return s == StatusNew || s == StatusInProgress
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Task represents a customer-service task time is tracked against.
type Task struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title  string     `gorm:"not null" json:"title"`
	Status TaskStatus `gorm:"default:new" json:"status"`
	Note   string     `json:"note"`
	DoneAt *time.Time `json:"done_at"`

	// Cached projection: sum of DurationSeconds over all closed
	// sessions for this task, across all users. Recomputed by the
	// store after every ledger write touching the task.
	TotalDurationSeconds int64 `json:"total_duration_seconds"`

	Sessions []Session `gorm:"foreignKey:TaskID" json:"sessions,omitempty"`
}
