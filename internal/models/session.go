package models

import (
	"time"
)

// Session is one tracked interval in the time ledger: one row per
// start/stop, per task, per user. A session with FinishedAt nil is
// open; once FinishedAt and DurationSeconds are set the row is closed
// and never written again. Rows whose duration rounds down to zero
// are deleted instead of closed.
type Session struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TaskID          uint       `gorm:"not null;index" json:"task_id"`
	UserID          string     `gorm:"not null;index" json:"user_id"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	DurationSeconds int        `json:"duration_seconds"`

	Task Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.FinishedAt == nil
}
