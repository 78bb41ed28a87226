package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/avanti-suite/timekeep/internal/models"
)

// ErrSessionClosed is returned when a close is attempted on a session
// that already has an end time. Closing twice is a caller bug, not a
// store concern, so it surfaces loudly instead of silently no-opping.
var ErrSessionClosed = errors.New("session already closed")

// InsertSession creates an open session for a task. The task must
// exist.
func (s *Store) InsertSession(ctx context.Context, taskID uint, userID string, startedAt time.Time) (*models.Session, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, fmt.Errorf("task #%d not found", taskID)
	}

	session := models.Session{
		TaskID:    taskID,
		UserID:    userID,
		StartedAt: startedAt,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	s.feed.Publish(Change{Op: OpInsert, TaskID: taskID, SessionID: session.ID})
	return &session, nil
}

// CloseSession sets the end time and duration on an open session. The
// row becomes immutable afterwards; calling CloseSession on an already
// closed row returns ErrSessionClosed.
func (s *Store) CloseSession(ctx context.Context, id uint, finishedAt time.Time, durationSeconds int) error {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return fmt.Errorf("session #%d not found: %w", id, err)
	}
	if !session.Open() {
		return ErrSessionClosed
	}

	session.FinishedAt = &finishedAt
	session.DurationSeconds = durationSeconds
	if err := s.db.WithContext(ctx).Save(&session).Error; err != nil {
		return fmt.Errorf("failed to close session #%d: %w", id, err)
	}

	if err := s.refreshTaskTotal(ctx, session.TaskID); err != nil {
		s.log.WithError(err).WithField("task_id", session.TaskID).Warn("failed to refresh task total")
	}
	s.feed.Publish(Change{Op: OpUpdate, TaskID: session.TaskID, SessionID: id})
	return nil
}

// DeleteSession removes a session row entirely. Used for intervals
// whose duration rounds down to zero.
func (s *Store) DeleteSession(ctx context.Context, id uint) error {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("session #%d not found: %w", id, err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Session{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete session #%d: %w", id, err)
	}

	if err := s.refreshTaskTotal(ctx, session.TaskID); err != nil {
		s.log.WithError(err).WithField("task_id", session.TaskID).Warn("failed to refresh task total")
	}
	s.feed.Publish(Change{Op: OpDelete, TaskID: session.TaskID, SessionID: id})
	return nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, fmt.Errorf("session #%d not found: %w", id, err)
	}
	return &session, nil
}

// FindOpenSession returns the open session for a (task, user) pair, or
// nil when there is none. Having none is not an error.
func (s *Store) FindOpenSession(ctx context.Context, taskID uint, userID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ? AND finished_at IS NULL", taskID, userID).
		Order("started_at ASC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open session: %w", err)
	}
	return &session, nil
}

// FindOpenSessionForUser returns the user's open session on any task,
// or nil when there is none.
func (s *Store) FindOpenSessionForUser(ctx context.Context, userID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND finished_at IS NULL", userID).
		Order("started_at ASC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open session: %w", err)
	}
	return &session, nil
}

// SumTaskDuration sums DurationSeconds over all closed sessions for a
// task, across all users. Open sessions do not count until closed.
func (s *Store) SumTaskDuration(ctx context.Context, taskID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("task_id = ? AND finished_at IS NOT NULL", taskID).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum durations for task #%d: %w", taskID, err)
	}
	return total, nil
}

// SessionsInRange returns closed sessions that started within the
// half-open window [from, to), oldest first. A session starting at
// exactly to belongs to the next window.
func (s *Store) SessionsInRange(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("started_at >= ? AND started_at < ? AND finished_at IS NOT NULL", from, to).
		Order("started_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return sessions, nil
}

// SessionsForTask returns all closed sessions for one task, oldest
// first.
func (s *Store) SessionsForTask(ctx context.Context, taskID uint) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND finished_at IS NOT NULL", taskID).
		Order("started_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions for task #%d: %w", taskID, err)
	}
	return sessions, nil
}

// refreshTaskTotal recomputes the cached total on the task row from
// the ledger. Summation is order-independent, so concurrent writers
// converge on the same value.
func (s *Store) refreshTaskTotal(ctx context.Context, taskID uint) error {
	total, err := s.SumTaskDuration(ctx, taskID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", taskID).
		Update("total_duration_seconds", total).Error
}
