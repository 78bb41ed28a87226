package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avanti-suite/timekeep/internal/models"
)

// CreateTask creates a task in status "new".
func (s *Store) CreateTask(ctx context.Context, title, note string) (*models.Task, error) {
	task := models.Task{
		Title:  title,
		Note:   note,
		Status: models.StatusNew,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

// GetTask fetches a task by id.
func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("task #%d not found", id)
	}
	return &task, nil
}

// ListTasks returns all tasks, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// SetTaskStatus transitions a task to the given status. Moving into
// "completed" stamps DoneAt; moving out clears it.
func (s *Store) SetTaskStatus(ctx context.Context, id uint, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown task status %q", status)
	}

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Status = status
	if status == models.StatusCompleted {
		now := time.Now()
		task.DoneAt = &now
	} else {
		task.DoneAt = nil
	}

	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, fmt.Errorf("failed to update task #%d: %w", id, err)
	}
	return task, nil
}
