package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// breadcrumb is the crash-recovery record for the one session this
// process may have open. It is not the source of truth (the ledger
// is); it only lets a fresh process find an orphaned session without
// scanning the ledger.
type breadcrumb struct {
	Instance  string    `json:"instance"`
	SessionID uint      `json:"session_id"`
	TaskID    uint      `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
}

// crumbFile stores the breadcrumb as a small JSON file in the state
// directory, next to the database.
type crumbFile struct {
	path string
}

func newCrumbFile(stateDir string) (*crumbFile, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &crumbFile{path: filepath.Join(stateDir, "active_session.json")}, nil
}

// Load reads the breadcrumb. Absent file means no breadcrumb and is
// not an error.
func (c *crumbFile) Load() (*breadcrumb, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read breadcrumb: %w", err)
	}

	var b breadcrumb
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse breadcrumb: %w", err)
	}
	return &b, nil
}

// Store writes the breadcrumb atomically (temp file + rename) so a
// crash mid-write never leaves a torn record.
func (c *crumbFile) Store(b breadcrumb) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write breadcrumb: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Clear removes the breadcrumb. Clearing an absent breadcrumb is a
// no-op.
func (c *crumbFile) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
