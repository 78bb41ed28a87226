package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avanti-suite/timekeep/internal/models"
	"github.com/avanti-suite/timekeep/internal/store"
	"github.com/avanti-suite/timekeep/internal/tracker"
)

// RunTimerTUI runs the live timer view and reports how it ended.
func RunTimerTUI(st *store.Store, ctrl *tracker.Controller, agg *tracker.Aggregator, task *models.Task) (TimerOutcome, error) {
	model := NewTimerModel(st, ctrl, agg, task)

	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return TimerDetached, err
	}

	m, ok := finalModel.(TimerModel)
	if !ok {
		return TimerDetached, nil
	}
	return m.outcome, nil
}

// RunAddTaskTUI starts the interactive add-task form.
func RunAddTaskTUI(st *store.Store) error {
	model := NewAddTaskModel(st)

	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := finalModel.(AddTaskModel); ok {
		if m.cancelled {
			fmt.Println("❌ Task creation cancelled.")
		} else if m.err != nil {
			fmt.Printf("❌ Error: %v\n", m.err)
		} else if m.createdTaskID > 0 {
			fmt.Printf("✅ New task \"%s\" added - ID: %d\n", m.createdTaskTitle, m.createdTaskID)
		}
	}

	return nil
}
