package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avanti-suite/timekeep/internal/format"
	"github.com/avanti-suite/timekeep/internal/models"
	"github.com/avanti-suite/timekeep/internal/store"
	"github.com/avanti-suite/timekeep/internal/tracker"
)

// TimerOutcome says how the timer view ended.
type TimerOutcome int

const (
	// TimerDetached: the view closed but the session keeps running.
	TimerDetached TimerOutcome = iota
	// TimerStopped: the user stopped the session.
	TimerStopped
	// TimerCompleted: the user completed the task; the session was
	// closed by the status flip.
	TimerCompleted
)

// TimerModel is the live timer view for one task. The session counter
// shows this viewing's elapsed time; the total counter shows the
// task's tracked time across all users and refreshes whenever the
// ledger changes.
type TimerModel struct {
	width  int
	height int

	store      *store.Store
	controller *tracker.Controller
	aggregator *tracker.Aggregator
	task       *models.Task

	elapsed int
	total   int64

	outcome TimerOutcome
	err     error
}

// timerTickMsg is sent every second to refresh both counters.
type timerTickMsg struct{}

// NewTimerModel creates the timer view model.
func NewTimerModel(st *store.Store, ctrl *tracker.Controller, agg *tracker.Aggregator, task *models.Task) TimerModel {
	return TimerModel{
		store:      st,
		controller: ctrl,
		aggregator: agg,
		task:       task,
		elapsed:    ctrl.Elapsed(),
		total:      agg.Total(),
	}
}

func (m TimerModel) Init() tea.Cmd {
	return timerTick()
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg{}
	})
}

func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		// Both counters are re-read, never incremented, so a
		// suspended terminal shows correct values on wake.
		m.elapsed = m.controller.Elapsed()
		m.total = m.aggregator.Total()
		return m, timerTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "S":
			m.outcome = TimerStopped
			return m, tea.Quit
		case "c", "C":
			// Completing the task flips it to an untracked status,
			// which closes the open session.
			ctx := context.Background()
			task, err := m.store.SetTaskStatus(ctx, m.task.ID, models.StatusCompleted)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.task = task
			m.controller.SetStatus(ctx, models.StatusCompleted)
			m.outcome = TimerCompleted
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.outcome = TimerDetached
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true).
		Align(lipgloss.Center).
		Width(m.width)

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Align(lipgloss.Center).
		Width(m.width)

	clockStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Align(lipgloss.Center).
		Width(m.width)

	totalStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Align(lipgloss.Center).
		Width(m.width)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Align(lipgloss.Center).
		Width(m.width)

	title := m.task.Title
	if len(title) > m.width-4 && m.width > 7 {
		title = title[:m.width-7] + "..."
	}

	lines := []string{
		headerStyle.Render("⏱  TRACKING TIME"),
		titleStyle.Render(fmt.Sprintf("#%d %s", m.task.ID, title)),
		"",
		clockStyle.Render("This session: " + format.HHMMSS(int64(m.elapsed))),
		totalStyle.Render("Task total (all users): " + format.HHMMSS(m.total)),
		"",
		helpStyle.Render("s stop • c complete task • q/esc keep running in background"),
	}
	if m.err != nil {
		errStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Align(lipgloss.Center).
			Width(m.width)
		lines = append(lines, errStyle.Render(m.err.Error()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
