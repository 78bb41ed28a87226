package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avanti-suite/timekeep/internal/store"
)

type addStep int

const (
	stepTitle addStep = iota
	stepNote
)

// AddTaskModel is the interactive form for creating a task.
type AddTaskModel struct {
	store  *store.Store
	step   addStep
	inputs []textinput.Model
	width  int
	height int

	err       error
	cancelled bool

	createdTaskID    uint
	createdTaskTitle string
}

// NewAddTaskModel creates the add-task form model.
func NewAddTaskModel(st *store.Store) AddTaskModel {
	title := textinput.New()
	title.Placeholder = "What needs doing?"
	title.Focus()
	title.CharLimit = 200

	note := textinput.New()
	note.Placeholder = "Optional note (enter to skip)"
	note.CharLimit = 500

	return AddTaskModel{
		store:  st,
		inputs: []textinput.Model{title, note},
	}
}

func (m AddTaskModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m AddTaskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			switch m.step {
			case stepTitle:
				if strings.TrimSpace(m.inputs[stepTitle].Value()) == "" {
					return m, nil
				}
				m.inputs[stepTitle].Blur()
				m.step = stepNote
				m.inputs[stepNote].Focus()
				return m, textinput.Blink

			case stepNote:
				title := strings.TrimSpace(m.inputs[stepTitle].Value())
				note := strings.TrimSpace(m.inputs[stepNote].Value())
				task, err := m.store.CreateTask(context.Background(), title, note)
				if err != nil {
					m.err = err
					return m, tea.Quit
				}
				m.createdTaskID = task.ID
				m.createdTaskTitle = task.Title
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.inputs[m.step], cmd = m.inputs[m.step].Update(msg)
	return m, cmd
}

func (m AddTaskModel) View() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true)
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText))

	var b strings.Builder
	b.WriteString(labelStyle.Render("New task") + "\n\n")
	b.WriteString("Title: " + m.inputs[stepTitle].View() + "\n")
	if m.step >= stepNote {
		b.WriteString("Note:  " + m.inputs[stepNote].View() + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter continue • esc cancel"))
	return b.String()
}
