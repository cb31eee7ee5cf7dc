// Package tui provides the live terminal view of an orchestration run.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shayc/atelier/internal/orchestrator"
	"github.com/shayc/atelier/pkg/models"
)

// EventMsg wraps an orchestrator event for the view.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the run has finished and the view should exit.
type RunDoneMsg struct {
	Summary models.RunSummary
	Err     error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// taskRow is one task's display state.
type taskRow struct {
	id       string
	taskType string
	role     models.Role
	status   models.TaskStatus
	message  string
}

// RunView is the bubbletea model rendering live run progress.
type RunView struct {
	goal    string
	spinner spinner.Model

	rows  map[string]*taskRow
	order []string

	startedAt time.Time
	done      bool
	summary   models.RunSummary
	err       error
	quitting  bool
}

// NewRunView creates a run view for the given goal.
func NewRunView(goal string) *RunView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &RunView{
		goal:      goal,
		spinner:   sp,
		rows:      make(map[string]*taskRow),
		startedAt: time.Now(),
	}
}

// Init starts the spinner.
func (v *RunView) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update handles messages.
func (v *RunView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			v.quitting = true
			return v, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case EventMsg:
		v.apply(msg.Event)
		return v, nil

	case RunDoneMsg:
		v.done = true
		v.summary = msg.Summary
		v.err = msg.Err
		return v, tea.Quit
	}

	return v, nil
}

// apply folds one orchestrator event into the display state.
func (v *RunView) apply(ev orchestrator.Event) {
	if ev.TaskID == "" {
		return
	}

	row, ok := v.rows[ev.TaskID]
	if !ok {
		row = &taskRow{id: ev.TaskID, taskType: ev.TaskType}
		v.rows[ev.TaskID] = row
		v.order = append(v.order, ev.TaskID)
		sort.Strings(v.order)
	}

	switch ev.Type {
	case orchestrator.EventTaskQueued:
		row.status = models.TaskStatusReady
	case orchestrator.EventTaskStarted:
		row.status = models.TaskStatusRunning
		row.role = ev.Role
	case orchestrator.EventTaskCompleted:
		row.status = models.TaskStatusCompleted
	case orchestrator.EventTaskFailed:
		row.status = models.TaskStatusFailed
		row.message = ev.Message
	}
}

// View renders the run state.
func (v *RunView) View() string {
	if v.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("atelier run") + "  " + dimStyle.Render(v.goal) + "\n\n")

	for _, id := range v.order {
		row := v.rows[id]
		var marker, label string
		switch row.status {
		case models.TaskStatusRunning:
			marker = v.spinner.View()
			label = runningStyle.Render(fmt.Sprintf("%s (%s)", row.id, row.role))
		case models.TaskStatusCompleted:
			marker = doneStyle.Render("✓")
			label = row.id
		case models.TaskStatusFailed:
			marker = failStyle.Render("✗")
			label = row.id
			if row.message != "" {
				label += dimStyle.Render("  " + row.message)
			}
		default:
			marker = dimStyle.Render("·")
			label = dimStyle.Render(row.id)
		}
		fmt.Fprintf(&b, "  %s %s\n", marker, label)
	}

	if v.done {
		fmt.Fprintf(&b, "\n%d/%d tasks succeeded in %s\n",
			v.summary.SuccessfulTasks, v.summary.TotalTasks,
			time.Since(v.startedAt).Round(time.Second))
		if v.err != nil {
			b.WriteString(failStyle.Render(v.err.Error()) + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render("\npress q to quit\n"))
	}

	return b.String()
}
