package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has unmet dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates the task is ready to be dispatched.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates the task is being worked on.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// rank orders statuses along the task lifecycle. Transitions may only move
// forward; Completed and Failed share the last slot.
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusReady:
		return 1
	case TaskStatusRunning:
		return 2
	case TaskStatusCompleted, TaskStatusFailed:
		return 3
	default:
		return -1
	}
}

// CanTransition returns true if moving from s to next is a legal forward
// transition. Terminal states accept no further transitions.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Task represents a unit of work in an orchestration run.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Type classifies the work (e.g. "compose_theme", "draft_chapter").
	Type string `json:"type"`
	// Description is the full instruction handed to the worker.
	Description string `json:"description"`
	// RequiredCapabilities lists roles able to execute this task.
	RequiredCapabilities []Role `json:"required_capabilities,omitempty"`
	// DependsOn lists task IDs that must reach a terminal state before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// Priority orders tasks within a ready frontier; higher runs first.
	Priority int `json:"priority,omitempty"`
	// Context carries planner-provided metadata (e.g. "projectContext").
	Context map[string]any `json:"context,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the execution outcome once the task is terminal.
	Result *Result `json:"result,omitempty"`
	// AssignedTo is the ID of the worker dispatch executing the task.
	AssignedTo string `json:"assigned_to,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProjectContext returns the planner-provided project context tag, if any.
func (t *Task) ProjectContext() string {
	if t.Context == nil {
		return ""
	}
	if v, ok := t.Context["projectContext"].(string); ok {
		return v
	}
	return ""
}
