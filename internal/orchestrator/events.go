package orchestrator

import (
	"time"

	"github.com/shayc/atelier/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRunStarted indicates a run has begun executing.
	EventRunStarted EventType = "run_started"
	// EventTaskQueued indicates a task is ready and queued for execution.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventRunCompleted indicates the whole run finished.
	EventRunCompleted EventType = "run_completed"
	// EventRunAborted indicates the run stopped without draining the graph.
	EventRunAborted EventType = "run_aborted"
)

// Event represents a state change emitted by the orchestrator.
// These events drive the live run view and CLI progress output.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// TaskType is the type of the related task, if applicable.
	TaskType string
	// Role is the worker role handling the task, if applicable.
	Role models.Role
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Events returns the channel for receiving orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// DroppedEventCount returns the number of events dropped because the event
// channel was full.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.dropped.Load()
}

// emitEvent sends an event without blocking; full buffers drop the event and
// bump the dropped counter.
func (o *Orchestrator) emitEvent(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case o.events <- ev:
	default:
		o.dropped.Add(1)
	}
}
