package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shayc/atelier/internal/graph"
	"github.com/shayc/atelier/internal/registry"
	"github.com/shayc/atelier/internal/worker"
	"github.com/shayc/atelier/pkg/models"
)

// RunState tracks the lifecycle of a whole run.
type RunState string

const (
	// StatePlanning indicates the graph is being built and validated.
	StatePlanning RunState = "planning"
	// StateExecuting indicates waves are being dispatched.
	StateExecuting RunState = "executing"
	// StateCompleted indicates the graph drained fully.
	StateCompleted RunState = "completed"
	// StateAborted indicates the run stopped with tasks still pending.
	StateAborted RunState = "aborted"
)

// CyclicDependencyError indicates the run could make no further progress:
// the ready frontier was empty while tasks remained pending.
type CyclicDependencyError struct {
	// StuckTaskIDs are the pending tasks wedged behind an unsatisfiable
	// dependency, in plan order.
	StuckTaskIDs []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("no progress possible: tasks stuck on unsatisfiable dependencies: %s",
		strings.Join(e.StuckTaskIDs, ", "))
}

// Orchestrator owns the task graph, memory store, and capability registry for
// one run and drives the graph to completion. Construct one per run; it holds
// no process-wide state.
type Orchestrator struct {
	concurrencyLimit int

	graph       *graph.TaskGraph
	registry    *registry.CapabilityRegistry
	synthesizer *Synthesizer
	logger      *DebugLogger

	// workers builds the executor for a resolved capability. Overridable in
	// tests to script outcomes.
	workers func(cap registry.Capability) taskExecutor

	events  chan Event
	dropped atomic.Uint64

	mu      sync.Mutex
	state   RunState
	results map[string]*models.Result
}

// taskExecutor executes one task. Satisfied by *worker.Worker.
type taskExecutor interface {
	Execute(ctx context.Context, task *models.Task) *models.Result
}

// New creates an Orchestrator from required config plus options.
func New(req RequiredConfig, opts ...Option) *Orchestrator {
	options := &orchestratorOptions{
		concurrencyLimit: DefaultConcurrencyLimit,
		eventBuffer:      100,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.concurrencyLimit <= 0 {
		options.concurrencyLimit = DefaultConcurrencyLimit
	}
	if options.logger == nil {
		options.logger, _ = NewDebugLogger("")
	}

	g := graph.New()
	g.SetStrictUnblocking(options.strictUnblocking)
	g.SetDebugLog(options.logger.Log)

	o := &Orchestrator{
		concurrencyLimit: options.concurrencyLimit,
		graph:            g,
		registry:         req.Registry,
		synthesizer:      NewSynthesizer(options.narrativeGenerator),
		logger:           options.logger,
		events:           make(chan Event, options.eventBuffer),
		state:            StatePlanning,
		results:          make(map[string]*models.Result),
	}
	o.workers = func(cap registry.Capability) taskExecutor {
		w := worker.New(cap, req.Memory)
		w.SetLogger(options.logger.Log)
		w.SetRetrievalThreshold(options.retrievalThreshold)
		return w
	}
	return o
}

// State returns the current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Results returns a copy of the per-task results recorded so far.
func (o *Orchestrator) Results() map[string]*models.Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]*models.Result, len(o.results))
	for id, r := range o.results {
		out[id] = r
	}
	return out
}

func (o *Orchestrator) recordResult(id string, r *models.Result) {
	o.mu.Lock()
	o.results[id] = r
	o.mu.Unlock()
}

// Run executes the plan to completion and synthesizes the final output.
// Task-level failures are isolated; the run only aborts when no progress is
// possible (cycle or wedged dependency) or the context is cancelled. On
// abort the partial output produced so far is returned alongside the error.
func (o *Orchestrator) Run(ctx context.Context, goal string, tasks []*models.Task) (*models.FinalOutput, error) {
	o.logger.Log("[run] planning: %d tasks for goal %q", len(tasks), goal)

	if err := o.graph.Build(tasks); err != nil {
		buildErr := fmt.Errorf("build task graph: %w", err)
		o.setState(StateAborted)
		o.emitEvent(Event{Type: EventRunAborted, Error: buildErr})
		close(o.events)
		return nil, buildErr
	}
	if o.graph.HasCycle() {
		o.logger.Log("[run] plan contains a dependency cycle; unaffected tasks will still run")
	}

	o.setState(StateExecuting)
	o.emitEvent(Event{Type: EventRunStarted, Message: goal})

	runErr := o.runLoop(ctx)

	output := o.synthesizer.Synthesize(ctx, goal, o.graph.Tasks())

	if runErr != nil {
		o.setState(StateAborted)
		o.emitEvent(Event{Type: EventRunAborted, Error: runErr})
		close(o.events)
		return output, runErr
	}

	o.setState(StateCompleted)
	o.emitEvent(Event{
		Type: EventRunCompleted,
		Message: fmt.Sprintf("%d/%d tasks succeeded",
			output.Summary.SuccessfulTasks, output.Summary.TotalTasks),
	})
	close(o.events)
	return output, nil
}

// runLoop dispatches waves of ready tasks until the graph drains or wedges.
// Each wave blocks on its whole batch before the frontier is recomputed, so
// at most concurrencyLimit tasks are ever running.
func (o *Orchestrator) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frontier := o.graph.ReadyFrontier()
		if len(frontier) == 0 {
			if o.graph.Remaining() == 0 {
				o.logger.Log("[run] graph drained")
				return nil
			}
			stuck := o.graph.StuckPending()
			o.logger.Log("[run] ABORT: %d tasks stuck with empty frontier: %v", len(stuck), stuck)
			return &CyclicDependencyError{StuckTaskIDs: stuck}
		}

		batch := frontier
		if len(batch) > o.concurrencyLimit {
			batch = batch[:o.concurrencyLimit]
		}
		o.logger.Log("[run] wave: dispatching %d of %d ready tasks", len(batch), len(frontier))

		o.dispatchWave(ctx, batch)
	}
}

// dispatchWave marks the batch ready, routes each task to a capability, and
// executes the routable ones concurrently, blocking until all finish.
func (o *Orchestrator) dispatchWave(ctx context.Context, batch []*models.Task) {
	var wg sync.WaitGroup

	for _, task := range batch {
		if err := o.graph.MarkStatus(task.ID, models.TaskStatusReady, nil); err != nil {
			o.logger.Log("[run] task %s: %v", task.ID, err)
			continue
		}
		o.emitEvent(Event{Type: EventTaskQueued, TaskID: task.ID, TaskType: task.Type})

		cap, err := o.registry.Resolve(task)
		if err != nil {
			// No registered worker can take this task. Fail it in place
			// without holding up the rest of the wave.
			o.failTask(task, err.Error())
			continue
		}

		if err := o.graph.MarkStatus(task.ID, models.TaskStatusRunning, nil); err != nil {
			o.logger.Log("[run] task %s: %v", task.ID, err)
			continue
		}
		task.AssignedTo = string(cap.Role)
		o.emitEvent(Event{Type: EventTaskStarted, TaskID: task.ID, TaskType: task.Type, Role: cap.Role})

		w := o.workers(cap)
		wg.Add(1)
		go func(task *models.Task) {
			defer wg.Done()
			result := w.Execute(ctx, task)
			o.completeTask(task, result)
		}(task)
	}

	wg.Wait()
}

// completeTask records a worker result and moves the task to its terminal
// status.
func (o *Orchestrator) completeTask(task *models.Task, result *models.Result) {
	o.recordResult(task.ID, result)

	if result.OK() {
		if err := o.graph.MarkStatus(task.ID, models.TaskStatusCompleted, result); err != nil {
			o.logger.Log("[run] task %s: %v", task.ID, err)
			return
		}
		o.emitEvent(Event{Type: EventTaskCompleted, TaskID: task.ID, TaskType: task.Type, Role: result.Role})
		return
	}

	if err := o.graph.MarkStatus(task.ID, models.TaskStatusFailed, result); err != nil {
		o.logger.Log("[run] task %s: %v", task.ID, err)
		return
	}
	o.emitEvent(Event{
		Type:     EventTaskFailed,
		TaskID:   task.ID,
		TaskType: task.Type,
		Role:     result.Role,
		Message:  result.Error,
	})
}

// failTask fails a task that never reached a worker.
func (o *Orchestrator) failTask(task *models.Task, reason string) {
	result := &models.Result{Status: models.ResultError, Error: reason}
	o.recordResult(task.ID, result)

	if err := o.graph.MarkStatus(task.ID, models.TaskStatusFailed, result); err != nil {
		o.logger.Log("[run] task %s: %v", task.ID, err)
		return
	}
	o.emitEvent(Event{Type: EventTaskFailed, TaskID: task.ID, TaskType: task.Type, Message: reason})
}
