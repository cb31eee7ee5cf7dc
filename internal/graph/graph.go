// Package graph provides the task dependency graph for run scheduling.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shayc/atelier/pkg/models"
)

// InvalidTransitionError indicates an illegal backward status transition.
type InvalidTransitionError struct {
	TaskID string
	From   models.TaskStatus
	To     models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}

// TaskGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type TaskGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// order preserves insertion order for stable frontier ties.
	order []string
	// strict requires dependencies to complete successfully before
	// unblocking dependents. Off by default: any terminal state satisfies
	// a dependency edge, so a failed prerequisite still unblocks its
	// dependents.
	strict bool
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		nodes:    make(map[string]*models.Task),
		edges:    make(map[string][]string),
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *TaskGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// SetStrictUnblocking makes dependency edges require successful completion.
func (g *TaskGraph) SetStrictUnblocking(strict bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.strict = strict
}

// Build constructs the dependency graph from a slice of tasks.
// Returns an error if a task id is duplicated, a task depends on itself, or
// dependencies reference unknown tasks. Cycles are NOT rejected here: tasks
// outside a cycle still run, and the wedged remainder is surfaced by the
// scheduler once the frontier empties. Use HasCycle to probe up front.
func (g *TaskGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d tasks", len(tasks))

	// First pass: register all tasks as nodes.
	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("duplicate task id %s", task.ID)
		}
		if task.Status == "" {
			task.Status = models.TaskStatusPending
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	// Second pass: build edges from DependsOn fields.
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if depID == task.ID {
				return fmt.Errorf("task %s depends on itself", task.ID)
			}
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	g.debugLog("[graph.Build] graph built successfully with %d nodes", len(g.nodes))
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *TaskGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked is the internal implementation that assumes the lock is held.
func (g *TaskGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int)

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge, cycle detected.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}

	return false
}

// satisfiedLocked reports whether the dependency edge on depID is satisfied.
func (g *TaskGraph) satisfiedLocked(depID string) bool {
	dep, exists := g.nodes[depID]
	if !exists {
		return false
	}
	if g.strict {
		return dep.Status == models.TaskStatusCompleted
	}
	return dep.Status.Terminal()
}

// ReadyFrontier returns all pending tasks whose dependencies have reached a
// satisfying state, ordered by descending priority, then ascending dependency
// count, then insertion order.
func (g *TaskGraph) ReadyFrontier() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for _, id := range g.order {
		task := g.nodes[id]
		if task.Status != models.TaskStatusPending {
			continue
		}

		blocked := false
		for _, depID := range g.edges[id] {
			if !g.satisfiedLocked(depID) {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, task)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return len(g.edges[ready[i].ID]) < len(g.edges[ready[j].ID])
	})

	g.debugLog("[graph.ReadyFrontier] %d tasks ready", len(ready))
	return ready
}

// MarkStatus transitions a task to the given status, recording the result if
// one is supplied. Backward transitions fail with InvalidTransitionError.
func (g *TaskGraph) MarkStatus(id string, status models.TaskStatus, result *models.Result) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, exists := g.nodes[id]
	if !exists {
		return fmt.Errorf("unknown task %s", id)
	}
	if !task.Status.CanTransition(status) {
		return &InvalidTransitionError{TaskID: id, From: task.Status, To: status}
	}

	g.debugLog("[graph.MarkStatus] task %s: %s -> %s", id, task.Status, status)
	task.Status = status
	if result != nil {
		task.Result = result
	}
	return nil
}

// GetTask returns the task for a given ID, or nil if not found.
func (g *TaskGraph) GetTask(id string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Tasks returns all tasks in insertion order.
func (g *TaskGraph) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.nodes[id])
	}
	return tasks
}

// Size returns the number of tasks in the graph.
func (g *TaskGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Remaining returns the number of tasks not yet in a terminal state.
func (g *TaskGraph) Remaining() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, task := range g.nodes {
		if !task.Status.Terminal() {
			n++
		}
	}
	return n
}

// StuckPending returns the IDs of pending tasks, in insertion order.
// When the frontier is empty and tasks remain pending, these are the tasks
// wedged behind an unsatisfiable dependency.
func (g *TaskGraph) StuckPending() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var stuck []string
	for _, id := range g.order {
		if g.nodes[id].Status == models.TaskStatusPending {
			stuck = append(stuck, id)
		}
	}
	return stuck
}

// GetDependents returns the IDs of tasks that depend on the given task.
func (g *TaskGraph) GetDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, tid := range g.order {
		for _, depID := range g.edges[tid] {
			if depID == id {
				dependents = append(dependents, tid)
				break
			}
		}
	}
	return dependents
}
