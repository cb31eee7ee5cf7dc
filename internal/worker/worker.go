// Package worker executes single tasks: it enriches the task description
// with retrieved memory, invokes the capability's generation backend, and
// feeds memorable output back into the store.
package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/shayc/atelier/internal/memory"
	"github.com/shayc/atelier/internal/registry"
	"github.com/shayc/atelier/pkg/models"
)

// contextLimit is how many memory hits enrich a task prompt.
const contextLimit = 5

// Worker executes one task at a time with a fixed capability.
type Worker struct {
	cap    registry.Capability
	store  *memory.Store
	logger func(format string, args ...interface{})
	// threshold is the minimum similarity for enrichment hits. Zero uses
	// the store's default.
	threshold float64
}

// New creates a Worker for the given capability and memory store.
func New(cap registry.Capability, store *memory.Store) *Worker {
	return &Worker{
		cap:    cap,
		store:  store,
		logger: func(format string, args ...interface{}) {},
	}
}

// SetLogger sets the debug logging function.
func (w *Worker) SetLogger(fn func(format string, args ...interface{})) {
	if fn != nil {
		w.logger = fn
	}
}

// SetRetrievalThreshold overrides the similarity threshold used when
// enriching task context from memory.
func (w *Worker) SetRetrievalThreshold(threshold float64) {
	w.threshold = threshold
}

// Role returns the worker's role.
func (w *Worker) Role() models.Role {
	return w.cap.Role
}

// Execute runs the task and always returns a Result; backend failures and
// panics are captured in the result rather than propagated, so one bad task
// can never take down the run.
func (w *Worker) Execute(ctx context.Context, task *models.Task) (result *models.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &models.Result{
				Status: models.ResultError,
				Role:   w.cap.Role,
				Error:  fmt.Sprintf("worker panic: %v", r),
			}
		}
	}()

	prompt := w.enrich(ctx, task)

	payload, err := w.cap.Generator.Complete(ctx, prompt)
	if err != nil {
		w.logger("[worker.%s] task %s: backend error: %v", w.cap.Role, task.ID, err)
		return &models.Result{
			Status: models.ResultError,
			Role:   w.cap.Role,
			Error:  err.Error(),
		}
	}

	w.storeMemorable(ctx, task, payload)

	return &models.Result{
		Status:  models.ResultSuccess,
		Role:    w.cap.Role,
		Payload: payload,
	}
}

// enrich queries the memory store with the task description and prepends the
// top hits to the prompt. Retrieval failures degrade to the bare description.
func (w *Worker) enrich(ctx context.Context, task *models.Task) string {
	var b strings.Builder

	if w.store != nil {
		hits, err := w.store.Retrieve(ctx, task.Description, memory.RetrieveOptions{
			ContextTag: task.ProjectContext(),
			Limit:      contextLimit,
			Threshold:  w.threshold,
		})
		if err != nil {
			w.logger("[worker.%s] task %s: memory retrieval failed: %v", w.cap.Role, task.ID, err)
		}
		if len(hits) > 0 {
			b.WriteString("Relevant context from project memory:\n")
			for _, hit := range hits {
				fmt.Fprintf(&b, "- [%s] %s\n", hit.Kind, hit.Content)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "Role: %s\nTask type: %s\n\n%s", w.cap.Role, task.Type, task.Description)
	return b.String()
}

// storeMemorable extracts a role-specific excerpt from a successful payload
// and stores it tagged with the task type. Store failures are logged, not
// surfaced: losing one memory never fails the task.
func (w *Worker) storeMemorable(ctx context.Context, task *models.Task, payload map[string]any) {
	if w.store == nil {
		return
	}

	excerpt, kind := extractMemorable(w.cap.Role, payload)
	if excerpt == "" {
		return
	}

	tags := []string{string(w.cap.Role), task.ID}
	if _, err := w.store.Store(ctx, excerpt, kind, task.Type, tags); err != nil {
		w.logger("[worker.%s] task %s: failed to store memory: %v", w.cap.Role, task.ID, err)
	}
}
