package graph

import (
	"errors"
	"testing"

	"github.com/shayc/atelier/pkg/models"
)

func TestBuildEmpty(t *testing.T) {
	g := New()
	if err := g.Build(nil); err != nil {
		t.Fatalf("failed to build empty graph: %v", err)
	}
	if g.Size() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.Size())
	}
}

func TestBuildDefaultsStatusToPending(t *testing.T) {
	g := New()
	tasks := []*models.Task{{ID: "a"}}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	if got := g.GetTask("a").Status; got != models.TaskStatusPending {
		t.Errorf("expected pending, got %s", got)
	}
}

func TestBuildDuplicateID(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a", Status: models.TaskStatusPending},
		{ID: "a", Status: models.TaskStatusPending},
	}
	if err := g.Build(tasks); err == nil {
		t.Error("expected error for duplicate task id")
	}
}

func TestBuildSelfDependency(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a", DependsOn: []string{"a"}},
	}
	if err := g.Build(tasks); err == nil {
		t.Error("expected error for self dependency")
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a", DependsOn: []string{"missing"}},
	}
	if err := g.Build(tasks); err == nil {
		t.Error("expected error for unknown dependency")
	}
}

func TestBuildAcceptsCycle(t *testing.T) {
	// Cycles are a runtime concern; Build only validates structure.
	g := New()
	tasks := []*models.Task{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("expected cycle to build, got %v", err)
	}
	if !g.HasCycle() {
		t.Error("expected HasCycle to report the cycle")
	}
}

func TestHasCycleFalse(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a", "b"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	if g.HasCycle() {
		t.Error("expected no cycle")
	}
}

func TestReadyFrontierBlockedByPendingDep(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	ready := g.ReadyFrontier()
	if len(ready) != 1 || ready[0].ID != "a" {
		t.Fatalf("expected only a ready, got %v", ids(ready))
	}
}

func TestReadyFrontierUnblocksOnCompletion(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	mustMark(t, g, "a", models.TaskStatusReady)
	mustMark(t, g, "a", models.TaskStatusRunning)
	mustMark(t, g, "a", models.TaskStatusCompleted)

	ready := g.ReadyFrontier()
	if len(ready) != 1 || ready[0].ID != "b" {
		t.Fatalf("expected b ready after a completed, got %v", ids(ready))
	}
}

func TestReadyFrontierFailedDepStillUnblocks(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	mustMark(t, g, "a", models.TaskStatusFailed)

	ready := g.ReadyFrontier()
	if len(ready) != 1 || ready[0].ID != "b" {
		t.Fatalf("expected failed dep to unblock b, got %v", ids(ready))
	}
}

func TestReadyFrontierStrictUnblocking(t *testing.T) {
	g := New()
	g.SetStrictUnblocking(true)
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	mustMark(t, g, "a", models.TaskStatusFailed)

	if ready := g.ReadyFrontier(); len(ready) != 0 {
		t.Errorf("expected failed dep to keep b blocked in strict mode, got %v", ids(ready))
	}
	if stuck := g.StuckPending(); len(stuck) != 1 || stuck[0] != "b" {
		t.Errorf("expected b stuck, got %v", stuck)
	}
}

func TestReadyFrontierPriorityOrder(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "low", Priority: 1},
		{ID: "high", Priority: 10},
		{ID: "mid", Priority: 5},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	got := ids(g.ReadyFrontier())
	want := []string{"high", "mid", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestReadyFrontierDepCountBreaksPriorityTie(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "dep1"},
		{ID: "dep2"},
		{ID: "many", Priority: 5, DependsOn: []string{"dep1", "dep2"}},
		{ID: "few", Priority: 5, DependsOn: []string{"dep1"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	mustMark(t, g, "dep1", models.TaskStatusCompleted)
	mustMark(t, g, "dep2", models.TaskStatusCompleted)

	got := ids(g.ReadyFrontier())
	if got[0] != "few" || got[1] != "many" {
		t.Errorf("expected fewer dependencies first on tie, got %v", got)
	}
}

func TestReadyFrontierInsertionOrderBreaksFullTie(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "first", Priority: 3},
		{ID: "second", Priority: 3},
		{ID: "third", Priority: 3},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	got := ids(g.ReadyFrontier())
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, got)
		}
	}
}

func TestMarkStatusRecordsResult(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{{ID: "a"}}); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	res := &models.Result{Status: models.ResultSuccess, Payload: map[string]any{"summary": "done"}}
	if err := g.MarkStatus("a", models.TaskStatusCompleted, res); err != nil {
		t.Fatalf("failed to mark completed: %v", err)
	}

	task := g.GetTask("a")
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.Result != res {
		t.Error("expected result recorded on task")
	}
}

func TestMarkStatusRejectsBackwardTransition(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{{ID: "a"}}); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	mustMark(t, g, "a", models.TaskStatusRunning)

	err := g.MarkStatus("a", models.TaskStatusPending, nil)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != models.TaskStatusRunning || invalid.To != models.TaskStatusPending {
		t.Errorf("unexpected transition in error: %s -> %s", invalid.From, invalid.To)
	}
}

func TestMarkStatusRejectsLeavingTerminal(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{{ID: "a"}}); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	mustMark(t, g, "a", models.TaskStatusCompleted)

	if err := g.MarkStatus("a", models.TaskStatusFailed, nil); err == nil {
		t.Error("expected error when leaving a terminal state")
	}
}

func TestMarkStatusUnknownTask(t *testing.T) {
	g := New()
	if err := g.MarkStatus("missing", models.TaskStatusReady, nil); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestRemaining(t *testing.T) {
	g := New()
	tasks := []*models.Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	if g.Remaining() != 3 {
		t.Errorf("expected 3 remaining, got %d", g.Remaining())
	}

	mustMark(t, g, "a", models.TaskStatusCompleted)
	mustMark(t, g, "b", models.TaskStatusFailed)

	if g.Remaining() != 1 {
		t.Errorf("expected 1 remaining, got %d", g.Remaining())
	}
}

func TestGetDependents(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a", "b"}},
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	deps := g.GetDependents("a")
	if len(deps) != 2 || deps[0] != "b" || deps[1] != "c" {
		t.Errorf("expected [b c], got %v", deps)
	}
	if deps := g.GetDependents("c"); len(deps) != 0 {
		t.Errorf("expected no dependents for c, got %v", deps)
	}
}

func mustMark(t *testing.T, g *TaskGraph, id string, status models.TaskStatus) {
	t.Helper()
	if err := g.MarkStatus(id, status, nil); err != nil {
		t.Fatalf("failed to mark %s %s: %v", id, status, err)
	}
}

func ids(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}
