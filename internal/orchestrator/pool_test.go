package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/shayc/atelier/internal/registry"
	"github.com/shayc/atelier/pkg/models"
)

func newPoolRegistry(t *testing.T) *registry.CapabilityRegistry {
	t.Helper()
	reg := registry.New()
	if err := reg.Register(registry.Capability{Role: models.RoleWriter, Generator: stubGenerator{}}); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestPoolSubmitRunsToCompletion(t *testing.T) {
	type outcome struct {
		runID  string
		output *models.FinalOutput
		err    error
	}
	done := make(chan outcome, 1)

	pool := NewRunPool(PoolConfig{
		Registry: newPoolRegistry(t),
		OnDone: func(runID string, output *models.FinalOutput, err error) {
			done <- outcome{runID, output, err}
		},
	})

	go func() {
		for range pool.Events() {
		}
	}()

	runID := pool.Submit("goal", []*models.Task{
		{ID: "a", Type: "draft", Description: "x"},
		{ID: "b", Type: "draft", Description: "y", DependsOn: []string{"a"}},
	})
	if runID == "" {
		t.Fatal("expected a run id")
	}

	select {
	case got := <-done:
		if got.runID != runID {
			t.Errorf("expected run id %s, got %s", runID, got.runID)
		}
		if got.err != nil {
			t.Errorf("expected run to succeed, got %v", got.err)
		}
		if got.output.Summary.SuccessfulTasks != 2 {
			t.Errorf("unexpected summary: %+v", got.output.Summary)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	pool.Stop()
}

func TestPoolRunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)

	pool := NewRunPool(PoolConfig{
		Registry: newPoolRegistry(t),
		OnDone: func(runID string, output *models.FinalOutput, err error) {
			wg.Done()
		},
	})

	go func() {
		for range pool.Events() {
		}
	}()

	id1 := pool.Submit("first", []*models.Task{{ID: "a", Type: "draft", Description: "x"}})
	id2 := pool.Submit("second", []*models.Task{{ID: "a", Type: "draft", Description: "x"}})
	if id1 == id2 {
		t.Error("expected distinct run ids")
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("runs did not finish")
	}

	pool.Stop()
	if pool.Count() != 0 {
		t.Errorf("expected no live runs after stop, got %d", pool.Count())
	}
}
