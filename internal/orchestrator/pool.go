package orchestrator

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/shayc/atelier/internal/memory"
	"github.com/shayc/atelier/internal/registry"
	"github.com/shayc/atelier/pkg/models"
)

// PoolConfig contains configuration options for the RunPool.
type PoolConfig struct {
	Memory   *memory.Store
	Registry *registry.CapabilityRegistry
	// Options are applied to every orchestrator the pool creates.
	Options []Option
	// OnDone, when set, is called with each finished run's output.
	OnDone func(runID string, output *models.FinalOutput, err error)
}

// RunPool manages multiple concurrent orchestration runs. Watch mode uses it
// to run every dropped plan file without blocking the watcher.
type RunPool struct {
	cfg PoolConfig

	// runs tracks live orchestrators by run ID
	runs map[string]*Orchestrator
	mu   sync.RWMutex

	// events aggregates events from all runs
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// NewRunPool creates a new RunPool.
func NewRunPool(cfg PoolConfig) *RunPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &RunPool{
		cfg:    cfg,
		runs:   make(map[string]*Orchestrator),
		events: make(chan Event, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit creates and starts a new orchestrator for the given plan.
// Returns the run ID.
func (p *RunPool) Submit(goal string, tasks []*models.Task) string {
	runID := uuid.New().String()[:8]

	orch := New(
		RequiredConfig{Memory: p.cfg.Memory, Registry: p.cfg.Registry},
		p.cfg.Options...,
	)

	p.mu.Lock()
	p.runs[runID] = orch
	p.mu.Unlock()

	// Forward this run's events into the aggregate channel.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.forwardEvents(orch)
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		output, err := orch.Run(p.ctx, goal, tasks)
		if err != nil {
			log.Printf("[pool] run %s failed: %v", runID, err)
		}
		if p.cfg.OnDone != nil {
			p.cfg.OnDone(runID, output, err)
		}

		p.mu.Lock()
		delete(p.runs, runID)
		p.mu.Unlock()
	}()

	return runID
}

// forwardEvents forwards events from one orchestrator to the pool's channel.
func (p *RunPool) forwardEvents(orch *Orchestrator) {
	for event := range orch.Events() {
		select {
		case p.events <- event:
		case <-p.ctx.Done():
			return
		}
	}
}

// Events returns the channel for receiving aggregated events from all runs.
func (p *RunPool) Events() <-chan Event {
	return p.events
}

// Count returns the number of live runs.
func (p *RunPool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.runs)
}

// Stop cancels all runs and waits for them to wind down.
func (p *RunPool) Stop() {
	p.cancel()
	p.wg.Wait()
	close(p.events)
}
