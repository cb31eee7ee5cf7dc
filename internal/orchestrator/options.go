package orchestrator

import (
	"github.com/shayc/atelier/internal/backend"
	"github.com/shayc/atelier/internal/memory"
	"github.com/shayc/atelier/internal/registry"
)

// DefaultConcurrencyLimit is the maximum number of tasks dispatched per wave
// unless overridden.
const DefaultConcurrencyLimit = 3

// RequiredConfig contains the minimal required configuration for an
// Orchestrator. All fields are required and have no defaults.
type RequiredConfig struct {
	// Memory is the semantic memory store shared by all workers.
	Memory *memory.Store
	// Registry maps roles to capabilities.
	Registry *registry.CapabilityRegistry
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	concurrencyLimit   int
	strictUnblocking   bool
	narrativeGenerator backend.Generator
	logger             *DebugLogger
	eventBuffer        int
	retrievalThreshold float64
}

// WithConcurrencyLimit sets the maximum number of concurrently running tasks.
func WithConcurrencyLimit(n int) Option {
	return func(o *orchestratorOptions) { o.concurrencyLimit = n }
}

// WithStrictUnblocking requires dependencies to complete successfully before
// dependents may run. By default any terminal dependency state unblocks.
func WithStrictUnblocking(strict bool) Option {
	return func(o *orchestratorOptions) { o.strictUnblocking = strict }
}

// WithNarrativeGenerator enables the optional backend merge of all sections
// into one narrative during synthesis.
func WithNarrativeGenerator(g backend.Generator) Option {
	return func(o *orchestratorOptions) { o.narrativeGenerator = g }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithRetrievalThreshold sets the minimum similarity for the memory hits
// workers enrich task context with. Zero uses the store's default.
func WithRetrievalThreshold(threshold float64) Option {
	return func(o *orchestratorOptions) { o.retrievalThreshold = threshold }
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.eventBuffer = n }
}
