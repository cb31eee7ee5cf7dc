package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/shayc/atelier/internal/backend"
	"github.com/shayc/atelier/internal/config"
	"github.com/shayc/atelier/internal/memory"
	"github.com/shayc/atelier/internal/orchestrator"
	"github.com/shayc/atelier/internal/registry"
	"github.com/shayc/atelier/pkg/models"
)

// deps bundles the long-lived collaborators a run needs.
type deps struct {
	client   *backend.Client
	store    *memory.Store
	registry *registry.CapabilityRegistry
}

// buildDeps wires the generation backend, embedding backend, memory store,
// and capability registry from configuration.
func buildDeps(cfg *config.Config) (*deps, error) {
	client, err := backend.NewClient(backend.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := backend.NewEmbeddingClient(backend.EmbeddingConfig{
		APIKey:  cfg.Embeddings.APIKey,
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
	})
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Memory.Path
	if dbPath == "" {
		dbPath = memory.DefaultDBPath(".")
	}
	store, err := memory.Open(dbPath, embedder, cfg.Memory.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	generator := backend.NewGenerator(client)
	reg := registry.New()
	for _, role := range []models.Role{
		models.RoleWriter,
		models.RoleDesigner,
		models.RoleComposer,
		models.RoleResearcher,
		models.RoleEditor,
	} {
		if err := reg.Register(registry.Capability{Role: role, Generator: generator}); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &deps{client: client, store: store, registry: reg}, nil
}

// options derives orchestrator options from configuration.
func (d *deps) options(cfg *config.Config) []orchestrator.Option {
	opts := []orchestrator.Option{
		orchestrator.WithConcurrencyLimit(cfg.Run.ConcurrencyLimit),
		orchestrator.WithStrictUnblocking(cfg.Run.StrictUnblocking),
		orchestrator.WithRetrievalThreshold(cfg.Memory.Threshold),
	}
	if cfg.Run.Narrative {
		opts = append(opts, orchestrator.WithNarrativeGenerator(backend.NewGenerator(d.client)))
	}
	if cfg.Run.LogFile != "" {
		if logger, err := orchestrator.NewDebugLogger(cfg.Run.LogFile); err == nil {
			opts = append(opts, orchestrator.WithLogger(logger))
		}
	}
	return opts
}

// Close releases the memory store.
func (d *deps) Close() {
	d.store.Close()
}
