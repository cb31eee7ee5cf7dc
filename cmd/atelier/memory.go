package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shayc/atelier/internal/backend"
	"github.com/shayc/atelier/internal/config"
	"github.com/shayc/atelier/internal/memory"
	"github.com/shayc/atelier/pkg/models"
)

var (
	memKind    string
	memTag     string
	memTags    []string
	memLimit   int
	memMinSim  float64
	memAllKind string
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain the project memory store",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Store a piece of content in project memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := models.MemoryKind(memKind)
		if !kind.Valid() {
			return fmt.Errorf("unknown kind %q (want lore, style, pattern, or history)", memKind)
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.Store(cmd.Context(), args[0], kind, memTag, memTags)
		if err != nil {
			return err
		}
		color.Green("stored %s", id)
		return nil
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search project memory by similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		threshold := memMinSim
		if !cmd.Flags().Changed("threshold") && cfg.Memory.Threshold > 0 {
			threshold = cfg.Memory.Threshold
		}

		opts := memory.RetrieveOptions{
			Kind:       models.MemoryKind(memKind),
			ContextTag: memTag,
			Limit:      memLimit,
			Threshold:  threshold,
		}
		hits, err := store.Retrieve(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, rec := range hits {
			color.New(color.Bold).Printf("%.3f %s [%s]\n", rec.RelevanceScore, rec.ID[:8], rec.Kind)
			fmt.Println("  " + truncate(rec.Content, 120))
		}
		return nil
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored memory records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		records := store.All()
		shown := 0
		for _, rec := range records {
			if memAllKind != "" && string(rec.Kind) != memAllKind {
				continue
			}
			shown++
			tag := rec.ContextTag
			if tag == "" {
				tag = "-"
			}
			fmt.Printf("%s  %-8s %-16s hits=%-3d %s\n",
				rec.ID[:8], rec.Kind, truncate(tag, 16), rec.AccessCount,
				truncate(rec.Content, 60))
		}
		color.New(color.Faint).Printf("%d of %d records\n", shown, len(records))
		return nil
	},
}

func init() {
	memoryAddCmd.Flags().StringVar(&memKind, "kind", "lore", "Record kind (lore, style, pattern, history)")
	memoryAddCmd.Flags().StringVar(&memTag, "context", "", "Context tag scoping the record")
	memoryAddCmd.Flags().StringSliceVar(&memTags, "tag", nil, "Free-form labels (repeatable)")

	memorySearchCmd.Flags().StringVar(&memKind, "kind", "", "Restrict to a record kind")
	memorySearchCmd.Flags().StringVar(&memTag, "context", "", "Restrict to a context tag")
	memorySearchCmd.Flags().IntVar(&memLimit, "limit", 10, "Maximum results")
	memorySearchCmd.Flags().Float64Var(&memMinSim, "threshold", memory.DefaultThreshold, "Minimum similarity score")

	memoryListCmd.Flags().StringVar(&memAllKind, "kind", "", "Show only records of this kind")

	memoryCmd.AddCommand(memoryAddCmd, memorySearchCmd, memoryListCmd)
}

// openStore opens the memory store without touching the generation backend.
func openStore() (*memory.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	embedder, err := backend.NewEmbeddingClient(backend.EmbeddingConfig{
		APIKey:  cfg.Embeddings.APIKey,
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
	})
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.Memory.Path
	if dbPath == "" {
		dbPath = memory.DefaultDBPath(".")
	}
	store, err := memory.Open(dbPath, embedder, cfg.Memory.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// truncate flattens newlines and caps the text at n runes.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
