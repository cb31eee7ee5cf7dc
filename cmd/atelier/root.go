package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Multi-worker artifact orchestrator",
	Long: `Atelier coordinates a team of specialized workers that jointly produce a
multi-part deliverable. A plan file describes the goal and its dependency
graph of tasks; atelier executes the graph under bounded concurrency, enriches
each task with relevant project memory, and folds every result into one
cohesive output.

Core capabilities:
- Executes task graphs wave by wave, honoring dependencies and priorities
- Routes each task to the worker role able to perform it
- Enriches task context from an embedding-indexed memory store
- Feeds memorable output back into memory for later tasks
- Synthesizes all results into one deliverable plus a run summary`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
