package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shayc/atelier/internal/backend"
	"github.com/shayc/atelier/internal/config"
	"github.com/shayc/atelier/internal/orchestrator"
	"github.com/shayc/atelier/internal/plan"
	"github.com/shayc/atelier/internal/tui"
	"github.com/shayc/atelier/pkg/models"
)

var (
	runConcurrency int
	runStrict      bool
	runNoTUI       bool
	runNoNarrative bool
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Execute a plan file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Run.ConcurrencyLimit = runConcurrency
		}
		if cmd.Flags().Changed("strict") {
			cfg.Run.StrictUnblocking = runStrict
		}
		if runNoNarrative {
			cfg.Run.Narrative = false
		}

		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}

		deps, err := buildDeps(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		orch := orchestrator.New(
			orchestrator.RequiredConfig{Memory: deps.store, Registry: deps.registry},
			deps.options(cfg)...,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var runErr error
		if runNoTUI {
			runErr = runPlain(ctx, orch, p)
		} else {
			runErr = runWithTUI(ctx, orch, p)
		}

		if usage := formatTokenUsage(deps.client.Tracker()); usage != "" {
			color.New(color.Faint).Println(usage)
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", orchestrator.DefaultConcurrencyLimit, "Maximum concurrently running tasks")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "Require dependencies to succeed before dependents run")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "Print plain progress instead of the live view")
	runCmd.Flags().BoolVar(&runNoNarrative, "no-narrative", false, "Skip the backend merge of results")
}

// runPlain executes the plan while streaming events as plain lines.
func runPlain(ctx context.Context, orch *orchestrator.Orchestrator, p *plan.Plan) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range orch.Events() {
			printEvent(ev)
		}
	}()

	output, err := orch.Run(ctx, p.Goal, p.ToTasks())
	<-done

	if output != nil {
		printSummary(output)
	}
	return err
}

// runWithTUI executes the plan behind the live run view.
func runWithTUI(ctx context.Context, orch *orchestrator.Orchestrator, p *plan.Plan) error {
	view := tui.NewRunView(p.Goal)
	program := tea.NewProgram(view, tea.WithContext(ctx))

	go func() {
		for ev := range orch.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
	}()

	var output *models.FinalOutput
	var runErr error
	go func() {
		output, runErr = orch.Run(ctx, p.Goal, p.ToTasks())
		var summary models.RunSummary
		if output != nil {
			summary = output.Summary
		}
		program.Send(tui.RunDoneMsg{Summary: summary, Err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		return err
	}

	if output != nil {
		printSummary(output)
	}
	return runErr
}

// printEvent renders one orchestrator event as a colored line.
func printEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventTaskStarted:
		color.Cyan("▶ %s (%s)", ev.TaskID, ev.Role)
	case orchestrator.EventTaskCompleted:
		color.Green("✓ %s", ev.TaskID)
	case orchestrator.EventTaskFailed:
		color.Red("✗ %s: %s", ev.TaskID, ev.Message)
	case orchestrator.EventRunAborted:
		color.Red("run aborted: %v", ev.Error)
	}
}

// formatTokenUsage renders the accumulated backend usage for a run.
// It returns "" when no backend calls were made.
func formatTokenUsage(tracker *backend.TokenTracker) string {
	calls := tracker.Calls()
	if calls == 0 {
		return ""
	}
	input, output := tracker.Total()
	return fmt.Sprintf("%d backend calls, %d input / %d output tokens", calls, input, output)
}

// printSummary renders the final run summary.
func printSummary(output *models.FinalOutput) {
	fmt.Println()
	color.New(color.Bold).Printf("%d/%d tasks succeeded\n",
		output.Summary.SuccessfulTasks, output.Summary.TotalTasks)

	for _, gap := range output.Summary.UnresolvedGaps {
		color.Yellow("  gap: %s", gap)
	}
	if output.Narrative != "" {
		fmt.Println()
		fmt.Println(output.Narrative)
	}
}
