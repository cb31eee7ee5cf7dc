package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/shayc/atelier/internal/config"
	"github.com/shayc/atelier/internal/orchestrator"
	"github.com/shayc/atelier/internal/plan"
	"github.com/shayc/atelier/pkg/models"
)

var watchDir string

// debounceWindow absorbs the write bursts editors produce when saving a file.
const debounceWindow = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and run each plan file dropped into it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dir := watchDir
		if dir == "" {
			dir = cfg.Watch.Dir
		}
		if dir == "" {
			dir = "plans"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		deps, err := buildDeps(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		pool := orchestrator.NewRunPool(orchestrator.PoolConfig{
			Memory:   deps.store,
			Registry: deps.registry,
			Options:  deps.options(cfg),
			OnDone: func(runID string, output *models.FinalOutput, err error) {
				if err != nil {
					color.Red("[%s] run failed: %v", runID, err)
				}
				if output != nil {
					color.New(color.Bold).Printf("[%s] %d/%d tasks succeeded\n",
						runID, output.Summary.SuccessfulTasks, output.Summary.TotalTasks)
				}
			},
		})
		defer pool.Stop()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			for ev := range pool.Events() {
				printEvent(ev)
			}
		}()

		color.Cyan("watching %s for plan files", dir)

		var mu sync.Mutex
		pending := make(map[string]*time.Timer)

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !isPlanFile(event.Name) {
					continue
				}
				path := event.Name

				// One timer per path absorbs duplicate create/write events.
				mu.Lock()
				if t, ok := pending[path]; ok {
					t.Reset(debounceWindow)
					mu.Unlock()
					continue
				}
				pending[path] = time.AfterFunc(debounceWindow, func() {
					mu.Lock()
					delete(pending, path)
					mu.Unlock()
					submitPlan(pool, path)
				})
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				color.Yellow("watch error: %v", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to watch for plan files")
}

func isPlanFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func submitPlan(pool *orchestrator.RunPool, path string) {
	p, err := plan.Load(path)
	if err != nil {
		color.Red("skipping %s: %v", filepath.Base(path), err)
		return
	}
	runID := pool.Submit(p.Goal, p.ToTasks())
	color.Cyan("[%s] started %s (%d tasks)", runID, filepath.Base(path), len(p.Tasks))
}
