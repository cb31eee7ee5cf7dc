package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shayc/atelier/internal/backend"
	"github.com/shayc/atelier/pkg/models"
)

// Synthesizer folds all task results into one final output plus a run
// summary.
type Synthesizer struct {
	// generator, when set, writes a narrative merge of all sections.
	// It is an optional collaborator: failures degrade to the raw sections.
	generator backend.Generator
	logger    func(format string, args ...interface{})
}

// NewSynthesizer creates a Synthesizer. A nil generator disables the
// narrative merge.
func NewSynthesizer(generator backend.Generator) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    func(format string, args ...interface{}) {},
	}
}

// SetLogger sets the debug logging function.
func (s *Synthesizer) SetLogger(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.logger = fn
	}
}

// Synthesize merges all successful payloads into sections keyed by task ID
// and summarizes the run. Tasks that failed or never ran become unresolved
// gaps.
func (s *Synthesizer) Synthesize(ctx context.Context, goal string, tasks []*models.Task) *models.FinalOutput {
	out := &models.FinalOutput{
		Goal:     goal,
		Sections: make(map[string]map[string]any),
		Summary:  models.RunSummary{TotalTasks: len(tasks)},
	}

	for _, task := range tasks {
		switch {
		case task.Result.OK():
			out.Summary.SuccessfulTasks++
			out.Sections[task.ID] = task.Result.Payload
		case task.Status == models.TaskStatusFailed:
			out.Summary.FailedTasks++
			gap := fmt.Sprintf("%s (%s): %s", task.ID, task.Type, task.Result.Error)
			out.Summary.UnresolvedGaps = append(out.Summary.UnresolvedGaps, gap)
		default:
			// Never dispatched: stuck behind an unsatisfiable dependency.
			gap := fmt.Sprintf("%s (%s): not executed", task.ID, task.Type)
			out.Summary.UnresolvedGaps = append(out.Summary.UnresolvedGaps, gap)
		}
	}

	if s.generator != nil && len(out.Sections) > 0 {
		out.Narrative = s.narrate(ctx, goal, tasks)
	}

	return out
}

// narrate asks the generation backend to merge all sections into one piece.
// Any failure is logged and the narrative is left empty.
func (s *Synthesizer) narrate(ctx context.Context, goal string, tasks []*models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\nMerge these completed sections into one cohesive deliverable description. Respond with a JSON object containing a \"narrative\" field.\n", goal)
	for _, task := range tasks {
		if !task.Result.OK() {
			continue
		}
		section, err := json.Marshal(task.Result.Payload)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (%s)\n%s\n", task.ID, task.Type, section)
	}

	payload, err := s.generator.Complete(ctx, b.String())
	if err != nil {
		s.logger("[synthesize] narrative merge failed: %v", err)
		return ""
	}

	if narrative, ok := payload["narrative"].(string); ok {
		return narrative
	}
	if summary, ok := payload["summary"].(string); ok {
		return summary
	}
	return ""
}
