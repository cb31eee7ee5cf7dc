package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shayc/atelier/pkg/models"
)

const samplePlan = `goal: produce an illustrated short story
project_context: harbor-story
tasks:
  - id: research
    type: research_setting
    description: Research coastal harbor towns of the 1920s
    roles: [researcher]
  - id: draft
    type: draft_chapter
    description: Write the opening chapter
    roles: [writer]
    depends_on: [research]
    priority: 5
  - id: cover
    type: cover_art
    description: Sketch the cover
    roles: [designer]
    context:
      medium: watercolor
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write plan: %v", err)
	}
	return path
}

func TestLoadValidPlan(t *testing.T) {
	p, err := Load(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("failed to load plan: %v", err)
	}

	if p.Goal != "produce an illustrated short story" {
		t.Errorf("unexpected goal: %q", p.Goal)
	}
	if len(p.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(p.Tasks))
	}
	if p.Tasks[1].Priority != 5 {
		t.Errorf("expected priority 5 on draft, got %d", p.Tasks[1].Priority)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writePlan(t, "goal: [unclosed")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"no goal", Plan{Tasks: []TaskSpec{{ID: "a", Description: "x"}}}},
		{"no tasks", Plan{Goal: "g"}},
		{"empty id", Plan{Goal: "g", Tasks: []TaskSpec{{Description: "x"}}}},
		{"duplicate id", Plan{Goal: "g", Tasks: []TaskSpec{
			{ID: "a", Description: "x"},
			{ID: "a", Description: "y"},
		}}},
		{"no description", Plan{Goal: "g", Tasks: []TaskSpec{{ID: "a"}}}},
		{"unknown role", Plan{Goal: "g", Tasks: []TaskSpec{
			{ID: "a", Description: "x", Roles: []string{"plumber"}},
		}}},
		{"self dependency", Plan{Goal: "g", Tasks: []TaskSpec{
			{ID: "a", Description: "x", DependsOn: []string{"a"}},
		}}},
		{"unknown dependency", Plan{Goal: "g", Tasks: []TaskSpec{
			{ID: "a", Description: "x", DependsOn: []string{"b"}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.plan.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAllowsCycle(t *testing.T) {
	// Cycles pass structural validation; the scheduler surfaces them at run
	// time so tasks outside the cycle still execute.
	p := Plan{Goal: "g", Tasks: []TaskSpec{
		{ID: "a", Description: "x", DependsOn: []string{"b"}},
		{ID: "b", Description: "y", DependsOn: []string{"a"}},
	}}
	if err := p.Validate(); err != nil {
		t.Errorf("expected cycle to validate, got %v", err)
	}
}

func TestToTasksStampsProjectContext(t *testing.T) {
	p, err := Load(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("failed to load plan: %v", err)
	}

	tasks := p.ToTasks()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}

	for _, task := range tasks {
		if task.ProjectContext() != "harbor-story" {
			t.Errorf("task %s: expected project context stamped, got %q", task.ID, task.ProjectContext())
		}
		if task.Status != models.TaskStatusPending {
			t.Errorf("task %s: expected pending status, got %s", task.ID, task.Status)
		}
		if task.CreatedAt.IsZero() {
			t.Errorf("task %s: expected created time", task.ID)
		}
	}

	cover := tasks[2]
	if cover.Context["medium"] != "watercolor" {
		t.Errorf("expected task-level context preserved, got %v", cover.Context)
	}
	if len(tasks[1].RequiredCapabilities) != 1 || tasks[1].RequiredCapabilities[0] != models.RoleWriter {
		t.Errorf("expected writer role, got %v", tasks[1].RequiredCapabilities)
	}
}

func TestToTasksDoesNotOverrideExplicitProjectContext(t *testing.T) {
	p := &Plan{
		Goal:           "g",
		ProjectContext: "plan-level",
		Tasks: []TaskSpec{{
			ID:          "a",
			Description: "x",
			Context:     map[string]any{"projectContext": "task-level"},
		}},
	}

	tasks := p.ToTasks()
	if tasks[0].ProjectContext() != "task-level" {
		t.Errorf("expected task-level context to win, got %q", tasks[0].ProjectContext())
	}
}
