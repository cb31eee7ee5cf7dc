// Package plan loads and validates the YAML plan documents handed over by
// the external decomposition step.
package plan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shayc/atelier/pkg/models"
)

// Plan is one orchestration run: a goal and its task graph.
type Plan struct {
	// Goal is the high-level goal the tasks decompose.
	Goal string `yaml:"goal"`
	// ProjectContext tags memory written and read during this run.
	ProjectContext string `yaml:"project_context,omitempty"`
	// Tasks is the dependency graph of work.
	Tasks []TaskSpec `yaml:"tasks"`
}

// TaskSpec is one task as written in a plan file.
type TaskSpec struct {
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description"`
	Roles       []string       `yaml:"roles,omitempty"`
	DependsOn   []string       `yaml:"depends_on,omitempty"`
	Priority    int            `yaml:"priority,omitempty"`
	Context     map[string]any `yaml:"context,omitempty"`
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks structural soundness: non-empty goal and tasks, unique
// non-empty ids, no self-dependencies, no references to unknown tasks.
func (p *Plan) Validate() error {
	if p.Goal == "" {
		return fmt.Errorf("plan has no goal")
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("plan has no tasks")
	}

	ids := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.ID == "" {
			return fmt.Errorf("task with empty id")
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		ids[t.ID] = true

		if t.Description == "" {
			return fmt.Errorf("task %s has no description", t.ID)
		}
		for _, role := range t.Roles {
			if !models.Role(role).Valid() {
				return fmt.Errorf("task %s: unknown role %q", t.ID, role)
			}
		}
	}

	for _, t := range p.Tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return fmt.Errorf("task %s depends on itself", t.ID)
			}
			if !ids[dep] {
				return fmt.Errorf("task %s depends on unknown task %s", t.ID, dep)
			}
		}
	}

	return nil
}

// ToTasks converts the plan's task specs into model tasks, stamping the
// plan-level project context into each task's context map.
func (p *Plan) ToTasks() []*models.Task {
	now := time.Now()
	tasks := make([]*models.Task, 0, len(p.Tasks))
	for _, spec := range p.Tasks {
		roles := make([]models.Role, 0, len(spec.Roles))
		for _, r := range spec.Roles {
			roles = append(roles, models.Role(r))
		}

		ctx := make(map[string]any, len(spec.Context)+1)
		for k, v := range spec.Context {
			ctx[k] = v
		}
		if p.ProjectContext != "" {
			if _, ok := ctx["projectContext"]; !ok {
				ctx["projectContext"] = p.ProjectContext
			}
		}

		tasks = append(tasks, &models.Task{
			ID:                   spec.ID,
			Type:                 spec.Type,
			Description:          spec.Description,
			RequiredCapabilities: roles,
			DependsOn:            spec.DependsOn,
			Priority:             spec.Priority,
			Context:              ctx,
			Status:               models.TaskStatusPending,
			CreatedAt:            now,
		})
	}
	return tasks
}
