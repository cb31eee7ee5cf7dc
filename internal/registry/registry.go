// Package registry maps worker roles to the task types they can perform and
// to their generation backend handles.
package registry

import (
	"fmt"
	"sync"

	"github.com/shayc/atelier/internal/backend"
	"github.com/shayc/atelier/pkg/models"
)

// NoCapableWorkerError indicates no registered capability can execute a task.
type NoCapableWorkerError struct {
	TaskID   string
	TaskType string
	Roles    []models.Role
}

func (e *NoCapableWorkerError) Error() string {
	return fmt.Sprintf("task %s: no capable worker for type %q (wanted roles %v)", e.TaskID, e.TaskType, e.Roles)
}

// Capability describes what one role can do and which backend serves it.
type Capability struct {
	// Role is the worker role this capability belongs to.
	Role models.Role
	// TaskTypes are the task types this role can execute. Empty means any.
	TaskTypes []string
	// Generator is the generation backend handle for this role.
	Generator backend.Generator
}

// CanPerform returns true if the capability covers the given task type.
func (c Capability) CanPerform(taskType string) bool {
	if len(c.TaskTypes) == 0 {
		return true
	}
	for _, t := range c.TaskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}

// CapabilityRegistry holds all registered capabilities, keyed by role.
type CapabilityRegistry struct {
	mu   sync.RWMutex
	caps map[models.Role]Capability
}

// New creates an empty registry.
func New() *CapabilityRegistry {
	return &CapabilityRegistry{caps: make(map[models.Role]Capability)}
}

// Register adds or replaces the capability for a role.
func (r *CapabilityRegistry) Register(cap Capability) error {
	if !cap.Role.Valid() {
		return fmt.Errorf("unknown role %q", cap.Role)
	}
	if cap.Generator == nil {
		return fmt.Errorf("role %s: nil generator", cap.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[cap.Role] = cap
	return nil
}

// Lookup returns the capability registered for a role.
func (r *CapabilityRegistry) Lookup(role models.Role) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.caps[role]
	return cap, ok
}

// Resolve picks the capability for a task: the first of the task's required
// roles that is registered and covers the task's type. Tasks that declare no
// required capabilities match any registered capability covering their type.
func (r *CapabilityRegistry) Resolve(task *models.Task) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(task.RequiredCapabilities) > 0 {
		for _, role := range task.RequiredCapabilities {
			if cap, ok := r.caps[role]; ok && cap.CanPerform(task.Type) {
				return cap, nil
			}
		}
		return Capability{}, &NoCapableWorkerError{TaskID: task.ID, TaskType: task.Type, Roles: task.RequiredCapabilities}
	}

	for _, role := range rolePreference {
		if cap, ok := r.caps[role]; ok && cap.CanPerform(task.Type) {
			return cap, nil
		}
	}
	return Capability{}, &NoCapableWorkerError{TaskID: task.ID, TaskType: task.Type}
}

// Roles returns all registered roles.
func (r *CapabilityRegistry) Roles() []models.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]models.Role, 0, len(r.caps))
	for _, role := range rolePreference {
		if _, ok := r.caps[role]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// rolePreference fixes iteration order so resolution is deterministic.
var rolePreference = []models.Role{
	models.RoleWriter,
	models.RoleDesigner,
	models.RoleComposer,
	models.RoleResearcher,
	models.RoleEditor,
}
