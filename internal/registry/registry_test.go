package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/shayc/atelier/pkg/models"
)

type stubGenerator struct{ name string }

func (g stubGenerator) Complete(ctx context.Context, prompt string) (map[string]any, error) {
	return map[string]any{"summary": g.name}, nil
}

func TestRegisterValidation(t *testing.T) {
	r := New()

	if err := r.Register(Capability{Role: "plumber", Generator: stubGenerator{}}); err == nil {
		t.Error("expected error for unknown role")
	}
	if err := r.Register(Capability{Role: models.RoleWriter}); err == nil {
		t.Error("expected error for nil generator")
	}
	if err := r.Register(Capability{Role: models.RoleWriter, Generator: stubGenerator{}}); err != nil {
		t.Errorf("expected valid registration to succeed: %v", err)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := New()
	if err := r.Register(Capability{Role: models.RoleWriter, Generator: stubGenerator{name: "old"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Capability{Role: models.RoleWriter, Generator: stubGenerator{name: "new"}, TaskTypes: []string{"draft"}}); err != nil {
		t.Fatal(err)
	}

	cap, ok := r.Lookup(models.RoleWriter)
	if !ok {
		t.Fatal("expected writer capability")
	}
	if len(cap.TaskTypes) != 1 || cap.TaskTypes[0] != "draft" {
		t.Errorf("expected replacement capability, got %v", cap.TaskTypes)
	}
}

func TestCanPerform(t *testing.T) {
	open := Capability{Role: models.RoleWriter, Generator: stubGenerator{}}
	if !open.CanPerform("anything") {
		t.Error("empty task types should match any type")
	}

	scoped := Capability{Role: models.RoleWriter, Generator: stubGenerator{}, TaskTypes: []string{"draft", "outline"}}
	if !scoped.CanPerform("draft") {
		t.Error("expected draft to be covered")
	}
	if scoped.CanPerform("compose") {
		t.Error("expected compose to be uncovered")
	}
}

func TestResolveRequiredRoles(t *testing.T) {
	r := New()
	if err := r.Register(Capability{Role: models.RoleComposer, Generator: stubGenerator{name: "composer"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Capability{Role: models.RoleEditor, Generator: stubGenerator{name: "editor"}}); err != nil {
		t.Fatal(err)
	}

	task := &models.Task{
		ID:                   "t1",
		Type:                 "compose_theme",
		RequiredCapabilities: []models.Role{models.RoleComposer, models.RoleEditor},
	}
	cap, err := r.Resolve(task)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cap.Role != models.RoleComposer {
		t.Errorf("expected first required role to win, got %s", cap.Role)
	}
}

func TestResolveSkipsRoleNotCoveringType(t *testing.T) {
	r := New()
	if err := r.Register(Capability{Role: models.RoleComposer, Generator: stubGenerator{}, TaskTypes: []string{"compose_theme"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Capability{Role: models.RoleEditor, Generator: stubGenerator{}}); err != nil {
		t.Fatal(err)
	}

	task := &models.Task{
		ID:                   "t1",
		Type:                 "review",
		RequiredCapabilities: []models.Role{models.RoleComposer, models.RoleEditor},
	}
	cap, err := r.Resolve(task)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cap.Role != models.RoleEditor {
		t.Errorf("expected fallback to editor, got %s", cap.Role)
	}
}

func TestResolveNoCapableWorker(t *testing.T) {
	r := New()
	if err := r.Register(Capability{Role: models.RoleWriter, Generator: stubGenerator{}}); err != nil {
		t.Fatal(err)
	}

	task := &models.Task{
		ID:                   "t1",
		Type:                 "compose_theme",
		RequiredCapabilities: []models.Role{models.RoleComposer},
	}
	_, err := r.Resolve(task)
	var noCap *NoCapableWorkerError
	if !errors.As(err, &noCap) {
		t.Fatalf("expected NoCapableWorkerError, got %v", err)
	}
	if noCap.TaskID != "t1" || noCap.TaskType != "compose_theme" {
		t.Errorf("unexpected error detail: %v", noCap)
	}
}

func TestResolveNoRequiredRolesUsesPreferenceOrder(t *testing.T) {
	r := New()
	if err := r.Register(Capability{Role: models.RoleEditor, Generator: stubGenerator{name: "editor"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Capability{Role: models.RoleDesigner, Generator: stubGenerator{name: "designer"}}); err != nil {
		t.Fatal(err)
	}

	task := &models.Task{ID: "t1", Type: "anything"}
	cap, err := r.Resolve(task)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cap.Role != models.RoleDesigner {
		t.Errorf("expected designer by preference order, got %s", cap.Role)
	}
}

func TestResolveEmptyRegistry(t *testing.T) {
	r := New()
	if _, err := r.Resolve(&models.Task{ID: "t1", Type: "anything"}); err == nil {
		t.Error("expected error when nothing is registered")
	}
}

func TestRolesOrder(t *testing.T) {
	r := New()
	for _, role := range []models.Role{models.RoleEditor, models.RoleWriter, models.RoleComposer} {
		if err := r.Register(Capability{Role: role, Generator: stubGenerator{}}); err != nil {
			t.Fatal(err)
		}
	}

	roles := r.Roles()
	want := []models.Role{models.RoleWriter, models.RoleComposer, models.RoleEditor}
	if len(roles) != len(want) {
		t.Fatalf("expected %d roles, got %d", len(want), len(roles))
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, roles[i])
		}
	}
}
