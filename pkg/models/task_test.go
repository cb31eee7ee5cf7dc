package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusPending, TaskStatusReady, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if TaskStatus("paused").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskStatusCompleted.Terminal() || !TaskStatusFailed.Terminal() {
		t.Error("expected completed and failed to be terminal")
	}
	if TaskStatusPending.Terminal() || TaskStatusRunning.Terminal() {
		t.Error("expected pending and running to be non-terminal")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskStatusPending, TaskStatusReady, true},
		{TaskStatusPending, TaskStatusFailed, true},
		{TaskStatusReady, TaskStatusRunning, true},
		{TaskStatusRunning, TaskStatusCompleted, true},
		{TaskStatusRunning, TaskStatusFailed, true},
		{TaskStatusRunning, TaskStatusReady, false},
		{TaskStatusReady, TaskStatusPending, false},
		{TaskStatusCompleted, TaskStatusFailed, false},
		{TaskStatusFailed, TaskStatusRunning, false},
		{TaskStatusCompleted, TaskStatusCompleted, false},
		{TaskStatusPending, TaskStatus("paused"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %t, want %t", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestResultOK(t *testing.T) {
	var nilResult *Result
	if nilResult.OK() {
		t.Error("expected nil result not OK")
	}
	if !(&Result{Status: ResultSuccess}).OK() {
		t.Error("expected success result OK")
	}
	if (&Result{Status: ResultError}).OK() {
		t.Error("expected error result not OK")
	}
}

func TestProjectContext(t *testing.T) {
	task := &Task{}
	if task.ProjectContext() != "" {
		t.Error("expected empty context for nil map")
	}

	task.Context = map[string]any{"projectContext": "novel"}
	if task.ProjectContext() != "novel" {
		t.Errorf("expected novel, got %q", task.ProjectContext())
	}

	task.Context = map[string]any{"projectContext": 7}
	if task.ProjectContext() != "" {
		t.Error("expected non-string context ignored")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleWriter, RoleDesigner, RoleComposer, RoleResearcher, RoleEditor} {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if Role("plumber").Valid() {
		t.Error("expected unknown role to be invalid")
	}
}
