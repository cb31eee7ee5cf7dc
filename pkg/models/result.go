package models

// ResultStatus indicates whether a task execution succeeded.
type ResultStatus string

const (
	// ResultSuccess indicates the worker produced a usable payload.
	ResultSuccess ResultStatus = "success"
	// ResultError indicates the worker's backend call failed.
	ResultError ResultStatus = "error"
)

// Result is the structured outcome of a single task execution.
type Result struct {
	// Status indicates success or error.
	Status ResultStatus `json:"status"`
	// Payload is the structured content produced by the worker, keyed by
	// the capability's response schema.
	Payload map[string]any `json:"payload,omitempty"`
	// Role is the capability role that executed the task.
	Role Role `json:"role"`
	// Error contains the failure message when Status is ResultError.
	Error string `json:"error,omitempty"`
}

// OK returns true if the result carries a successful payload.
func (r *Result) OK() bool {
	return r != nil && r.Status == ResultSuccess
}

// RunSummary aggregates the outcome of a whole orchestration run.
type RunSummary struct {
	// TotalTasks is the number of tasks in the plan.
	TotalTasks int `json:"total_tasks"`
	// SuccessfulTasks is the number of tasks that completed successfully.
	SuccessfulTasks int `json:"successful_tasks"`
	// FailedTasks is the number of tasks that reached a failed state.
	FailedTasks int `json:"failed_tasks"`
	// UnresolvedGaps describes tasks whose contribution is missing from the
	// final output (failed or never dispatched).
	UnresolvedGaps []string `json:"unresolved_gaps,omitempty"`
}

// FinalOutput is the synthesized deliverable of a run.
type FinalOutput struct {
	// Goal is the high-level goal the plan was decomposed from.
	Goal string `json:"goal"`
	// Sections holds each successful task's payload keyed by task ID.
	Sections map[string]map[string]any `json:"sections"`
	// Narrative is an optional backend-written merge of all sections.
	Narrative string `json:"narrative,omitempty"`
	// Summary is the run summary.
	Summary RunSummary `json:"summary"`
}
