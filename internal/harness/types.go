package harness

import "encoding/json"

// TraceEvent is one boundary call made during a scenario run.
type TraceEvent struct {
	Seq int64  `json:"seq"`
	Op  string `json:"op"`
	// Action is the card name of a run_action call.
	Action string          `json:"action,omitempty"`
	Args   json.RawMessage `json:"args"`
	Error  string          `json:"error,omitempty"`
}

// Name is what assertions match the event by: the card of a run_action
// call, otherwise the operation.
func (e TraceEvent) Name() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Op
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the expect clause and every assertion hold.
	Pass bool `json:"pass"`

	// Trace holds the boundary calls in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed check.
	Errors []string `json:"errors,omitempty"`

	// Context is the engine context after the run.
	Context map[string]any `json:"context,omitempty"`

	// Exports are the script's exports.
	Exports map[string]any `json:"exports,omitempty"`

	// RunError is the run's error, if any.
	RunError string `json:"run_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Context: make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
