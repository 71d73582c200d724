package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/daisy/internal/ir"
)

// Snapshot renders the trace of a scenario as canonical JSON. Golden files
// hold exactly these bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"seq":  event.Seq,
			"op":   event.Op,
			"args": event.Args,
		}
		if event.Action != "" {
			m["action"] = event.Action
		}
		if event.Error != "" {
			m["error"] = event.Error
		}
		trace[i] = m
	}

	snapshot := map[string]any{
		"scenario_name": name,
		"trace":         trace,
	}
	if result.RunError != "" {
		snapshot["run_error"] = result.RunError
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass; a trace mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
