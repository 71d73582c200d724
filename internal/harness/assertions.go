package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/daisy/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Name(), event.Args)
		}
	}
	return buf.String()
}

// callArgs returns the arguments of an event as a plain value: the
// unwrapped envelope of a run_action call, the decoded object otherwise.
func callArgs(event TraceEvent) any {
	if event.Op == "run_action" {
		var a struct {
			Args ir.Data `json:"args"`
		}
		if err := json.Unmarshal(event.Args, &a); err != nil {
			return nil
		}
		v, _ := ir.FromEnvelope(a.Args.Envelope)
		return v
	}
	var v any
	if err := json.Unmarshal(event.Args, &v); err != nil {
		return nil
	}
	return v
}

// assertCallContains checks that some call to the action has matching args.
func assertCallContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Name() == assertion.Action && matchArgs(callArgs(event), assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertCallContains,
		Expected: fmt.Sprintf("call to %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertCallOrder checks that actions first appear in the given order.
// Calls need not be consecutive.
func assertCallOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		name := event.Name()
		if positions[name] == 0 {
			positions[name] = i + 1 // 1-indexed for readability
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all calls present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing call: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("calls in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertCallCount checks that the action is called exactly Count times.
func assertCallCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Name() == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d calls to %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalContext checks the engine context with subset semantics.
func assertFinalContext(context map[string]any, assertion Assertion) error {
	for _, key := range ir.SortedKeys(assertion.Expect) {
		want := assertion.Expect[key]
		got, ok := context[key]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalContext,
				Expected: fmt.Sprintf("context key %q to exist", key),
				Actual:   fmt.Sprintf("keys present: %v", ir.SortedKeys(context)),
			}
		}
		if !valuesEqual(got, want) {
			return &AssertionError{
				Type:     AssertFinalContext,
				Expected: fmt.Sprintf("context %q = %v", key, want),
				Actual:   fmt.Sprintf("context %q = %v", key, got),
			}
		}
	}
	return nil
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range expected {
		got, exists := actualMap[key]
		if !exists || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares values by their canonical JSON, so a YAML int
// equals a decoded float or int64 of the same number.
func valuesEqual(actual, expected any) bool {
	a, err := ir.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	b, err := ir.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallContains:
			err = assertCallContains(result.Trace, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, assertion)
		case AssertCallCount:
			err = assertCallCount(result.Trace, assertion)
		case AssertFinalContext:
			err = assertFinalContext(result.Context, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
