package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a script run and the checks made on it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Cards lists extra card directories loaded after the built-in cards.
	Cards []string `yaml:"cards,omitempty"`

	// Scripts are stored in the script database before the run, keyed by
	// action id.
	Scripts map[string]string `yaml:"scripts,omitempty"`

	// Run selects what to execute.
	Run RunStep `yaml:"run"`

	// MaxSteps is the run's action quota. Zero uses the engine default.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Expect checks the outcome of the run. Nil requires success.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the trace and the final context.
	Assertions []Assertion `yaml:"assertions"`
}

// RunStep selects the script of a scenario. Exactly one field is set.
type RunStep struct {
	// Script is inline code.
	Script string `yaml:"script,omitempty"`

	// Action boots the stored script of this action id.
	Action string `yaml:"action,omitempty"`
}

// ExpectClause specifies the expected outcome of the run.
type ExpectClause struct {
	// Error is a substring of the expected run error. Empty requires
	// success.
	Error string `yaml:"error,omitempty"`

	// Default is the expected default export. Nil skips the check.
	Default any `yaml:"default,omitempty"`
}

// Assertion validates the trace or the final context.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_contains": a call to Action with matching args
	// - "call_order": calls to Actions appear in order
	// - "call_count": Action is called exactly Count times
	// - "final_context": the context holds Expect
	Type string `yaml:"type"`

	// Action is a card name or an operation name.
	Action string `yaml:"action,omitempty"`

	// Args are matched against the call's arguments (subset match).
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of calls (call_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected call order (call_order).
	Actions []string `yaml:"actions,omitempty"`

	// Expect holds expected context values (final_context).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCallContains = "call_contains"
	AssertCallOrder    = "call_order"
	AssertCallCount    = "call_count"
	AssertFinalContext = "final_context"
)

// LoadScenario reads and parses a scenario YAML file. Card directories are
// resolved relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, dir := range scenario.Cards {
		if !filepath.IsAbs(dir) {
			scenario.Cards[i] = filepath.Join(base, dir)
		}
	}

	if err := Validate(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Validate checks that required fields are present and valid.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Run.Script == "" && s.Run.Action == "":
		return fmt.Errorf("run needs a script or an action")
	case s.Run.Script != "" && s.Run.Action != "":
		return fmt.Errorf("run takes a script or an action, not both")
	}
	if s.Run.Action != "" {
		if _, ok := s.Scripts[s.Run.Action]; !ok {
			return fmt.Errorf("run.action %q has no entry in scripts", s.Run.Action)
		}
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	for _, dir := range s.Cards {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("card directory not found: %s", dir)
		}
	}

	if len(s.Assertions) == 0 && s.Expect == nil {
		return fmt.Errorf("expect or a non-empty assertions list is required")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for call_contains", index)
		}
	case AssertCallOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertFinalContext:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_context", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
