package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	s := loadScenario(t, "fetch_and_inject")

	assert.Equal(t, "fetch_and_inject", s.Name)
	assert.Equal(t, "A fetch followed by a context write", s.Description)
	assert.Contains(t, s.Run.Script, `fetch("https://example.com", "Get")`)
	require.NotNil(t, s.Expect)
	assert.Equal(t, "done", s.Expect.Default)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, "https://example.com", s.Assertions[0].Args["url"])
	assert.Equal(t, 1, s.Assertions[2].Count)
}

func TestLoadScenario_ResolvesCardDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "cards"), 0o755))
	path := writeFile(t, dir, "s.yaml", `
name: s
description: d
cards: [cards]
run:
  script: "1"
expect: {}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "cards")}, s.Cards)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.yaml", `
name: s
description: d
run:
  script: "1"
assertion:
  - type: call_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Run:         RunStep{Script: "1"},
			Assertions:  []Assertion{{Type: AssertCallCount, Action: "fetch_action"}},
		}
	}
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no run", func(s *Scenario) { s.Run = RunStep{} }, "run needs a script or an action"},
		{"both", func(s *Scenario) { s.Run.Action = "a1" }, "not both"},
		{"unknown action", func(s *Scenario) { s.Run = RunStep{Action: "a1"} }, `run.action "a1" has no entry`},
		{"negative steps", func(s *Scenario) { s.MaxSteps = -1 }, "max_steps"},
		{"missing cards", func(s *Scenario) { s.Cards = []string{"/nonexistent"} }, "card directory not found"},
		{"no checks", func(s *Scenario) { s.Assertions = nil }, "expect or a non-empty assertions list"},
		{"no type", func(s *Scenario) { s.Assertions[0].Type = "" }, "type is required"},
		{"unknown type", func(s *Scenario) { s.Assertions[0].Type = "trace_contains" }, "unknown assertion type"},
		{"contains without action", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertCallContains}
		}, "action is required for call_contains"},
		{"order without actions", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertCallOrder}
		}, "actions list is required"},
		{"negative count", func(s *Scenario) { s.Assertions[0].Count = -1 }, "count must be non-negative"},
		{"context without expect", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertFinalContext}
		}, "expect is required for final_context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
