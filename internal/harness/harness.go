package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/cards"
	"github.com/roach88/daisy/internal/engine"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/store"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *zap.Logger
}

// WithLogger sets the logger of the engine and card loader.
func WithLogger(l *zap.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// seqGenerator mints script specifiers 1, 2, 3, ... for reproducible runs.
type seqGenerator struct{ n atomic.Int64 }

func (g *seqGenerator) Generate() string {
	return strconv.FormatInt(g.n.Add(1), 10)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory script database with its own
// clock, so seqs start at 1. An error is returned only when the scenario
// cannot be set up; a failing run is reported through the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg, err := cards.Load(cards.Options{Logger: cfg.logger, Dirs: scenario.Cards, Strict: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for _, id := range ir.SortedKeys(scenario.Scripts) {
		if _, err := st.PutScript(ctx, id, scenario.Scripts[id], nil); err != nil {
			return nil, fmt.Errorf("failed to store script %s: %w", id, err)
		}
	}

	engineOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithGenerator(&seqGenerator{}),
		engine.WithClock(engine.NewClock()),
	}
	if scenario.MaxSteps > 0 {
		engineOpts = append(engineOpts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	eng := engine.New(reg, st, engineOpts...)

	var res *engine.Result
	var runErr error
	if scenario.Run.Action != "" {
		res, runErr = eng.Boot(ctx, scenario.Run.Action)
	} else {
		res, runErr = eng.Run(ctx, scenario.Run.Script)
	}

	result := NewResult()
	result.Context = eng.Context()
	if res != nil {
		result.Exports = res.Exports
		for _, c := range res.Calls {
			result.Trace = append(result.Trace, traceEvent(c))
		}
	}
	if runErr != nil {
		result.RunError = runErr.Error()
	}

	checkExpect(result, scenario.Expect, runErr)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		zap.String("scenario", scenario.Name),
		zap.Bool("pass", result.Pass),
		zap.Int("calls", len(result.Trace)),
	)
	return result, nil
}

func traceEvent(c engine.Call) TraceEvent {
	ev := TraceEvent{Seq: c.Seq, Op: c.Op, Args: c.Args, Error: c.Error}
	if c.Op == "run_action" {
		var a struct {
			ActionType string `json:"actionType"`
		}
		if err := json.Unmarshal(c.Args, &a); err == nil {
			ev.Action = a.ActionType
		}
	}
	return ev
}

// checkExpect validates the run outcome against the expect clause.
func checkExpect(result *Result, expect *ExpectClause, runErr error) {
	wantErr := ""
	if expect != nil {
		wantErr = expect.Error
	}
	switch {
	case wantErr == "" && runErr != nil:
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
	case wantErr != "" && runErr == nil:
		result.AddError(fmt.Sprintf("run succeeded, expected error containing %q", wantErr))
	case wantErr != "" && !strings.Contains(runErr.Error(), wantErr):
		result.AddError(fmt.Sprintf("run error %q does not contain %q", runErr.Error(), wantErr))
	}

	if expect == nil || expect.Default == nil {
		return
	}
	got, ok := result.Exports["default"]
	if !ok {
		result.AddError(fmt.Sprintf("default export missing, expected %v", expect.Default))
		return
	}
	if !valuesEqual(got, expect.Default) {
		result.AddError(fmt.Sprintf("default export = %v, expected %v", got, expect.Default))
	}
}
