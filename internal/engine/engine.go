package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/hostcall"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/sandbox"
)

// DefaultMaxSteps bounds the actions one run may dispatch.
const DefaultMaxSteps = 1000

// Call is one recorded boundary call.
type Call struct {
	Seq   int64           `json:"seq"`
	Op    string          `json:"op"`
	Args  json.RawMessage `json:"args"`
	Error string          `json:"error,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	Specifier string         `json:"specifier,omitempty"`
	Exports   map[string]any `json:"exports,omitempty"`
	Steps     int            `json:"steps"`
	Calls     []Call         `json:"calls"`
}

// ActionHandler performs a runAction for one card.
type ActionHandler func(ctx context.Context, e *Engine, args ir.Envelope) error

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxSteps sets the per-run action quota. 0 or less disables it.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithGenerator sets the script specifier generator used by every realm.
func WithGenerator(g sandbox.Generator) Option {
	return func(e *Engine) { e.gen = g }
}

// WithClock sets the clock that stamps recorded calls.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithHandler installs the runAction handler for a card, replacing any
// built-in one.
func WithHandler(cardName string, h ActionHandler) Option {
	return func(e *Engine) { e.handlers[cardName] = h }
}

// Engine is an in-process host for card scripts.
type Engine struct {
	reg      *card.Registry
	scripts  sandbox.ScriptSource
	client   *hostcall.Client
	modules  sandbox.ModuleMap
	handlers map[string]ActionHandler
	clock    *Clock
	gen      sandbox.Generator
	maxSteps int
	logger   *zap.Logger

	// runMu serializes runs; nested program actions run inside their
	// outer run and never take it.
	runMu sync.Mutex
	runs  atomic.Int64

	mu     sync.Mutex
	calls  []Call
	values map[string]any
	quota  *QuotaEnforcer
	label  string
	failed error
}

// New creates an engine serving the cards of reg. scripts backs
// get_script_by_id and may be nil.
func New(reg *card.Registry, scripts sandbox.ScriptSource, opts ...Option) *Engine {
	e := &Engine{
		reg:      reg,
		scripts:  scripts,
		clock:    NewClock(),
		gen:      sandbox.UUIDv7Generator{},
		maxSteps: DefaultMaxSteps,
		logger:   zap.L(),
		values:   make(map[string]any),
		handlers: map[string]ActionHandler{
			"program_action":        runProgram,
			"inject_context_action": injectContext,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = hostcall.NewClient(e, e.logger.Named("host"))
	e.modules = sandbox.BuildModuleMap(reg.Cards(), e.client, e.logger)
	return e
}

// Client returns the client scripts dispatch through.
func (e *Engine) Client() *hostcall.Client {
	return e.client
}

// Modules returns the module map every realm starts from.
func (e *Engine) Modules() sandbox.ModuleMap {
	return e.modules.Clone()
}

// Run evaluates code as a fresh script in a new realm. The result carries
// the trace of the run even when the run fails.
func (e *Engine) Run(ctx context.Context, code string) (*Result, error) {
	return e.run(ctx, func(r *sandbox.Realm) (*sandbox.Module, error) {
		return r.Run(ctx, code)
	})
}

// Boot runs the persisted script of an action, fetched through the
// boundary. An action without a script yields an empty result.
func (e *Engine) Boot(ctx context.Context, actionID string) (*Result, error) {
	return e.run(ctx, func(r *sandbox.Realm) (*sandbox.Module, error) {
		return r.Boot(ctx, actionID, e.client)
	})
}

func (e *Engine) run(ctx context.Context, body func(*sandbox.Realm) (*sandbox.Module, error)) (*Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	label := fmt.Sprintf("run-%d", e.runs.Add(1))
	q := NewQuotaEnforcer(e.maxSteps)
	e.mu.Lock()
	start := len(e.calls)
	e.quota, e.label, e.failed = q, label, nil
	e.mu.Unlock()

	mod, err := body(e.newRealm())

	e.mu.Lock()
	res := &Result{
		Steps: q.Current(),
		Calls: append([]Call{}, e.calls[start:]...),
	}
	if err == nil {
		err = e.failed
	}
	e.quota, e.label, e.failed = nil, "", nil
	e.mu.Unlock()

	if mod != nil {
		res.Specifier = mod.Specifier
		res.Exports = mod.Exports
	}
	if err != nil {
		e.logger.Warn("run failed", zap.String("run", label), zap.Error(err))
		return res, err
	}
	e.logger.Debug("run finished", zap.String("run", label), zap.Int("steps", res.Steps))
	return res, nil
}

func (e *Engine) newRealm() *sandbox.Realm {
	return sandbox.NewRealm(e.modules,
		sandbox.WithGenerator(e.gen),
		sandbox.WithLogger(e.logger.Named("script")),
	)
}

// Calls returns every recorded boundary call in seq order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Context returns a copy of the values set by inject_context_action.
func (e *Engine) Context() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Invoke implements hostcall.Host. Arguments are encoded to JSON and
// decoded again per operation, as they would be at a process boundary.
func (e *Engine) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, invalidArgs(op, err)
	}
	canonical, err := ir.MarshalCanonical(json.RawMessage(raw))
	if err != nil {
		return nil, invalidArgs(op, err)
	}

	e.mu.Lock()
	idx := len(e.calls)
	e.calls = append(e.calls, Call{Seq: e.clock.Next(), Op: op, Args: canonical})
	e.mu.Unlock()

	out, err := e.handle(ctx, op, raw)
	if err != nil {
		e.mu.Lock()
		e.calls[idx].Error = err.Error()
		e.mu.Unlock()
	}
	return out, err
}

func (e *Engine) handle(ctx context.Context, op string, raw []byte) (json.RawMessage, error) {
	switch op {
	case "get_script_by_id":
		var a struct {
			ActionID string `json:"actionId"`
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, invalidArgs(op, err)
		}
		if e.scripts == nil {
			return json.RawMessage("null"), nil
		}
		src, err := e.scripts.GetScriptByID(ctx, a.ActionID)
		if err != nil {
			return nil, err
		}
		if src == "" {
			return json.RawMessage("null"), nil
		}
		return json.Marshal(src)

	case "run_action":
		var a struct {
			ActionType string  `json:"actionType"`
			Args       ir.Data `json:"args"`
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, invalidArgs(op, err)
		}
		if err := e.runAction(ctx, op, a.ActionType, a.Args.Envelope); err != nil {
			return nil, err
		}
		return json.RawMessage("null"), nil

	case "is_cron_expression_vaild":
		var a struct {
			Expression string `json:"expression"`
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, invalidArgs(op, err)
		}
		_, err := cron.ParseStandard(a.Expression)
		return json.Marshal(err == nil)

	case "get_service_state":
		return json.Marshal(hostcall.ServiceRunning)
	}
	return nil, unsupported(op)
}

func (e *Engine) runAction(ctx context.Context, op, name string, args ir.Envelope) error {
	if _, ok := e.reg.Lookup(name); !ok {
		return missingAction(op, name)
	}

	e.mu.Lock()
	q, label := e.quota, e.label
	e.mu.Unlock()
	if q != nil {
		if err := q.Check(label); err != nil {
			e.mu.Lock()
			if e.failed == nil {
				e.failed = err
			}
			e.mu.Unlock()
			return err
		}
	}

	if args == nil {
		args = ir.Null{}
	}
	e.logger.Info("action run", zap.String("action", name), zap.String("kind", string(args.Kind())))
	h, ok := e.handlers[name]
	if !ok {
		return nil
	}
	if err := h(ctx, e, args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// argObject unwraps a Json envelope into its object.
func argObject(args ir.Envelope) (map[string]any, bool) {
	v, _ := ir.FromEnvelope(args)
	m, ok := v.(map[string]any)
	return m, ok
}

// runProgram evaluates {code, lang} in a fresh realm sharing the run's
// quota.
func runProgram(ctx context.Context, e *Engine, args ir.Envelope) error {
	m, ok := argObject(args)
	if !ok {
		return invalidArgs("run_action", fmt.Errorf("program_action wants an object, got %s", args.Kind()))
	}
	code, _ := m["code"].(string)
	if lang, _ := m["lang"].(string); lang != "" && lang != "JavaScript" {
		return invalidArgs("run_action", fmt.Errorf("unsupported language %q", lang))
	}
	if _, err := e.newRealm().Run(ctx, code); err != nil {
		return &RuntimeError{
			Code:    ErrCodeScriptFailed,
			Message: "program code failed",
			Op:      "run_action",
			Action:  "program_action",
			Err:     err,
		}
	}
	return nil
}

// injectContext stores {key, value} in the engine context.
func injectContext(_ context.Context, e *Engine, args ir.Envelope) error {
	m, ok := argObject(args)
	if !ok {
		return invalidArgs("run_action", fmt.Errorf("inject_context_action wants an object, got %s", args.Kind()))
	}
	key, _ := m["key"].(string)
	if key == "" {
		return invalidArgs("run_action", fmt.Errorf("inject_context_action needs a key"))
	}
	e.mu.Lock()
	e.values[key] = m["value"]
	e.mu.Unlock()
	return nil
}
