// Package sandbox runs card scripts in an isolated goja realm.
//
// A realm exposes no host objects except console. Everything else a
// script can reach comes from its ModuleMap: a specifier resolves to
// exactly its own entry and an unmapped specifier fails that import with
// ErrUnknownImport. Inside a module, require is that same lookup. Capability namespaces are built once per realm;
// source modules are compiled on first import and cached only on success.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

var (
	// ErrUnknownImport is the cause of an import of an unmapped specifier.
	ErrUnknownImport = errors.New("unknown import specifier")
	// ErrModuleSyntax reports module text that fails to parse.
	ErrModuleSyntax = errors.New("unsupported module syntax")
)

// ImportError reports a failed import. Err is nil when the specifier
// itself is unmapped.
type ImportError struct {
	Specifier string
	Err       error
}

func (e *ImportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("import %q: %v", e.Specifier, ErrUnknownImport)
	}
	return fmt.Sprintf("import %q: %v", e.Specifier, e.Err)
}

func (e *ImportError) Unwrap() error {
	if e.Err == nil {
		return ErrUnknownImport
	}
	return e.Err
}

// ScriptSource fetches the persisted script of an action. An action with
// no script returns "".
type ScriptSource interface {
	GetScriptByID(ctx context.Context, actionID string) (string, error)
}

// Module is an evaluated module namespace.
type Module struct {
	Specifier string
	Exports   map[string]any
}

// Default returns the default export.
func (m *Module) Default() any {
	if m == nil {
		return nil
	}
	return m.Exports["default"]
}

// Option configures a Realm.
type Option func(*Realm)

// WithGenerator sets the generator for injected script specifiers.
func WithGenerator(g Generator) Option {
	return func(r *Realm) { r.gen = g }
}

// WithLogger sets the realm logger. Script console output goes to its
// "console" child.
func WithLogger(l *zap.Logger) Option {
	return func(r *Realm) { r.logger = l }
}

// Realm is one isolated script context.
//
// Thread-safety: methods serialize on an internal mutex; the underlying
// runtime is never entered concurrently.
type Realm struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	modules ModuleMap
	cache   map[string]*goja.Object
	gen     Generator
	logger  *zap.Logger
	ctx     context.Context
	booted  bool

	// lastImport is the most recent import failure raised inside the
	// runtime; it attributes an evaluation failure to its import.
	lastImport error
}

// NewRealm creates a realm over a copy of modules.
func NewRealm(modules ModuleMap, opts ...Option) *Realm {
	r := &Realm{
		vm:      goja.New(),
		modules: modules.Clone(),
		cache:   make(map[string]*goja.Object),
		gen:     UUIDv7Generator{},
		logger:  zap.L(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.installConsole()
	return r
}

// Specifiers returns the mapped specifiers.
func (r *Realm) Specifiers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.modules))
	for k := range r.modules {
		out = append(out, k)
	}
	return out
}

// Import resolves specifier and returns its namespace.
func (r *Realm) Import(ctx context.Context, specifier string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.importLocked(ctx, specifier)
}

// Run registers code under a fresh "script-" specifier and imports it.
func (r *Realm) Run(ctx context.Context, code string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runLocked(ctx, code)
}

// Boot injects the persisted script of actionID. Only the first call with
// a non-empty actionID fetches anything; later calls return nil.
func (r *Realm) Boot(ctx context.Context, actionID string, src ScriptSource) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actionID == "" || r.booted {
		return nil, nil
	}
	r.booted = true

	script, err := src.GetScriptByID(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("fetch script for action %s: %w", actionID, err)
	}
	if script == "" {
		r.logger.Debug("no script for action", zap.String("action_id", actionID))
		return nil, nil
	}
	return r.runLocked(ctx, script)
}

func (r *Realm) runLocked(ctx context.Context, code string) (*Module, error) {
	spec := mintSpecifier(r.gen)
	r.modules[spec] = Source(code)
	r.logger.Debug("script injected", zap.String("specifier", spec))
	return r.importLocked(ctx, spec)
}

func (r *Realm) importLocked(ctx context.Context, specifier string) (*Module, error) {
	r.ctx = ctx
	r.lastImport = nil
	defer func() { r.ctx = context.Background() }()

	obj, err := r.load(specifier)
	if err != nil {
		r.logger.Warn("import failed", zap.String("specifier", specifier), zap.Error(err))
		return nil, err
	}
	return &Module{Specifier: specifier, Exports: exportsOf(obj)}, nil
}

// load resolves one specifier to its exports object. It runs re-entrantly
// from inside scripts and never takes the realm lock.
func (r *Realm) load(specifier string) (*goja.Object, error) {
	if rec, ok := r.cache[specifier]; ok {
		return rec.Get("exports").ToObject(r.vm), nil
	}
	entry, ok := r.modules[specifier]
	if !ok {
		return nil, &ImportError{Specifier: specifier}
	}

	switch e := entry.(type) {
	case Capability:
		obj := r.capabilityObject(e)
		rec := r.vm.NewObject()
		_ = rec.Set("exports", obj)
		r.cache[specifier] = rec
		return obj, nil
	case Source:
		return r.evaluate(specifier, string(e))
	}
	return nil, &ImportError{Specifier: specifier, Err: fmt.Errorf("unsupported entry %T", entry)}
}

func (r *Realm) evaluate(specifier, src string) (*goja.Object, error) {
	code, err := transformModule(specifier, src)
	if err != nil {
		return nil, &ImportError{Specifier: specifier, Err: err}
	}
	prog, err := goja.Compile(specifier, code, true)
	if err != nil {
		return nil, &ImportError{Specifier: specifier, Err: err}
	}
	fnVal, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, &ImportError{Specifier: specifier, Err: err}
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, &ImportError{Specifier: specifier, Err: errors.New("module wrapper is not callable")}
	}

	exports := r.vm.NewObject()
	rec := r.vm.NewObject()
	_ = rec.Set("exports", exports)
	// Cached before evaluation so cyclic imports see the partial namespace.
	r.cache[specifier] = rec
	if _, err := fn(goja.Undefined(), r.vm.ToValue(r.importer), rec, exports); err != nil {
		delete(r.cache, specifier)
		return nil, r.evalError(specifier, err)
	}
	return rec.Get("exports").ToObject(r.vm), nil
}

func (r *Realm) evalError(specifier string, err error) error {
	var ie *ImportError
	if !errors.As(err, &ie) && r.lastImport != nil {
		err = fmt.Errorf("%w: %w", r.lastImport, err)
	}
	return &ImportError{Specifier: specifier, Err: err}
}

func (r *Realm) importer(call goja.FunctionCall) goja.Value {
	obj, err := r.load(call.Argument(0).String())
	if err != nil {
		r.lastImport = err
		panic(r.vm.NewGoError(err))
	}
	return obj
}

func (r *Realm) capabilityObject(c Capability) *goja.Object {
	obj := r.vm.NewObject()
	for name, member := range c {
		var v goja.Value
		switch m := member.(type) {
		case Dispatch:
			v = r.vm.ToValue(r.dispatchFunc(m))
		default:
			v = r.vm.ToValue(m)
		}
		if err := obj.Set(name, v); err != nil {
			r.logger.Warn("capability member skipped", zap.String("member", name), zap.Error(err))
		}
	}
	return obj
}

// dispatchFunc calls d synchronously and returns an already settled
// promise.
func (r *Realm) dispatchFunc(d Dispatch) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		promise, resolve, reject := r.vm.NewPromise()
		res, err := d(r.ctx, args)
		if err != nil {
			reject(r.vm.NewGoError(err))
		} else {
			resolve(res)
		}
		return r.vm.ToValue(promise)
	}
}

func (r *Realm) installConsole() {
	log := r.logger.Named("console")
	console := r.vm.NewObject()
	levels := map[string]func(string, ...zap.Field){
		"log":   log.Info,
		"info":  log.Info,
		"debug": log.Debug,
		"warn":  log.Warn,
		"error": log.Error,
	}
	for name, emit := range levels {
		emit := emit
		_ = console.Set(name, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			emit(strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	_ = r.vm.Set("console", console)
}

func exportsOf(obj *goja.Object) map[string]any {
	out := make(map[string]any)
	for _, k := range obj.Keys() {
		out[k] = obj.Get(k).Export()
	}
	return out
}
