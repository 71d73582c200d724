package sandbox

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/ir"
)

// RootNamespace is the fixed capability namespace present in every realm.
const RootNamespace = "daisy"

// Version is exposed as daisy.version inside scripts.
const Version = "1"

// Entry is one module map entry: a Capability or a Source.
type Entry interface {
	entry()
}

// Capability is a pre-built namespace. Members are plain values or
// Dispatch functions.
type Capability map[string]any

// Source is module text compiled when first imported.
type Source string

func (Capability) entry() {}
func (Source) entry()     {}

// Dispatch is a host-backed member function. Inside a script it returns a
// promise settled with the result of the call.
type Dispatch func(ctx context.Context, args []any) (any, error)

// ModuleMap maps specifiers to entries. A specifier resolves to exactly
// its own entry; there is no aliasing and no fallback.
type ModuleMap map[string]Entry

// Clone returns a shallow copy; capability members are shared.
func (m ModuleMap) Clone() ModuleMap {
	out := make(ModuleMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Dispatcher forwards card invocations to the host.
type Dispatcher interface {
	RunAction(ctx context.Context, actionType string, args ir.Envelope) error
}

// NamespaceOf returns the module specifier generated for a card parent
// such as "action.web": "daisy/action/web".
func NamespaceOf(parent string) string {
	return strings.Join(append([]string{RootNamespace}, strings.Split(parent, ".")...), "/")
}

// FunctionName is the member name of a card inside its namespace.
func FunctionName(cardName string) string {
	return strings.Replace(cardName, "_action", "", 1)
}

// BuildModuleMap creates the fixed daisy namespace plus one namespace per
// card parent. Each card contributes a dispatch member that packs its
// arguments with PackArgs and forwards them to d.
func BuildModuleMap(cards []*card.Meta, d Dispatcher, logger *zap.Logger) ModuleMap {
	if logger == nil {
		logger = zap.L()
	}
	m := ModuleMap{
		RootNamespace: Capability{"version": Version},
	}
	for _, c := range cards {
		ns := NamespaceOf(c.Parent)
		capability, ok := m[ns].(Capability)
		if !ok {
			capability = Capability{}
			m[ns] = capability
		}
		name, argNames := c.Name, c.ArgNames()
		capability[FunctionName(name)] = Dispatch(func(ctx context.Context, args []any) (any, error) {
			env := PackArgs(args, argNames, logger)
			logger.Debug("dispatching card", zap.String("card", name), zap.String("kind", string(env.Kind())))
			return nil, d.RunAction(ctx, name, env)
		})
	}
	return m
}

// PackArgs converts positional call arguments into one envelope:
//   - no arguments: Null
//   - one argument: typed by its runtime value (see ir.ToEnvelope)
//   - more: a Json object zipping the arguments against names in order
//
// Arguments beyond the declared names are dropped.
func PackArgs(args []any, names []string, logger *zap.Logger) ir.Envelope {
	switch len(args) {
	case 0:
		return ir.Null{}
	case 1:
		return ir.Converter{Logger: logger}.ToEnvelope(args[0])
	}
	value := make(map[string]any, len(args))
	for i, a := range args {
		if i >= len(names) {
			logger.Debug("dropping unnamed argument", zap.Int("index", i))
			continue
		}
		value[names[i]] = a
	}
	return ir.JSON{Value: value}
}
