package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/plug"
)

// ErrInvalidNumber is returned when a Number field's value cannot be coerced.
var ErrInvalidNumber = errors.New("value is not a number")

// ItemProcessor rewrites a field declaration. Every active item processor
// runs, in order.
type ItemProcessor struct {
	Name    string
	Active  func(f *Field) bool
	Process func(f *Field, tr *i18n.Translator)
}

// ValueProcessor transforms an entered value. Only the first active value
// processor runs.
type ValueProcessor struct {
	Name    string
	Active  func(value any, f *Field) bool
	Process func(value any, f *Field) (any, error)
}

// Pipeline is an ordered set of item and value processors.
type Pipeline struct {
	items  []ItemProcessor
	values []ValueProcessor
	logger *zap.Logger
}

// NewPipeline returns the standard pipeline:
//   - form: resolves the field label from display and fallback keys
//   - input: infers the placeholder of String and Number fields
//   - input-number: coerces Number values
//   - plug: rewrites wired values into Plug envelopes
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.L()
	}
	return &Pipeline{
		items: []ItemProcessor{
			{Name: "form", Active: func(*Field) bool { return true }, Process: resolveLabel},
			{Name: "input", Active: isInput, Process: inferPlaceholder},
		},
		values: []ValueProcessor{
			{Name: "input-number", Active: isNumberLiteral, Process: coerceNumber},
			{Name: "plug", Active: func(v any, _ *Field) bool { return plug.IsPlugged(v) }, Process: toPlug},
		},
		logger: logger,
	}
}

// ResolveField returns a resolved copy of f; the declaration is untouched.
func (p *Pipeline) ResolveField(tr *i18n.Translator, f Field) Field {
	out := f.Clone()
	for _, proc := range p.items {
		if proc.Active(&out) {
			proc.Process(&out, tr)
		}
	}
	return out
}

// ResolveForm resolves every field in order.
func (p *Pipeline) ResolveForm(tr *i18n.Translator, fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = p.ResolveField(tr, f)
	}
	return out
}

// ProcessValue runs the first active value processor on value. A literal
// plug.Value is unwrapped first. Values no processor claims pass through
// unchanged.
func (p *Pipeline) ProcessValue(f Field, value any) (any, error) {
	if v, ok := value.(plug.Value); ok && !v.Plugged() {
		value = plug.Unplug(v)
	}
	for _, proc := range p.values {
		if !proc.Active(value, &f) {
			continue
		}
		out, err := proc.Process(value, &f)
		if err != nil {
			return nil, fmt.Errorf("%s: field %q: %w", proc.Name, f.Name, err)
		}
		p.logger.Debug("processed form value",
			zap.String("processor", proc.Name),
			zap.String("field", f.Name),
		)
		return out, nil
	}
	return value, nil
}

// ResolveDisplay picks the label text of a field:
//   - a Call display is a full translation call
//   - a Func display invokes that translation function with its args
//   - otherwise the Key and then each fallback key are tried; the first key
//     with an actual translation wins, else the first fallback key is used
//     verbatim
func ResolveDisplay(tr *i18n.Translator, f Field, fallbacks []string) string {
	d := f.Display
	switch {
	case len(d.Call) > 0:
		if s, ok := tr.Call("t", d.Call); ok {
			return s
		}
	case d.Func != "":
		if s, ok := tr.Call(d.Func, d.Args); ok {
			return s
		}
	default:
		for _, key := range append([]string{d.Key}, fallbacks...) {
			if key == "" {
				continue
			}
			if s := tr.T(key); s != key {
				return s
			}
		}
	}
	if len(fallbacks) > 0 {
		return fallbacks[0]
	}
	return d.Key
}

func resolveLabel(f *Field, tr *i18n.Translator) {
	f.Label = ResolveDisplay(tr, *f, []string{f.Name, f.Name + ".title"})
}

func isInput(f *Field) bool {
	return f.Type == String || f.Type == Number
}

// inferPlaceholder translates an explicit placeholder, or looks up
// "<name>.placeholder" and leaves the placeholder empty when the catalog
// has no entry for it.
func inferPlaceholder(f *Field, tr *i18n.Translator) {
	if f.Data.Placeholder != "" {
		f.Data.Placeholder = tr.T(f.Data.Placeholder)
		return
	}
	key := f.Name + ".placeholder"
	if s := tr.T(key); s != key {
		f.Data.Placeholder = s
	}
}

func isNumberLiteral(v any, f *Field) bool {
	return f.Type == Number && !plug.IsPlugged(v)
}

func coerceNumber(v any, _ *Field) (any, error) {
	switch n := v.(type) {
	case nil:
		return 0.0, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case bool:
		if n {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0.0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, n)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidNumber, v)
}

// toPlug drops the routing tag (first path segment) and keeps the rest.
func toPlug(v any, f *Field) (any, error) {
	path, _ := plug.PathOf(v)
	var rest ir.Path
	if len(path) > 1 {
		rest = append(ir.Path{}, path[1:]...)
	} else {
		rest = ir.Path{}
	}

	kind := f.Type.EnvelopeKind()
	switch w := v.(type) {
	case *plug.Wire:
		if w.Kind != "" {
			kind = w.Kind
		}
	case plug.Value:
		if wire, ok := w.Wire(); ok && wire.Kind != "" {
			kind = wire.Kind
		}
	case ir.Plug:
		// Already host-shaped; keep its path as is.
		return w, nil
	}
	return ir.Plug{Ref: kind, Path: rest}, nil
}

// Defaults builds the initial form model. A declared default wins;
// otherwise each type has a zero value. now fills Date fields.
func Defaults(fields []Field, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.DefaultValue != nil {
			out[f.Name] = f.DefaultValue
			continue
		}
		switch f.Type {
		case Number:
			out[f.Name] = 0.0
		case Date:
			out[f.Name] = now
		case Range:
			out[f.Name] = []any{0.0, 1.0}
		case Code:
			out[f.Name] = "\n\n\n"
		case Switch:
			out[f.Name] = false
		case File:
			out[f.Name] = nil
		default:
			out[f.Name] = ""
		}
	}
	return out
}

// Formatter shapes processed form values into the envelope sent to the host.
type Formatter func(values map[string]any) ir.Envelope

// DefaultFormatter sends the values as one Json envelope.
func DefaultFormatter(values map[string]any) ir.Envelope {
	return ir.JSON{Value: values}
}

// Collect processes a filled model and formats it. Declared fields are
// processed with their declaration; extra model keys use an untyped field.
// A nil formatter uses DefaultFormatter.
func (p *Pipeline) Collect(fields []Field, model map[string]any, format Formatter) (ir.Envelope, error) {
	if format == nil {
		format = DefaultFormatter
	}
	declared := make(map[string]Field, len(fields))
	for _, f := range fields {
		declared[f.Name] = f
	}

	values := make(map[string]any, len(model))
	for name, v := range model {
		f, ok := declared[name]
		if !ok {
			f = Field{Name: name}
		}
		out, err := p.ProcessValue(f, v)
		if err != nil {
			return nil, err
		}
		values[name] = out
	}
	return format(values), nil
}
