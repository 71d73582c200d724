// Package form resolves card form declarations into localized form items
// and turns entered values into host-ready envelopes.
package form

import (
	"encoding/json"
	"fmt"
	"reflect"

	"dario.cat/mergo"

	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/plug"
	"github.com/roach88/daisy/internal/shape"
)

// FieldType is the input kind of a form field.
type FieldType string

const (
	String       FieldType = "String"
	Number       FieldType = "Number"
	Option       FieldType = "Option"
	Date         FieldType = "Date"
	TextArea     FieldType = "TextArea"
	File         FieldType = "File"
	AutoComplete FieldType = "AutoComplete"
	Range        FieldType = "Range"
	Code         FieldType = "Code"
	Switch       FieldType = "Switch"
)

// FieldTypes lists every field type in declaration order.
var FieldTypes = []FieldType{String, Number, Option, Date, TextArea, File, AutoComplete, Range, Code, Switch}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Accepts reports whether a branch producing source can be wired into t.
func (t FieldType) Accepts(source shape.Node) bool {
	return plug.CheckCompatible(source, string(t))
}

// EnvelopeKind is the envelope kind a value of this field type is sent as.
func (t FieldType) EnvelopeKind() ir.Kind {
	switch t {
	case Number:
		return ir.KindFloat
	case Range, Switch:
		return ir.KindBool
	case File:
		return ir.KindJSON
	}
	return ir.KindString
}

// Display is how a field's label is declared. Exactly one form is used:
//   - Key: a message key, tried before the fallback keys
//   - Call: a full translation call, key first then arguments
//   - Func/Args: a named translation function ("t", "rt", "d", "n", "te", "tm")
type Display struct {
	Key  string
	Call []any
	Func string
	Args []any
}

// IsZero reports whether no display was declared.
func (d Display) IsZero() bool {
	return d.Key == "" && len(d.Call) == 0 && d.Func == ""
}

// MarshalJSON encodes the display in its declared form.
func (d Display) MarshalJSON() ([]byte, error) {
	switch {
	case len(d.Call) > 0:
		return json.Marshal(d.Call)
	case d.Func != "":
		return json.Marshal(map[string]any{d.Func: d.Args})
	case d.Key != "":
		return json.Marshal(d.Key)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a string, a list, or a function object. For a
// function object the first known function name wins; a non-list value
// becomes a single argument.
func (d *Display) UnmarshalJSON(data []byte) error {
	*d = Display{}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		d.Key = x
	case []any:
		d.Call = x
	case map[string]any:
		for _, fn := range i18n.Funcs {
			arg, ok := x[fn]
			if !ok {
				continue
			}
			d.Func = fn
			if list, isList := arg.([]any); isList {
				d.Args = list
			} else {
				d.Args = []any{arg}
			}
			return nil
		}
		return fmt.Errorf("display object has no known function (want one of %v)", i18n.Funcs)
	default:
		return fmt.Errorf("display must be a string, list or object, got %T", v)
	}
	return nil
}

// Choice is one entry of an Option field.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Data holds type-specific field settings.
type Data struct {
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Choice `json:"options,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
}

// UnmarshalJSON also accepts a bare list of choices for Option fields.
func (d *Data) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var opts []Choice
		if err := json.Unmarshal(data, &opts); err != nil {
			return err
		}
		*d = Data{Options: opts}
		return nil
	}
	type plain Data
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Data(p)
	return nil
}

// Field is one declared form input.
type Field struct {
	Name         string    `json:"name"`
	Type         FieldType `json:"type"`
	Optional     bool      `json:"optional,omitempty"`
	Display      Display   `json:"display,omitempty"`
	DefaultValue any       `json:"defaultValue,omitempty"`
	Data         Data      `json:"data"`
	// Plug restricts which upstream branches may wire into the field.
	// Nil allows any compatible branch.
	Plug []string `json:"plug,omitempty"`

	// Label is the resolved display text. Set by the pipeline only.
	Label string `json:"label,omitempty"`
}

// CanWire reports whether branch may be wired into f: the branch must be
// on the field's allow-list when one is declared, and source must be
// compatible with the field type.
func (f Field) CanWire(branch string, source shape.Node) bool {
	if f.Plug != nil {
		allowed := false
		for _, b := range f.Plug {
			if b == branch {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return f.Type.Accepts(source)
}

// Clone returns a copy that shares no slices or pointers with f.
func (f Field) Clone() Field {
	out := f
	out.Display.Call = append([]any(nil), f.Display.Call...)
	out.Display.Args = append([]any(nil), f.Display.Args...)
	out.Data.Options = append([]Choice(nil), f.Data.Options...)
	out.Data.Min = copyFloat(f.Data.Min)
	out.Data.Max = copyFloat(f.Data.Max)
	out.Data.Step = copyFloat(f.Data.Step)
	out.Plug = append([]string(nil), f.Plug...)
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// displayTransformer replaces a Display wholesale instead of merging its
// parts, so an extension's key never combines with an original call.
type displayTransformer struct{}

func (displayTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(Display{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.Interface().(Display).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}

// Merge shallow-merges ext into dst: every non-zero field of ext wins.
// Name is never changed. A zero field in ext, such as Optional false,
// cannot clear dst; replacing the form through an override can.
func Merge(dst *Field, ext Field) error {
	name := dst.Name
	ext = ext.Clone()
	if err := mergo.Merge(dst, ext, mergo.WithOverride, mergo.WithTransformers(displayTransformer{})); err != nil {
		return fmt.Errorf("merge field %q: %w", name, err)
	}
	dst.Name = name
	return nil
}

// MergeList merges each entry of ext into fields by name; unmatched
// entries are appended. The returned slice may share storage with fields.
func MergeList(fields []Field, ext []Field) ([]Field, error) {
	for _, e := range ext {
		matched := false
		for i := range fields {
			if fields[i].Name == e.Name {
				if err := Merge(&fields[i], e); err != nil {
					return fields, err
				}
				matched = true
				break
			}
		}
		if !matched {
			fields = append(fields, e.Clone())
		}
	}
	return fields, nil
}
