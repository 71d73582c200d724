// Package plug models form values wired to an upstream branch output.
//
// A field value is either a Literal entered by the user or Wired to a
// branch. A wire remembers the literal it displaced so that unplugging
// restores the user's input. Rewiring keeps the original literal rather
// than stacking the intermediate wire.
package plug

import (
	"encoding/json"

	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/shape"
)

// Marker is implemented by values that may originate from a wire, such as
// ir.Plug values unwrapped from a host envelope.
type Marker interface {
	Plugged() bool
}

// Wire connects a field to an upstream branch output.
type Wire struct {
	// Path addresses the upstream output. The first segment is the routing
	// tag of the source card; the rest is the path inside its output.
	Path ir.Path
	// Kind is the envelope kind of the referenced value, if known.
	Kind ir.Kind
	// Previous is the literal the wire replaced.
	Previous any
}

// Plugged implements Marker.
func (w *Wire) Plugged() bool { return w != nil }

// Value is a field value: a literal or a wire.
type Value struct {
	lit  any
	wire *Wire
}

// Literal wraps a user-entered value.
func Literal(v any) Value { return Value{lit: v} }

// Wired wraps a wire. A nil wire yields an empty literal.
func Wired(w *Wire) Value { return Value{wire: w} }

// Wire returns the wire, if the value is wired.
func (v Value) Wire() (*Wire, bool) { return v.wire, v.wire != nil }

// Get returns the literal, or the *Wire when wired.
func (v Value) Get() any {
	if v.wire != nil {
		return v.wire
	}
	return v.lit
}

// Plugged implements Marker.
func (v Value) Plugged() bool { return v.wire != nil }

// MarshalJSON encodes the literal, or the wire when wired.
func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.Get()) }

// MarkAsPlug wires a field to path. When previous is itself wired, its
// stored literal is carried over instead of the wire.
func MarkAsPlug(path ir.Path, previous any) *Wire {
	w := &Wire{Path: path, Previous: previous}
	switch p := previous.(type) {
	case *Wire:
		if p != nil {
			w.Previous = p.Previous
			w.Kind = p.Kind
		}
	case Value:
		if pw, ok := p.Wire(); ok {
			w.Previous = pw.Previous
			w.Kind = pw.Kind
		} else {
			w.Previous = p.lit
		}
	case ir.Plug:
		// Wired on the host side; no literal was ever captured.
		w.Previous = nil
		w.Kind = p.Ref
	default:
		if m, ok := previous.(Marker); ok && m.Plugged() {
			w.Previous = nil
		}
	}
	return w
}

// Unplug returns the literal a wire replaced, or v itself when not wired.
func Unplug(v any) any {
	switch p := v.(type) {
	case *Wire:
		if p != nil {
			return p.Previous
		}
	case Value:
		if w, ok := p.Wire(); ok {
			return w.Previous
		}
		return p.lit
	}
	return v
}

// IsPlugged reports whether v came from a wire: a wired Value, a *Wire, or
// any Marker that reports itself plugged.
func IsPlugged(v any) bool {
	if v == nil {
		return false
	}
	if m, ok := v.(Marker); ok {
		return m.Plugged()
	}
	return false
}

// PathOf returns the wire path of a plugged value.
func PathOf(v any) (ir.Path, bool) {
	switch p := v.(type) {
	case *Wire:
		if p != nil {
			return p.Path, true
		}
	case Value:
		if w, ok := p.Wire(); ok {
			return w.Path, true
		}
	case ir.Plug:
		return p.Path, true
	}
	return nil, false
}

// EnvelopeKind maps a plug shape to the envelope kind it produces.
func EnvelopeKind(n shape.Node) ir.Kind {
	switch shape.Discriminant(n) {
	case shape.KindString:
		return ir.KindString
	case shape.KindNumber:
		return ir.KindFloat
	case shape.KindBoolean:
		return ir.KindBool
	case "":
		return ir.KindNull
	}
	return ir.KindJSON
}
