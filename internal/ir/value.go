package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the discriminant of an Envelope.
type Kind string

const (
	KindInt    Kind = "Int"
	KindFloat  Kind = "Float"
	KindString Kind = "String"
	KindBool   Kind = "Bool"
	KindJSON   Kind = "Json"
	KindNull   Kind = "Null"
	KindPlug   Kind = "Plug"
)

// Valid reports whether k is a known envelope kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindFloat, KindString, KindBool, KindJSON, KindNull, KindPlug:
		return true
	}
	return false
}

// Envelope is a sealed interface over the tagged values sent to the host.
// Only Int, Float, String, Bool, JSON, Null and Plug implement it.
type Envelope interface {
	Kind() Kind
	envelope() // Sealed
}

// Int is an integral number.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) envelope()  {}

// Float is a number with a fractional part.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) envelope()  {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) envelope()  {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) envelope()  {}

// JSON carries an object or list value as-is.
type JSON struct {
	Value any
}

func (JSON) Kind() Kind { return KindJSON }
func (JSON) envelope()  {}

// Null is the absence of a value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) envelope()  {}

// Path addresses an upstream branch output inside a workflow graph.
type Path []string

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Plug references the output of an upstream branch instead of a literal value.
type Plug struct {
	// Ref is the kind of the referenced value.
	Ref  Kind
	Path Path
}

func (Plug) Kind() Kind { return KindPlug }
func (Plug) envelope()  {}

// Plugged marks a Plug as originating from an upstream wire.
func (Plug) Plugged() bool { return true }

// MarshalJSON encodes a Plug nested inside a Json value in envelope form,
// so a wired form field keeps its tag when the form is sent as one object.
func (p Plug) MarshalJSON() ([]byte, error) {
	return MarshalEnvelope(p)
}

// plugWire is the host's layout for a Plug value.
type plugWire struct {
	Type Kind     `json:"type"`
	Key  []string `json:"key"`
}

type envelopeWire struct {
	Type  Kind            `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalEnvelope encodes an envelope as {"type": ..., "value": ...}.
func MarshalEnvelope(e Envelope) ([]byte, error) {
	var value any
	switch v := e.(type) {
	case nil:
		return MarshalEnvelope(Null{})
	case Int:
		value = int64(v)
	case Float:
		value = float64(v)
	case String:
		value = string(v)
	case Bool:
		value = bool(v)
	case JSON:
		value = v.Value
	case Null:
		value = nil
	case Plug:
		path := v.Path
		if path == nil {
			path = Path{}
		}
		value = plugWire{Type: v.Ref, Key: path}
	default:
		return nil, fmt.Errorf("unknown envelope type: %T", e)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", e.Kind(), err)
	}
	return json.Marshal(envelopeWire{Type: e.Kind(), Value: raw})
}

// UnmarshalEnvelope decodes the wire form into an Envelope.
// The declared kind must match the runtime type of the value.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if !w.Type.Valid() {
		return nil, fmt.Errorf("unknown envelope kind %q", w.Type)
	}
	raw := w.Value
	if len(raw) == 0 {
		raw = []byte("null")
	}

	switch w.Type {
	case KindNull:
		return Null{}, nil
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("String value: %w", err)
		}
		return String(s), nil
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("Bool value: %w", err)
		}
		return Bool(b), nil
	case KindInt:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("Int value: %w", err)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("Int value is not integral: %s", n)
		}
		return Int(i), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("Float value: %w", err)
		}
		return Float(f), nil
	case KindJSON:
		v, err := decodeJSONValue(raw)
		if err != nil {
			return nil, fmt.Errorf("Json value: %w", err)
		}
		switch v.(type) {
		case map[string]any, []any:
			return JSON{Value: v}, nil
		}
		return nil, fmt.Errorf("Json value must be an object or array, got %s", string(raw))
	case KindPlug:
		var p plugWire
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("Plug value: %w", err)
		}
		return Plug{Ref: p.Type, Path: Path(p.Key)}, nil
	}
	return nil, fmt.Errorf("unknown envelope kind %q", w.Type)
}

// decodeJSONValue decodes arbitrary JSON, keeping integral numbers as int64.
func decodeJSONValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i, elem := range val {
			val[i] = normalizeNumbers(elem)
		}
		return val
	case map[string]any:
		for k, elem := range val {
			val[k] = normalizeNumbers(elem)
		}
		return val
	}
	return v
}

// Data wraps an Envelope so it can be embedded in JSON-encoded structs.
type Data struct {
	Envelope
}

// MarshalJSON implements json.Marshaler.
func (d Data) MarshalJSON() ([]byte, error) {
	return MarshalEnvelope(d.Envelope)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Data) UnmarshalJSON(data []byte) error {
	e, err := UnmarshalEnvelope(data)
	if err != nil {
		return err
	}
	d.Envelope = e
	return nil
}
