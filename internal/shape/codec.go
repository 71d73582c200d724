package shape

import (
	"encoding/json"
	"fmt"
)

// wireNode is the JSON form of a structural node.
// Primitives are encoded as bare strings.
type wireNode struct {
	Kind   string            `json:"kind"`
	Fields []wireField       `json:"fields,omitempty"`
	Member json.RawMessage   `json:"member,omitempty"`
	Slots  []json.RawMessage `json:"slots,omitempty"`
}

type wireField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

// Marshal encodes a node to JSON.
func Marshal(n Node) ([]byte, error) {
	switch x := n.(type) {
	case nil:
		return []byte("null"), nil
	case Primitive:
		return json.Marshal(string(x))
	case *Object:
		w := wireNode{Kind: KindObject, Fields: make([]wireField, 0, len(x.Fields))}
		for _, f := range x.Fields {
			b, err := Marshal(f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			w.Fields = append(w.Fields, wireField{Name: f.Name, Type: b})
		}
		return json.Marshal(w)
	case *Array:
		b, err := Marshal(x.Member)
		if err != nil {
			return nil, fmt.Errorf("member: %w", err)
		}
		return json.Marshal(wireNode{Kind: KindArray, Member: b})
	case *Tuple:
		w := wireNode{Kind: KindTuple, Slots: make([]json.RawMessage, 0, len(x.Slots))}
		for i, s := range x.Slots {
			b, err := Marshal(s)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			w.Slots = append(w.Slots, b)
		}
		return json.Marshal(w)
	default:
		return nil, fmt.Errorf("unknown node type: %T", n)
	}
}

// Unmarshal decodes a node from JSON. JSON null decodes to a nil node.
func Unmarshal(data []byte) (Node, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		if !IsPrimitiveKind(s) {
			return nil, fmt.Errorf("unknown primitive kind %q", s)
		}
		return Primitive(s), nil
	}

	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch w.Kind {
	case KindObject:
		obj := &Object{Fields: make([]Field, 0, len(w.Fields))}
		for _, f := range w.Fields {
			n, err := Unmarshal(f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			if n == nil {
				n = DefaultType
			}
			obj.Fields = append(obj.Fields, Field{Name: f.Name, Type: n})
		}
		return obj, nil
	case KindArray:
		n, err := Unmarshal(w.Member)
		if err != nil {
			return nil, fmt.Errorf("member: %w", err)
		}
		return MakeArray(n), nil
	case KindTuple:
		t := MakeTuple(len(w.Slots))
		for i, raw := range w.Slots {
			n, err := Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			t.Set(i, n)
		}
		return t, nil
	case KindString, KindNumber, KindBoolean:
		return Primitive(w.Kind), nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", w.Kind)
	}
}

// Value wraps a Node so it can be embedded in JSON-encoded structs.
type Value struct {
	Node Node
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v.Node)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	n, err := Unmarshal(data)
	if err != nil {
		return err
	}
	v.Node = n
	return nil
}
