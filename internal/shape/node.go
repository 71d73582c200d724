package shape

import "fmt"

// Discriminant tags. Primitive kinds double as their own tags.
const (
	KindString  = "string"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindObject  = "object"
	KindArray   = "array"
	KindTuple   = "tuple"
)

// Node is a sealed structural type descriptor.
// Only Primitive, *Object, *Array and *Tuple implement it.
type Node interface {
	Kind() string
	node()
}

// Primitive is a leaf node. Its value is the kind name.
type Primitive string

func (p Primitive) Kind() string { return string(p) }
func (Primitive) node()          {}

// DefaultType fills tuple slots and array members that were not set explicitly.
const DefaultType = Primitive(KindString)

// Field is one named entry of an Object node.
type Field struct {
	Name string
	Type Node
}

// Object is an ordered mapping of field names to nodes.
type Object struct {
	Fields []Field
}

func (*Object) Kind() string { return KindObject }
func (*Object) node()        {}

// Get returns the node of a field by name.
func (o *Object) Get(name string) (Node, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Array describes a homogeneous list.
type Array struct {
	Member Node
}

func (*Array) Kind() string { return KindArray }
func (*Array) node()        {}

// Tuple describes a fixed-length list whose slots may differ in type.
type Tuple struct {
	Slots []Node
}

func (*Tuple) Kind() string { return KindTuple }
func (*Tuple) node()        {}

// Len returns the fixed tuple length.
func (t *Tuple) Len() int { return len(t.Slots) }

// Set replaces slot i in place. Out-of-range indexes are ignored so that a
// partially specified tuple never grows or shrinks.
func (t *Tuple) Set(i int, n Node) *Tuple {
	if i < 0 || i >= len(t.Slots) {
		return t
	}
	if n == nil {
		n = DefaultType
	}
	t.Slots[i] = n
	return t
}

// MakePrimitive returns a primitive node. Unknown kinds fall back to DefaultType.
func MakePrimitive(kind string) Primitive {
	if !IsPrimitiveKind(kind) {
		return DefaultType
	}
	return Primitive(kind)
}

// MakeObject returns an object node with the given fields in order.
func MakeObject(fields ...Field) *Object {
	obj := &Object{Fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		if f.Type == nil {
			f.Type = DefaultType
		}
		obj.Fields = append(obj.Fields, f)
	}
	return obj
}

// MakeArray returns an array node. A nil member becomes DefaultType.
func MakeArray(member Node) *Array {
	if member == nil {
		member = DefaultType
	}
	return &Array{Member: member}
}

// MakeTuple returns a tuple of the given length with every slot set to DefaultType.
func MakeTuple(length int) *Tuple {
	if length < 0 {
		length = 0
	}
	slots := make([]Node, length)
	for i := range slots {
		slots[i] = DefaultType
	}
	return &Tuple{Slots: slots}
}

// IsPrimitiveKind reports whether kind names a primitive.
func IsPrimitiveKind(kind string) bool {
	switch kind {
	case KindString, KindNumber, KindBoolean:
		return true
	}
	return false
}

// IsNode reports whether v is any structural node.
func IsNode(v any) bool {
	_, ok := v.(Node)
	return ok
}

// Discriminant returns the tag of v, or "" when v is not a node.
func Discriminant(v any) string {
	n, ok := v.(Node)
	if !ok || n == nil {
		return ""
	}
	return n.Kind()
}

func is(v any, kind string) string {
	if Discriminant(v) == kind {
		return kind
	}
	return ""
}

// IsObject returns "object" when v is an object node, "" otherwise.
func IsObject(v any) string { return is(v, KindObject) }

// IsArray returns "array" when v is an array node, "" otherwise.
func IsArray(v any) string { return is(v, KindArray) }

// IsTuple returns "tuple" when v is a tuple node, "" otherwise.
func IsTuple(v any) string { return is(v, KindTuple) }

// IsStructural reports whether n is an object, array or tuple.
func IsStructural(n Node) bool {
	if n == nil {
		return false
	}
	return !IsPrimitiveKind(n.Kind())
}

// Equal compares two nodes by shape.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Primitive:
		y, ok := b.(Primitive)
		return ok && x == y
	case *Object:
		y, ok := b.(*Object)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Type, y.Fields[i].Type) {
				return false
			}
		}
		return true
	case *Array:
		y, ok := b.(*Array)
		return ok && Equal(x.Member, y.Member)
	case *Tuple:
		y, ok := b.(*Tuple)
		if !ok || len(x.Slots) != len(y.Slots) {
			return false
		}
		for i := range x.Slots {
			if !Equal(x.Slots[i], y.Slots[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a compact, human-readable form such as {a: string, b: [number]}.
func String(n Node) string {
	switch x := n.(type) {
	case nil:
		return "null"
	case Primitive:
		return string(x)
	case *Object:
		s := "{"
		for i, f := range x.Fields {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s: %s", f.Name, String(f.Type))
		}
		return s + "}"
	case *Array:
		return "[" + String(x.Member) + "]"
	case *Tuple:
		s := "("
		for i, slot := range x.Slots {
			if i > 0 {
				s += ", "
			}
			s += String(slot)
		}
		return s + ")"
	}
	return "?"
}
