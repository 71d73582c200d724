package plug

import (
	"github.com/roach88/daisy/internal/shape"
)

// accepts lists, per form field type, the one primitive kind it accepts.
// Option, Date and File are never pluggable.
var accepts = map[string]string{
	"String":       shape.KindString,
	"Code":         shape.KindString,
	"TextArea":     shape.KindString,
	"AutoComplete": shape.KindString,
	"Number":       shape.KindNumber,
	"Range":        shape.KindBoolean,
	"Switch":       shape.KindBoolean,
}

// CheckCompatible reports whether a branch producing source may be wired
// into a form field of type target. Only primitive sources are supported;
// structural sources are always incompatible. There is no implicit
// coercion between kinds.
func CheckCompatible(source shape.Node, target string) bool {
	p, ok := source.(shape.Primitive)
	if !ok {
		return false
	}
	want, ok := accepts[target]
	return ok && string(p) == want
}

// Abbreviate shortens a path longer than max for display, keeping segments
// from both ends around an ellipsis. A max of 0 or less defaults to 3.
//
//	Abbreviate([a b c d e], 4) -> [a b ... d e]
func Abbreviate(path []string, max int) []string {
	if max <= 0 {
		max = 3
	}
	if len(path) <= max {
		return path
	}
	head := (max + 1) / 2
	tail := max - head
	out := make([]string, 0, max+1)
	out = append(out, path[:head]...)
	out = append(out, "...")
	out = append(out, path[len(path)-tail:]...)
	return out
}
