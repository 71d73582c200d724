package ir

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"go.uber.org/zap"
)

// ErrUnsupportedValueType is logged when a runtime value has no envelope kind.
// Conversion continues with Null; the error is never returned to callers.
var ErrUnsupportedValueType = errors.New("unsupported value type")

// Converter turns native Go values into envelopes, logging unsupported values.
type Converter struct {
	Logger *zap.Logger
}

func (c Converter) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.L()
}

// ToEnvelope converts a value using the global zap logger for diagnostics.
func ToEnvelope(v any) Envelope {
	return Converter{}.ToEnvelope(v)
}

// ToEnvelopes converts a batch of named values. One bad value never aborts the batch.
func ToEnvelopes(values map[string]any) map[string]Envelope {
	return Converter{}.ToEnvelopes(values)
}

// ToEnvelope converts v to its envelope:
//   - nil -> Null
//   - string -> String
//   - integer types and integral floats -> Int, other floats -> Float
//   - bool -> Bool
//   - maps, slices, arrays, structs -> JSON
//   - an Envelope is returned unchanged
//
// Anything else is logged as ErrUnsupportedValueType and becomes Null.
func (c Converter) ToEnvelope(v any) Envelope {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Envelope:
		return val
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(val)
	case int8:
		return Int(val)
	case int16:
		return Int(val)
	case int32:
		return Int(val)
	case int64:
		return Int(val)
	case uint8:
		return Int(val)
	case uint16:
		return Int(val)
	case uint32:
		return Int(val)
	case float32:
		return number(float64(val))
	case float64:
		return number(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return Int(int64(u))
		}
		return Float(float64(u))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Float32, reflect.Float64:
		return number(rv.Float())
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
			return Null{}
		}
		return JSON{Value: v}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}
		}
		return c.ToEnvelope(rv.Elem().Interface())
	}

	c.logger().Warn("coercing value to Null",
		zap.Error(fmt.Errorf("%w: %T", ErrUnsupportedValueType, v)),
	)
	return Null{}
}

// ToEnvelopes converts a batch of named values.
func (c Converter) ToEnvelopes(values map[string]any) map[string]Envelope {
	out := make(map[string]Envelope, len(values))
	for k, v := range values {
		out[k] = c.ToEnvelope(v)
	}
	return out
}

// number picks Int or Float by integrality. NaN, infinities and values
// outside the int64 range stay Float.
func number(f float64) Envelope {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return Float(f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return Float(f)
	}
	return Int(int64(f))
}

// FromEnvelope unwraps an envelope into a native value.
// Plug envelopes return the Plug itself, which reports Plugged() so that
// downstream checks recognize it came from a wire, together with its path.
// The returned path is nil for every other kind.
func FromEnvelope(e Envelope) (any, Path) {
	switch v := e.(type) {
	case nil, Null:
		return nil, nil
	case Int:
		return int64(v), nil
	case Float:
		return float64(v), nil
	case String:
		return string(v), nil
	case Bool:
		return bool(v), nil
	case JSON:
		return v.Value, nil
	case Plug:
		return v, v.Path
	}
	return nil, nil
}
