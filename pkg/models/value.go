package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Value Kinds
// ============================================================================

// ValueKind tags the runtime shape of a document value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindDate
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ============================================================================
// Value
// ============================================================================

// Field is one key/value pair of an object value. Objects keep source key order.
type Field struct {
	Key   string
	Value Value
}

// Value is a tagged union over the document value shapes. Only the member
// matching Kind is meaningful.
type Value struct {
	Kind     ValueKind
	Bool     bool
	Number   float64
	Integral bool
	Str      string
	Time     time.Time
	Items    []Value
	Fields   []Field
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a numeric value. Integral is set when n has no fractional part.
func Number(n float64) Value {
	return Value{Kind: KindNumber, Number: n, Integral: !math.IsInf(n, 0) && !math.IsNaN(n) && n == math.Trunc(n)}
}

// Int returns an integral numeric value.
func Int(n int64) Value { return Value{Kind: KindNumber, Number: float64(n), Integral: true} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Date returns a date value.
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// Array returns an array value.
func Array(items ...Value) Value { return Value{Kind: KindArray, Items: items} }

// Object returns an object value from ordered fields.
func Object(fields ...Field) Value { return Value{Kind: KindObject, Fields: fields} }

// F is shorthand for building object fields.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

// Get returns the value for key on an object and whether the key was present.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Lookup resolves a field path through nested objects.
func (v Value) Lookup(path string) (Value, bool) {
	cur := v
	for _, part := range SplitPath(path) {
		next, ok := cur.Get(part)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// IsScalar reports whether the value is neither an array nor an object.
func (v Value) IsScalar() bool {
	return v.Kind != KindArray && v.Kind != KindObject
}

// Key returns a canonical string used for distinct counting and grouping.
// Distinct kinds never produce the same key.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "n:"
	case KindBool:
		return "b:" + strconv.FormatBool(v.Bool)
	case KindNumber:
		return "d:" + strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindString:
		return "s:" + v.Str
	case KindDate:
		return "t:" + v.Time.UTC().Format(time.RFC3339Nano)
	case KindArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.Key()
		}
		return "a:[" + strings.Join(parts, ",") + "]"
	case KindObject:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = strconv.Quote(f.Key) + "=" + f.Value.Key()
		}
		sort.Strings(parts)
		return "o:{" + strings.Join(parts, ",") + "}"
	default:
		return "?"
	}
}

// Display renders the value for human-readable issue samples.
func (v Value) Display() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindDate:
		return v.Time.UTC().Format(time.RFC3339)
	default:
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("<%s>", v.Kind)
		}
		return string(b)
	}
}

// Interface converts the value into plain Go values (map, slice, float64, ...).
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	case KindDate:
		return v.Time
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Key] = f.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface converts decoded JSON-like Go values into a Value.
// Map keys are sorted because Go maps carry no order.
func FromInterface(in any) Value {
	switch x := in.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		f, err := x.Float64()
		if err != nil {
			return String(x.String())
		}
		return Number(f)
	case string:
		return String(x)
	case time.Time:
		return Date(x)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromInterface(item)
		}
		return Array(items...)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: FromInterface(x[k])}
		}
		return Object(fields...)
	case Value:
		return x
	default:
		return String(fmt.Sprint(x))
	}
}

// MarshalJSON encodes the value as its plain JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
