package graph

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/deed-db/deed/deederr"
)

// Value is a dynamic property value: one of int64, float64, string,
// bool, or nil. The graph never stores any other Go type in a property
// map; callers that hand in e.g. an int or float32 get it normalized to
// int64/float64 by NewValue.
type Value struct {
	v interface{}
}

// NewValue normalizes an arbitrary Go scalar into a Value. Unsupported
// types panic, since this is always called with an internally-produced
// literal (parser and test code), never with arbitrary user input that
// has not already been through a literal decoder.
func NewValue(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Value{nil}
	case Value:
		return t
	case int:
		return Value{int64(t)}
	case int32:
		return Value{int64(t)}
	case int64:
		return Value{t}
	case float32:
		return Value{float64(t)}
	case float64:
		return Value{t}
	case string:
		return Value{t}
	case bool:
		return Value{t}
	default:
		panic(fmt.Sprintf("graph: unsupported property value type %T", v))
	}
}

// Raw returns the underlying Go value (int64, float64, string, bool, or
// nil).
func (v Value) Raw() interface{} { return v.v }

// IsNull reports whether the value is the null value (distinct from the
// property being absent entirely).
func (v Value) IsNull() bool { return v.v == nil }

func (v Value) kind() string {
	switch v.v.(type) {
	case nil:
		return "null"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Compare returns -1, 0, or 1 if v is less than, equal to, or greater
// than other, under the value-type's natural ordering. If the two
// values are not directly comparable, it attempts one coercion step:
// v is converted to other's kind (int/float widening or narrowing,
// numeric->string formatting, string->numeric parsing); bool and nil
// never coerce. ok is false when no
// comparison — direct or coerced — was possible.
func (v Value) Compare(other Value) (cmp int, ok bool) {
	if c, match := compareSameKind(v, other); match {
		return c, true
	}
	coerced, did := coerceTo(v, other.kind())
	if !did {
		return 0, false
	}
	return compareSameKind(coerced, other)
}

func compareSameKind(a, b Value) (int, bool) {
	switch av := a.v.(type) {
	case int64:
		bv, ok := b.v.(int64)
		if !ok {
			return 0, false
		}
		return compareOrdered(av, bv), true
	case float64:
		bv, ok := b.v.(float64)
		if !ok {
			return 0, false
		}
		return compareOrdered(av, bv), true
	case string:
		bv, ok := b.v.(string)
		if !ok {
			return 0, false
		}
		return compareOrdered(av, bv), true
	case bool:
		bv, ok := b.v.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av && bv {
			return -1, true
		}
		return 1, true
	case nil:
		if b.v == nil {
			return 0, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// coerceTo attempts to convert v into the requested kind: a single step
// of int/float/string coercion keyed off the requested kind, applied to
// the stored value. bool and null never coerce in either direction.
func coerceTo(v Value, kind string) (Value, bool) {
	switch v.v.(type) {
	case bool, nil:
		return Value{}, false
	}
	switch kind {
	case "int":
		i, err := cast.ToInt64E(v.v)
		if err != nil {
			return Value{}, false
		}
		return Value{i}, true
	case "float":
		f, err := cast.ToFloat64E(v.v)
		if err != nil {
			return Value{}, false
		}
		return Value{f}, true
	case "string":
		s, err := cast.ToStringE(v.v)
		if err != nil {
			return Value{}, false
		}
		return Value{s}, true
	default:
		return Value{}, false
	}
}

// Equal reports value equality without coercion fallback failing the
// whole comparison: it delegates to Compare and treats "not comparable"
// as not-equal.
func (v Value) Equal(other Value) bool {
	c, ok := v.Compare(other)
	return ok && c == 0
}

// MismatchError builds the deederr.ErrTypeMismatch used by lookup_range
// when bounds cannot be compared against the index's stored kind.
func MismatchError(have, want Value) error {
	return deederr.ErrTypeMismatch.New(fmt.Sprintf("cannot compare %s with %s", have.kind(), want.kind()))
}
