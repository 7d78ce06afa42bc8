package fields

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// conversion turns a value already in the canonical form of its source Type
// into the canonical form of the target Type.
type conversion func(v any) (any, error)

type pair struct {
	from, to Type
}

var (
	errOverflow    = errors.New("value out of range")
	errNotANumber  = errors.New("not a finite number")
	numericTypes   = []Type{Int, Int64, Int32, Uint, Uint64, Uint32, Float64, Float32}
	conversions    = make(map[pair]conversion)
	canonicalNames = map[Type]string{
		Int: "int", Int64: "int64", Int32: "int32", Uint: "uint", Uint64: "uint64", Uint32: "uint32",
		Float64: "float64", Float32: "float32", String: "string", Bool: "bool", Bytes: "[]byte",
		Time: "time.Time", Duration: "time.Duration", List: "*fields.ListValue", Record: "*fields.RecordValue",
	}
)

func init() {
	for _, from := range numericTypes {
		for _, to := range numericTypes {
			if from == to {
				continue
			}
			register(from, to, numericTo(to))
		}
		register(from, Bool, func(v any) (any, error) {
			n, _ := asNumber(v)
			return !n.isZero(), nil
		})
		register(Bool, from, func(v any) (any, error) {
			if v.(bool) {
				return toNumeric(from, number{kind: signed, i: 1})
			}
			return toNumeric(from, number{kind: signed})
		})
		register(from, String, func(v any) (any, error) {
			n, _ := asNumber(v)
			return n.format(), nil
		})
		register(String, from, func(v any) (any, error) {
			n, err := parseNumber(v.(string))
			if err != nil {
				return nil, err
			}
			return toNumeric(from, n)
		})
	}

	register(Bool, String, func(v any) (any, error) { return strconv.FormatBool(v.(bool)), nil })
	register(String, Bool, func(v any) (any, error) { return strconv.ParseBool(strings.TrimSpace(v.(string))) })

	register(Time, String, func(v any) (any, error) { return v.(time.Time).Format(time.RFC3339Nano), nil })
	register(String, Time, func(v any) (any, error) {
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(v.(string)))
	})

	register(Duration, String, func(v any) (any, error) { return v.(time.Duration).String(), nil })
	register(String, Duration, func(v any) (any, error) {
		return time.ParseDuration(strings.TrimSpace(v.(string)))
	})
	register(Duration, Int64, func(v any) (any, error) { return int64(v.(time.Duration)), nil })
	register(Int64, Duration, func(v any) (any, error) { return time.Duration(v.(int64)), nil })
	register(Int, Duration, func(v any) (any, error) { return time.Duration(v.(int)), nil })

	register(Bytes, String, func(v any) (any, error) { return string(v.([]byte)), nil })
	register(String, Bytes, func(v any) (any, error) { return []byte(v.(string)), nil })
}

func register(from, to Type, fn conversion) {
	conversions[pair{from: from, to: to}] = fn
}

// Convert coerces v to the canonical Go representation of t.
//
// Values already of the canonical type are returned unchanged. Other values go
// through the conversion table; a missing entry or a failed conversion yields
// ErrTypeMismatch. Any accepts every value untouched.
func Convert(t Type, v any) (any, error) {
	if t == Any {
		return v, nil
	}
	if v == nil {
		if t.Nullable() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: nil is not a valid %s", ErrTypeMismatch, t)
	}

	from, canonical, ok := classify(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot hold a %s", ErrTypeMismatch, v, t)
	}
	if from == t {
		return canonical, nil
	}

	fn, ok := conversions[pair{from: from, to: t}]
	if !ok {
		return nil, fmt.Errorf("%w: no conversion from %s to %s", ErrTypeMismatch, from, t)
	}
	out, err := fn(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s to %s: %v", ErrTypeMismatch, from, t, err)
	}
	return out, nil
}

// CanConvert reports whether the table has a path from one type to another.
func CanConvert(from, to Type) bool {
	if from == to || to == Any {
		return true
	}
	_, ok := conversions[pair{from: from, to: to}]
	return ok
}

// GoType names the canonical Go representation of t.
func GoType(t Type) string {
	if name, ok := canonicalNames[t]; ok {
		return name
	}
	return "any"
}

// TypeOf reports the Type a dynamic value would be classified as before any
// conversion. It is false for values no Type can hold.
func TypeOf(v any) (Type, bool) {
	t, _, ok := classify(v)
	return t, ok
}

// classify maps a dynamic value to its Type and canonical form.
// Narrow integer kinds widen to their 64-bit tag, plain slices and maps become
// fresh observable containers.
func classify(v any) (Type, any, bool) {
	switch x := v.(type) {
	case int:
		return Int, x, true
	case int8:
		return Int64, int64(x), true
	case int16:
		return Int64, int64(x), true
	case int32:
		return Int32, x, true
	case int64:
		return Int64, x, true
	case uint:
		return Uint, x, true
	case uint8:
		return Uint64, uint64(x), true
	case uint16:
		return Uint64, uint64(x), true
	case uint32:
		return Uint32, x, true
	case uint64:
		return Uint64, x, true
	case float32:
		return Float32, x, true
	case float64:
		return Float64, x, true
	case string:
		return String, x, true
	case bool:
		return Bool, x, true
	case []byte:
		return Bytes, x, true
	case time.Time:
		return Time, x, true
	case time.Duration:
		return Duration, x, true
	case *ListValue:
		return List, x, true
	case *RecordValue:
		return Record, x, true
	case []any:
		return List, NewList(x...), true
	case map[string]any:
		return Record, NewRecord(x), true
	default:
		return 0, nil, false
	}
}

type numberKind uint8

const (
	signed numberKind = iota
	unsigned
	floating
)

type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func asNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return number{kind: signed, i: int64(x)}, true
	case int32:
		return number{kind: signed, i: int64(x)}, true
	case int64:
		return number{kind: signed, i: x}, true
	case uint:
		return number{kind: unsigned, u: uint64(x)}, true
	case uint32:
		return number{kind: unsigned, u: uint64(x)}, true
	case uint64:
		return number{kind: unsigned, u: x}, true
	case float32:
		return number{kind: floating, f: float64(x)}, true
	case float64:
		return number{kind: floating, f: x}, true
	default:
		return number{}, false
	}
}

func parseNumber(s string) (number, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{kind: signed, i: i}, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return number{kind: unsigned, u: u}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return number{}, err
	}
	return number{kind: floating, f: f}, nil
}

func (n number) isZero() bool {
	switch n.kind {
	case signed:
		return n.i == 0
	case unsigned:
		return n.u == 0
	default:
		return n.f == 0
	}
}

func (n number) format() string {
	switch n.kind {
	case signed:
		return strconv.FormatInt(n.i, 10)
	case unsigned:
		return strconv.FormatUint(n.u, 10)
	default:
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
}

func (n number) float() float64 {
	switch n.kind {
	case signed:
		return float64(n.i)
	case unsigned:
		return float64(n.u)
	default:
		return n.f
	}
}

// toInt rounds floats half-to-even and rejects values outside [lo, hi].
func (n number) toInt(lo, hi int64) (int64, error) {
	switch n.kind {
	case signed:
		if n.i < lo || n.i > hi {
			return 0, errOverflow
		}
		return n.i, nil
	case unsigned:
		if n.u > uint64(hi) {
			return 0, errOverflow
		}
		return int64(n.u), nil
	default:
		if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
			return 0, errNotANumber
		}
		r := math.RoundToEven(n.f)
		if r < float64(lo) || r >= float64(hi)+1 {
			return 0, errOverflow
		}
		return int64(r), nil
	}
}

func (n number) toUint(hi uint64) (uint64, error) {
	switch n.kind {
	case signed:
		if n.i < 0 || uint64(n.i) > hi {
			return 0, errOverflow
		}
		return uint64(n.i), nil
	case unsigned:
		if n.u > hi {
			return 0, errOverflow
		}
		return n.u, nil
	default:
		if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
			return 0, errNotANumber
		}
		r := math.RoundToEven(n.f)
		if r < 0 || r >= float64(hi)+1 {
			return 0, errOverflow
		}
		return uint64(r), nil
	}
}

func numericTo(to Type) conversion {
	return func(v any) (any, error) {
		n, ok := asNumber(v)
		if !ok {
			return nil, fmt.Errorf("%T is not numeric", v)
		}
		return toNumeric(to, n)
	}
}

func toNumeric(to Type, n number) (any, error) {
	switch to {
	case Int:
		x, err := n.toInt(math.MinInt, math.MaxInt)
		return int(x), err
	case Int64:
		return n.toInt(math.MinInt64, math.MaxInt64)
	case Int32:
		x, err := n.toInt(math.MinInt32, math.MaxInt32)
		return int32(x), err
	case Uint:
		x, err := n.toUint(math.MaxUint)
		return uint(x), err
	case Uint64:
		return n.toUint(math.MaxUint64)
	case Uint32:
		x, err := n.toUint(math.MaxUint32)
		return uint32(x), err
	case Float64:
		return n.float(), nil
	case Float32:
		f := n.float()
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, errOverflow
		}
		return float32(f), nil
	default:
		return nil, fmt.Errorf("%s is not numeric", to)
	}
}
