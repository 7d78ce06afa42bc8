package fields

import (
	"fmt"
	"strings"
	"time"
)

// Type is the declared type tag of an attribute value.
type Type uint8

const (
	Int Type = iota
	Int64
	Int32
	Uint
	Uint64
	Uint32
	Float64
	Float32
	String
	Bool
	Bytes
	Time
	Duration
	// List is an observable ordered container (*ListValue). It announces container changes.
	List
	// Record is an observable property bag (*RecordValue). It announces property changes.
	Record
	// Any accepts every value as-is and performs no conversion.
	Any
)

var typeNames = [...]string{
	Int:      "int",
	Int64:    "int64",
	Int32:    "int32",
	Uint:     "uint",
	Uint64:   "uint64",
	Uint32:   "uint32",
	Float64:  "float64",
	Float32:  "float32",
	String:   "string",
	Bool:     "bool",
	Bytes:    "bytes",
	Time:     "time",
	Duration: "duration",
	List:     "list",
	Record:   "record",
	Any:      "any",
}

var typeAliases = map[string]Type{
	"integer": Int64,
	"float":   Float64,
	"double":  Float64,
	"boolean": Bool,
	"str":     String,
	"array":   List,
	"object":  Record,
	"map":     Record,
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is one of the declared type tags.
func (t Type) Valid() bool {
	return t <= Any
}

// Nullable reports whether nil is a legal value for t.
func (t Type) Nullable() bool {
	switch t {
	case Bytes, List, Record, Any:
		return true
	default:
		return false
	}
}

// ParseType resolves a type name as written in schema documents.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return Type(t), nil
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Zero returns the zero value of t. Containers get a fresh empty instance.
func Zero(t Type) any {
	switch t {
	case Int:
		return 0
	case Int64:
		return int64(0)
	case Int32:
		return int32(0)
	case Uint:
		return uint(0)
	case Uint64:
		return uint64(0)
	case Uint32:
		return uint32(0)
	case Float64:
		return float64(0)
	case Float32:
		return float32(0)
	case String:
		return ""
	case Bool:
		return false
	case Time:
		return time.Time{}
	case Duration:
		return time.Duration(0)
	case List:
		return NewList()
	case Record:
		return NewRecord(nil)
	default:
		return nil
	}
}

// Capabilities reports which nested-change notifications values of t provide.
func Capabilities(t Type) (container, property bool) {
	switch t {
	case List:
		return true, false
	case Record:
		return false, true
	default:
		return false, false
	}
}
