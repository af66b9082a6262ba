package dbkit

import (
	"fmt"
	"time"
)

// ParamKind identifies one of the scalar kinds the driver layer supports.
type ParamKind int

// Supported bind-parameter kinds.
const (
	ParamNull ParamKind = iota
	ParamInt
	ParamText
	ParamTimestamp
	ParamBool
	ParamBytes
)

// Param is one positional bind value for a statement. The set of kinds is
// closed: anything the driver layer cannot bind is rejected up front by Bind
// instead of being passed through as an opaque value.
type Param struct {
	kind ParamKind
	i    int64
	s    string
	t    time.Time
	b    bool
	raw  []byte
}

// Int builds an integer parameter.
func Int(v int64) Param { return Param{kind: ParamInt, i: v} }

// Text builds a text parameter.
func Text(v string) Param { return Param{kind: ParamText, s: v} }

// Timestamp builds a timestamp parameter. The value is normalized to UTC
// when bound, so a local wall-clock time reaches the driver as the
// equivalent native timestamp.
func Timestamp(v time.Time) Param { return Param{kind: ParamTimestamp, t: v} }

// Bool builds a boolean parameter.
func Bool(v bool) Param { return Param{kind: ParamBool, b: v} }

// Bytes builds a binary parameter.
func Bytes(v []byte) Param { return Param{kind: ParamBytes, raw: v} }

// Null builds a NULL parameter.
func Null() Param { return Param{kind: ParamNull} }

// Kind returns the parameter's scalar kind.
func (p Param) Kind() ParamKind { return p.kind }

// driverValue converts the parameter to the value handed to the driver.
// Timestamps are the one kind with a conversion step; everything else
// passes through unchanged.
func (p Param) driverValue() any {
	switch p.kind {
	case ParamInt:
		return p.i
	case ParamText:
		return p.s
	case ParamTimestamp:
		return p.t.UTC()
	case ParamBool:
		return p.b
	case ParamBytes:
		return p.raw
	default:
		return nil
	}
}

// Bind builds a parameter list from dynamic Go values. Integer widths are
// widened to int64. A value outside the supported scalar kinds is an error
// rather than a pass-through.
func Bind(values ...any) ([]Param, error) {
	params := make([]Param, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case nil:
			params[i] = Null()
		case int:
			params[i] = Int(int64(v))
		case int32:
			params[i] = Int(int64(v))
		case int64:
			params[i] = Int(v)
		case string:
			params[i] = Text(v)
		case time.Time:
			params[i] = Timestamp(v)
		case bool:
			params[i] = Bool(v)
		case []byte:
			params[i] = Bytes(v)
		case Param:
			params[i] = v
		default:
			return nil, fmt.Errorf("bind value %d has unsupported type %T", i, v)
		}
	}
	return params, nil
}

// bindArgs converts parameters to the positional argument list passed to
// database/sql. Placeholders are 1-indexed at the driver level; the slice
// order here is what determines the binding order.
func bindArgs(params []Param) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.driverValue()
	}
	return args
}
