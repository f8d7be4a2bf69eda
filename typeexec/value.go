package typeexec

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the lattice tag of an abstract value.
type Kind uint8

const (
	// KindNone is the zero Value: "no value produced".
	KindNone Kind = iota
	KindPrimitive
	KindReference
	KindUninitialized
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPrimitive:
		return "primitive"
	case KindReference:
		return "reference"
	case KindUninitialized:
		return "uninitialized"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Value is an abstract value occupying a local slot or stack entry. It is
// immutable and compared by value. The optional constant (int32, int64,
// float32, float64, string, or a Type for class literals) is only used for
// folding.
type Value struct {
	kind Kind
	typ  Type
	cst  any
}

var (
	// Null is the aconst_null value; it merges with any reference.
	Null = Value{kind: KindNull}
	// Uninitialized is the lattice bottom used for unset locals, the upper
	// half of category-2 locals, and incompatible merges.
	Uninitialized = Value{kind: KindUninitialized}
)

// ValueOf returns an unknown value of the given type. The zero Type yields
// Uninitialized and void yields the zero Value.
func ValueOf(t Type) Value {
	switch {
	case t.IsZero():
		return Uninitialized
	case t.sort == SortVoid:
		return Value{}
	case t.IsPrimitive():
		return Value{kind: KindPrimitive, typ: t}
	default:
		return Value{kind: KindReference, typ: t}
	}
}

func IntValue(v int32) Value      { return Value{KindPrimitive, IntType, v} }
func LongValue(v int64) Value     { return Value{KindPrimitive, LongType, v} }
func FloatValue(v float32) Value  { return Value{KindPrimitive, FloatType, v} }
func DoubleValue(v float64) Value { return Value{KindPrimitive, DoubleType, v} }

// StringValue is a java/lang/String reference carrying its literal.
func StringValue(s string) Value { return Value{KindReference, StringType, s} }

// ClassLiteral is a java/lang/Class reference for the literal t.class.
func ClassLiteral(t Type) Value { return Value{KindReference, ClassType, t} }

// narrowed builds an int-family value with a sub-int descriptor.
func narrowed(t Type, v int32) Value { return Value{KindPrimitive, t, v} }

func (v Value) Kind() Kind { return v.kind }

// Type returns the value's descriptor; the zero Type for Null,
// Uninitialized and the zero Value.
func (v Value) Type() Type { return v.typ }

// Constant returns the tracked constant, if any.
func (v Value) Constant() (any, bool) { return v.cst, v.cst != nil }

func (v Value) IsValid() bool          { return v.kind != KindNone }
func (v Value) IsPrimitive() bool      { return v.kind == KindPrimitive }
func (v Value) IsUninitialized() bool  { return v.kind == KindUninitialized }
func (v Value) IsNullConstant() bool   { return v.kind == KindNull }
func (v Value) hasConstant() bool      { return v.cst != nil }
func (v Value) withoutConstant() Value { return Value{kind: v.kind, typ: v.typ} }

// IsReference reports whether the value is an object, array or null.
func (v Value) IsReference() bool {
	return v.kind == KindReference || v.kind == KindNull
}

// IsArray reports whether the value is statically known to be an array.
func (v Value) IsArray() bool {
	return v.kind == KindReference && v.typ.sort == SortArray
}

// Size is the number of slots the value occupies.
func (v Value) Size() int {
	if v.kind == KindPrimitive {
		return v.typ.Size()
	}
	if v.kind == KindNone {
		return 0
	}
	return 1
}

// IntConstant returns the constant of an int-family value.
func (v Value) IntConstant() (int32, bool) {
	c, ok := v.cst.(int32)
	return c, ok
}

// Equal compares kind, type and constant. Float constants compare by bit
// pattern so that NaN equals itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.typ != o.typ {
		return false
	}
	switch a := v.cst.(type) {
	case float32:
		b, ok := o.cst.(float32)
		return ok && math.Float32bits(a) == math.Float32bits(b)
	case float64:
		b, ok := o.cst.(float64)
		return ok && math.Float64bits(a) == math.Float64bits(b)
	default:
		return v.cst == o.cst
	}
}

// String renders the value compactly: I, I(5), Ljava/lang/String;("x"),
// null, uninit.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "-"
	case KindNull:
		return "null"
	case KindUninitialized:
		return "uninit"
	}
	if v.cst == nil {
		return v.typ.desc
	}
	return v.typ.desc + "(" + formatConstant(v.cst) + ")"
}

func formatConstant(c any) string {
	switch x := c.(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return strconv.Quote(x)
	case Type:
		return x.desc
	default:
		return fmt.Sprint(c)
	}
}
