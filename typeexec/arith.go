package typeexec

import "math"

// ArithOp is a binary numeric operation.
type ArithOp uint8

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpUshr
	OpAnd
	OpOr
	OpXor
)

var arithNames = [...]string{"add", "sub", "mul", "div", "rem", "shl", "shr", "ushr", "and", "or", "xor"}

func (op ArithOp) String() string {
	if int(op) < len(arithNames) {
		return arithNames[op]
	}
	return "unknown"
}

// Arith applies op to v and o. Callers have already checked operand types;
// the result takes v's type (int-family widened to int). Constants fold with
// Java semantics when both sides carry one; integer division by a known zero
// yields an unknown value rather than a diagnostic.
func (v Value) Arith(op ArithOp, o Value) Value {
	result := ValueOf(v.typ.intFamily())
	if !v.hasConstant() || !o.hasConstant() {
		return result
	}
	switch a := v.cst.(type) {
	case int32:
		b, ok := o.cst.(int32)
		if !ok {
			return result
		}
		if r, ok := foldInt(op, a, b); ok {
			return IntValue(r)
		}
	case int64:
		switch b := o.cst.(type) {
		case int64:
			if r, ok := foldLong(op, a, b); ok {
				return LongValue(r)
			}
		case int32:
			// Long shifts take an int distance.
			if r, ok := foldLong(op, a, int64(b)); ok && isShift(op) {
				return LongValue(r)
			}
		}
	case float32:
		if b, ok := o.cst.(float32); ok {
			if r, ok := foldDouble(op, float64(a), float64(b)); ok {
				return FloatValue(float32(r))
			}
		}
	case float64:
		if b, ok := o.cst.(float64); ok {
			if r, ok := foldDouble(op, a, b); ok {
				return DoubleValue(r)
			}
		}
	}
	return result
}

func isShift(op ArithOp) bool { return op == OpShl || op == OpShr || op == OpUshr }

func foldInt(op ArithOp, a, b int32) (int32, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case OpRem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case OpShl:
		return a << uint32(b&31), true
	case OpShr:
		return a >> uint32(b&31), true
	case OpUshr:
		return int32(uint32(a) >> uint32(b&31)), true
	case OpAnd:
		return a & b, true
	case OpOr:
		return a | b, true
	case OpXor:
		return a ^ b, true
	}
	return 0, false
}

func foldLong(op ArithOp, a, b int64) (int64, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case OpRem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case OpShl:
		return a << uint64(b&63), true
	case OpShr:
		return a >> uint64(b&63), true
	case OpUshr:
		return int64(uint64(a) >> uint64(b&63)), true
	case OpAnd:
		return a & b, true
	case OpOr:
		return a | b, true
	case OpXor:
		return a ^ b, true
	}
	return 0, false
}

func foldDouble(op ArithOp, a, b float64) (float64, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpDiv:
		return a / b, true
	case OpRem:
		return math.Mod(a, b), true
	}
	return 0, false
}

// Neg negates a numeric value, folding a known constant.
func (v Value) Neg() Value {
	switch c := v.cst.(type) {
	case int32:
		return IntValue(-c)
	case int64:
		return LongValue(-c)
	case float32:
		return FloatValue(-c)
	case float64:
		return DoubleValue(-c)
	}
	return ValueOf(v.typ.intFamily())
}

// Convert applies a primitive conversion (i2l, d2i, i2b, ...) to v. Sub-int
// targets keep their narrowed descriptor with the truncated constant.
func (v Value) Convert(to Type) Value {
	if !v.hasConstant() {
		return ValueOf(to)
	}
	var i int64
	var f float64
	isFloat := false
	switch c := v.cst.(type) {
	case int32:
		i = int64(c)
	case int64:
		i = c
	case float32:
		f, isFloat = float64(c), true
	case float64:
		f, isFloat = c, true
	default:
		return ValueOf(to)
	}
	switch to.sort {
	case SortInt:
		if isFloat {
			return IntValue(d2i(f))
		}
		return IntValue(int32(i))
	case SortLong:
		if isFloat {
			return LongValue(d2l(f))
		}
		return LongValue(i)
	case SortFloat:
		if isFloat {
			return FloatValue(float32(f))
		}
		return FloatValue(float32(i))
	case SortDouble:
		if isFloat {
			if c, ok := v.cst.(float32); ok {
				return DoubleValue(float64(c))
			}
			return DoubleValue(f)
		}
		return DoubleValue(float64(i))
	case SortByte:
		return narrowed(ByteType, int32(int8(i)))
	case SortChar:
		return narrowed(CharType, int32(uint16(i)))
	case SortShort:
		return narrowed(ShortType, int32(int16(i)))
	}
	return ValueOf(to)
}

// d2i and d2l follow JLS 5.1.3: NaN maps to zero and out-of-range values
// saturate.
func d2i(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func d2l(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Compare folds lcmp/fcmpl/fcmpg/dcmpl/dcmpg. nanResult is the value pushed
// when either operand is NaN (-1 for the *l forms, 1 for the *g forms).
func (v Value) Compare(o Value, nanResult int32) Value {
	if !v.hasConstant() || !o.hasConstant() {
		return ValueOf(IntType)
	}
	var a, b float64
	switch x := v.cst.(type) {
	case int64:
		y, ok := o.cst.(int64)
		if !ok {
			return ValueOf(IntType)
		}
		return IntValue(cmp3(x, y))
	case float32:
		y, ok := o.cst.(float32)
		if !ok {
			return ValueOf(IntType)
		}
		a, b = float64(x), float64(y)
	case float64:
		y, ok := o.cst.(float64)
		if !ok {
			return ValueOf(IntType)
		}
		a, b = x, y
	default:
		return ValueOf(IntType)
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return IntValue(nanResult)
	}
	return IntValue(cmp3(a, b))
}

func cmp3[T int64 | float64](a, b T) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
