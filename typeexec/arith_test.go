package typeexec

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestArithFolding(t *testing.T) {
	tests := []struct {
		name string
		a    Value
		op   ArithOp
		b    Value
		want Value
	}{
		{"add", IntValue(2), OpAdd, IntValue(3), IntValue(5)},
		{"overflow wraps", IntValue(math.MaxInt32), OpAdd, IntValue(1), IntValue(math.MinInt32)},
		{"division by zero is unknown", IntValue(1), OpDiv, IntValue(0), ValueOf(IntType)},
		{"remainder by zero is unknown", LongValue(1), OpRem, LongValue(0), ValueOf(LongType)},
		{"shift distance masked", IntValue(1), OpShl, IntValue(33), IntValue(2)},
		{"unsigned shift", IntValue(-8), OpUshr, IntValue(28), IntValue(15)},
		{"long shift takes int", LongValue(1), OpShl, IntValue(40), LongValue(1 << 40)},
		{"long xor", LongValue(6), OpXor, LongValue(3), LongValue(5)},
		{"narrow operand folds", narrowed(ByteType, 3), OpAdd, IntValue(4), IntValue(7)},
		{"unknown operand", IntValue(1), OpAdd, ValueOf(IntType), ValueOf(IntType)},
		{"unknown byte widens", ValueOf(ByteType), OpMul, IntValue(2), ValueOf(IntType)},
		{"float mul", FloatValue(1.5), OpMul, FloatValue(2), FloatValue(3)},
		{"double rem", DoubleValue(5.5), OpRem, DoubleValue(2), DoubleValue(1.5)},
		{"float division by zero", FloatValue(1), OpDiv, FloatValue(0), FloatValue(float32(math.Inf(1)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Arith(tt.op, tt.b)
			if diff := cmp.Diff(tt.want, got, valueCmp); diff != "" {
				t.Errorf("%s %s %s mismatch (-want +got):\n%s", tt.a, tt.op, tt.b, diff)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		to   Type
		want Value
	}{
		{"i2b narrows", IntValue(200), ByteType, narrowed(ByteType, -56)},
		{"i2c truncates", IntValue(65536 + 65), CharType, narrowed(CharType, 65)},
		{"i2s sign extends", IntValue(40000), ShortType, narrowed(ShortType, -25536)},
		{"d2i saturates high", DoubleValue(1e20), IntType, IntValue(math.MaxInt32)},
		{"d2i saturates low", DoubleValue(-1e20), IntType, IntValue(math.MinInt32)},
		{"d2i NaN", DoubleValue(math.NaN()), IntType, IntValue(0)},
		{"d2l saturates", DoubleValue(-1e30), LongType, LongValue(math.MinInt64)},
		{"f2i truncates", FloatValue(-2.75), IntType, IntValue(-2)},
		{"f2d exact", FloatValue(2.5), DoubleType, DoubleValue(2.5)},
		{"l2i keeps low bits", LongValue(1<<33 + 7), IntType, IntValue(7)},
		{"i2l", IntValue(-1), LongType, LongValue(-1)},
		{"unknown stays unknown", ValueOf(IntType), LongType, ValueOf(LongType)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Convert(tt.to)
			if diff := cmp.Diff(tt.want, got, valueCmp); diff != "" {
				t.Errorf("Convert(%s, %s) mismatch (-want +got):\n%s", tt.v, tt.to, diff)
			}
		})
	}
}

func TestCompareAndNeg(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name string
		got  Value
		want Value
	}{
		{"lcmp less", LongValue(3).Compare(LongValue(5), -1), IntValue(-1)},
		{"lcmp equal", LongValue(5).Compare(LongValue(5), -1), IntValue(0)},
		{"dcmpl greater", DoubleValue(3).Compare(DoubleValue(2), -1), IntValue(1)},
		{"fcmpg NaN", FloatValue(nan).Compare(FloatValue(1), 1), IntValue(1)},
		{"fcmpl NaN", FloatValue(1).Compare(FloatValue(nan), -1), IntValue(-1)},
		{"unknown operand", LongValue(1).Compare(ValueOf(LongType), -1), ValueOf(IntType)},
		{"neg int", IntValue(5).Neg(), IntValue(-5)},
		{"neg min int wraps", IntValue(math.MinInt32).Neg(), IntValue(math.MinInt32)},
		{"neg unknown byte", ValueOf(ByteType).Neg(), ValueOf(IntType)},
		{"neg double", DoubleValue(1.5).Neg(), DoubleValue(-1.5)},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.got, valueCmp); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}
