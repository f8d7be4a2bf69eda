package typeexec

import (
	"fmt"
	"math"

	tf "github.com/bytecode-tools/typeflow"
)

var (
	intArray     = MustParseType("[I")
	longArray    = MustParseType("[J")
	floatArray   = MustParseType("[F")
	doubleArray  = MustParseType("[D")
	byteArray    = MustParseType("[B")
	booleanArray = MustParseType("[Z")
	charArray    = MustParseType("[C")
	shortArray   = MustParseType("[S")
	objectArray  = MustParseType("[Ljava/lang/Object;")

	methodTypeType   = ObjectTypeOf("java/lang/invoke/MethodType")
	methodHandleType = ObjectTypeOf("java/lang/invoke/MethodHandle")
)

// interpreter holds the transfer functions: one family per operand count.
// Each returns the produced value (the zero Value when nothing is pushed) or
// a failure.
type interpreter struct {
	h   Hierarchy
	ret Type
}

// localType is the primitive type a load/store opcode declares; the zero
// Type for aload/astore.
func localType(op tf.Opcode) Type {
	var family int
	switch {
	case op >= tf.Iload && op <= tf.Aload:
		family = int(op - tf.Iload)
	case op >= tf.Iload0 && op <= tf.Aload3:
		family = int(op-tf.Iload0) / 4
	case op >= tf.Istore && op <= tf.Astore:
		family = int(op - tf.Istore)
	case op >= tf.Istore0 && op <= tf.Astore3:
		family = int(op-tf.Istore0) / 4
	}
	switch family {
	case 0:
		return IntType
	case 1:
		return LongType
	case 2:
		return FloatType
	case 3:
		return DoubleType
	}
	return Type{}
}

func fieldType(in *tf.Instruction) (Type, error) {
	t, err := ParseType(in.Desc)
	if err != nil || t.Sort() == SortVoid {
		return Type{}, fail(TypeMismatch, "malformed field descriptor %q", in.Desc)
	}
	return t, nil
}

// classType resolves a class operand: an internal name or an array
// descriptor.
func classType(name string) (Type, error) {
	if name == "" {
		return Type{}, fmt.Errorf("missing class operand")
	}
	t := ObjectTypeOf(name)
	if t.Sort() == SortArray {
		if _, err := ParseType(name); err != nil {
			return Type{}, err
		}
	}
	return t, nil
}

func (it *interpreter) newOperation(in *tf.Instruction) (Value, error) {
	switch op := in.Op; {
	case op == tf.AconstNull:
		return Null, nil
	case op >= tf.IconstM1 && op <= tf.Iconst5:
		return IntValue(int32(op - tf.Iconst0)), nil
	case op == tf.Lconst0 || op == tf.Lconst1:
		return LongValue(int64(op - tf.Lconst0)), nil
	case op >= tf.Fconst0 && op <= tf.Fconst2:
		return FloatValue(float32(op - tf.Fconst0)), nil
	case op == tf.Dconst0 || op == tf.Dconst1:
		return DoubleValue(float64(op - tf.Dconst0)), nil
	case op == tf.Bipush || op == tf.Sipush:
		return IntValue(int32(in.Operand)), nil
	case op == tf.Ldc || op == tf.LdcW || op == tf.Ldc2W:
		return ldcValue(in)
	case op == tf.Getstatic:
		t, err := fieldType(in)
		if err != nil {
			return Value{}, err
		}
		return ValueOf(t), nil
	case op == tf.New:
		t, err := classType(in.Type)
		if err != nil || t.Sort() != SortObject {
			return Value{}, fail(TypeMismatch, "new requires a class, got %q", in.Type)
		}
		return ValueOf(t), nil
	}
	return Value{}, fail(UnsupportedInstruction, "%s is not a producer", in.Op)
}

func ldcValue(in *tf.Instruction) (Value, error) {
	var v Value
	switch c := in.Const.(type) {
	case int32:
		v = IntValue(c)
	case int:
		if c < math.MinInt32 || c > math.MaxInt32 {
			return Value{}, fail(IllegalConstant, "int constant %d out of range", c)
		}
		v = IntValue(int32(c))
	case int64:
		v = LongValue(c)
	case float32:
		v = FloatValue(c)
	case float64:
		v = DoubleValue(c)
	case string:
		v = StringValue(c)
	case tf.ClassConst:
		t, err := classType(string(c))
		if err != nil {
			return Value{}, fail(IllegalConstant, "illegal class literal %q", string(c))
		}
		v = ClassLiteral(t)
	case tf.MethodTypeConst:
		if _, err := ParseMethodDescriptor(string(c)); err != nil {
			return Value{}, fail(IllegalConstant, "illegal method type %q", string(c))
		}
		v = ValueOf(methodTypeType)
	case tf.HandleConst:
		v = ValueOf(methodHandleType)
	case tf.DynamicConst:
		t, err := ParseType(c.Desc)
		if err != nil || t.Sort() == SortVoid {
			return Value{}, fail(IllegalConstant, "illegal dynamic constant type %q", c.Desc)
		}
		v = ValueOf(t)
	default:
		return Value{}, fail(IllegalConstant, "illegal LDC value %v (%T)", in.Const, in.Const)
	}
	wide := v.Size() == 2
	if wide != (in.Op == tf.Ldc2W) {
		return Value{}, fail(IllegalConstant, "%s cannot load a category-%d constant", in.Op, v.Size())
	}
	return v, nil
}

// copyOperation covers loads and stores. Primitive loads re-derive the value
// from the opcode's type; reference loads and stores forward the value.
func (it *interpreter) copyOperation(in *tf.Instruction, v Value, load bool) (Value, error) {
	want := localType(in.Op)
	if want.IsZero() {
		if !v.IsReference() {
			if v.IsUninitialized() {
				return Value{}, mismatch(TypeMismatch, "read of an uninitialized slot", ObjectType, v)
			}
			return Value{}, mismatch(TypeMismatch, "cannot mix primitive with reference instruction", ObjectType, v)
		}
		return v, nil
	}
	switch {
	case v.IsUninitialized():
		return Value{}, mismatch(TypeMismatch, "read of an uninitialized slot", want, v)
	case v.IsReference():
		return Value{}, mismatch(TypeMismatch, "cannot mix reference with primitive instruction", want, v)
	case !isSubtypeOf(v.typ, want, it.h):
		return Value{}, mismatch(TypeMismatch, "wrong primitive type", want, v)
	}
	if load {
		return ValueOf(want), nil
	}
	return v, nil
}

// iinc increments an int local, folding a known constant.
func (it *interpreter) iinc(in *tf.Instruction, v Value) (Value, error) {
	if !v.IsPrimitive() || v.typ.intFamily() != IntType {
		return Value{}, mismatch(TypeMismatch, "iinc on a non-int local", IntType, v)
	}
	if c, ok := v.IntConstant(); ok {
		return IntValue(c + int32(in.Incr)), nil
	}
	return ValueOf(IntType), nil
}

func (it *interpreter) require(v Value, want Type, what string) error {
	if !isSubtypeOfOrNull(v, want, it.h) {
		return mismatch(TypeMismatch, what, want, v)
	}
	return nil
}

func requireReference(v Value, what string) error {
	if !v.IsReference() {
		return mismatch(TypeMismatch, what, ObjectType, v)
	}
	return nil
}

// unaryOperation covers every instruction popping exactly one value.
func (it *interpreter) unaryOperation(in *tf.Instruction, v Value) (Value, error) {
	op := in.Op
	switch op {
	case tf.Ineg, tf.Lneg, tf.Fneg, tf.Dneg:
		want := [...]Type{IntType, LongType, FloatType, DoubleType}[op-tf.Ineg]
		if err := it.requireExact(v, want); err != nil {
			return Value{}, err
		}
		return v.Neg(), nil

	case tf.I2l, tf.I2f, tf.I2d, tf.L2i, tf.L2f, tf.L2d, tf.F2i, tf.F2l, tf.F2d,
		tf.D2i, tf.D2l, tf.D2f, tf.I2b, tf.I2c, tf.I2s:
		from, to := conversion(op)
		if err := it.requireExact(v, from); err != nil {
			return Value{}, err
		}
		return v.Convert(to), nil

	case tf.Ifeq, tf.Ifne, tf.Iflt, tf.Ifge, tf.Ifgt, tf.Ifle, tf.Tableswitch, tf.Lookupswitch:
		return Value{}, it.requireExact(v, IntType)

	case tf.Ifnull, tf.Ifnonnull, tf.Monitorenter, tf.Monitorexit:
		return Value{}, requireReference(v, "expected a reference type")

	case tf.Ireturn, tf.Lreturn, tf.Freturn, tf.Dreturn:
		want := [...]Type{IntType, LongType, FloatType, DoubleType}[op-tf.Ireturn]
		return Value{}, it.requireExact(v, want)

	case tf.Areturn:
		return Value{}, requireReference(v, "expected a reference return value")

	case tf.Athrow:
		return Value{}, requireReference(v, "thrown value is not a reference")

	case tf.Putstatic:
		t, err := fieldType(in)
		if err != nil {
			return Value{}, err
		}
		return Value{}, it.require(v, t, "value does not match field type")

	case tf.Getfield:
		t, err := fieldType(in)
		if err != nil {
			return Value{}, err
		}
		owner, err := classType(in.Owner)
		if err != nil {
			return Value{}, fail(TypeMismatch, "field owner %q: %v", in.Owner, err)
		}
		if err := it.require(v, owner, "receiver is not an instance of the field owner"); err != nil {
			return Value{}, err
		}
		return ValueOf(t), nil

	case tf.Newarray:
		if err := it.requireExact(v, IntType); err != nil {
			return Value{}, err
		}
		t, ok := newarrayType(in.Operand)
		if !ok {
			return Value{}, fail(InvalidArrayOperation, "invalid newarray type code %d", in.Operand)
		}
		return ValueOf(t), nil

	case tf.Anewarray:
		if err := it.requireExact(v, IntType); err != nil {
			return Value{}, err
		}
		t, err := classType(in.Type)
		if err != nil {
			return Value{}, fail(InvalidArrayOperation, "anewarray with component %q: %v", in.Type, err)
		}
		return ValueOf(ArrayOf(t)), nil

	case tf.Arraylength:
		if err := requireReference(v, "expected an array reference"); err != nil {
			return Value{}, err
		}
		if v.kind == KindReference && v.typ.sort != SortArray {
			return Value{}, mismatch(InvalidArrayOperation, "arraylength on a non-array", objectArray, v)
		}
		return ValueOf(IntType), nil

	case tf.Checkcast:
		if err := requireReference(v, "checkcast of a non-reference"); err != nil {
			return Value{}, err
		}
		t, err := classType(in.Type)
		if err != nil {
			return Value{}, fail(TypeMismatch, "checkcast to %q: %v", in.Type, err)
		}
		return ValueOf(t), nil

	case tf.Instanceof:
		if err := requireReference(v, "instanceof of a non-reference"); err != nil {
			return Value{}, err
		}
		return ValueOf(IntType), nil
	}
	return Value{}, fail(UnsupportedInstruction, "%s is not a unary operation", op)
}

// requireExact checks a numeric operand: int-family for int, and the same
// primitive type otherwise.
func (it *interpreter) requireExact(v Value, want Type) error {
	if !v.IsPrimitive() || v.typ.intFamily() != want {
		return mismatch(TypeMismatch, "operand has the wrong type", want, v)
	}
	return nil
}

func conversion(op tf.Opcode) (from, to Type) {
	switch op {
	case tf.I2l:
		return IntType, LongType
	case tf.I2f:
		return IntType, FloatType
	case tf.I2d:
		return IntType, DoubleType
	case tf.L2i:
		return LongType, IntType
	case tf.L2f:
		return LongType, FloatType
	case tf.L2d:
		return LongType, DoubleType
	case tf.F2i:
		return FloatType, IntType
	case tf.F2l:
		return FloatType, LongType
	case tf.F2d:
		return FloatType, DoubleType
	case tf.D2i:
		return DoubleType, IntType
	case tf.D2l:
		return DoubleType, LongType
	case tf.D2f:
		return DoubleType, FloatType
	case tf.I2b:
		return IntType, ByteType
	case tf.I2c:
		return IntType, CharType
	default:
		return IntType, ShortType
	}
}

func newarrayType(code int) (Type, bool) {
	switch code {
	case tf.TBoolean:
		return booleanArray, true
	case tf.TChar:
		return charArray, true
	case tf.TFloat:
		return floatArray, true
	case tf.TDouble:
		return doubleArray, true
	case tf.TByte:
		return byteArray, true
	case tf.TShort:
		return shortArray, true
	case tf.TInt:
		return intArray, true
	case tf.TLong:
		return longArray, true
	}
	return Type{}, false
}

// arrayFor resolves the array type an array load/store expects. baload and
// bastore serve both boolean and byte arrays; boolean is chosen only when the
// operand is provably a boolean array.
func (it *interpreter) arrayFor(op tf.Opcode, array Value) Type {
	switch op {
	case tf.Iaload, tf.Iastore:
		return intArray
	case tf.Laload, tf.Lastore:
		return longArray
	case tf.Faload, tf.Fastore:
		return floatArray
	case tf.Daload, tf.Dastore:
		return doubleArray
	case tf.Caload, tf.Castore:
		return charArray
	case tf.Saload, tf.Sastore:
		return shortArray
	case tf.Baload, tf.Bastore:
		if array.kind == KindReference && array.typ == booleanArray {
			return booleanArray
		}
		return byteArray
	}
	return objectArray
}

var arithOps = map[tf.Opcode]ArithOp{
	tf.Iadd: OpAdd, tf.Ladd: OpAdd, tf.Fadd: OpAdd, tf.Dadd: OpAdd,
	tf.Isub: OpSub, tf.Lsub: OpSub, tf.Fsub: OpSub, tf.Dsub: OpSub,
	tf.Imul: OpMul, tf.Lmul: OpMul, tf.Fmul: OpMul, tf.Dmul: OpMul,
	tf.Idiv: OpDiv, tf.Ldiv: OpDiv, tf.Fdiv: OpDiv, tf.Ddiv: OpDiv,
	tf.Irem: OpRem, tf.Lrem: OpRem, tf.Frem: OpRem, tf.Drem: OpRem,
	tf.Ishl: OpShl, tf.Lshl: OpShl, tf.Ishr: OpShr, tf.Lshr: OpShr,
	tf.Iushr: OpUshr, tf.Lushr: OpUshr, tf.Iand: OpAnd, tf.Land: OpAnd,
	tf.Ior: OpOr, tf.Lor: OpOr, tf.Ixor: OpXor, tf.Lxor: OpXor,
}

// binaryOperands returns the types a numeric binary instruction expects.
func binaryOperands(op tf.Opcode) (Type, Type, bool) {
	switch op {
	case tf.Iadd, tf.Isub, tf.Imul, tf.Idiv, tf.Irem, tf.Ishl, tf.Ishr, tf.Iushr, tf.Iand, tf.Ior, tf.Ixor,
		tf.IfIcmpeq, tf.IfIcmpne, tf.IfIcmplt, tf.IfIcmpge, tf.IfIcmpgt, tf.IfIcmple:
		return IntType, IntType, true
	case tf.Fadd, tf.Fsub, tf.Fmul, tf.Fdiv, tf.Frem, tf.Fcmpl, tf.Fcmpg:
		return FloatType, FloatType, true
	case tf.Ladd, tf.Lsub, tf.Lmul, tf.Ldiv, tf.Lrem, tf.Land, tf.Lor, tf.Lxor, tf.Lcmp:
		return LongType, LongType, true
	case tf.Lshl, tf.Lshr, tf.Lushr:
		return LongType, IntType, true
	case tf.Dadd, tf.Dsub, tf.Dmul, tf.Ddiv, tf.Drem, tf.Dcmpl, tf.Dcmpg:
		return DoubleType, DoubleType, true
	}
	return Type{}, Type{}, false
}

// binaryOperation covers array loads, numeric binaries and comparisons,
// two-operand branches and putfield. v1 is the deeper stack value.
func (it *interpreter) binaryOperation(in *tf.Instruction, v1, v2 Value) (Value, error) {
	op := in.Op
	switch {
	case op >= tf.Iaload && op <= tf.Saload:
		want := it.arrayFor(op, v1)
		if !isSubtypeOfOrNull(v1, want, it.h) {
			return Value{}, mismatch(InvalidArrayOperation, "array operand has the wrong kind", want, v1)
		}
		if err := it.requireExact(v2, IntType); err != nil {
			return Value{}, err
		}
		switch op {
		case tf.Laload:
			return ValueOf(LongType), nil
		case tf.Faload:
			return ValueOf(FloatType), nil
		case tf.Daload:
			return ValueOf(DoubleType), nil
		case tf.Aaload:
			if elem, ok := v1.typ.ComponentType(); ok && v1.kind == KindReference {
				return ValueOf(elem), nil
			}
			return ValueOf(ObjectType), nil
		}
		return ValueOf(IntType), nil

	case op == tf.IfAcmpeq || op == tf.IfAcmpne:
		if err := requireReference(v1, "first operand is not a reference"); err != nil {
			return Value{}, err
		}
		return Value{}, requireReference(v2, "second operand is not a reference")

	case op == tf.Putfield:
		t, err := fieldType(in)
		if err != nil {
			return Value{}, err
		}
		owner, err := classType(in.Owner)
		if err != nil {
			return Value{}, fail(TypeMismatch, "field owner %q: %v", in.Owner, err)
		}
		if err := it.require(v1, owner, "receiver is not an instance of the field owner"); err != nil {
			return Value{}, err
		}
		return Value{}, it.require(v2, t, "value does not match field type")
	}

	want1, want2, ok := binaryOperands(op)
	if !ok {
		return Value{}, fail(UnsupportedInstruction, "%s is not a binary operation", op)
	}
	if err := it.requireExact(v1, want1); err != nil {
		return Value{}, err
	}
	if err := it.requireExact(v2, want2); err != nil {
		return Value{}, err
	}
	switch op {
	case tf.Lcmp, tf.Fcmpl, tf.Dcmpl:
		return v1.Compare(v2, -1), nil
	case tf.Fcmpg, tf.Dcmpg:
		return v1.Compare(v2, 1), nil
	case tf.IfIcmpeq, tf.IfIcmpne, tf.IfIcmplt, tf.IfIcmpge, tf.IfIcmpgt, tf.IfIcmple:
		return Value{}, nil
	}
	return v1.Arith(arithOps[op], v2), nil
}

// ternaryOperation covers the array stores.
func (it *interpreter) ternaryOperation(in *tf.Instruction, array, index, value Value) (Value, error) {
	op := in.Op
	want := it.arrayFor(op, array)
	var elem Type
	if op == tf.Aastore {
		if array.kind == KindReference && !(array.IsArray() && array.typ.ElementType().IsReference() ||
			array.typ.Dimensions() > 1) {
			return Value{}, mismatch(InvalidArrayOperation, "aastore into a non-reference array", objectArray, array)
		}
		if array.kind == KindReference {
			want = array.typ
		}
		elem = ObjectType
	} else {
		elem, _ = want.ComponentType()
	}
	if !isSubtypeOfOrNull(array, want, it.h) {
		return Value{}, mismatch(InvalidArrayOperation, "array operand has the wrong kind", want, array)
	}
	if err := it.requireExact(index, IntType); err != nil {
		return Value{}, err
	}
	if !isSubtypeOfOrNull(value, elem, it.h) {
		return Value{}, mismatch(InvalidArrayOperation, "stored value does not match the array element", elem, value)
	}
	return Value{}, nil
}

// naryOperation covers invocations and multianewarray. values are in push
// order: receiver first, then arguments left to right.
func (it *interpreter) naryOperation(in *tf.Instruction, values []Value) (Value, error) {
	if in.Op == tf.Multianewarray {
		for i, v := range values {
			if !v.IsPrimitive() || v.typ.intFamily() != IntType {
				return Value{}, mismatch(InvalidArrayOperation, fmt.Sprintf("dimension %d is not an int", i), IntType, v)
			}
		}
		return ValueOf(ObjectTypeOf(in.Type)), nil
	}

	sig, err := ParseMethodDescriptor(in.Desc)
	if err != nil {
		return Value{}, fail(InvalidInvocation, "malformed descriptor %q", in.Desc)
	}
	args := values
	if in.Op != tf.Invokestatic && in.Op != tf.Invokedynamic {
		owner, err := classType(in.Owner)
		if err != nil {
			return Value{}, fail(InvalidInvocation, "method owner %q: %v", in.Owner, err)
		}
		recv := values[0]
		switch {
		case recv.IsUninitialized():
			return Value{}, mismatch(InvalidInvocation, "cannot call a method on an uninitialized reference", owner, recv)
		case recv.IsNullConstant():
			return Value{}, mismatch(InvalidInvocation, "cannot call a method on a null reference", owner, recv)
		case !recv.IsReference() || !isSubtypeOf(recv.typ, owner, it.h):
			return Value{}, mismatch(InvalidInvocation, "method owner does not match type on stack", owner, recv)
		}
		args = values[1:]
	}
	for i, actual := range args {
		if !isSubtypeOfOrNull(actual, sig.Args[i], it.h) {
			return Value{}, mismatch(InvalidInvocation, fmt.Sprintf("argument %d has the wrong type", i), sig.Args[i], actual)
		}
	}
	return ValueOf(sig.Return), nil
}

// returnOperation checks the returned value against the declared return type.
func (it *interpreter) returnOperation(in *tf.Instruction, v Value) error {
	if in.Op == tf.Return {
		if it.ret.Sort() != SortVoid {
			return fail(TypeMismatch, "return without a value from a method returning %s", it.ret)
		}
		return nil
	}
	if it.ret.Sort() == SortVoid {
		return mismatch(TypeMismatch, "value returned from a void method", it.ret, v)
	}
	if !isSubtypeOfOrNull(v, it.ret, it.h) {
		return mismatch(TypeMismatch, "incompatible return type", it.ret, v)
	}
	return nil
}
