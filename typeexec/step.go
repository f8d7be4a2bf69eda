package typeexec

import (
	tf "github.com/bytecode-tools/typeflow"
)

// step is the closed set of instruction shapes a Frame can execute. Each
// variant carries only what the frame needs beyond the instruction itself;
// the transfer function for the opcode lives on the interpreter.
type step interface {
	shape() string
}

type (
	// nopStep leaves the frame untouched (nop, goto, pseudo entries).
	nopStep struct{}
	// producerStep pushes one new value.
	producerStep struct{}
	// copyStep moves a value between a local and the stack.
	copyStep struct {
		local int
		load  bool
	}
	// iincStep rewrites an int local in place.
	iincStep struct{ local int }
	// unaryStep pops one value and may push a result.
	unaryStep struct{}
	// binaryStep pops two values and may push a result.
	binaryStep struct{}
	// ternaryStep pops three values (array stores).
	ternaryStep struct{}
	// naryStep pops argc values (invocations, multianewarray).
	naryStep struct{ argc int }
	// returnStep exits the method, checking the declared return type.
	returnStep struct{ void bool }
	// stackStep reshuffles the stack (pop, dup*, swap).
	stackStep struct{}
)

func (nopStep) shape() string      { return "nop" }
func (producerStep) shape() string { return "producer" }
func (copyStep) shape() string     { return "copy" }
func (iincStep) shape() string     { return "iinc" }
func (unaryStep) shape() string    { return "unary" }
func (binaryStep) shape() string   { return "binary" }
func (ternaryStep) shape() string  { return "ternary" }
func (naryStep) shape() string     { return "nary" }
func (returnStep) shape() string   { return "return" }
func (stackStep) shape() string    { return "stack" }

// classify maps an instruction to its step. Opcodes outside the supported
// set (jsr, ret, wide, unknown values) fail with UnsupportedInstruction.
func classify(in *tf.Instruction) (step, error) {
	op := in.Op
	switch {
	case op == tf.Pseudo, op == tf.Nop, op == tf.Goto, op == tf.GotoW:
		return nopStep{}, nil
	case op >= tf.AconstNull && op <= tf.Ldc2W, op == tf.Getstatic, op == tf.New:
		return producerStep{}, nil
	case op >= tf.Iload && op <= tf.Aload:
		return copyStep{local: in.Var, load: true}, nil
	case op >= tf.Iload0 && op <= tf.Aload3:
		return copyStep{local: int(op-tf.Iload0) % 4, load: true}, nil
	case op >= tf.Istore && op <= tf.Astore:
		return copyStep{local: in.Var}, nil
	case op >= tf.Istore0 && op <= tf.Astore3:
		return copyStep{local: int(op-tf.Istore0) % 4}, nil
	case op >= tf.Iaload && op <= tf.Saload:
		return binaryStep{}, nil
	case op >= tf.Iastore && op <= tf.Sastore:
		return ternaryStep{}, nil
	case op >= tf.Pop && op <= tf.Swap:
		return stackStep{}, nil
	case op >= tf.Iadd && op <= tf.Drem, op >= tf.Ishl && op <= tf.Lxor, op >= tf.Lcmp && op <= tf.Dcmpg:
		return binaryStep{}, nil
	case op >= tf.Ineg && op <= tf.Dneg, op >= tf.I2l && op <= tf.I2s:
		return unaryStep{}, nil
	case op == tf.Iinc:
		return iincStep{local: in.Var}, nil
	case op >= tf.Ifeq && op <= tf.Ifle, op == tf.Ifnull, op == tf.Ifnonnull, op.IsSwitch():
		return unaryStep{}, nil
	case op >= tf.IfIcmpeq && op <= tf.IfAcmpne:
		return binaryStep{}, nil
	case op >= tf.Ireturn && op <= tf.Areturn:
		return returnStep{}, nil
	case op == tf.Return:
		return returnStep{void: true}, nil
	case op == tf.Putstatic, op == tf.Getfield:
		return unaryStep{}, nil
	case op == tf.Putfield:
		return binaryStep{}, nil
	case op.IsInvoke():
		sig, err := ParseMethodDescriptor(in.Desc)
		if err != nil {
			return nil, fail(InvalidInvocation, "malformed descriptor %q: %v", in.Desc, err)
		}
		argc := len(sig.Args)
		if op != tf.Invokestatic && op != tf.Invokedynamic {
			argc++
		}
		return naryStep{argc: argc}, nil
	case op == tf.Multianewarray:
		t, err := ParseType(in.Type)
		if err != nil || t.Sort() != SortArray {
			return nil, fail(InvalidArrayOperation, "malformed array descriptor %q", in.Type)
		}
		if in.Dims < 1 || in.Dims > t.Dimensions() {
			return nil, fail(InvalidArrayOperation, "%d dimensions requested for %s", in.Dims, in.Type)
		}
		return naryStep{argc: in.Dims}, nil
	case op == tf.Newarray, op == tf.Anewarray, op == tf.Arraylength, op == tf.Athrow,
		op == tf.Checkcast, op == tf.Instanceof, op == tf.Monitorenter, op == tf.Monitorexit:
		return unaryStep{}, nil
	}
	return nil, fail(UnsupportedInstruction, "opcode %s is not supported", op)
}
