package typeexec

import (
	"fmt"
	"strings"

	tf "github.com/bytecode-tools/typeflow"
)

// Frame is the set of abstract values in the local slots and on the operand
// stack at one program point. Locals have a fixed length; the stack is bounded
// by maxStack counted in slots.
type Frame struct {
	locals   []Value
	stack    []Value
	slots    int
	maxStack int
}

func newFrame(maxLocals, maxStack int) *Frame {
	f := &Frame{
		locals:   make([]Value, maxLocals),
		stack:    make([]Value, 0, maxStack),
		maxStack: maxStack,
	}
	for i := range f.locals {
		f.locals[i] = Uninitialized
	}
	return f
}

// Clone returns an independent copy.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		locals:   make([]Value, len(f.locals)),
		stack:    make([]Value, len(f.stack), f.maxStack),
		slots:    f.slots,
		maxStack: f.maxStack,
	}
	copy(c.locals, f.locals)
	copy(c.stack, f.stack)
	return c
}

// Locals returns a copy of the local slots.
func (f *Frame) Locals() []Value { return append([]Value(nil), f.locals...) }

// Stack returns a copy of the operand stack, bottom first.
func (f *Frame) Stack() []Value { return append([]Value(nil), f.stack...) }

// Local returns slot i, or false when i is out of range.
func (f *Frame) Local(i int) (Value, bool) {
	if i < 0 || i >= len(f.locals) {
		return Value{}, false
	}
	return f.locals[i], true
}

// Depth is the number of stack entries.
func (f *Frame) Depth() int { return len(f.stack) }

// StackSize is the stack depth in slots.
func (f *Frame) StackSize() int { return f.slots }

// Top returns the value on top of the stack.
func (f *Frame) Top() (Value, bool) {
	if len(f.stack) == 0 {
		return Value{}, false
	}
	return f.stack[len(f.stack)-1], true
}

func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString("locals=[")
	for i, v := range f.locals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.String())
	}
	b.WriteString("] stack=[")
	for i, v := range f.stack {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (f *Frame) push(v Value) error {
	if f.slots+v.Size() > f.maxStack {
		return fail(StackOverflow, "push of %s exceeds max stack %d", v, f.maxStack)
	}
	f.stack = append(f.stack, v)
	f.slots += v.Size()
	return nil
}

func (f *Frame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return Value{}, fail(StackUnderflow, "pop from an empty stack")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	f.slots -= v.Size()
	return v, nil
}

// popN pops n values and returns them in push order.
func (f *Frame) popN(n int) ([]Value, error) {
	if n > len(f.stack) {
		return nil, fail(StackUnderflow, "need %d values, stack holds %d", n, len(f.stack))
	}
	values := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		values[i], _ = f.pop()
	}
	return values, nil
}

func (f *Frame) getLocal(i int) (Value, error) {
	if i < 0 || i >= len(f.locals) {
		return Value{}, fail(LocalOutOfRange, "local %d outside max locals %d", i, len(f.locals))
	}
	return f.locals[i], nil
}

// setLocal stores v at i. A category-2 value claims i+1 as well, and
// overwriting the upper half of a category-2 value invalidates it.
func (f *Frame) setLocal(i int, v Value) error {
	size := v.Size()
	if size == 0 {
		size = 1
	}
	if i < 0 || i+size > len(f.locals) {
		return fail(LocalOutOfRange, "local %d (size %d) outside max locals %d", i, size, len(f.locals))
	}
	if i > 0 && f.locals[i-1].Size() == 2 {
		f.locals[i-1] = Uninitialized
	}
	f.locals[i] = v
	if size == 2 {
		f.locals[i+1] = Uninitialized
	}
	return nil
}

// execute applies one instruction to f in place.
func (f *Frame) execute(in *tf.Instruction, s step, it *interpreter) error {
	switch s := s.(type) {
	case nopStep:
		return nil

	case producerStep:
		v, err := it.newOperation(in)
		if err != nil {
			return err
		}
		return f.push(v)

	case copyStep:
		if s.load {
			v, err := f.getLocal(s.local)
			if err != nil {
				return err
			}
			r, err := it.copyOperation(in, v, true)
			if err != nil {
				return err
			}
			return f.push(r)
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		r, err := it.copyOperation(in, v, false)
		if err != nil {
			return err
		}
		return f.setLocal(s.local, r)

	case iincStep:
		v, err := f.getLocal(s.local)
		if err != nil {
			return err
		}
		r, err := it.iinc(in, v)
		if err != nil {
			return err
		}
		return f.setLocal(s.local, r)

	case unaryStep:
		v, err := f.pop()
		if err != nil {
			return err
		}
		r, err := it.unaryOperation(in, v)
		if err != nil {
			return err
		}
		return f.pushResult(r)

	case binaryStep:
		values, err := f.popN(2)
		if err != nil {
			return err
		}
		r, err := it.binaryOperation(in, values[0], values[1])
		if err != nil {
			return err
		}
		return f.pushResult(r)

	case ternaryStep:
		values, err := f.popN(3)
		if err != nil {
			return err
		}
		_, err = it.ternaryOperation(in, values[0], values[1], values[2])
		return err

	case naryStep:
		values, err := f.popN(s.argc)
		if err != nil {
			return err
		}
		r, err := it.naryOperation(in, values)
		if err != nil {
			return err
		}
		return f.pushResult(r)

	case returnStep:
		if s.void {
			return it.returnOperation(in, Value{})
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		if _, err := it.unaryOperation(in, v); err != nil {
			return err
		}
		return it.returnOperation(in, v)

	case stackStep:
		return f.shuffle(in.Op)
	}
	return fail(UnsupportedInstruction, "no execution rule for %s", in.Op)
}

func (f *Frame) pushResult(v Value) error {
	if !v.IsValid() {
		return nil
	}
	return f.push(v)
}

func (f *Frame) popCategory(size int) (Value, error) {
	v, err := f.pop()
	if err != nil {
		return Value{}, err
	}
	if v.Size() != size {
		return Value{}, mismatch(TypeMismatch, "stack operand has the wrong category", categoryExample(size), v)
	}
	return v, nil
}

func categoryExample(size int) Type {
	if size == 2 {
		return LongType
	}
	return IntType
}

func (f *Frame) pushAll(values ...Value) error {
	for _, v := range values {
		if err := f.push(v); err != nil {
			return err
		}
	}
	return nil
}

// shuffle executes pop, dup and swap in their category forms. Values are
// named from the top of the stack down: v1 is the top.
func (f *Frame) shuffle(op tf.Opcode) error {
	switch op {
	case tf.Pop:
		_, err := f.popCategory(1)
		return err

	case tf.Pop2:
		v1, err := f.pop()
		if err != nil || v1.Size() == 2 {
			return err
		}
		_, err = f.popCategory(1)
		return err

	case tf.Dup:
		v1, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v1, v1)

	case tf.DupX1:
		v1, err := f.popCategory(1)
		if err != nil {
			return err
		}
		v2, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v1, v2, v1)

	case tf.DupX2:
		v1, err := f.popCategory(1)
		if err != nil {
			return err
		}
		v2, err := f.pop()
		if err != nil {
			return err
		}
		if v2.Size() == 2 {
			return f.pushAll(v1, v2, v1)
		}
		v3, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v1, v3, v2, v1)

	case tf.Dup2:
		v1, err := f.pop()
		if err != nil {
			return err
		}
		if v1.Size() == 2 {
			return f.pushAll(v1, v1)
		}
		v2, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v2, v1, v2, v1)

	case tf.Dup2X1:
		v1, err := f.pop()
		if err != nil {
			return err
		}
		if v1.Size() == 2 {
			v2, err := f.popCategory(1)
			if err != nil {
				return err
			}
			return f.pushAll(v1, v2, v1)
		}
		v2, err := f.popCategory(1)
		if err != nil {
			return err
		}
		v3, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v2, v1, v3, v2, v1)

	case tf.Dup2X2:
		v1, err := f.pop()
		if err != nil {
			return err
		}
		if v1.Size() == 2 {
			v2, err := f.pop()
			if err != nil {
				return err
			}
			if v2.Size() == 2 {
				return f.pushAll(v1, v2, v1)
			}
			v3, err := f.popCategory(1)
			if err != nil {
				return err
			}
			return f.pushAll(v1, v3, v2, v1)
		}
		v2, err := f.popCategory(1)
		if err != nil {
			return err
		}
		v3, err := f.pop()
		if err != nil {
			return err
		}
		if v3.Size() == 2 {
			return f.pushAll(v2, v1, v3, v2, v1)
		}
		v4, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v2, v1, v4, v3, v2, v1)

	case tf.Swap:
		v1, err := f.popCategory(1)
		if err != nil {
			return err
		}
		v2, err := f.popCategory(1)
		if err != nil {
			return err
		}
		return f.pushAll(v1, v2)
	}
	return fail(UnsupportedInstruction, "%s is not a stack instruction", op)
}

// mergeResult describes the effect of merging an incoming frame.
type mergeResult struct {
	changed bool
	widened bool
}

// merge joins o into f slot by slot. Stacks must agree in depth and per-entry
// category. With strict set, a stack entry that degrades to Uninitialized is
// a TypeMismatch; locals always degrade silently.
func (f *Frame) merge(o *Frame, h Hierarchy, strict bool) (mergeResult, error) {
	var res mergeResult
	if len(f.stack) != len(o.stack) || f.slots != o.slots {
		return res, fail(StackMismatch, "stack heights differ: %d vs %d slots", f.slots, o.slots)
	}
	for i := range f.stack {
		a, b := f.stack[i], o.stack[i]
		if a.Size() != b.Size() {
			return res, mismatch(StackMismatch, fmt.Sprintf("stack categories differ at depth %d", i), a.Type(), b)
		}
		v, widened := join(a, b, h)
		if strict && v.IsUninitialized() && !a.IsUninitialized() && !b.IsUninitialized() {
			return res, mismatch(TypeMismatch, "incompatible stack values at merge", a.Type(), b)
		}
		if !v.Equal(a) {
			f.stack[i] = v
			res.changed = true
		}
		res.widened = res.widened || widened
	}
	for i := range f.locals {
		v, widened := join(f.locals[i], o.locals[i], h)
		if !v.Equal(f.locals[i]) {
			f.locals[i] = v
			res.changed = true
		}
		res.widened = res.widened || widened
	}
	return res, nil
}

// handlerFrame is the frame entering an exception handler: the given locals
// and a stack holding only the caught exception.
func (f *Frame) handlerFrame(catchType string) (*Frame, error) {
	h := &Frame{
		locals:   append([]Value(nil), f.locals...),
		stack:    make([]Value, 0, f.maxStack),
		maxStack: f.maxStack,
	}
	t := ThrowableType
	if catchType != "" {
		t = ObjectTypeOf(catchType)
	}
	if err := h.push(ValueOf(t)); err != nil {
		return nil, err
	}
	return h, nil
}
