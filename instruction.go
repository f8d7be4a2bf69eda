package typeflow

import (
	"fmt"
	"strings"
)

// Instruction is one decoded bytecode instruction. Operands are already
// resolved against the constant pool; branch targets are indexes into the
// owning method's instruction list. Instructions are never mutated by the
// analysis.
type Instruction struct {
	Op Opcode

	// Var is the local variable index of loads, stores, iinc and ret.
	Var int
	// Incr is the iinc increment.
	Incr int
	// Operand is the bipush/sipush value or the newarray type code.
	Operand int

	// Type is the internal name (new, anewarray, checkcast, instanceof) or
	// the array descriptor (multianewarray).
	Type string
	// Dims is the multianewarray dimension count.
	Dims int

	// Owner, Name and Desc describe field and method references. For
	// invokedynamic only Name and Desc are set.
	Owner     string
	Name      string
	Desc      string
	Interface bool

	// Const is the ldc constant: int32, int64, float32, float64, string,
	// ClassConst, MethodTypeConst, HandleConst or DynamicConst.
	Const any

	// Target is the jump target; for switches it is the default target.
	Target int
	// Targets and Keys hold the switch cases.
	Targets []int
	Keys    []int32
}

// ClassConst is an ldc class literal (an internal name or array descriptor).
type ClassConst string

// MethodTypeConst is an ldc method type with its method descriptor.
type MethodTypeConst string

// HandleConst is an ldc method handle.
type HandleConst struct {
	Tag   int
	Owner string
	Name  string
	Desc  string
}

// DynamicConst is a condy constant; Desc is its field descriptor.
type DynamicConst struct {
	Name string
	Desc string
}

// Successors returns the explicit branch targets of the instruction, not
// including the fallthrough edge.
func (in *Instruction) Successors() []int {
	switch {
	case in.Op.IsSwitch():
		out := make([]int, 0, len(in.Targets)+1)
		out = append(out, in.Target)
		return append(out, in.Targets...)
	case in.Op.IsJump():
		return []int{in.Target}
	}
	return nil
}

// String renders the instruction in a javap-like form.
func (in *Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	switch {
	case in.Op == Pseudo:
		return "// " + in.Name
	case in.Op == Iinc:
		fmt.Fprintf(&b, " %d %d", in.Var, in.Incr)
	case in.Op == Bipush || in.Op == Sipush || in.Op == Newarray:
		fmt.Fprintf(&b, " %d", in.Operand)
	case in.Op >= Iload && in.Op <= Aload, in.Op >= Istore && in.Op <= Astore, in.Op == Ret:
		fmt.Fprintf(&b, " %d", in.Var)
	case in.Op == Ldc || in.Op == LdcW || in.Op == Ldc2W:
		fmt.Fprintf(&b, " %s", formatConst(in.Const))
	case in.Op >= Getstatic && in.Op <= Putfield:
		fmt.Fprintf(&b, " %s.%s:%s", in.Owner, in.Name, in.Desc)
	case in.Op == Invokedynamic:
		fmt.Fprintf(&b, " %s%s", in.Name, in.Desc)
	case in.Op.IsInvoke():
		fmt.Fprintf(&b, " %s.%s%s", in.Owner, in.Name, in.Desc)
	case in.Op == New || in.Op == Anewarray || in.Op == Checkcast || in.Op == Instanceof:
		fmt.Fprintf(&b, " %s", in.Type)
	case in.Op == Multianewarray:
		fmt.Fprintf(&b, " %s %d", in.Type, in.Dims)
	case in.Op.IsSwitch():
		fmt.Fprintf(&b, " default:%d", in.Target)
		for i, t := range in.Targets {
			if i < len(in.Keys) {
				fmt.Fprintf(&b, " %d:%d", in.Keys[i], t)
			} else {
				fmt.Fprintf(&b, " %d", t)
			}
		}
	case in.Op.IsJump():
		fmt.Fprintf(&b, " %d", in.Target)
	}
	return b.String()
}

func formatConst(v any) string {
	switch c := v.(type) {
	case string:
		return fmt.Sprintf("%q", c)
	case int64:
		return fmt.Sprintf("%dL", c)
	case float32:
		return fmt.Sprintf("%gF", c)
	case float64:
		return fmt.Sprintf("%gD", c)
	case ClassConst:
		return string(c) + ".class"
	case MethodTypeConst:
		return "MethodType" + string(c)
	case HandleConst:
		return fmt.Sprintf("Handle(%d %s.%s%s)", c.Tag, c.Owner, c.Name, c.Desc)
	case DynamicConst:
		return fmt.Sprintf("Dynamic(%s:%s)", c.Name, c.Desc)
	default:
		return fmt.Sprint(v)
	}
}
