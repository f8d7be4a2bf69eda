package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytecode-tools/typeflow"
)

var newarrayCodes = map[string]int{
	"boolean": typeflow.TBoolean,
	"char":    typeflow.TChar,
	"float":   typeflow.TFloat,
	"double":  typeflow.TDouble,
	"byte":    typeflow.TByte,
	"short":   typeflow.TShort,
	"int":     typeflow.TInt,
	"long":    typeflow.TLong,
}

// Assemble turns assembler lines into instructions. A line is either
// `label:` (naming the next instruction, or the end of the code when last)
// or `opcode operand...`. Jump targets are instruction indexes or @label
// references.
func Assemble(lines []string) ([]typeflow.Instruction, map[string]int, error) {
	labels := make(map[string]int)
	body := make([]string, 0, len(lines))
	lineNo := make([]int, 0, len(lines))

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if name, ok := strings.CutSuffix(line, ":"); ok && !strings.ContainsAny(name, " \t") {
			if name == "" {
				return nil, nil, fmt.Errorf("line %d: empty label", i+1)
			}
			if _, dup := labels[name]; dup {
				return nil, nil, fmt.Errorf("line %d: label %q defined twice", i+1, name)
			}
			labels[name] = len(body)
			continue
		}
		body = append(body, line)
		lineNo = append(lineNo, i+1)
	}

	code := make([]typeflow.Instruction, len(body))
	for i, line := range body {
		in, err := parseInstruction(line, labels)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d %q: %w", lineNo[i], line, err)
		}
		code[i] = in
	}
	return code, labels, nil
}

func parseInstruction(line string, labels map[string]int) (typeflow.Instruction, error) {
	mnemonic, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	op, ok := typeflow.ParseOpcode(strings.ToLower(mnemonic))
	if !ok {
		return typeflow.Instruction{}, fmt.Errorf("unknown opcode %q", mnemonic)
	}
	in := typeflow.Instruction{Op: op}
	args := strings.Fields(rest)

	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d operand(s), got %d", op, n, len(args))
		}
		return nil
	}

	var err error
	switch {
	case op == typeflow.Ldc || op == typeflow.LdcW || op == typeflow.Ldc2W:
		in.Const, err = parseConstant(rest, op == typeflow.Ldc2W)

	case op == typeflow.Bipush || op == typeflow.Sipush:
		if err = want(1); err == nil {
			in.Operand, err = strconv.Atoi(args[0])
		}

	case op == typeflow.Newarray:
		if err = want(1); err == nil {
			code, ok := newarrayCodes[strings.ToLower(args[0])]
			if !ok {
				code, err = strconv.Atoi(args[0])
			}
			in.Operand = code
		}

	case op >= typeflow.Iload && op <= typeflow.Aload,
		op >= typeflow.Istore && op <= typeflow.Astore,
		op == typeflow.Ret:
		if err = want(1); err == nil {
			in.Var, err = strconv.Atoi(args[0])
		}

	case op == typeflow.Iinc:
		if err = want(2); err == nil {
			if in.Var, err = strconv.Atoi(args[0]); err == nil {
				in.Incr, err = strconv.Atoi(args[1])
			}
		}

	case op.IsSwitch():
		err = parseSwitch(&in, args, labels)

	case op.IsJump():
		if err = want(1); err == nil {
			in.Target, err = resolvePosition(args[0], labels)
		}

	case op >= typeflow.Getstatic && op <= typeflow.Putfield,
		op >= typeflow.Invokevirtual && op <= typeflow.Invokeinterface:
		if err = want(3); err == nil {
			in.Owner, in.Name, in.Desc = args[0], args[1], args[2]
			in.Interface = op == typeflow.Invokeinterface
		}

	case op == typeflow.Invokedynamic:
		if err = want(2); err == nil {
			in.Name, in.Desc = args[0], args[1]
		}

	case op == typeflow.New || op == typeflow.Anewarray || op == typeflow.Checkcast || op == typeflow.Instanceof:
		if err = want(1); err == nil {
			in.Type = args[0]
		}

	case op == typeflow.Multianewarray:
		if err = want(2); err == nil {
			in.Type = args[0]
			in.Dims, err = strconv.Atoi(args[1])
		}

	default:
		err = want(0)
	}
	return in, err
}

// parseSwitch reads `default key:target ...` for both switch forms.
func parseSwitch(in *typeflow.Instruction, args []string, labels map[string]int) error {
	if len(args) == 0 {
		return fmt.Errorf("%s needs a default target", in.Op)
	}
	var err error
	if in.Target, err = resolvePosition(args[0], labels); err != nil {
		return err
	}
	for _, arg := range args[1:] {
		k, t, ok := strings.Cut(arg, ":")
		if !ok {
			return fmt.Errorf("switch case %q must be key:target", arg)
		}
		key, err := strconv.ParseInt(k, 10, 32)
		if err != nil {
			return fmt.Errorf("switch key %q: %w", k, err)
		}
		target, err := resolvePosition(t, labels)
		if err != nil {
			return err
		}
		in.Keys = append(in.Keys, int32(key))
		in.Targets = append(in.Targets, target)
	}
	return nil
}

// resolvePosition accepts an instruction index or an @label reference.
func resolvePosition(s string, labels map[string]int) (int, error) {
	s = strings.TrimSpace(s)
	if name, ok := strings.CutPrefix(s, "@"); ok {
		idx, ok := labels[name]
		if !ok {
			return 0, fmt.Errorf("undefined label %q", name)
		}
		return idx, nil
	}
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return idx, nil
}

// parseConstant decodes an ldc operand:
//
//	5, -1          int (long for ldc2_w)
//	5L             long
//	1.5f           float
//	1.5, 1.5d      double
//	"text"         string
//	class Name     class literal
//	methodtype D   method type
//	handle T O N D method handle (tag owner name desc)
//	dynamic N D    dynamic constant (name desc)
func parseConstant(s string, wide bool) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("ldc needs a constant")
	}
	if strings.HasPrefix(s, `"`) {
		str, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("string constant %s: %w", s, err)
		}
		return str, nil
	}

	fields := strings.Fields(s)
	switch fields[0] {
	case "class":
		if len(fields) != 2 {
			return nil, fmt.Errorf("class constant needs a name")
		}
		return typeflow.ClassConst(fields[1]), nil
	case "methodtype":
		if len(fields) != 2 {
			return nil, fmt.Errorf("methodtype constant needs a descriptor")
		}
		return typeflow.MethodTypeConst(fields[1]), nil
	case "handle":
		if len(fields) != 5 {
			return nil, fmt.Errorf("handle constant needs tag owner name desc")
		}
		tag, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("handle tag %q: %w", fields[1], err)
		}
		return typeflow.HandleConst{Tag: tag, Owner: fields[2], Name: fields[3], Desc: fields[4]}, nil
	case "dynamic":
		if len(fields) != 3 {
			return nil, fmt.Errorf("dynamic constant needs name desc")
		}
		return typeflow.DynamicConst{Name: fields[1], Desc: fields[2]}, nil
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("unrecognised constant %q", s)
	}
	return parseNumber(s, wide)
}

func parseNumber(s string, wide bool) (any, error) {
	last := s[len(s)-1]
	switch {
	case last == 'L' || last == 'l':
		return strconv.ParseInt(s[:len(s)-1], 10, 64)
	case (last == 'f' || last == 'F') && !isSpecialFloat(s):
		v, err := strconv.ParseFloat(s[:len(s)-1], 32)
		return float32(v), err
	case last == 'd' || last == 'D':
		return strconv.ParseFloat(s[:len(s)-1], 64)
	case strings.ContainsAny(s, ".eE") || isSpecialFloat(s):
		return strconv.ParseFloat(s, 64)
	}
	if wide {
		return strconv.ParseInt(s, 10, 64)
	}
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

func isSpecialFloat(s string) bool {
	switch strings.TrimLeft(s, "+-") {
	case "Inf", "inf", "NaN", "nan":
		return true
	}
	return false
}
