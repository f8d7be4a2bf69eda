package typeexec

import (
	"fmt"
	"strings"
)

// Sort classifies a Type. The primitive sorts are ordered so that a larger
// sort is a wider type; the int-family (boolean..int) collapses to Int when
// comparing.
type Sort uint8

const (
	SortVoid Sort = iota
	SortBoolean
	SortChar
	SortByte
	SortShort
	SortInt
	SortFloat
	SortLong
	SortDouble
	SortArray
	SortObject
	SortMethod
)

// Type is a parsed field or method descriptor.
type Type struct {
	sort Sort
	desc string
}

var (
	VoidType    = Type{SortVoid, "V"}
	BooleanType = Type{SortBoolean, "Z"}
	CharType    = Type{SortChar, "C"}
	ByteType    = Type{SortByte, "B"}
	ShortType   = Type{SortShort, "S"}
	IntType     = Type{SortInt, "I"}
	FloatType   = Type{SortFloat, "F"}
	LongType    = Type{SortLong, "J"}
	DoubleType  = Type{SortDouble, "D"}

	ObjectType    = ObjectTypeOf("java/lang/Object")
	StringType    = ObjectTypeOf("java/lang/String")
	ClassType     = ObjectTypeOf("java/lang/Class")
	ThrowableType = ObjectTypeOf("java/lang/Throwable")
)

// ObjectTypeOf returns the type of an internal name. Names starting with '['
// are treated as array descriptors, matching how checkcast and anewarray
// operands are encoded.
func ObjectTypeOf(internalName string) Type {
	if strings.HasPrefix(internalName, "[") {
		return Type{SortArray, internalName}
	}
	return Type{SortObject, "L" + internalName + ";"}
}

// ParseType parses a single field descriptor.
func ParseType(desc string) (Type, error) {
	t, n, err := parseFieldType(desc, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(desc) {
		return Type{}, fmt.Errorf("trailing characters in descriptor %q", desc)
	}
	return t, nil
}

// MustParseType is ParseType for descriptors known to be valid.
func MustParseType(desc string) Type {
	t, err := ParseType(desc)
	if err != nil {
		panic(err)
	}
	return t
}

func parseFieldType(desc string, pos int) (Type, int, error) {
	if pos >= len(desc) {
		return Type{}, pos, fmt.Errorf("truncated descriptor %q", desc)
	}
	switch desc[pos] {
	case 'V':
		return VoidType, pos + 1, nil
	case 'Z':
		return BooleanType, pos + 1, nil
	case 'C':
		return CharType, pos + 1, nil
	case 'B':
		return ByteType, pos + 1, nil
	case 'S':
		return ShortType, pos + 1, nil
	case 'I':
		return IntType, pos + 1, nil
	case 'F':
		return FloatType, pos + 1, nil
	case 'J':
		return LongType, pos + 1, nil
	case 'D':
		return DoubleType, pos + 1, nil
	case 'L':
		end := strings.IndexByte(desc[pos:], ';')
		if end < 2 {
			return Type{}, pos, fmt.Errorf("malformed object descriptor %q", desc)
		}
		return Type{SortObject, desc[pos : pos+end+1]}, pos + end + 1, nil
	case '[':
		elem, next, err := parseFieldType(desc, pos+1)
		if err != nil {
			return Type{}, pos, err
		}
		if elem.sort == SortVoid {
			return Type{}, pos, fmt.Errorf("array of void in %q", desc)
		}
		return Type{SortArray, desc[pos:next]}, next, nil
	default:
		return Type{}, pos, fmt.Errorf("unexpected %q in descriptor %q", desc[pos], desc)
	}
}

// MethodSignature is a parsed method descriptor.
type MethodSignature struct {
	Args   []Type
	Return Type
}

// ParseMethodDescriptor parses "(args)ret".
func ParseMethodDescriptor(desc string) (MethodSignature, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return MethodSignature{}, fmt.Errorf("malformed method descriptor %q", desc)
	}
	var sig MethodSignature
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		t, next, err := parseFieldType(desc, pos)
		if err != nil {
			return MethodSignature{}, err
		}
		if t.sort == SortVoid {
			return MethodSignature{}, fmt.Errorf("void parameter in %q", desc)
		}
		sig.Args = append(sig.Args, t)
		pos = next
	}
	if pos >= len(desc) {
		return MethodSignature{}, fmt.Errorf("unterminated parameters in %q", desc)
	}
	ret, next, err := parseFieldType(desc, pos+1)
	if err != nil {
		return MethodSignature{}, err
	}
	if next != len(desc) {
		return MethodSignature{}, fmt.Errorf("trailing characters in descriptor %q", desc)
	}
	sig.Return = ret
	return sig, nil
}

func (t Type) Sort() Sort         { return t.sort }
func (t Type) Descriptor() string { return t.desc }
func (t Type) String() string     { return t.desc }
func (t Type) IsZero() bool       { return t.desc == "" }

// IsPrimitive reports whether the type is a primitive (void included).
func (t Type) IsPrimitive() bool { return t.desc != "" && t.sort < SortArray }

// IsReference reports whether the type is an object or array type.
func (t Type) IsReference() bool { return t.sort == SortArray || t.sort == SortObject }

// Size is the number of slots a value of this type occupies.
func (t Type) Size() int {
	switch t.sort {
	case SortVoid:
		return 0
	case SortLong, SortDouble:
		return 2
	}
	return 1
}

// InternalName returns the internal name of an object type, or the
// descriptor itself for arrays.
func (t Type) InternalName() string {
	if t.sort == SortObject {
		return t.desc[1 : len(t.desc)-1]
	}
	return t.desc
}

// Dimensions returns the array dimension count, zero for non-arrays.
func (t Type) Dimensions() int {
	n := 0
	for n < len(t.desc) && t.desc[n] == '[' {
		n++
	}
	return n
}

// ElementType strips every array dimension.
func (t Type) ElementType() Type {
	if t.sort != SortArray {
		return t
	}
	return MustParseType(t.desc[t.Dimensions():])
}

// ComponentType strips one array dimension.
func (t Type) ComponentType() (Type, bool) {
	if t.sort != SortArray {
		return Type{}, false
	}
	return MustParseType(t.desc[1:]), true
}

// ArrayOf returns the array type with t as component.
func ArrayOf(t Type) Type {
	return Type{SortArray, "[" + t.desc}
}

// intFamily collapses boolean, char, byte and short to int. Operand stacks
// carry no true sub-int types.
func (t Type) intFamily() Type {
	if t.sort >= SortBoolean && t.sort <= SortInt {
		return IntType
	}
	return t
}
