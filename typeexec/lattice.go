package typeexec

const (
	cloneableName    = "java/lang/Cloneable"
	serializableName = "java/io/Serializable"
)

func orDefault(h Hierarchy) Hierarchy {
	if h == nil {
		return equalityHierarchy{}
	}
	return h
}

// CanMerge reports whether v is at least as general as o, i.e. merging o into
// a slot holding v leaves v's type unchanged.
func (v Value) CanMerge(o Value, h Hierarchy) bool {
	h = orDefault(h)
	switch {
	case v.Equal(o), v.kind == KindUninitialized:
		return true
	case o.kind == KindUninitialized, v.kind == KindNone, o.kind == KindNone:
		return false
	case o.kind == KindNull:
		return v.IsReference()
	case v.kind == KindNull:
		return false
	case v.kind == KindPrimitive && o.kind == KindPrimitive:
		return v.typ.Size() == o.typ.Size() && v.typ.intFamily().sort >= o.typ.intFamily().sort
	case v.kind == KindReference && o.kind == KindReference:
		return v.typ == o.typ || isSubtypeOf(o.typ, v.typ, h)
	}
	return false
}

// Merge joins two values at a control-flow confluence. It is commutative and
// idempotent. A tracked constant survives only when both sides agree on it.
func Merge(a, b Value, h Hierarchy) Value {
	v, _ := join(a, b, orDefault(h))
	return v
}

// join is Merge that also reports whether two references were widened past
// the cheap rules (identical types, subtype either way) to a common
// superclass or Object.
func join(a, b Value, h Hierarchy) (Value, bool) {
	switch {
	case a.Equal(b):
		return a, false
	case a.kind == KindUninitialized || b.kind == KindUninitialized:
		return Uninitialized, false
	case a.kind == KindNone || b.kind == KindNone:
		return Uninitialized, false
	case a.kind == KindNull:
		if b.kind == KindReference {
			return b.withoutConstant(), false
		}
		return Uninitialized, false
	case b.kind == KindNull:
		if a.kind == KindReference {
			return a.withoutConstant(), false
		}
		return Uninitialized, false
	case a.kind == KindPrimitive && b.kind == KindPrimitive:
		return joinPrimitive(a.typ, b.typ), false
	case a.kind == KindReference && b.kind == KindReference:
		return joinReference(a.typ, b.typ, h)
	}
	return Uninitialized, false
}

func joinPrimitive(a, b Type) Value {
	if a.Size() != b.Size() {
		return Uninitialized
	}
	if a == b {
		return ValueOf(a)
	}
	ra, rb := a.intFamily(), b.intFamily()
	switch {
	case ra.sort == rb.sort:
		return ValueOf(ra)
	case ra.sort > rb.sort:
		return ValueOf(ra)
	default:
		return ValueOf(rb)
	}
}

func joinReference(a, b Type, h Hierarchy) (Value, bool) {
	if a == b {
		return ValueOf(a), false
	}
	if isSubtypeOf(a, b, h) {
		return ValueOf(b), false
	}
	if isSubtypeOf(b, a, h) {
		return ValueOf(a), false
	}
	if a.sort == SortObject && b.sort == SortObject {
		if common, ok := commonSuperclass(h, a.InternalName(), b.InternalName()); ok {
			return ValueOf(ObjectTypeOf(common)), true
		}
	}
	// Arrays of references with equal dimensions keep their shape.
	if a.sort == SortArray && b.sort == SortArray && a.Dimensions() == b.Dimensions() &&
		a.ElementType().IsReference() && b.ElementType().IsReference() {
		t := ObjectType
		for i := 0; i < a.Dimensions(); i++ {
			t = ArrayOf(t)
		}
		return ValueOf(t), true
	}
	return ValueOf(ObjectType), true
}

// isSubtypeOf decides assignability between descriptors. Int-family
// primitives are interchangeable; wider primitives of the same category
// accept narrower ones; references defer to the oracle.
func isSubtypeOf(child, parent Type, h Hierarchy) bool {
	if child.IsZero() || parent.IsZero() {
		return false
	}
	if child == parent {
		return true
	}
	if child.sort == SortArray && parent.sort == SortArray {
		cd, pd := child.Dimensions(), parent.Dimensions()
		ce, pe := child.ElementType(), parent.ElementType()
		if cd != pd {
			// [[I is an Object[]; the extra dimensions are the element.
			return cd > pd && pe == ObjectType
		}
		if ce.IsPrimitive() || pe.IsPrimitive() {
			return ce == pe
		}
		child, parent = ce, pe
		if child == parent {
			return true
		}
	}
	if parent.IsPrimitive() && child.IsPrimitive() {
		return child.Size() == parent.Size() && child.intFamily().sort <= parent.intFamily().sort
	}
	if child.IsReference() && parent == ObjectType {
		return true
	}
	if child.sort == SortArray && parent.sort == SortObject {
		name := parent.InternalName()
		return name == cloneableName || name == serializableName
	}
	if child.sort == SortObject && parent.sort == SortObject {
		return h.IsSubtype(child.InternalName(), parent.InternalName())
	}
	return false
}

// isSubtypeOfOrNull is isSubtypeOf lifted to values: null is assignable to
// any reference type and uninitialized values are assignable to nothing.
func isSubtypeOfOrNull(v Value, expected Type, h Hierarchy) bool {
	switch v.kind {
	case KindNull:
		return !expected.IsPrimitive()
	case KindUninitialized, KindNone:
		return false
	}
	return isSubtypeOf(v.typ, expected, h)
}
