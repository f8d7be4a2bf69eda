package typeexec

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var valueCmp = cmp.Comparer(func(a, b Value) bool { return a.Equal(b) })

func latticeSamples() []Value {
	return []Value{
		IntValue(1),
		IntValue(2),
		ValueOf(IntType),
		ValueOf(ByteType),
		ValueOf(CharType),
		ValueOf(BooleanType),
		ValueOf(FloatType),
		FloatValue(float32(math.NaN())),
		ValueOf(LongType),
		LongValue(7),
		ValueOf(DoubleType),
		StringValue("a"),
		StringValue("b"),
		ValueOf(ObjectType),
		ValueOf(ObjectTypeOf("java/lang/Integer")),
		ValueOf(MustParseType("[I")),
		ValueOf(MustParseType("[J")),
		ValueOf(MustParseType("[Ljava/lang/String;")),
		ValueOf(MustParseType("[Ljava/lang/Integer;")),
		Null,
		Uninitialized,
	}
}

// TestMergeCommutativeAndIdempotent checks the algebraic laws of the join
func TestMergeCommutativeAndIdempotent(t *testing.T) {
	samples := latticeSamples()
	for _, a := range samples {
		if got := Merge(a, a, nil); !got.Equal(a) {
			t.Errorf("Merge(%s, %s) = %s, want %s", a, a, got, a)
		}
		for _, b := range samples {
			ab, ba := Merge(a, b, nil), Merge(b, a, nil)
			if !ab.Equal(ba) {
				t.Errorf("Merge(%s, %s) = %s but Merge(%s, %s) = %s", a, b, ab, b, a, ba)
			}
		}
	}
}

// TestMergeMonotone checks that the join is at least as general as both inputs
func TestMergeMonotone(t *testing.T) {
	samples := latticeSamples()
	for _, a := range samples {
		for _, b := range samples {
			m := Merge(a, b, nil)
			if !m.CanMerge(a, nil) {
				t.Errorf("Merge(%s, %s) = %s cannot absorb %s", a, b, m, a)
			}
			if !m.CanMerge(b, nil) {
				t.Errorf("Merge(%s, %s) = %s cannot absorb %s", a, b, m, b)
			}
		}
	}
}

func TestMergeTable(t *testing.T) {
	integer := ObjectTypeOf("java/lang/Integer")
	tests := []struct {
		name string
		a, b Value
		want Value
	}{
		{"equal constants survive", IntValue(3), IntValue(3), IntValue(3)},
		{"different constants drop", IntValue(3), IntValue(4), ValueOf(IntType)},
		{"int family collapses", ValueOf(ByteType), ValueOf(CharType), ValueOf(IntType)},
		{"category mismatch", ValueOf(LongType), ValueOf(IntType), Uninitialized},
		{"primitive and reference", ValueOf(IntType), StringValue("x"), Uninitialized},
		{"null and reference", Null, StringValue("x"), ValueOf(StringType)},
		{"null and primitive", Null, IntValue(0), Uninitialized},
		{"unrelated references", StringValue("x"), ValueOf(integer), ValueOf(ObjectType)},
		{"subtype widens to parent", ValueOf(StringType), ValueOf(ObjectType), ValueOf(ObjectType)},
		{"reference arrays keep shape", ValueOf(MustParseType("[Ljava/lang/String;")), ValueOf(MustParseType("[Ljava/lang/Integer;")), ValueOf(objectArray)},
		{"primitive arrays differ", ValueOf(intArray), ValueOf(longArray), ValueOf(ObjectType)},
		{"uninitialized is bottom", Uninitialized, IntValue(1), Uninitialized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.a, tt.b, nil)
			if diff := cmp.Diff(tt.want, got, valueCmp); diff != "" {
				t.Errorf("Merge(%s, %s) mismatch (-want +got):\n%s", tt.a, tt.b, diff)
			}
		})
	}
}

// TestJoinWithHierarchy tests that a SuperclassResolver oracle finds the closest common superclass
func TestJoinWithHierarchy(t *testing.T) {
	h := NewStaticHierarchy(
		ClassInfo{Name: "Base"},
		ClassInfo{Name: "A", Super: "Base"},
		ClassInfo{Name: "B", Super: "Base"},
		ClassInfo{Name: "C", Super: "A"},
	)
	a, b, c := ValueOf(ObjectTypeOf("A")), ValueOf(ObjectTypeOf("B")), ValueOf(ObjectTypeOf("C"))
	base := ValueOf(ObjectTypeOf("Base"))

	got, widened := join(a, b, h)
	if !got.Equal(base) || !widened {
		t.Errorf("join(A, B) = %s (widened=%v), want LBase; widened", got, widened)
	}
	got, widened = join(c, b, h)
	if !got.Equal(base) || !widened {
		t.Errorf("join(C, B) = %s (widened=%v), want LBase; widened", got, widened)
	}
	got, widened = join(c, a, h)
	if !got.Equal(a) || widened {
		t.Errorf("join(C, A) = %s (widened=%v), want LA; not widened", got, widened)
	}
	if !base.CanMerge(c, h) {
		t.Error("expected Base to absorb C")
	}
	if c.CanMerge(base, h) {
		t.Error("expected C not to absorb Base")
	}
}

func TestStaticHierarchy(t *testing.T) {
	h := NewStaticHierarchy(
		ClassInfo{Name: "java/util/AbstractList", Interfaces: []string{"java/util/List"}},
		ClassInfo{Name: "java/util/ArrayList", Super: "java/util/AbstractList", Interfaces: []string{"java/util/RandomAccess"}},
		ClassInfo{Name: "java/util/List", Interfaces: []string{"java/util/Collection"}},
	)
	tests := []struct {
		child, parent string
		want          bool
	}{
		{"java/util/ArrayList", "java/util/ArrayList", true},
		{"java/util/ArrayList", "java/util/AbstractList", true},
		{"java/util/ArrayList", "java/util/Collection", true},
		{"java/util/ArrayList", "java/util/RandomAccess", true},
		{"java/util/ArrayList", "java/lang/Object", true},
		{"java/util/AbstractList", "java/util/ArrayList", false},
		{"Unknown", "java/util/List", false},
	}
	for _, tt := range tests {
		if got := h.IsSubtype(tt.child, tt.parent); got != tt.want {
			t.Errorf("IsSubtype(%s, %s) = %v, want %v", tt.child, tt.parent, got, tt.want)
		}
	}
	if super, ok := h.Superclass("java/util/List"); !ok || super != "java/lang/Object" {
		t.Errorf("Superclass(List) = %q, %v; want java/lang/Object", super, ok)
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
}

func TestIsSubtypeOfArrays(t *testing.T) {
	h := orDefault(nil)
	tests := []struct {
		child, parent string
		want          bool
	}{
		{"[I", "[I", true},
		{"[I", "[J", false},
		{"[B", "[Z", false},
		{"[[I", "[Ljava/lang/Object;", true},
		{"[Ljava/lang/String;", "[Ljava/lang/Object;", true},
		{"[Ljava/lang/Object;", "[Ljava/lang/String;", false},
		{"[I", "Ljava/lang/Object;", true},
		{"[I", "Ljava/lang/Cloneable;", true},
		{"[I", "Ljava/lang/String;", false},
		{"B", "I", true},
		{"I", "J", false},
	}
	for _, tt := range tests {
		got := isSubtypeOf(MustParseType(tt.child), MustParseType(tt.parent), h)
		if got != tt.want {
			t.Errorf("isSubtypeOf(%s, %s) = %v, want %v", tt.child, tt.parent, got, tt.want)
		}
	}
}
