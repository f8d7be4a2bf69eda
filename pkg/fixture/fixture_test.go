package fixture

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bytecode-tools/typeflow"
	"github.com/bytecode-tools/typeflow/typeexec"
)

func TestLoadAndVerify(t *testing.T) {
	f, err := Load("testdata/shapes.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := f.Classes.Len(); got != 5 {
		t.Errorf("classes = %d, want 5", got)
	}
	var names []string
	for name := range f.Classes.All() {
		names = append(names, name)
	}
	if diff := cmp.Diff([]string{"Shape", "Circle", "Square", "Named", "Label"}, names); diff != "" {
		t.Errorf("class order mismatch (-want +got):\n%s", diff)
	}
	if !f.Hierarchy.IsSubtype("Circle", "Shape") || !f.Hierarchy.IsSubtype("Label", "Named") {
		t.Error("hierarchy lost declared relations")
	}
	if len(f.Methods) != 5 {
		t.Fatalf("methods = %d, want 5", len(f.Methods))
	}

	results, err := f.Verify(context.Background(), typeexec.Options{}, typeexec.BatchOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if mismatches := f.Check(results); len(mismatches) != 0 {
		t.Errorf("unexpected mismatches: %v", mismatches)
	}
}

func TestLabels(t *testing.T) {
	f, err := Load("testdata/shapes.yaml")
	if err != nil {
		t.Fatal(err)
	}
	m, ok := f.Method("Shapes.pick(Z)LShape;")
	if !ok {
		t.Fatal("method not found")
	}
	if m.Instructions[1].Target != 4 || m.Instructions[3].Target != 5 {
		t.Errorf("label targets = %d, %d; want 4, 5", m.Instructions[1].Target, m.Instructions[3].Target)
	}

	g, _ := f.Method("Shapes.guarded()I")
	want := []typeflow.TryCatch{{Start: 0, End: 2, Handler: 2, Type: "java/lang/RuntimeException"}}
	if diff := cmp.Diff(want, g.TryCatch); diff != "" {
		t.Errorf("try-catch mismatch (-want +got):\n%s", diff)
	}
	at := f.LabelsAt("Shapes.guarded()I")
	if diff := cmp.Diff(map[int][]string{0: {"start"}, 2: {"end", "handler"}}, at); diff != "" {
		t.Errorf("LabelsAt mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.Method("Missing.m()V"); ok {
		t.Error("found a method that does not exist")
	}
}

func TestAssemble(t *testing.T) {
	code, labels, err := Assemble([]string{
		"bipush -5",
		"newarray int",
		"iinc 1 -2",
		"loop:",
		"lookupswitch @end 1:@loop 7:5",
		"invokeinterface java/util/List size ()I",
		"invokedynamic run ()Ljava/lang/Runnable;",
		"multianewarray [[I 2",
		"",
		"end:",
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"loop": 3, "end": 7}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	want := []typeflow.Instruction{
		{Op: typeflow.Bipush, Operand: -5},
		{Op: typeflow.Newarray, Operand: typeflow.TInt},
		{Op: typeflow.Iinc, Var: 1, Incr: -2},
		{Op: typeflow.Lookupswitch, Target: 7, Keys: []int32{1, 7}, Targets: []int{3, 5}},
		{Op: typeflow.Invokeinterface, Owner: "java/util/List", Name: "size", Desc: "()I", Interface: true},
		{Op: typeflow.Invokedynamic, Name: "run", Desc: "()Ljava/lang/Runnable;"},
		{Op: typeflow.Multianewarray, Type: "[[I", Dims: 2},
	}
	if diff := cmp.Diff(want, code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConstants(t *testing.T) {
	tests := []struct {
		line string
		want any
	}{
		{"ldc 5", int32(5)},
		{"ldc2_w 5", int64(5)},
		{"ldc2_w -3L", int64(-3)},
		{"ldc 1.5f", float32(1.5)},
		{"ldc2_w 2.5", 2.5},
		{"ldc2_w 1d", 1.0},
		{`ldc "a b"`, "a b"},
		{"ldc class java/lang/String", typeflow.ClassConst("java/lang/String")},
		{"ldc methodtype (I)V", typeflow.MethodTypeConst("(I)V")},
		{"ldc handle 6 Foo bar ()V", typeflow.HandleConst{Tag: 6, Owner: "Foo", Name: "bar", Desc: "()V"}},
		{"ldc dynamic cst I", typeflow.DynamicConst{Name: "cst", Desc: "I"}},
	}
	for _, tt := range tests {
		code, _, err := Assemble([]string{tt.line})
		if err != nil {
			t.Errorf("%s: %v", tt.line, err)
			continue
		}
		if diff := cmp.Diff(tt.want, code[0].Const); diff != "" {
			t.Errorf("%s: constant mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"unknown opcode", []string{"frobnicate"}, `unknown opcode "frobnicate"`},
		{"operand count", []string{"iload"}, "takes 1 operand(s), got 0"},
		{"extra operand", []string{"iadd 1"}, "takes 0 operand(s), got 1"},
		{"undefined label", []string{"goto @nowhere"}, `undefined label "nowhere"`},
		{"duplicate label", []string{"a:", "nop", "a:"}, `label "a" defined twice`},
		{"bad switch case", []string{"tableswitch 0 5"}, "must be key:target"},
		{"bad constant", []string{"ldc 1 2"}, "unrecognised constant"},
		{"int overflow", []string{"ldc 3000000000"}, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Assemble(tt.lines)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, doc, want string
	}{
		{"empty", "", "empty fixture document"},
		{"unknown key", "classes: []\nmethod: []\n", "field method not found"},
		{"duplicate class", "classes: [{name: A}, {name: A}]\n", "class A: declared twice"},
		{"missing desc", "methods: [{owner: A, name: m, code: [return]}]\n", "owner, name and desc are required"},
		{"bad handler", `methods:
  - {owner: A, name: m, desc: ()V, code: [return], tryCatch: [{start: "0", end: "1", handler: "4"}]}
`, "handler 4 out of range"},
		{"duplicate method", `methods:
  - {owner: A, name: m, desc: ()V, code: [return]}
  - {owner: A, name: m, desc: ()V, code: [return]}
`, "A.m()V: declared twice"},
		{"bad expectation", `methods:
  - {owner: A, name: m, desc: ()V, code: [return], expect: {outcome: success, kind: StackOverflow}}
`, "requires outcome failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestCheckReportsMismatches(t *testing.T) {
	f, err := Parse([]byte(`methods:
  - owner: A
    name: m
    desc: ()V
    static: true
    maxStack: 1
    code: [pop, return]
    expect: {outcome: failure, kind: StackUnderflow, index: 1}
  - owner: A
    name: n
    desc: ()V
    static: true
    code: [return, return]
    expect: {outcome: success, unreachable: [0]}
  - owner: A
    name: free
    desc: ()V
    static: true
    code: [return]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results, err := f.Verify(context.Background(), typeexec.Options{}, typeexec.BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got := f.Check(results)
	want := []Mismatch{
		{Method: "A.m()V", Reason: "error at 0, want 1"},
		{Method: "A.n()V", Reason: "unreachable [1], want [0]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatches (-want +got):\n%s", diff)
	}
	if got[0].String() != "A.m()V: error at 0, want 1" {
		t.Errorf("String() = %q", got[0].String())
	}
}
