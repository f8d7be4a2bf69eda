package typeexec

import (
	"context"
	"testing"

	tf "github.com/bytecode-tools/typeflow"
)

func TestFingerprint(t *testing.T) {
	m := addMethod()
	base := Fingerprint(m, false)
	if base != Fingerprint(addMethod(), false) {
		t.Error("fingerprint is not deterministic")
	}
	if base == Fingerprint(m, true) {
		t.Error("strict flag not part of the fingerprint")
	}

	ldc := func(c any) string {
		return Fingerprint(staticMethod("()V", 0, 2, tf.Instruction{Op: tf.Ldc, Const: c}, op(tf.Pop), op(tf.Return)), false)
	}
	if ldc(int32(1)) == ldc(int64(1)) {
		t.Error("int and long constants share a fingerprint")
	}
	if ldc("a") == ldc(tf.ClassConst("a")) {
		t.Error("string and class constants share a fingerprint")
	}

	changed := addMethod()
	changed.Instructions[2].Op = tf.Isub
	if base == Fingerprint(changed, false) {
		t.Error("changed body has the same fingerprint")
	}
	changed = addMethod()
	changed.TryCatch = []tf.TryCatch{{Start: 0, End: 1, Handler: 3}}
	if base == Fingerprint(changed, false) {
		t.Error("exception table not part of the fingerprint")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(0)
	m := addMethod()
	opts := Options{}

	if _, ok := c.Get(m, opts); ok {
		t.Fatal("empty cache hit")
	}
	res := analyze(t, m, opts)
	c.Put(m, opts, res)
	got, ok := c.Get(addMethod(), opts)
	if !ok || got != res {
		t.Fatalf("Get after Put = %v, %v", got, ok)
	}
	if _, ok := c.Get(m, Options{StrictMerge: true}); ok {
		t.Error("strict lookup hit a lenient result")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	other := staticMethod("()V", 0, 0, op(tf.Return))
	cancelled, err := Analyze(ctx, other, opts)
	if err != nil {
		t.Fatal(err)
	}
	c.Put(other, opts, cancelled)
	if _, ok := c.Get(other, opts); ok {
		t.Error("cancelled result was cached")
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len after Reset = %d", c.Len())
	}
}

func TestCacheLimit(t *testing.T) {
	c := NewCache(2)
	for i := 0; i < 5; i++ {
		m := staticMethod("()V", 0, 0, op(tf.Return))
		m.Name = string(rune('a' + i))
		c.Put(m, Options{}, &Result{Method: m})
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}
