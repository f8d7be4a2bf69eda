package typeexec

import "testing"

func TestPCWorklist(t *testing.T) {
	w := newPCWorklist(4)
	if !w.isEmpty() {
		t.Fatal("new worklist not empty")
	}
	if !w.push(1) || !w.push(3) {
		t.Fatal("push of a fresh index failed")
	}
	if w.push(1) {
		t.Error("duplicate push accepted")
	}
	if w.len() != 2 {
		t.Errorf("len = %d, want 2", w.len())
	}
	if pc := w.pop(); pc != 3 {
		t.Errorf("pop = %d, want 3", pc)
	}
	if !w.push(3) {
		t.Error("popped index cannot be rescheduled")
	}
	for _, want := range []int{3, 1} {
		if pc := w.pop(); pc != want {
			t.Errorf("pop = %d, want %d", pc, want)
		}
	}
	if !w.isEmpty() {
		t.Error("worklist not drained")
	}
}
