package typeexec

// pcWorklist holds instruction indexes awaiting (re)execution. An index is
// queued at most once at a time.
type pcWorklist struct {
	pcs       []int
	scheduled []bool
}

func newPCWorklist(n int) *pcWorklist {
	return &pcWorklist{
		pcs:       make([]int, 0, 32),
		scheduled: make([]bool, n),
	}
}

// push schedules pc unless it is already queued.
func (w *pcWorklist) push(pc int) bool {
	if w.scheduled[pc] {
		return false
	}
	w.scheduled[pc] = true
	w.pcs = append(w.pcs, pc)
	return true
}

// pop removes the most recently scheduled index (LIFO, so straight-line code
// is walked depth-first before revisiting merge points).
func (w *pcWorklist) pop() int {
	pc := w.pcs[len(w.pcs)-1]
	w.pcs = w.pcs[:len(w.pcs)-1]
	w.scheduled[pc] = false
	return pc
}

func (w *pcWorklist) isEmpty() bool {
	return len(w.pcs) == 0
}

func (w *pcWorklist) len() int {
	return len(w.pcs)
}
