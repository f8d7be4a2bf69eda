package typeflow

import "fmt"

// TryCatch is one exception table entry. Start is inclusive and End is
// exclusive, both instruction indexes. An empty Type catches everything.
type TryCatch struct {
	Start   int
	End     int
	Handler int
	Type    string
}

// Covers reports whether the instruction at index lies in the protected range.
func (tc TryCatch) Covers(index int) bool {
	return index >= tc.Start && index < tc.End
}

// Method is the decoded instruction graph of one method together with the
// metadata the analysis needs.
type Method struct {
	Owner     string
	Name      string
	Desc      string
	Static    bool
	MaxLocals int
	MaxStack  int

	Instructions []Instruction
	TryCatch     []TryCatch
}

// ID returns owner.name+descriptor, the key used in logs and reports.
func (m *Method) ID() string {
	return fmt.Sprintf("%s.%s%s", m.Owner, m.Name, m.Desc)
}

// Validate checks the maxima and that exception ranges and handlers point
// inside the instruction list. Jump targets are not checked here; the
// analysis reports a bad target as InvalidControlFlow at the jump.
func (m *Method) Validate() error {
	n := len(m.Instructions)
	if m.MaxLocals < 0 || m.MaxStack < 0 {
		return fmt.Errorf("negative maxima: locals=%d stack=%d", m.MaxLocals, m.MaxStack)
	}
	for i, tc := range m.TryCatch {
		if tc.Start < 0 || tc.End > n || tc.Start >= tc.End {
			return fmt.Errorf("try-catch %d: invalid range [%d,%d)", i, tc.Start, tc.End)
		}
		if tc.Handler < 0 || tc.Handler >= n {
			return fmt.Errorf("try-catch %d: handler %d out of range", i, tc.Handler)
		}
	}
	return nil
}
