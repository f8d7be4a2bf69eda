package typeflow

import "testing"

func TestValidate(t *testing.T) {
	code := []Instruction{{Op: Goto, Target: 9}, {Op: Return}, {Op: Athrow}}
	tests := []struct {
		name    string
		method  Method
		wantErr bool
	}{
		{"jump target left to the analysis", Method{Instructions: code}, false},
		{"valid handler", Method{Instructions: code, TryCatch: []TryCatch{{Start: 0, End: 2, Handler: 2}}}, false},
		{"empty range", Method{Instructions: code, TryCatch: []TryCatch{{Start: 1, End: 1, Handler: 2}}}, true},
		{"range past end", Method{Instructions: code, TryCatch: []TryCatch{{Start: 0, End: 4, Handler: 2}}}, true},
		{"handler past end", Method{Instructions: code, TryCatch: []TryCatch{{Start: 0, End: 1, Handler: 3}}}, true},
		{"negative stack", Method{MaxStack: -1, Instructions: code}, true},
		{"negative locals", Method{MaxLocals: -1, Instructions: code}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.method.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTryCatchCovers(t *testing.T) {
	tc := TryCatch{Start: 2, End: 4}
	for pc, want := range []bool{false, false, true, true, false} {
		if got := tc.Covers(pc); got != want {
			t.Errorf("Covers(%d) = %v, want %v", pc, got, want)
		}
	}
}
