package ops

import "testing"

func TestNew(t *testing.T) {
	tcs := []struct {
		name string
		b    byte
		want Op
		err  bool
	}{
		{name: "nop", b: byte(Nop), want: Nop},
		{name: "last valid", b: byte(opCount - 1), want: opCount - 1},
		{name: "out of range", b: byte(opCount), err: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(tc.b)
			if tc.err {
				if err == nil {
					t.Fatalf("New(%#02x): expected error, got nil", tc.b)
				}
				if _, ok := err.(UnknownOpError); !ok {
					t.Fatalf("New(%#02x): expected UnknownOpError, got %T", tc.b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%#02x): unexpected error: %v", tc.b, err)
			}
			if got != tc.want {
				t.Fatalf("New(%#02x) = %v, want %v", tc.b, got, tc.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := Nop.String(); got != "NOP" {
		t.Errorf("Nop.String() = %q, want %q", got, "NOP")
	}
	if got := FunctionCall.String(); got != "CALL" {
		t.Errorf("FunctionCall.String() = %q, want %q", got, "CALL")
	}
	if got := Op(opCount).String(); got == "" {
		t.Errorf("Op(opCount).String() = %q, want a fallback placeholder", got)
	}
}

func TestPatchByte(t *testing.T) {
	// Pre-cutoff scripts lack the three StaticU24 opcodes, so a raw byte at
	// or above StaticU24Cutoff is a later opcode numbered three lower; a
	// byte below the cutoff is untouched.
	preCutoffCutoff := byte(StaticU24Cutoff)

	if got := PatchByte(5, false); got != 5 {
		t.Errorf("PatchByte(5, false) = %d, want 5 (no-op when not pre-cutoff)", got)
	}
	if got := PatchByte(preCutoffCutoff-1, true); got != preCutoffCutoff-1 {
		t.Errorf("PatchByte below cutoff changed: got %d, want %d", got, preCutoffCutoff-1)
	}
	if got := PatchByte(preCutoffCutoff, true); got != byte(GlobalU24) {
		t.Errorf("PatchByte(%d, true) = %d, want %d", preCutoffCutoff, got, byte(GlobalU24))
	}
}

func TestIsConditionalJumpZero(t *testing.T) {
	if !IsConditionalJumpZero(IfEqualJumpZero) {
		t.Error("IfEqualJumpZero should be a conditional jump-zero")
	}
	if IsConditionalJumpZero(JumpZero) {
		t.Error("plain JumpZero should not be reported as a conditional jump-zero")
	}
	if IsConditionalJumpZero(Nop) {
		t.Error("Nop should not be reported as a conditional jump-zero")
	}
}
