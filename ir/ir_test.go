package ir

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindIf:        "if",
		KindIfElse:    "if-else",
		KindWhileLoop: "while",
		KindAndOr:     "and-or",
		KindSwitch:    "switch",
		KindFlow:      "flow",
		KindBreak:     "break",
		KindContinue:  "continue",
		KindLeaf:      "leaf",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

func TestExprKindString(t *testing.T) {
	if got := ExprBinary.String(); got != "binary" {
		t.Errorf("ExprBinary.String() = %q, want %q", got, "binary")
	}
	if got := ExprKind(999).String(); got != "?" {
		t.Errorf("out-of-range ExprKind.String() = %q, want %q", got, "?")
	}
}

func TestStmtKindString(t *testing.T) {
	if got := StmtIfElse.String(); got != "if-else" {
		t.Errorf("StmtIfElse.String() = %q, want %q", got, "if-else")
	}
	if got := StmtKind(999).String(); got != "?" {
		t.Errorf("out-of-range StmtKind.String() = %q, want %q", got, "?")
	}
}

func TestBinOpIsBitwiseAndToLogical(t *testing.T) {
	if !OpBitwiseAnd.IsBitwise() || !OpBitwiseOr.IsBitwise() {
		t.Error("OpBitwiseAnd/Or should report IsBitwise() == true")
	}
	if OpIntAdd.IsBitwise() {
		t.Error("OpIntAdd should not report IsBitwise() == true")
	}
	if got := OpBitwiseAnd.ToLogical(); got != OpLogicalAnd {
		t.Errorf("OpBitwiseAnd.ToLogical() = %v, want OpLogicalAnd", got)
	}
	if got := OpBitwiseOr.ToLogical(); got != OpLogicalOr {
		t.Errorf("OpBitwiseOr.ToLogical() = %v, want OpLogicalOr", got)
	}
	// A non-bitwise operator passes through unchanged.
	if got := OpIntAdd.ToLogical(); got != OpIntAdd {
		t.Errorf("OpIntAdd.ToLogical() = %v, want itself unchanged", got)
	}
}
