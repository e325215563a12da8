package ir

// StmtKind discriminates a lifted Statement (spec §3).
type StmtKind int

const (
	StmtNop StmtKind = iota
	StmtAssign
	StmtReturn
	StmtThrow
	StmtFunctionCall
	StmtNativeCall
	StmtIf
	StmtIfElse
	StmtWhileLoop
	StmtSwitch
	StmtBreak
	StmtContinue
	// StmtTextLabelAssign/Append/Copy are the supplemented text-label
	// operations (see SPEC_FULL.md "All ten todo!() opcodes..."); they
	// are distinct from StmtAssign because their destination is a
	// fixed-capacity character buffer, not a typed slot.
	StmtTextLabelAssign
	StmtTextLabelAppend
	StmtTextLabelCopy
)

func (k StmtKind) String() string {
	names := [...]string{
		"nop", "assign", "return", "throw", "call", "native-call",
		"if", "if-else", "while", "switch", "break", "continue",
		"text-label-assign", "text-label-append", "text-label-copy",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// SwitchCaseBody is one Switch statement arm: every CaseValue (including
// Default) matching this body, plus the lifted body itself.
type SwitchCaseBody struct {
	Values []CaseValue
	Body   []Statement
}

// Statement is one lifted statement (spec §3). As with Expr, which
// fields are meaningful depends on Kind.
type Statement struct {
	Kind StmtKind

	Dst *Expr // StmtAssign destination
	Src *Expr // StmtAssign source

	Values []*Expr // StmtReturn

	Value *Expr // StmtThrow

	Args           []*Expr // StmtFunctionCall, StmtNativeCall (source order)
	CallTarget     string  // StmtFunctionCall: resolved callee name
	Indirect       bool    // StmtFunctionCall: marks an indirect call (lift's CallIndirect pushes an indirect ExprCallResult instead and leaves this false)
	IndirectTarget *Expr   // StmtFunctionCall when Indirect: the function-pointer value
	NativeHash     uint64  // StmtNativeCall

	Cond *Expr       // StmtIf, StmtIfElse, StmtWhileLoop, StmtSwitch
	Then []Statement // StmtIf, StmtIfElse, StmtWhileLoop body
	Else []Statement // StmtIfElse

	SwitchCases []SwitchCaseBody // StmtSwitch

	// Text-label fields.
	Buffer    *Expr // destination buffer address
	TextValue *Expr // assign/append value
	IsInt     bool  // true for the *Int variants, false for *String
	Append    bool  // true for TextLabelAppend*
	CopySrc   *Expr // StmtTextLabelCopy source address
	CopySize  *Expr // StmtTextLabelCopy size
	BufferCap int   // the instruction's buffer_size immediate
}
