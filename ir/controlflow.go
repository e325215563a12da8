// Package ir holds the structural and statement-level output types shared
// by package reduce (which produces ControlFlow trees) and package lift
// (which produces Statement trees over them), plus the final
// DecompiledFunction record package decompile assembles from both.
//
// Grounded on control_flow.rs for the ControlFlow/FlowType/CaseValue
// shapes, and on function.rs's actual statement-construction call sites
// (not the stale decompiler/decompiled/*.rs scaffolding, which predates
// what function.rs really builds) for Statement.
package ir

import "github.com/yscdec/yscdec/vtype"

// Kind discriminates a ControlFlow node's construct (spec §3).
type Kind int

const (
	KindIf Kind = iota
	KindIfElse
	KindWhileLoop
	KindAndOr
	KindSwitch
	KindFlow
	KindBreak
	KindContinue
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindIf:
		return "if"
	case KindIfElse:
		return "if-else"
	case KindWhileLoop:
		return "while"
	case KindAndOr:
		return "and-or"
	case KindSwitch:
		return "switch"
	case KindFlow:
		return "flow"
	case KindBreak:
		return "break"
	case KindContinue:
		return "continue"
	default:
		return "leaf"
	}
}

// CaseValue is one matched value of a Switch case, or the default arm.
type CaseValue struct {
	Default bool
	Value   int64
}

// SwitchArm is one grouped destination of a Switch, with every CaseValue
// (possibly several, when multiple case labels share a body) that
// targets it, in the order spec §8 invariant 10 requires: if arm A's
// frontier contains arm B's entry node, A precedes B.
type SwitchArm struct {
	Dest   int
	Values []CaseValue
}

// ControlFlow is one structural-reducer result for a single graph node
// (spec §3). Which fields are meaningful depends on Kind; this mirrors
// the flat tagged-immediate shape disasm.Instruction already uses, rather
// than a Go interface hierarchy, since most consumers (lift's dispatch,
// the debug dumper) want to switch on Kind once and then read a couple of
// fields, not implement a method per variant.
type ControlFlow struct {
	Kind Kind
	Node int

	Then int // KindIf, KindIfElse: the then-branch node
	Else int // KindIfElse: the else-branch node
	Body int // KindWhileLoop: the loop body node
	With int // KindAndOr: the chained and/or node

	Inverted bool // true if this node's condition was taken on the jump arm rather than the fallthrough (spec §9 "inverse if/while" support)

	Cases []SwitchArm // KindSwitch

	Target int // KindBreak, KindContinue: the resolved enclosing after/head node

	After    int // valid when HasAfter
	HasAfter bool
}

// FlowKind tags one entry of the enclosing-context stack the reducer
// threads through its traversal so a trailing Jump can be reclassified as
// Break or Continue (spec §4.5).
type FlowKind int

const (
	FlowLoop FlowKind = iota
	FlowSwitch
	FlowNonBreakable
)

// FlowType is one enclosing-context stack entry.
type FlowType struct {
	Kind     FlowKind
	Node     int
	After    int
	HasAfter bool
}

// DecompiledFunction is the IR Assembler's final per-function output
// (spec §6).
type DecompiledFunction struct {
	Name       string
	Parameters []vtype.Handle
	Returns    vtype.Handle
	HasReturns bool
	Locals     []vtype.Handle
	Statements []StatementInfo
}

// StatementInfo preserves a back-reference from a lifted Statement to the
// instruction byte range that produced it (spec §6).
type StatementInfo struct {
	InstrStart int
	InstrEnd   int
	Statement  Statement
}
