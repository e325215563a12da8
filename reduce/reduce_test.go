package reduce

import (
	"testing"

	"github.com/yscdec/yscdec/cfg"
	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/ir"
	"github.com/yscdec/yscdec/ops"
)

// linear builds a straight 3-node chain 0 -> 1 -> 2 via Flow edges.
func linear() *cfg.Graph {
	return &cfg.Graph{
		Nodes: make([]cfg.BasicBlock, 3),
		Out: [][]cfg.Edge{
			{{Kind: cfg.Flow, Target: 1}},
			{{Kind: cfg.Flow, Target: 2}},
			{},
		},
		Entry: 0,
	}
}

// ifThen builds an if-without-else diamond: 0 branches to 1 (then) or
// falls through conditionally to 2 (after); 1 flows into 2.
func ifThen() *cfg.Graph {
	return &cfg.Graph{
		Nodes: make([]cfg.BasicBlock, 3),
		Out: [][]cfg.Edge{
			{{Kind: cfg.ConditionalJump, Target: 1}, {Kind: cfg.ConditionalFlow, Target: 2}},
			{{Kind: cfg.Flow, Target: 2}},
			{},
		},
		Entry: 0,
	}
}

// ifElse builds a full if/else diamond: 0 branches to 1 (then) or 2
// (else); both merge at 3.
func ifElse() *cfg.Graph {
	return &cfg.Graph{
		Nodes: make([]cfg.BasicBlock, 4),
		Out: [][]cfg.Edge{
			{{Kind: cfg.ConditionalJump, Target: 2}, {Kind: cfg.ConditionalFlow, Target: 1}},
			{{Kind: cfg.Jump, Target: 3}},
			{{Kind: cfg.Flow, Target: 3}},
			{},
		},
		Entry: 0,
	}
}

// whileLoop builds entry 0 flowing into loop head 1, which either jumps
// out to exit 3 or falls through into body 2, which jumps back to 1.
// The head needs a predecessor from outside the loop (0) in addition to
// the backedge (2) for its dominance frontier to carry the self-entry
// Analyze needs to recognize the loop (spec §4.4's join-point frontier).
func whileLoop() *cfg.Graph {
	return &cfg.Graph{
		Nodes: make([]cfg.BasicBlock, 4),
		Out: [][]cfg.Edge{
			{{Kind: cfg.Flow, Target: 1}},
			{{Kind: cfg.ConditionalJump, Target: 3}, {Kind: cfg.ConditionalFlow, Target: 2}},
			{{Kind: cfg.Jump, Target: 1}},
			{},
		},
		Entry: 0,
	}
}

// andOrChain builds a short-circuit "a && b" shape (spec §4.5's "S4"):
// node 0 evaluates the first comparison and either jumps straight to the
// shared join point 2 or falls through to node 1, which evaluates the
// second comparison and combines it with the first via an explicit
// BitwiseAnd (its last instruction, the signal isAndOrNode looks for);
// node 2 is the real branch, consuming the combined condition and
// choosing between the then-body (3) and the after node (4).
func andOrChain() *cfg.Graph {
	bitwiseAndBlock := cfg.BasicBlock{
		Instructions: []disasm.InstructionRecord{
			{Instruction: disasm.Instruction{Op: ops.BitwiseAnd}},
		},
	}
	// Node 3's own last instruction must not itself look like a bitwise
	// combine: isAndOrNode inspects whichever node turns out to be the
	// unique dominated predecessor of the join point, and here that's
	// node 3 itself, not node 1.
	thenBlock := cfg.BasicBlock{
		Instructions: []disasm.InstructionRecord{
			{Instruction: disasm.Instruction{Op: ops.Drop}},
		},
	}
	return &cfg.Graph{
		Nodes: []cfg.BasicBlock{
			{},
			bitwiseAndBlock,
			{},
			thenBlock,
			{},
		},
		Out: [][]cfg.Edge{
			{{Kind: cfg.ConditionalJump, Target: 2}, {Kind: cfg.ConditionalFlow, Target: 1}},
			{{Kind: cfg.Flow, Target: 2}},
			{{Kind: cfg.ConditionalJump, Target: 4}, {Kind: cfg.ConditionalFlow, Target: 3}},
			{{Kind: cfg.Jump, Target: 4}},
			{},
		},
		Entry: 0,
	}
}

func TestReduceAndOrChain(t *testing.T) {
	g := andOrChain()
	doms := cfg.Analyze(g)
	cfs, err := Reduce(g, doms)
	if err != nil {
		t.Fatalf("Reduce: unexpected error: %v", err)
	}
	if cfs[0].Kind != ir.KindAndOr {
		t.Fatalf("node 0 = %+v, want KindAndOr", cfs[0])
	}
	if cfs[0].With != 1 {
		t.Errorf("AndOr.With = %d, want 1", cfs[0].With)
	}
	if !cfs[0].HasAfter || cfs[0].After != 2 {
		t.Errorf("AndOr.After = %d (HasAfter=%v), want 2", cfs[0].After, cfs[0].HasAfter)
	}
	// Node 1 (the bitwise-combine block) just flows on to the real branch.
	if cfs[1].Kind != ir.KindFlow || cfs[1].After != 2 {
		t.Errorf("node 1 = %+v, want Flow to 2", cfs[1])
	}
	// Node 2 is the real conditional, classified independently of the
	// AndOr node that led into it.
	if cfs[2].Kind != ir.KindIf || cfs[2].Then != 3 {
		t.Errorf("node 2 = %+v, want KindIf{Then: 3}", cfs[2])
	}
}

func TestReduceLinearIsFlowThenLeaf(t *testing.T) {
	g := linear()
	doms := cfg.Analyze(g)
	cfs, err := Reduce(g, doms)
	if err != nil {
		t.Fatalf("Reduce: unexpected error: %v", err)
	}
	if cfs[0].Kind != ir.KindFlow || cfs[0].After != 1 {
		t.Errorf("node 0 = %+v, want Flow to 1", cfs[0])
	}
	if cfs[1].Kind != ir.KindFlow || cfs[1].After != 2 {
		t.Errorf("node 1 = %+v, want Flow to 2", cfs[1])
	}
	if cfs[2].Kind != ir.KindLeaf {
		t.Errorf("node 2 = %+v, want Leaf", cfs[2])
	}
}

func TestReduceIfWithoutElse(t *testing.T) {
	g := ifThen()
	doms := cfg.Analyze(g)
	cfs, err := Reduce(g, doms)
	if err != nil {
		t.Fatalf("Reduce: unexpected error: %v", err)
	}
	cf := cfs[0]
	if cf.Kind != ir.KindIf {
		t.Fatalf("node 0 = %+v, want KindIf", cf)
	}
	if cf.Then != 1 {
		t.Errorf("If.Then = %d, want 1", cf.Then)
	}
}

func TestReduceIfElse(t *testing.T) {
	g := ifElse()
	doms := cfg.Analyze(g)
	cfs, err := Reduce(g, doms)
	if err != nil {
		t.Fatalf("Reduce: unexpected error: %v", err)
	}
	cf := cfs[0]
	if cf.Kind != ir.KindIfElse {
		t.Fatalf("node 0 = %+v, want KindIfElse", cf)
	}
	if cf.Then != 1 || cf.Else != 2 {
		t.Errorf("IfElse Then/Else = %d/%d, want 1/2", cf.Then, cf.Else)
	}
	if !cf.HasAfter || cf.After != 3 {
		t.Errorf("IfElse After = %d (HasAfter=%v), want 3", cf.After, cf.HasAfter)
	}
	// Both branches and the merge node must still get their own records.
	if cfs[1].Kind != ir.KindFlow && cfs[1].Kind != ir.KindLeaf {
		t.Errorf("node 1 = %+v", cfs[1])
	}
	if cfs[3].Kind != ir.KindLeaf {
		t.Errorf("node 3 (merge) = %+v, want Leaf", cfs[3])
	}
}

func TestReduceWhileLoop(t *testing.T) {
	g := whileLoop()
	doms := cfg.Analyze(g)
	cfs, err := Reduce(g, doms)
	if err != nil {
		t.Fatalf("Reduce: unexpected error: %v", err)
	}
	cf := cfs[1]
	if cf.Kind != ir.KindWhileLoop {
		t.Fatalf("node 1 (head) = %+v, want KindWhileLoop", cf)
	}
	if cf.Body != 2 {
		t.Errorf("WhileLoop.Body = %d, want 2", cf.Body)
	}
	if !cf.HasAfter || cf.After != 3 {
		t.Errorf("WhileLoop.After = %d (HasAfter=%v), want 3", cf.After, cf.HasAfter)
	}
	// The backedge jump from the body to the head should resolve as a
	// Continue, not an unrecognized Leaf.
	if cfs[2].Kind != ir.KindContinue {
		t.Errorf("node 2 (backedge) = %+v, want Continue", cfs[2])
	}
}

func TestReduceSwitchAggregatesSharedTargets(t *testing.T) {
	g := &cfg.Graph{
		Nodes: make([]cfg.BasicBlock, 4),
		Out: [][]cfg.Edge{
			{
				{Kind: cfg.Case, Target: 1, CaseValue: 1},
				{Kind: cfg.Case, Target: 1, CaseValue: 2},
				{Kind: cfg.Case, Target: 2, CaseValue: 3},
				{Kind: cfg.ConditionalFlow, Target: 3}, // default
			},
			{{Kind: cfg.Jump, Target: 3}},
			{{Kind: cfg.Jump, Target: 3}},
			{},
		},
		Entry: 0,
	}
	doms := cfg.Analyze(g)
	cfs, err := Reduce(g, doms)
	if err != nil {
		t.Fatalf("Reduce: unexpected error: %v", err)
	}
	cf := cfs[0]
	if cf.Kind != ir.KindSwitch {
		t.Fatalf("node 0 = %+v, want KindSwitch", cf)
	}
	var caseOneArm *ir.SwitchArm
	for i := range cf.Cases {
		if cf.Cases[i].Dest == 1 {
			caseOneArm = &cf.Cases[i]
		}
	}
	if caseOneArm == nil || len(caseOneArm.Values) != 2 {
		t.Fatalf("expected the two case values sharing dest 1 to aggregate into one arm, got %+v", cf.Cases)
	}
}

func TestReduceUnrecognizedEdgeShapeErrors(t *testing.T) {
	// A lone ConditionalJump edge with no matching ConditionalFlow,
	// Flow, Jump, or Case edge matches none of the classification rules.
	g := &cfg.Graph{
		Nodes: make([]cfg.BasicBlock, 2),
		Out: [][]cfg.Edge{
			{{Kind: cfg.ConditionalJump, Target: 1}},
			{},
		},
		Entry: 0,
	}
	doms := cfg.Analyze(g)
	if _, err := Reduce(g, doms); err == nil {
		t.Fatal("Reduce: expected a NodeReductionError for an unrecognized edge shape")
	} else if _, ok := err.(NodeReductionError); !ok {
		t.Fatalf("Reduce: expected NodeReductionError, got %T: %v", err, err)
	}
}
