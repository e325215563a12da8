package cfg

import (
	"testing"

	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/ops"
	"github.com/yscdec/yscdec/script"
)

// diamond builds the classic if/then-merge shape:
//
//	node0: PUSH_CONST_1; JZ node2
//	node1: PUSH_CONST_2; J node3     (fallthrough target of node0)
//	node2: PUSH_CONST_3               (conditional-jump target of node0)
//	node3: DROP                       (merge point)
func diamond(t *testing.T) []disasm.InstructionRecord {
	t.Helper()
	code := []byte{
		byte(ops.PushConst1),           // pos0
		byte(ops.JumpZero), 0x04, 0x00, // pos1-3, target pos8
		byte(ops.PushConst2),       // pos4
		byte(ops.Jump), 0x01, 0x00, // pos5-7, target pos9
		byte(ops.PushConst3), // pos8
		byte(ops.Drop),       // pos9
	}
	dis, err := disasm.Disassemble(code, script.VersionCurrent)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	return dis.Code
}

func TestBuildDiamond(t *testing.T) {
	g, err := Build(diamond(t))
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Fatalf("got %d nodes, want 4", len(g.Nodes))
	}

	if len(g.Out[0]) != 2 {
		t.Fatalf("node 0 should have 2 outgoing edges, got %d: %v", len(g.Out[0]), g.Out[0])
	}
	var sawCondJump, sawCondFlow bool
	for _, e := range g.Out[0] {
		switch e.Kind {
		case ConditionalJump:
			sawCondJump = true
			if e.Target != 2 {
				t.Errorf("conditional jump target = %d, want 2", e.Target)
			}
		case ConditionalFlow:
			sawCondFlow = true
			if e.Target != 1 {
				t.Errorf("conditional flow target = %d, want 1", e.Target)
			}
		}
	}
	if !sawCondJump || !sawCondFlow {
		t.Fatalf("node 0 missing expected edge kinds: %v", g.Out[0])
	}

	if len(g.Out[1]) != 1 || g.Out[1][0].Kind != Jump || g.Out[1][0].Target != 3 {
		t.Errorf("node 1 edges = %v, want one Jump to 3", g.Out[1])
	}
	if len(g.Out[2]) != 1 || g.Out[2][0].Kind != Flow || g.Out[2][0].Target != 3 {
		t.Errorf("node 2 edges = %v, want one Flow to 3", g.Out[2])
	}
	if len(g.Out[3]) != 0 {
		t.Errorf("node 3 (function end) should have no outgoing edges, got %v", g.Out[3])
	}
}

func TestBuildEmptyInstructions(t *testing.T) {
	if _, err := Build(nil); err == nil {
		t.Fatal("Build(nil): expected an error")
	}
}

func TestAnalyzeDiamondFrontier(t *testing.T) {
	g, err := Build(diamond(t))
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	doms := Analyze(g)

	for n := 0; n < 4; n++ {
		if !doms.Dominates(0, n) {
			t.Errorf("entry should dominate node %d", n)
		}
	}
	if doms.Dominates(1, 2) || doms.Dominates(2, 1) {
		t.Error("node 1 and node 2 should not dominate each other")
	}

	for _, n := range []int{1, 2} {
		f := doms.FrontierOf(n)
		if len(f) != 1 || f[0] != 3 {
			t.Errorf("FrontierOf(%d) = %v, want [3]", n, f)
		}
	}
	if f := doms.FrontierOf(0); len(f) != 0 {
		t.Errorf("FrontierOf(entry) = %v, want empty", f)
	}
}

func TestPredecessors(t *testing.T) {
	g, err := Build(diamond(t))
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	preds := g.Predecessors(3)
	if len(preds) != 2 {
		t.Fatalf("Predecessors(3) = %v, want 2 entries", preds)
	}
}
