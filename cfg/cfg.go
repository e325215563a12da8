// Package cfg builds a function's basic-block graph (spec §4.3) and
// computes immediate dominators and dominance frontiers over it (spec
// §4.4). It is grounded on function_graph.rs's generate() and
// domination_frontiers(), the two pieces of that file still consistent
// with the rest of the original decompiler (its own structural reducer
// is superseded by cfg_reducer.rs, which our reduce package ports
// instead).
package cfg

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/ops"
)

var debugLog = log.New(ioutil.Discard, "cfg: ", log.Lshortfile)

// SetDebugMode toggles verbose block/edge construction tracing to stderr.
func SetDebugMode(v bool) {
	w := ioutil.Discard
	if v {
		w = os.Stderr
	}
	debugLog = log.New(w, "cfg: ", log.Lshortfile)
}

// EdgeKind tags a Graph edge (spec §3).
type EdgeKind int

const (
	Flow EdgeKind = iota
	Jump
	ConditionalFlow
	ConditionalJump
	Case
)

func (k EdgeKind) String() string {
	switch k {
	case Flow:
		return "flow"
	case Jump:
		return "jump"
	case ConditionalFlow:
		return "cond-flow"
	case ConditionalJump:
		return "cond-jump"
	case Case:
		return "case"
	default:
		return "?"
	}
}

// Edge is one outgoing transition from a basic block. CaseValue is only
// meaningful when Kind == Case.
type Edge struct {
	Kind      EdgeKind
	Target    int // node index
	CaseValue int64
}

// BasicBlock is a maximal straight-line run of instructions: it contains
// exactly one control-transfer instruction, and only as its last one; its
// only entry point is its first instruction (spec §3).
type BasicBlock struct {
	Instructions []disasm.InstructionRecord
}

func (b BasicBlock) first() disasm.InstructionRecord { return b.Instructions[0] }
func (b BasicBlock) last() disasm.InstructionRecord {
	return b.Instructions[len(b.Instructions)-1]
}

// Last returns the block's final instruction, its one control transfer
// (or, for a block ending at function end, whatever instruction is last).
// Exported for callers outside the package that need to inspect a block's
// terminating op without reaching into Instructions directly (e.g.
// package reduce's AndOr-chain detection).
func (b BasicBlock) Last() disasm.InstructionRecord { return b.last() }

// Graph is one function's basic-block graph, plus its node ordering
// (block 0 is always the entry, the block beginning at the function's
// ENTER instruction).
type Graph struct {
	Nodes []BasicBlock
	Out   [][]Edge // Out[n] = n's outgoing edges
	Entry int
}

// Predecessors returns every node with an edge targeting n.
func (g *Graph) Predecessors(n int) []int {
	var preds []int
	for u, edges := range g.Out {
		for _, e := range edges {
			if e.Target == n {
				preds = append(preds, u)
				break
			}
		}
	}
	return preds
}

func isControlTransfer(op ops.Op) bool {
	switch op {
	case ops.Jump, ops.JumpZero,
		ops.IfEqualJumpZero, ops.IfNotEqualJumpZero, ops.IfGreaterThanJumpZero,
		ops.IfGreaterOrEqualJumpZero, ops.IfLowerThanJumpZero, ops.IfLowerOrEqualJumpZero,
		ops.Switch, ops.Leave:
		return true
	}
	return false
}

func jumpTargets(instr disasm.Instruction) []int {
	switch imm := instr.Imm.(type) {
	case disasm.ImmJump:
		return []int{imm.Target}
	case disasm.ImmSwitch:
		targets := make([]int, len(imm.Cases))
		for i, c := range imm.Cases {
			targets[i] = c.Target
		}
		return targets
	}
	return nil
}

// Build constructs the basic-block graph for one function's instruction
// slice (spec §4.3 step A, step B). It errors only for an empty
// instruction slice; otherwise a jump whose target
// byte position does not land on a recognized block boundary produces a
// dangling edge that is simply omitted, matching the source's tolerance
// for bad jump targets (spec §7's GraphError policy).
func Build(instrs []disasm.InstructionRecord) (*Graph, error) {
	if len(instrs) == 0 {
		return nil, fmt.Errorf("cfg: empty instruction slice")
	}

	destinations := map[int]bool{}
	for _, rec := range instrs {
		for _, t := range jumpTargets(rec.Instruction) {
			destinations[t] = true
		}
	}

	var blocks []BasicBlock
	posToNode := map[int]int{}
	start := 0
	for i, rec := range instrs {
		posToNode[rec.Pos] = len(blocks) // tentative; fixed up when block closes
		end := isControlTransfer(rec.Instruction.Op)
		if !end && i+1 < len(instrs) && destinations[instrs[i+1].Pos] {
			end = true
		}
		if !end && i+1 == len(instrs) {
			end = true
		}
		if end {
			block := BasicBlock{Instructions: instrs[start : i+1]}
			posToNode[instrs[start].Pos] = len(blocks)
			blocks = append(blocks, block)
			start = i + 1
		}
	}

	g := &Graph{Nodes: blocks, Out: make([][]Edge, len(blocks)), Entry: 0}
	for n, b := range blocks {
		last := b.last()
		next := n + 1
		switch {
		case last.Instruction.Op == ops.Leave:
			// terminal, no outgoing edges.
		case last.Instruction.Op == ops.Jump:
			target := last.Instruction.Imm.(disasm.ImmJump).Target
			if tn, ok := posToNode[target]; ok {
				g.Out[n] = append(g.Out[n], Edge{Kind: Jump, Target: tn})
			} else {
				debugLog.Printf("node %d: dangling jump target %#x", n, target)
			}
		case ops.IsConditionalJumpZero(last.Instruction.Op) || last.Instruction.Op == ops.JumpZero:
			target := last.Instruction.Imm.(disasm.ImmJump).Target
			if tn, ok := posToNode[target]; ok {
				g.Out[n] = append(g.Out[n], Edge{Kind: ConditionalJump, Target: tn})
			} else {
				debugLog.Printf("node %d: dangling conditional jump target %#x", n, target)
			}
			if next < len(blocks) {
				g.Out[n] = append(g.Out[n], Edge{Kind: ConditionalFlow, Target: next})
			}
		case last.Instruction.Op == ops.Switch:
			sw := last.Instruction.Imm.(disasm.ImmSwitch)
			for _, c := range sw.Cases {
				if tn, ok := posToNode[c.Target]; ok {
					g.Out[n] = append(g.Out[n], Edge{Kind: Case, Target: tn, CaseValue: int64(c.Value)})
				} else {
					debugLog.Printf("node %d: dangling case target %#x", n, c.Target)
				}
			}
			if next < len(blocks) {
				g.Out[n] = append(g.Out[n], Edge{Kind: ConditionalFlow, Target: next})
			}
		default:
			if next < len(blocks) {
				g.Out[n] = append(g.Out[n], Edge{Kind: Flow, Target: next})
			}
		}
	}
	return g, nil
}
