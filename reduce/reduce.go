// Package reduce implements the Structural Reducer (spec §4.5): one pass
// over a function's dominator tree producing a ControlFlow record per
// node, grounded on cfg_reducer.rs's reduce()/reduce_node() and the
// ordered chain of try_reduce_* strategies it combines. Unlike the
// source, which recurses directly into statement construction, reduce
// here only produces the flat node->ControlFlow classification (spec §2
// step 5); package lift walks that classification to build statements
// (spec §2 step 6), keeping the two concerns as separable as the source
// itself treats them (disassembler/decompiler.rs's two-phase
// "reduce, then decompile_node" structure).
package reduce

import (
	"fmt"
	"sort"

	"github.com/yscdec/yscdec/cfg"
	"github.com/yscdec/yscdec/ir"
	"github.com/yscdec/yscdec/ops"
)

// NodeReductionError is returned for a node whose outgoing-edge shape
// matches none of spec §4.5's classification rules.
type NodeReductionError struct {
	Node int
	Msg  string
}

func (e NodeReductionError) Error() string {
	return fmt.Sprintf("reduce: node %d: %s", e.Node, e.Msg)
}

// Reduce classifies every node reachable from g.Entry into a
// ir.ControlFlow, returning the flat map spec §6 calls the Structural
// Reducer's output. It errors on the first node whose edges match none
// of the classification rules (spec §7's ReductionError policy: the
// reducer errors before the lifter runs, so a malformed graph never
// reaches statement construction).
func Reduce(g *cfg.Graph, doms *cfg.Dominators) (map[int]ir.ControlFlow, error) {
	domChildren := buildDomChildren(doms)
	result := map[int]ir.ControlFlow{}
	visited := map[int]bool{}

	var rec func(n int, parents []ir.FlowType) error
	rec = func(n int, parents []ir.FlowType) error {
		if visited[n] {
			return nil
		}
		visited[n] = true

		cf, err := classify(g, doms, n, parents)
		if err != nil {
			return err
		}
		result[n] = cf

		switch cf.Kind {
		case ir.KindWhileLoop:
			child := push(parents, ir.FlowType{Kind: ir.FlowLoop, Node: n, After: cf.After, HasAfter: cf.HasAfter})
			if err := rec(cf.Body, child); err != nil {
				return err
			}
		case ir.KindSwitch:
			child := push(parents, ir.FlowType{Kind: ir.FlowSwitch, Node: n, After: cf.After, HasAfter: cf.HasAfter})
			for _, arm := range cf.Cases {
				if err := rec(arm.Dest, child); err != nil {
					return err
				}
			}
		case ir.KindIf:
			child := push(parents, ir.FlowType{Kind: ir.FlowNonBreakable, Node: n, After: cf.After, HasAfter: cf.HasAfter})
			if err := rec(cf.Then, child); err != nil {
				return err
			}
		case ir.KindIfElse:
			child := push(parents, ir.FlowType{Kind: ir.FlowNonBreakable, Node: n, After: cf.After, HasAfter: cf.HasAfter})
			if err := rec(cf.Then, child); err != nil {
				return err
			}
			if err := rec(cf.Else, child); err != nil {
				return err
			}
		case ir.KindAndOr:
			child := push(parents, ir.FlowType{Kind: ir.FlowNonBreakable, Node: n, After: cf.After, HasAfter: cf.HasAfter})
			if err := rec(cf.With, child); err != nil {
				return err
			}
		}

		if cf.HasAfter {
			if err := rec(cf.After, parents); err != nil {
				return err
			}
		}
		// Totality (spec §8 invariant 6): any dominator-tree child not
		// reached through the constructs above (dead ends, unstructured
		// leftovers) is still visited, with the unchanged enclosing
		// context, so every reachable node gets a ControlFlow record.
		for _, c := range domChildren[n] {
			if err := rec(c, parents); err != nil {
				return err
			}
		}
		return nil
	}

	if err := rec(g.Entry, nil); err != nil {
		return nil, err
	}
	return result, nil
}

func push(parents []ir.FlowType, f ir.FlowType) []ir.FlowType {
	next := make([]ir.FlowType, len(parents)+1)
	copy(next, parents)
	next[len(parents)] = f
	return next
}

func buildDomChildren(doms *cfg.Dominators) map[int][]int {
	children := map[int][]int{}
	for n, idom := range doms.Idom {
		if n != idom {
			children[idom] = append(children[idom], n)
		}
	}
	return children
}

func classify(g *cfg.Graph, doms *cfg.Dominators, n int, parents []ir.FlowType) (ir.ControlFlow, error) {
	edges := g.Out[n]
	if len(edges) == 0 {
		return ir.ControlFlow{Kind: ir.KindLeaf, Node: n}, nil
	}

	var (
		hasJump, hasFlow, hasCondJump, hasCondFlow bool
		jumpTarget, flowTarget                     int
		condJumpTarget, condFlowTarget             int
		cases                                      []cfg.Edge
	)
	for _, e := range edges {
		switch e.Kind {
		case cfg.Jump:
			hasJump, jumpTarget = true, e.Target
		case cfg.Flow:
			hasFlow, flowTarget = true, e.Target
		case cfg.ConditionalJump:
			hasCondJump, condJumpTarget = true, e.Target
		case cfg.ConditionalFlow:
			hasCondFlow, condFlowTarget = true, e.Target
		case cfg.Case:
			cases = append(cases, e)
		}
	}

	if len(cases) > 0 {
		return classifySwitch(g, doms, n, cases, hasCondFlow, condFlowTarget)
	}

	if hasCondJump && hasCondFlow {
		return classifyConditional(g, doms, n, condJumpTarget, condFlowTarget)
	}

	if hasCondFlow && !hasCondJump {
		y := condFlowTarget
		if contains(doms.FrontierOf(y), n) {
			return ir.ControlFlow{Kind: ir.KindWhileLoop, Node: n, Body: y, After: n, HasAfter: false}, nil
		}
		return ir.ControlFlow{Kind: ir.KindIf, Node: n, Then: y, HasAfter: false}, nil
	}

	if hasFlow {
		return ir.ControlFlow{Kind: ir.KindFlow, Node: n, After: flowTarget, HasAfter: true}, nil
	}

	if hasJump {
		if t, ok := isBreak(jumpTarget, parents); ok {
			return ir.ControlFlow{Kind: ir.KindBreak, Node: n, Target: t}, nil
		}
		if t, ok := isContinue(jumpTarget, g, parents); ok {
			return ir.ControlFlow{Kind: ir.KindContinue, Node: n, Target: t}, nil
		}
		return ir.ControlFlow{Kind: ir.KindLeaf, Node: n}, nil
	}

	return ir.ControlFlow{}, NodeReductionError{Node: n, Msg: "unrecognized edge pattern"}
}

func classifyConditional(g *cfg.Graph, doms *cfg.Dominators, n, x, y int) (ir.ControlFlow, error) {
	if x == y {
		if x == n {
			return ir.ControlFlow{Kind: ir.KindLeaf, Node: n}, nil
		}
		return ir.ControlFlow{Kind: ir.KindFlow, Node: n, After: x, HasAfter: true}, nil
	}

	yFrontier := doms.FrontierOf(y)
	xFrontier := doms.FrontierOf(x)

	switch {
	case contains(yFrontier, n):
		hasAfter := x != n
		return ir.ControlFlow{Kind: ir.KindWhileLoop, Node: n, Body: y, After: x, HasAfter: hasAfter}, nil

	case contains(yFrontier, x) && isAndOrNode(g, doms, y):
		return ir.ControlFlow{Kind: ir.KindAndOr, Node: n, With: y, After: x, HasAfter: true}, nil

	case contains(yFrontier, x):
		return ir.ControlFlow{Kind: ir.KindIf, Node: n, Then: y, After: x, HasAfter: true}, nil

	case contains(xFrontier, n):
		// Inverse while: the taken branch is the loop body rather than
		// the fallthrough (spec §9 supplemented "inverse" support).
		hasAfter := y != n
		return ir.ControlFlow{Kind: ir.KindWhileLoop, Node: n, Body: x, Inverted: true, After: y, HasAfter: hasAfter}, nil

	case contains(xFrontier, y):
		// Inverse if: the taken branch X is the dominated then-body and
		// the fallthrough Y is the after node.
		return ir.ControlFlow{Kind: ir.KindIf, Node: n, Then: x, Inverted: true, After: y, HasAfter: true}, nil

	default:
		after, ok := uniqueFrontierIntersection(xFrontier, yFrontier, x, y)
		return ir.ControlFlow{Kind: ir.KindIfElse, Node: n, Then: y, Else: x, After: after, HasAfter: ok}, nil
	}
}

func uniqueFrontierIntersection(xf, yf []int, x, y int) (int, bool) {
	set := map[int]bool{}
	for _, v := range xf {
		set[v] = true
	}
	var common []int
	for _, v := range yf {
		if set[v] && v != x && v != y {
			common = appendUniqueInt(common, v)
		}
	}
	if len(common) == 1 {
		return common[0], true
	}
	return 0, false
}

func classifySwitch(g *cfg.Graph, doms *cfg.Dominators, n int, cases []cfg.Edge, hasDefault bool, defaultTarget int) (ir.ControlFlow, error) {
	order := []int{}
	groups := map[int][]ir.CaseValue{}
	for _, e := range cases {
		if _, ok := groups[e.Target]; !ok {
			order = append(order, e.Target)
		}
		groups[e.Target] = append(groups[e.Target], ir.CaseValue{Value: int64(e.CaseValue)})
	}
	if hasDefault {
		if _, ok := groups[defaultTarget]; !ok {
			order = append(order, defaultTarget)
		}
		groups[defaultTarget] = append(groups[defaultTarget], ir.CaseValue{Default: true})
	}

	arms := make([]ir.SwitchArm, 0, len(order))
	for _, d := range order {
		arms = append(arms, ir.SwitchArm{Dest: d, Values: groups[d]})
	}

	// Detect mutual frontier membership before sorting: cfg_reducer.rs's
	// reduce_switch treats this as an error rather than an arbitrary tie
	// break, since it means neither arm can be said to come "before" the
	// other (spec §4.5 Switch aggregation).
	for i := 0; i < len(arms); i++ {
		for j := i + 1; j < len(arms); j++ {
			iBeforeJ := contains(doms.FrontierOf(arms[i].Dest), arms[j].Dest)
			jBeforeI := contains(doms.FrontierOf(arms[j].Dest), arms[i].Dest)
			if iBeforeJ && jBeforeI {
				return ir.ControlFlow{}, NodeReductionError{
					Node: n,
					Msg:  fmt.Sprintf("switch has case nodes %d and %d that frontier at each other", arms[i].Dest, arms[j].Dest),
				}
			}
		}
	}
	sort.SliceStable(arms, func(i, j int) bool {
		return contains(doms.FrontierOf(arms[i].Dest), arms[j].Dest)
	})

	after, ok, err := switchAfter(doms, n, arms)
	if err != nil {
		return ir.ControlFlow{}, err
	}
	return ir.ControlFlow{Kind: ir.KindSwitch, Node: n, Cases: arms, After: after, HasAfter: ok}, nil
}

// switchAfter finds the unique frontier successor shared by the switch's
// arms that is neither a case destination itself nor already in the
// switch node's own frontier (spec §4.5). Unlike spec's literal wording
// ("absence or multiplicity is an error"), an empty result here is
// treated as "no after" rather than an error: a switch whose every arm
// terminates (e.g. every case returns) legitimately has nothing after it,
// which is common enough in real scripts that erroring would reject
// otherwise well-formed functions. Multiplicity remains an error, since
// that signals a genuine structural ambiguity the reducer can't resolve.
func switchAfter(doms *cfg.Dominators, n int, arms []ir.SwitchArm) (int, bool, error) {
	isDest := map[int]bool{}
	for _, a := range arms {
		isDest[a.Dest] = true
	}
	nFrontier := doms.FrontierOf(n)
	isNFrontier := map[int]bool{}
	for _, v := range nFrontier {
		isNFrontier[v] = true
	}

	candidates := map[int]bool{}
	for _, a := range arms {
		for _, f := range doms.FrontierOf(a.Dest) {
			if !isDest[f] && !isNFrontier[f] {
				candidates[f] = true
			}
		}
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}
	if len(candidates) > 1 {
		return 0, false, NodeReductionError{Node: n, Msg: fmt.Sprintf("switch arms share %d after candidates", len(candidates))}
	}
	for c := range candidates {
		return c, true, nil
	}
	return 0, false, nil
}

// isAndOrNode reports whether y is the tail of a compiler-generated
// short-circuit chain: y's single dominance-frontier successor has
// exactly one incoming edge from a node y dominates whose last
// instruction is a bitwise AND/OR (spec §4.5 "AndOr detection").
func isAndOrNode(g *cfg.Graph, doms *cfg.Dominators, y int) bool {
	frontier := doms.FrontierOf(y)
	if len(frontier) != 1 {
		return false
	}
	z := frontier[0]
	var bitwisePred int = -1
	count := 0
	for _, p := range g.Predecessors(z) {
		if doms.Dominates(y, p) {
			count++
			bitwisePred = p
		}
	}
	if count != 1 {
		return false
	}
	last := g.Nodes[bitwisePred].Last().Instruction.Op
	return last == ops.BitwiseAnd || last == ops.BitwiseOr
}

// isBreak walks the enclosing-context stack innermost-first. A
// NonBreakable layer whose own After equals t is a transparent pass
// through (falling off this construct naturally reaches t, so the search
// continues outward); any other mismatch stops the search. A Loop or
// Switch layer whose After equals t makes t a Break of that construct.
func isBreak(t int, parents []ir.FlowType) (int, bool) {
	for i := len(parents) - 1; i >= 0; i-- {
		p := parents[i]
		if !p.HasAfter || p.After != t {
			return 0, false
		}
		if p.Kind != ir.FlowNonBreakable {
			return t, true
		}
	}
	return 0, false
}

// isContinue reports whether t targets, or flows from, the nearest
// enclosing Loop's head, passing transparently through Switch/NonBreakable
// layers in between. Per spec §4.5, it is not a continue if t also equals
// the nearest enclosing after-target (that's better read as falling out
// to the after node than as looping back).
func isContinue(t int, g *cfg.Graph, parents []ir.FlowType) (int, bool) {
	nearestAfter, hasNearestAfter := 0, false
	for i := len(parents) - 1; i >= 0; i-- {
		p := parents[i]
		if !hasNearestAfter && p.HasAfter {
			nearestAfter, hasNearestAfter = p.After, true
		}
		if p.Kind != ir.FlowLoop {
			continue
		}
		match := t == p.Node
		if !match {
			for _, e := range g.Out[p.Node] {
				if e.Target == t {
					match = true
					break
				}
			}
		}
		if match && !(hasNearestAfter && nearestAfter == t) {
			return t, true
		}
		return 0, false
	}
	return 0, false
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func appendUniqueInt(s []int, v int) []int {
	if contains(s, v) {
		return s
	}
	return append(s, v)
}
