// Package decompile is the top-level orchestrator (spec §2): it wires
// package disasm, splitter, cfg, reduce, and lift into the full pipeline
// from a script.Script to the decompiled function set, grounded on
// decompiler/mod.rs's top-level decompile_script().
package decompile

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/yscdec/yscdec/cfg"
	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/ir"
	"github.com/yscdec/yscdec/lift"
	"github.com/yscdec/yscdec/reduce"
	"github.com/yscdec/yscdec/script"
	"github.com/yscdec/yscdec/splitter"
	"github.com/yscdec/yscdec/vtype"
)

var debugLog = log.New(ioutil.Discard, "decompile: ", log.Lshortfile)

// SetDebugMode toggles per-function pipeline-stage tracing to stderr.
func SetDebugMode(v bool) {
	w := ioutil.Discard
	if v {
		w = os.Stderr
	}
	debugLog = log.New(w, "decompile: ", log.Lshortfile)
}

// Error wraps a pipeline-stage failure with the function and byte offset
// it occurred at (spec §7), mirroring validate.Error{Offset,Function,Err}.
type Error struct {
	Function string
	Offset   int
	Err      error
}

func (e Error) Error() string {
	return fmt.Sprintf("decompile: function %q at offset %#x: %v", e.Function, e.Offset, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// Result is the full decompilation output for one script.
type Result struct {
	Arena     *vtype.Arena
	Functions []*ir.DecompiledFunction
}

// functionStage holds everything computed for one function up to (but not
// including) lifting, since lift needs every function's Callee info
// resolved before any one of them can run (a FunctionCall may target a
// function later in the stream).
type functionStage struct {
	fd    splitter.FunctionDescriptor
	graph *cfg.Graph
	doms  *cfg.Dominators
	flows map[int]ir.ControlFlow
}

// Decompile runs the full pipeline over s: disassemble, split into
// functions, build each function's graph and dominator tree, structurally
// reduce it, then lift every function against a shared type arena (spec
// §2, §4.7).
func Decompile(s *script.Script) (*Result, error) {
	dis, err := disasm.Disassemble(s.Code, s.Version)
	if err != nil {
		return nil, Error{Function: "<disassembly>", Offset: 0, Err: err}
	}

	funcs, err := splitter.Split(dis.Code)
	if err != nil {
		return nil, Error{Function: "<split>", Offset: 0, Err: err}
	}

	callees := map[int]lift.Callee{}
	stages := make([]functionStage, 0, len(funcs))
	for _, fd := range funcs {
		callees[fd.ByteLocation] = lift.Callee{Name: fd.Name, Params: fd.Parameters, Returns: fd.Returns}

		g, err := cfg.Build(fd.Instructions)
		if err != nil {
			return nil, Error{Function: fd.Name, Offset: fd.ByteLocation, Err: err}
		}
		doms := cfg.Analyze(g)
		flows, err := reduce.Reduce(g, doms)
		if err != nil {
			return nil, Error{Function: fd.Name, Offset: fd.ByteLocation, Err: err}
		}
		stages = append(stages, functionStage{fd: fd, graph: g, doms: doms, flows: flows})
	}

	arena := vtype.NewArena()
	statics := map[int]vtype.Handle{}
	globals := map[int]vtype.Handle{}

	result := &Result{Arena: arena}
	for _, st := range stages {
		debugLog.Printf("lifting %s (%d instructions, %d nodes)", st.fd.Name, len(st.fd.Instructions), len(st.graph.Nodes))
		fn, err := lift.LiftFunction(st.fd, st.graph, st.flows, arena, s, statics, globals, callees)
		if err != nil {
			return nil, Error{Function: st.fd.Name, Offset: st.fd.ByteLocation, Err: err}
		}
		result.Functions = append(result.Functions, fn)
	}
	return result, nil
}
