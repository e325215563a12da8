// Package validate provides a lightweight structural pre-lift validator
// for decoded script bytecode (spec §7's error-handling posture applied
// ahead of time): it checks that every jump/call target resolves and
// that the symbolic stack height stackDelta implies never goes negative,
// surfacing malformed input as an Error before decompile.Decompile's
// heavier cfg/reduce/lift machinery ever runs on it. It plays the role
// wagon's validate package plays for a WebAssembly module, adapted from
// its typed structured-control verifier (blocks/loops/ifs, a typed
// operand stack) to this bytecode's unstructured jump-based control flow
// and untyped stack: there is no static type system to check against
// before lifting builds one, so this only verifies shape, not types.
package validate

import (
	"github.com/yscdec/yscdec/cfg"
	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/script"
	"github.com/yscdec/yscdec/splitter"
)

// Validate runs the structural checks over every function split out of
// s: jump/case/call target resolution and symbolic stack-depth sanity.
// It stops at the first problem found, mirroring wagon's VerifyModule.
func Validate(s *script.Script) error {
	dis, err := disasm.Disassemble(s.Code, s.Version)
	if err != nil {
		return Error{Function: "<disassembly>", Offset: 0, Err: err}
	}

	funcs, err := splitter.Split(dis.Code)
	if err != nil {
		return Error{Function: "<split>", Offset: 0, Err: err}
	}

	callees := make(map[int]callee, len(funcs))
	for _, fd := range funcs {
		callees[fd.ByteLocation] = callee{params: fd.Parameters, returns: fd.Returns}
	}

	for _, fd := range funcs {
		debugLog.Printf("validating %s (%d instructions)", fd.Name, len(fd.Instructions))

		if err := checkJumpTargets(fd); err != nil {
			return err
		}
		if err := walkFunction(fd, callees); err != nil {
			return err
		}
	}
	return nil
}

// checkJumpTargets rebuilds fd's graph and confirms every control-transfer
// instruction produced the edge(s) cfg.Build would only omit for a
// dangling target; cfg.Build itself tolerates (and merely logs) those,
// so this is the pass that turns a silently incomplete graph into a
// reported error.
func checkJumpTargets(fd splitter.FunctionDescriptor) error {
	g, err := cfg.Build(fd.Instructions)
	if err != nil {
		return Error{Function: fd.Name, Offset: fd.ByteLocation, Err: err}
	}

	for n, b := range g.Nodes {
		last := b.Last()
		want := expectedOutDegree(last.Instruction)
		if want < 0 {
			continue
		}
		if len(g.Out[n]) < want {
			return Error{Function: fd.Name, Offset: last.Pos, Err: DanglingJumpError{Target: jumpImmediate(last.Instruction.Imm)}}
		}
	}
	return nil
}

// expectedOutDegree returns the minimum number of outgoing edges a block
// ending in instr must have, or -1 if instr does not constrain it (a
// plain fallthrough block, or one ending at the function's last
// instruction).
func expectedOutDegree(instr disasm.Instruction) int {
	switch imm := instr.Imm.(type) {
	case disasm.ImmJump:
		return 1
	case disasm.ImmSwitch:
		return len(imm.Cases)
	}
	return -1
}
