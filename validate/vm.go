package validate

import (
	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/splitter"
)

// walkFunction symbolically replays fd's instruction stream with a bare
// height counter (depth), catching the arithmetic a malformed jump,
// splitter bug, or decoder bug would surface as: popping past empty, or a
// LEAVE whose return count differs from the function's. It does not check
// that the stack drains back to empty at a LEAVE. It does not attempt
// structured-control verification the way wagon's mockVM does (no block/
// loop/if nesting exists in this bytecode; control flow is unstructured
// jumps, which cfg/reduce handle, not validate).
func walkFunction(fd splitter.FunctionDescriptor, callees map[int]callee) error {
	d := &depth{}
	for _, rec := range fd.Instructions {
		pop, push, variable := stackDelta(rec)
		if variable {
			p, r, err := variableDelta(rec, fd, callees)
			if err != nil {
				return err
			}
			pop, push = p, r
		}
		debugLog.Printf("%s: pc=%#x op=%v depth=%d -> pop=%d push=%d", fd.Name, rec.Pos, rec.Instruction.Op, d.height, pop, push)
		if err := d.pop(pop); err != nil {
			return Error{Function: fd.Name, Offset: rec.Pos, Err: err}
		}
		d.push(push)
	}
	return nil
}

// variableDelta resolves the pop/push counts for the handful of opcodes
// whose arity is not fixed by the opcode alone.
func variableDelta(rec disasm.InstructionRecord, fd splitter.FunctionDescriptor, callees map[int]callee) (pop, push int, err error) {
	switch imm := rec.Instruction.Imm.(type) {
	case disasm.ImmNative:
		return int(imm.ArgCount), int(imm.ReturnCount), nil
	case disasm.ImmLeave:
		if int(imm.ReturnCount) != fd.Returns {
			return 0, 0, Error{Function: fd.Name, Offset: rec.Pos,
				Err: UnbalancedStackErr{Wanted: fd.Returns, Got: int(imm.ReturnCount)}}
		}
		return int(imm.ReturnCount), 0, nil
	}

	switch rec.Instruction.Op.String() {
	case "CALL":
		u24, ok := rec.Instruction.Imm.(disasm.ImmU24)
		if !ok {
			return 0, 0, nil
		}
		target := int(u24.Value)
		c, ok := callees[target]
		if !ok {
			return 0, 0, Error{Function: fd.Name, Offset: rec.Pos, Err: UnresolvedCallError(target)}
		}
		return c.params, c.returns, nil
	case "CALLINDIRECT":
		// The callee is a runtime value; its signature cannot be resolved
		// statically. We only verify the function-pointer operand itself
		// is present.
		return 1, 1, nil
	case "LOAD_N", "STORE_N", "TEXT_LABEL_ASSIGN_STRING", "TEXT_LABEL_ASSIGN_INT",
		"TEXT_LABEL_APPEND_STRING", "TEXT_LABEL_APPEND_INT", "TEXT_LABEL_COPY":
		// LOAD_N/STORE_N's arity depends on a popped count, not an
		// immediate; they and the TEXT_LABEL_* opcodes are not checked
		// here and count as popping and pushing nothing. Skip rather than
		// guess, consistent with spec §9's "do not guess" instruction.
		return 0, 0, nil
	}
	return 0, 0, nil
}

func jumpImmediate(imm interface{}) int {
	if j, ok := imm.(disasm.ImmJump); ok {
		return j.Target
	}
	return -1
}

// callee is the subset of lift.Callee validate needs; kept local to avoid
// an import cycle (lift imports nothing of validate's, but validate is
// meant to run standalone ahead of any lifting).
type callee struct {
	params  int
	returns int
}
