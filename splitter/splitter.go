// Package splitter implements the Function Splitter (spec §4.2): it scans
// a decoded instruction sequence and partitions it into one
// FunctionDescriptor per ENTER/LEAVE region.
package splitter

import (
	"fmt"

	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/ops"
)

// FunctionDescriptor describes one function's region of the instruction
// stream (spec §3). The first instruction is always ENTER and the last is
// always LEAVE. The first two local slots after Parameters are the
// reserved return-address/caller-frame slots and are never addressable
// from lifted code.
type FunctionDescriptor struct {
	Name         string
	ByteLocation int
	Parameters   int
	Returns      int
	Locals       int
	Instructions []disasm.InstructionRecord
}

// state is the splitter's state machine (spec §4.8): OutsideFunction while
// scanning for the next ENTER, InsideFunction while tracking the most
// recent LEAVE seen so far in the current region.
type state int

const (
	outsideFunction state = iota
	insideFunction
)

// Split scans code in order, pairing every ENTER with the *last* LEAVE
// seen before the next ENTER or end-of-stream (scripts contain inline
// LEAVEs for early returns, so the boundary LEAVE is never assumed to be
// the first one encountered).
func Split(code []disasm.InstructionRecord) ([]FunctionDescriptor, error) {
	var funcs []FunctionDescriptor
	st := outsideFunction

	var (
		start        int
		enter        disasm.ImmEnter
		lastLeaveIdx = -1
		lastLeave    disasm.ImmLeave
		anonCount    int
	)

	flush := func(end int) error {
		if lastLeaveIdx < 0 {
			return fmt.Errorf("splitter: function starting at %d has no LEAVE", code[start].Pos)
		}
		name := enter.Name
		if name == "" {
			name = fmt.Sprintf("func_%d", anonCount)
			anonCount++
		}
		frameSize := int(enter.FrameSize)
		params := int(enter.ArgCount)
		locals := frameSize - params - 2
		if locals < 0 {
			locals = 0
		}
		funcs = append(funcs, FunctionDescriptor{
			Name:         name,
			ByteLocation: code[start].Pos,
			Parameters:   params,
			Returns:      int(lastLeave.ReturnCount),
			Locals:       locals,
			Instructions: code[start : end+1],
		})
		return nil
	}

	for i, rec := range code {
		switch rec.Instruction.Op {
		case ops.Enter:
			if st == insideFunction {
				if err := flush(lastLeaveIdx); err != nil {
					return nil, err
				}
			}
			st = insideFunction
			start = i
			enter = rec.Instruction.Imm.(disasm.ImmEnter)
			lastLeaveIdx = -1
		case ops.Leave:
			if st != insideFunction {
				return nil, fmt.Errorf("splitter: LEAVE at %d outside any ENTER", rec.Pos)
			}
			lastLeaveIdx = i
			lastLeave = rec.Instruction.Imm.(disasm.ImmLeave)
		}
	}
	if st == insideFunction {
		if err := flush(lastLeaveIdx); err != nil {
			return nil, err
		}
	}
	return funcs, nil
}
