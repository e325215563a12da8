// Package disasm decodes a flattened script code blob into an ordered
// sequence of typed instruction records (spec §4.1). It plays the same
// role wagon's own disasm package plays for WebAssembly function bodies:
// a single sequential pass over a byte reader, dispatching on the opcode
// byte, producing one decoded record per instruction with its exact byte
// span recorded alongside it.
package disasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/yscdec/yscdec/ops"
	"github.com/yscdec/yscdec/script"
)

// Instruction is one decoded opcode plus its typed immediate operand, if
// any. Imm is nil for opcodes with no operand bytes; otherwise it holds
// one of the Imm* types declared below.
type Instruction struct {
	Op  ops.Op
	Imm interface{}
}

// SwitchCase is one (value, absolute target) entry of a Switch
// instruction's case table.
type SwitchCase struct {
	Value  uint32
	Target int
}

type (
	// ImmU8 is the operand of single-byte-indexed opcodes (LocalU8,
	// StaticU8, ArrayU8's item size, AddU8/MultiplyU8's constant, ...).
	ImmU8 struct{ Value uint8 }
	// ImmU8U8 is PushConstU8U8's pair of byte literals.
	ImmU8U8 struct{ A, B uint8 }
	// ImmU8U8U8 is PushConstU8U8U8's triple of byte literals.
	ImmU8U8U8 struct{ A, B, C uint8 }
	// ImmU16 is the operand of U16-indexed opcodes (LocalU16, StaticU16,
	// GlobalU16, ArrayU16's item size).
	ImmU16 struct{ Value uint16 }
	// ImmS16 is a signed 16-bit literal or byte-offset immediate
	// (PushConstS16, AddS16, MultiplyS16, OffsetS16 family).
	ImmS16 struct{ Value int16 }
	// ImmU24 is a 24-bit index (StaticU24/GlobalU24 families,
	// PushConstU24, FunctionCall's target location).
	ImmU24 struct{ Value uint32 }
	// ImmU32 is PushConstU32's literal.
	ImmU32 struct{ Value uint32 }
	// ImmFloat is PushConstFloat's literal.
	ImmFloat struct{ Value float32 }
	// ImmJump is a control-transfer target, already resolved from its
	// on-disk relative i16 form to an absolute byte position.
	ImmJump struct{ Target int }
	// ImmSwitch is Switch's case table.
	ImmSwitch struct{ Cases []SwitchCase }
	// ImmEnter is Enter's frame shape plus optional inline name.
	ImmEnter struct {
		ArgCount  uint8
		FrameSize uint16
		Name      string // "" when the instruction carried no name
	}
	// ImmLeave is Leave's parameter/return counts.
	ImmLeave struct {
		ParamCount  uint8
		ReturnCount uint8
	}
	// ImmNative is NativeCall's packed arg/return counts plus native
	// table index.
	ImmNative struct {
		ArgCount    uint8
		ReturnCount uint8
		NativeIndex uint16
	}
	// ImmTextLabel is the buffer_size immediate shared by every
	// TextLabel* opcode.
	ImmTextLabel struct{ BufferSize uint8 }
)

// InstructionRecord pairs a decoded Instruction with its byte span in the
// original code blob (spec §3: records are contiguous and strictly
// increasing in Pos).
type InstructionRecord struct {
	Instruction Instruction
	Pos         int
	Bytes       []byte
}

// Disassembly is the decoder's full output for one code blob.
type Disassembly struct {
	Code []InstructionRecord
}

// InvalidOpcodeError is returned for a byte with no entry in the opcode
// table (after version patching).
type InvalidOpcodeError struct {
	Pos  int
	Byte byte
}

func (e InvalidOpcodeError) Error() string {
	return fmt.Sprintf("disasm: invalid opcode %#02x at position %d", e.Byte, e.Pos)
}

// TruncatedError is returned when an instruction's operand bytes run past
// the end of the code blob.
type TruncatedError struct {
	Pos int
	Op  ops.Op
}

func (e TruncatedError) Error() string {
	return fmt.Sprintf("disasm: truncated operand for %v at position %d", e.Op, e.Pos)
}

// InvalidNameError is returned when an Enter instruction's inline name is
// not valid UTF-8.
type InvalidNameError struct{ Pos int }

func (e InvalidNameError) Error() string {
	return fmt.Sprintf("disasm: invalid inline function name at position %d", e.Pos)
}

// InvalidJumpError is returned when a relative jump offset, applied at
// its instruction's end position, would produce a negative absolute
// address.
type InvalidJumpError struct {
	Pos    int
	Offset int16
}

func (e InvalidJumpError) Error() string {
	return fmt.Sprintf("disasm: invalid jump offset %d at position %d", e.Offset, e.Pos)
}

// Disassemble decodes code into an ordered instruction sequence. code is
// never mutated: the version-shift patch (ops.PatchByte) is applied to a
// private copy of each opcode byte as it is read, one instruction
// boundary at a time, never to the whole blob at once (see ops.PatchByte).
func Disassemble(code []byte, version script.Version) (*Disassembly, error) {
	preCutoff := version == script.VersionPreStaticU24
	r := bytes.NewReader(code)
	dis := &Disassembly{}

	for r.Len() > 0 {
		pos := len(code) - r.Len()
		rawOp, _ := r.ReadByte()
		op, err := ops.New(ops.PatchByte(rawOp, preCutoff))
		if err != nil {
			return nil, InvalidOpcodeError{Pos: pos, Byte: rawOp}
		}

		instr, decErr := decodeOperand(r, op, pos)
		if decErr != nil {
			return nil, decErr
		}

		end := len(code) - r.Len()
		dis.Code = append(dis.Code, InstructionRecord{
			Instruction: Instruction{Op: op, Imm: instr},
			Pos:         pos,
			Bytes:       code[pos:end],
		})
	}
	return dis, nil
}

func decodeOperand(r *bytes.Reader, op ops.Op, pos int) (interface{}, error) {
	trunc := func() error { return TruncatedError{Pos: pos, Op: op} }

	readU8 := func() (uint8, error) {
		b, err := r.ReadByte()
		if err != nil {
			return 0, trunc()
		}
		return b, nil
	}
	readU16 := func() (uint16, error) {
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, trunc()
		}
		return binary.LittleEndian.Uint16(b[:]), nil
	}
	readU24 := func() (uint32, error) {
		var b [3]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, trunc()
		}
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
	}
	readU32 := func() (uint32, error) {
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, trunc()
		}
		return binary.LittleEndian.Uint32(b[:]), nil
	}
	readS16 := func() (int16, error) {
		v, err := readU16()
		if err != nil {
			return 0, err
		}
		return int16(v), nil
	}

	jumpTarget := func(off int16) (int, error) {
		base := posAfterReader(r)
		target := base + int(off)
		if target < 0 {
			return 0, InvalidJumpError{Pos: pos, Offset: off}
		}
		return target, nil
	}

	switch op {
	case ops.Nop,
		ops.IntegerAdd, ops.IntegerSubtract, ops.IntegerMultiply, ops.IntegerDivide,
		ops.IntegerModulo, ops.IntegerNot, ops.IntegerNegate, ops.IntegerEquals,
		ops.IntegerNotEquals, ops.IntegerGreaterThan, ops.IntegerGreaterOrEqual,
		ops.IntegerLowerThan, ops.IntegerLowerOrEqual,
		ops.FloatAdd, ops.FloatSubtract, ops.FloatMultiply, ops.FloatDivide,
		ops.FloatModulo, ops.FloatNegate, ops.FloatEquals, ops.FloatNotEquals,
		ops.FloatGreaterThan, ops.FloatGreaterOrEqual, ops.FloatLowerThan, ops.FloatLowerOrEqual,
		ops.VectorAdd, ops.VectorSubtract, ops.VectorMultiply, ops.VectorDivide, ops.VectorNegate,
		ops.BitwiseAnd, ops.BitwiseOr, ops.BitwiseXor,
		ops.IntegerToFloat, ops.FloatToInteger, ops.FloatToVector,
		ops.Dup, ops.Drop,
		ops.Load, ops.Store, ops.StoreRev, ops.LoadN, ops.StoreN,
		ops.Offset,
		ops.String, ops.StringHash,
		ops.Catch, ops.Throw, ops.CallIndirect,
		ops.PushConstM1, ops.PushConst0, ops.PushConst1, ops.PushConst2, ops.PushConst3,
		ops.PushConst4, ops.PushConst5, ops.PushConst6, ops.PushConst7,
		ops.PushConstFm1, ops.PushConstF0, ops.PushConstF1, ops.PushConstF2, ops.PushConstF3,
		ops.PushConstF4, ops.PushConstF5, ops.PushConstF6, ops.PushConstF7,
		ops.BitTest:
		return nil, nil

	case ops.PushConstU8, ops.ArrayU8, ops.ArrayU8Load, ops.ArrayU8Store,
		ops.LocalU8, ops.LocalU8Load, ops.LocalU8Store,
		ops.StaticU8, ops.StaticU8Load, ops.StaticU8Store,
		ops.AddU8, ops.MultiplyU8,
		ops.OffsetU8, ops.OffsetU8Load, ops.OffsetU8Store:
		v, err := readU8()
		if err != nil {
			return nil, err
		}
		return ImmU8{Value: v}, nil

	case ops.PushConstU8U8:
		a, err := readU8()
		if err != nil {
			return nil, err
		}
		b, err := readU8()
		if err != nil {
			return nil, err
		}
		return ImmU8U8{A: a, B: b}, nil

	case ops.PushConstU8U8U8:
		a, err := readU8()
		if err != nil {
			return nil, err
		}
		b, err := readU8()
		if err != nil {
			return nil, err
		}
		c, err := readU8()
		if err != nil {
			return nil, err
		}
		return ImmU8U8U8{A: a, B: b, C: c}, nil

	case ops.PushConstU32:
		v, err := readU32()
		if err != nil {
			return nil, err
		}
		return ImmU32{Value: v}, nil

	case ops.PushConstFloat:
		v, err := readU32()
		if err != nil {
			return nil, err
		}
		return ImmFloat{Value: math.Float32frombits(v)}, nil

	case ops.PushConstS16, ops.AddS16, ops.MultiplyS16,
		ops.OffsetS16, ops.OffsetS16Load, ops.OffsetS16Store:
		v, err := readS16()
		if err != nil {
			return nil, err
		}
		return ImmS16{Value: v}, nil

	case ops.ArrayU16, ops.ArrayU16Load, ops.ArrayU16Store,
		ops.LocalU16, ops.LocalU16Load, ops.LocalU16Store,
		ops.StaticU16, ops.StaticU16Load, ops.StaticU16Store,
		ops.GlobalU16, ops.GlobalU16Load, ops.GlobalU16Store:
		v, err := readU16()
		if err != nil {
			return nil, err
		}
		return ImmU16{Value: v}, nil

	case ops.StaticU24, ops.StaticU24Load, ops.StaticU24Store,
		ops.GlobalU24, ops.GlobalU24Load, ops.GlobalU24Store,
		ops.PushConstU24, ops.FunctionCall:
		v, err := readU24()
		if err != nil {
			return nil, err
		}
		return ImmU24{Value: v}, nil

	case ops.Jump, ops.JumpZero,
		ops.IfEqualJumpZero, ops.IfNotEqualJumpZero, ops.IfGreaterThanJumpZero,
		ops.IfGreaterOrEqualJumpZero, ops.IfLowerThanJumpZero, ops.IfLowerOrEqualJumpZero:
		off, err := readS16()
		if err != nil {
			return nil, err
		}
		target, err := jumpTarget(off)
		if err != nil {
			return nil, err
		}
		return ImmJump{Target: target}, nil

	case ops.Switch:
		count, err := readU8()
		if err != nil {
			return nil, err
		}
		cases := make([]SwitchCase, 0, count)
		for i := 0; i < int(count); i++ {
			val, err := readU32()
			if err != nil {
				return nil, err
			}
			off, err := readS16()
			if err != nil {
				return nil, err
			}
			target, err := jumpTarget(off)
			if err != nil {
				return nil, err
			}
			cases = append(cases, SwitchCase{Value: val, Target: target})
		}
		return ImmSwitch{Cases: cases}, nil

	case ops.NativeCall:
		b, err := readU8()
		if err != nil {
			return nil, err
		}
		idx, err := readU16()
		if err != nil {
			return nil, err
		}
		return ImmNative{
			ArgCount:    (b >> 2) & 0x3f,
			ReturnCount: b & 0x3,
			NativeIndex: idx,
		}, nil

	case ops.Enter:
		argCount, err := readU8()
		if err != nil {
			return nil, err
		}
		frameSize, err := readU16()
		if err != nil {
			return nil, err
		}
		nameLen, err := readU8()
		if err != nil {
			return nil, err
		}
		var name string
		if nameLen > 0 {
			buf := make([]byte, nameLen)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, trunc()
			}
			if !utf8.Valid(buf) {
				return nil, InvalidNameError{Pos: pos}
			}
			name = string(buf)
		}
		return ImmEnter{ArgCount: argCount, FrameSize: frameSize, Name: name}, nil

	case ops.Leave:
		params, err := readU8()
		if err != nil {
			return nil, err
		}
		rets, err := readU8()
		if err != nil {
			return nil, err
		}
		return ImmLeave{ParamCount: params, ReturnCount: rets}, nil

	case ops.TextLabelAssignString, ops.TextLabelAssignInt,
		ops.TextLabelAppendString, ops.TextLabelAppendInt, ops.TextLabelCopy:
		v, err := readU8()
		if err != nil {
			return nil, err
		}
		return ImmTextLabel{BufferSize: v}, nil

	default:
		return nil, InvalidOpcodeError{Pos: pos, Byte: byte(op)}
	}
}

// posAfterReader returns the current absolute read position of r within
// the slice it was created from.
func posAfterReader(r *bytes.Reader) int {
	return int(r.Size()) - r.Len()
}
