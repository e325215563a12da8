package validate

import (
	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/ops"
)

// depth is a symbolic stack-height counter, the validation counterpart of
// wagon's typed operand stack: we have no static type information before
// lifting (vtype's lattice is built during, not ahead of, that pass), so
// this only tracks height, not value kind.
type depth struct {
	height int
}

func (d *depth) pop(n int) error {
	if d.height < n {
		return ErrStackUnderflow
	}
	d.height -= n
	return nil
}

func (d *depth) push(n int) {
	d.height += n
}

// stackDelta reports the fixed pop/push counts for rec's opcode. variable
// is true for opcodes whose arity depends on an immediate or a callee's
// signature (NATIVE, CALL, CALLINDIRECT, LOAD_N/STORE_N, the TEXT_LABEL_*
// family) or that end a function's block (LEAVE); callers special-
// case those rather than trusting a guessed fixed count.
func stackDelta(rec disasm.InstructionRecord) (pop, push int, variable bool) {
	switch rec.Instruction.Op {
	case ops.Nop, ops.Enter, ops.Jump:
		return 0, 0, false

	case ops.IntegerAdd, ops.IntegerSubtract, ops.IntegerMultiply, ops.IntegerDivide, ops.IntegerModulo,
		ops.IntegerEquals, ops.IntegerNotEquals, ops.IntegerGreaterThan, ops.IntegerGreaterOrEqual,
		ops.IntegerLowerThan, ops.IntegerLowerOrEqual,
		ops.FloatAdd, ops.FloatSubtract, ops.FloatMultiply, ops.FloatDivide, ops.FloatModulo,
		ops.FloatEquals, ops.FloatNotEquals, ops.FloatGreaterThan, ops.FloatGreaterOrEqual,
		ops.FloatLowerThan, ops.FloatLowerOrEqual,
		ops.BitwiseAnd, ops.BitwiseOr, ops.BitwiseXor, ops.BitTest:
		return 2, 1, false

	case ops.IntegerNot, ops.IntegerNegate, ops.FloatNegate, ops.IntegerToFloat, ops.FloatToInteger,
		ops.AddU8, ops.MultiplyU8, ops.AddS16, ops.MultiplyS16,
		ops.Load, ops.StringHash, ops.LocalU8Load, ops.LocalU16Load, ops.StaticU8Load,
		ops.StaticU16Load, ops.StaticU24Load, ops.GlobalU16Load, ops.GlobalU24Load,
		ops.OffsetU8Load, ops.OffsetS16Load,
		ops.OffsetU8, ops.OffsetS16:
		return 1, 1, false

	case ops.VectorAdd, ops.VectorSubtract, ops.VectorMultiply, ops.VectorDivide:
		return 6, 3, false

	case ops.VectorNegate:
		return 3, 3, false

	case ops.FloatToVector:
		return 1, 3, false

	case ops.PushConstU8, ops.PushConstU8U8, ops.PushConstU8U8U8, ops.PushConstU32,
		ops.PushConstFloat, ops.PushConstS16, ops.PushConstU24,
		ops.PushConstM1, ops.PushConst0, ops.PushConst1, ops.PushConst2, ops.PushConst3,
		ops.PushConst4, ops.PushConst5, ops.PushConst6, ops.PushConst7,
		ops.PushConstFm1, ops.PushConstF0, ops.PushConstF1, ops.PushConstF2, ops.PushConstF3,
		ops.PushConstF4, ops.PushConstF5, ops.PushConstF6, ops.PushConstF7,
		ops.LocalU8, ops.LocalU16, ops.StaticU8, ops.StaticU16, ops.StaticU24,
		ops.GlobalU16, ops.GlobalU24, ops.Catch, ops.String:
		return 0, 1, false

	case ops.Dup:
		return 1, 2, false

	case ops.Drop, ops.JumpZero, ops.Switch, ops.Throw,
		ops.LocalU8Store, ops.LocalU16Store, ops.StaticU8Store, ops.StaticU16Store,
		ops.StaticU24Store, ops.GlobalU16Store, ops.GlobalU24Store:
		return 1, 0, false

	case ops.Store, ops.StoreRev,
		ops.IfEqualJumpZero, ops.IfNotEqualJumpZero, ops.IfGreaterThanJumpZero,
		ops.IfGreaterOrEqualJumpZero, ops.IfLowerThanJumpZero, ops.IfLowerOrEqualJumpZero:
		return 2, 0, false

	case ops.ArrayU8, ops.ArrayU16, ops.Offset, ops.ArrayU8Load, ops.ArrayU16Load:
		return 2, 1, false

	case ops.ArrayU8Store, ops.ArrayU16Store, ops.OffsetU8Store, ops.OffsetS16Store:
		return 3, 0, false

	case ops.NativeCall, ops.FunctionCall, ops.CallIndirect, ops.Leave,
		ops.LoadN, ops.StoreN,
		ops.TextLabelAssignString, ops.TextLabelAssignInt,
		ops.TextLabelAppendString, ops.TextLabelAppendInt, ops.TextLabelCopy:
		return 0, 0, true

	default:
		return 0, 0, true
	}
}
