// Package ops provides the canonical opcode table for the script bytecode,
// mirroring the role wagon's wasm/operators package plays for WebAssembly:
// a flat, numerically-ordered set of named opcodes plus a byte->Op lookup.
package ops

import "fmt"

// Op identifies one opcode in the canonical (post version-patch) numbering.
type Op byte

// Canonical opcode numbering. This ordering is load-bearing: the decoder,
// the version-shift patch (see PatchByte), and every switch over Op in disasm,
// lift and reduce all depend on these exact byte values.
const (
	Nop Op = iota
	IntegerAdd
	IntegerSubtract
	IntegerMultiply
	IntegerDivide
	IntegerModulo
	IntegerNot
	IntegerNegate
	IntegerEquals
	IntegerNotEquals
	IntegerGreaterThan
	IntegerGreaterOrEqual
	IntegerLowerThan
	IntegerLowerOrEqual
	FloatAdd
	FloatSubtract
	FloatMultiply
	FloatDivide
	FloatModulo
	FloatNegate
	FloatEquals
	FloatNotEquals
	FloatGreaterThan
	FloatGreaterOrEqual
	FloatLowerThan
	FloatLowerOrEqual
	VectorAdd
	VectorSubtract
	VectorMultiply
	VectorDivide
	VectorNegate
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	IntegerToFloat
	FloatToInteger
	FloatToVector
	PushConstU8
	PushConstU8U8
	PushConstU8U8U8
	PushConstU32
	PushConstFloat
	Dup
	Drop
	NativeCall
	Enter
	Leave
	Load
	Store
	StoreRev
	LoadN
	StoreN
	ArrayU8
	ArrayU8Load
	ArrayU8Store
	LocalU8
	LocalU8Load
	LocalU8Store
	StaticU8
	StaticU8Load
	StaticU8Store
	AddU8
	MultiplyU8
	Offset
	OffsetU8
	OffsetU8Load
	OffsetU8Store
	PushConstS16
	AddS16
	MultiplyS16
	OffsetS16
	OffsetS16Load
	OffsetS16Store
	ArrayU16
	ArrayU16Load
	ArrayU16Store
	LocalU16
	LocalU16Load
	LocalU16Store
	StaticU16
	StaticU16Load
	StaticU16Store
	GlobalU16
	GlobalU16Load
	GlobalU16Store
	Jump
	JumpZero
	IfEqualJumpZero
	IfNotEqualJumpZero
	IfGreaterThanJumpZero
	IfGreaterOrEqualJumpZero
	IfLowerThanJumpZero
	IfLowerOrEqualJumpZero
	FunctionCall
	StaticU24
	StaticU24Load
	StaticU24Store
	GlobalU24
	GlobalU24Load
	GlobalU24Store
	PushConstU24
	Switch
	String
	StringHash
	TextLabelAssignString
	TextLabelAssignInt
	TextLabelAppendString
	TextLabelAppendInt
	TextLabelCopy
	Catch
	Throw
	CallIndirect
	PushConstM1
	PushConst0
	PushConst1
	PushConst2
	PushConst3
	PushConst4
	PushConst5
	PushConst6
	PushConst7
	PushConstFm1
	PushConstF0
	PushConstF1
	PushConstF2
	PushConstF3
	PushConstF4
	PushConstF5
	PushConstF6
	PushConstF7
	BitTest

	opCount
)

// StaticU24Cutoff is the first of the three opcodes (StaticU24,
// StaticU24Load, StaticU24Store) inserted by the later-version revision;
// scripts compiled against an earlier opcode_version_tag lack those three
// and number every opcode after them three lower, starting at this value.
// See PatchByte.
const StaticU24Cutoff = StaticU24

var names = [opCount]string{
	Nop: "NOP", IntegerAdd: "IADD", IntegerSubtract: "ISUB", IntegerMultiply: "IMUL",
	IntegerDivide: "IDIV", IntegerModulo: "IMOD", IntegerNot: "INOT", IntegerNegate: "INEG",
	IntegerEquals: "IEQ", IntegerNotEquals: "INE", IntegerGreaterThan: "IGT",
	IntegerGreaterOrEqual: "IGE", IntegerLowerThan: "ILT", IntegerLowerOrEqual: "ILE",
	FloatAdd: "FADD", FloatSubtract: "FSUB", FloatMultiply: "FMUL", FloatDivide: "FDIV",
	FloatModulo: "FMOD", FloatNegate: "FNEG", FloatEquals: "FEQ", FloatNotEquals: "FNE",
	FloatGreaterThan: "FGT", FloatGreaterOrEqual: "FGE", FloatLowerThan: "FLT",
	FloatLowerOrEqual: "FLE", VectorAdd: "VADD", VectorSubtract: "VSUB",
	VectorMultiply: "VMUL", VectorDivide: "VDIV", VectorNegate: "VNEG",
	BitwiseAnd: "IAND", BitwiseOr: "IOR", BitwiseXor: "IXOR",
	IntegerToFloat: "I2F", FloatToInteger: "F2I", FloatToVector: "F2V",
	PushConstU8: "PUSH_CONST_U8", PushConstU8U8: "PUSH_CONST_U8_U8",
	PushConstU8U8U8: "PUSH_CONST_U8_U8_U8", PushConstU32: "PUSH_CONST_U32",
	PushConstFloat: "PUSH_CONST_F", Dup: "DUP", Drop: "DROP", NativeCall: "NATIVE",
	Enter: "ENTER", Leave: "LEAVE", Load: "LOAD", Store: "STORE", StoreRev: "STORE_REV",
	LoadN: "LOAD_N", StoreN: "STORE_N",
	ArrayU8: "ARRAY_U8", ArrayU8Load: "ARRAY_U8_LOAD", ArrayU8Store: "ARRAY_U8_STORE",
	LocalU8: "LOCAL_U8", LocalU8Load: "LOCAL_U8_LOAD", LocalU8Store: "LOCAL_U8_STORE",
	StaticU8: "STATIC_U8", StaticU8Load: "STATIC_U8_LOAD", StaticU8Store: "STATIC_U8_STORE",
	AddU8: "IADD_U8", MultiplyU8: "IMUL_U8", Offset: "IOFFSET",
	OffsetU8: "IOFFSET_U8", OffsetU8Load: "IOFFSET_U8_LOAD", OffsetU8Store: "IOFFSET_U8_STORE",
	PushConstS16: "PUSH_CONST_S16", AddS16: "IADD_S16", MultiplyS16: "IMUL_S16",
	OffsetS16: "IOFFSET_S16", OffsetS16Load: "IOFFSET_S16_LOAD", OffsetS16Store: "IOFFSET_S16_STORE",
	ArrayU16: "ARRAY_U16", ArrayU16Load: "ARRAY_U16_LOAD", ArrayU16Store: "ARRAY_U16_STORE",
	LocalU16: "LOCAL_U16", LocalU16Load: "LOCAL_U16_LOAD", LocalU16Store: "LOCAL_U16_STORE",
	StaticU16: "STATIC_U16", StaticU16Load: "STATIC_U16_LOAD", StaticU16Store: "STATIC_U16_STORE",
	GlobalU16: "GLOBAL_U16", GlobalU16Load: "GLOBAL_U16_LOAD", GlobalU16Store: "GLOBAL_U16_STORE",
	Jump: "J", JumpZero: "JZ",
	IfEqualJumpZero: "IEQ_JZ", IfNotEqualJumpZero: "INE_JZ", IfGreaterThanJumpZero: "IGT_JZ",
	IfGreaterOrEqualJumpZero: "IGE_JZ", IfLowerThanJumpZero: "ILT_JZ", IfLowerOrEqualJumpZero: "ILE_JZ",
	FunctionCall: "CALL",
	StaticU24:    "STATIC_U24", StaticU24Load: "STATIC_U24_LOAD", StaticU24Store: "STATIC_U24_STORE",
	GlobalU24: "GLOBAL_U24", GlobalU24Load: "GLOBAL_U24_LOAD", GlobalU24Store: "GLOBAL_U24_STORE",
	PushConstU24: "PUSH_CONST_U24", Switch: "SWITCH", String: "STRING", StringHash: "STRINGHASH",
	TextLabelAssignString: "TEXT_LABEL_ASSIGN_STRING", TextLabelAssignInt: "TEXT_LABEL_ASSIGN_INT",
	TextLabelAppendString: "TEXT_LABEL_APPEND_STRING", TextLabelAppendInt: "TEXT_LABEL_APPEND_INT",
	TextLabelCopy: "TEXT_LABEL_COPY", Catch: "CATCH", Throw: "THROW", CallIndirect: "CALLINDIRECT",
	PushConstM1: "PUSH_CONST_M1", PushConst0: "PUSH_CONST_0", PushConst1: "PUSH_CONST_1",
	PushConst2: "PUSH_CONST_2", PushConst3: "PUSH_CONST_3", PushConst4: "PUSH_CONST_4",
	PushConst5: "PUSH_CONST_5", PushConst6: "PUSH_CONST_6", PushConst7: "PUSH_CONST_7",
	PushConstFm1: "PUSH_CONST_FM1", PushConstF0: "PUSH_CONST_F0", PushConstF1: "PUSH_CONST_F1",
	PushConstF2: "PUSH_CONST_F2", PushConstF3: "PUSH_CONST_F3", PushConstF4: "PUSH_CONST_F4",
	PushConstF5: "PUSH_CONST_F5", PushConstF6: "PUSH_CONST_F6", PushConstF7: "PUSH_CONST_F7",
	BitTest: "BITTEST",
}

// String returns the opcode's mnemonic.
func (o Op) String() string {
	if int(o) >= len(names) {
		return fmt.Sprintf("Op(%#02x)", byte(o))
	}
	return names[o]
}

// UnknownOpError is returned by New for a byte with no entry in the table.
type UnknownOpError byte

func (e UnknownOpError) Error() string {
	return fmt.Sprintf("ops: unknown opcode byte %#02x", byte(e))
}

// New looks up the Op for a raw opcode byte, already patched for version
// (see PatchByte). It is the single point every decoder/lifter switch should
// route through so that an out-of-range byte is reported uniformly.
func New(b byte) (Op, error) {
	if int(b) >= int(opCount) {
		return 0, UnknownOpError(b)
	}
	return Op(b), nil
}

// PatchByte rewrites one already-identified opcode byte read from a
// pre-cutoff script (preCutoff true) so callers can always dispatch on the
// canonical numbering in this file. It must only be called with a byte the
// caller knows to be an opcode (i.e. at an instruction boundary); applying
// it to an arbitrary operand byte would corrupt it, which is why the
// decoder applies it one opcode at a time during its sequential walk
// rather than patching the whole blob up front. See disasm.Disassemble.
func PatchByte(b byte, preCutoff bool) byte {
	if !preCutoff {
		return b
	}
	const shift = 3
	if b >= byte(StaticU24Cutoff) {
		return b + shift
	}
	return b
}

// IsConditionalJumpZero reports whether op is one of the six
// comparator+JumpZero combinations that both perform a comparison and
// branch on its falsity, as opposed to plain JumpZero which branches on
// an already-computed boolean.
func IsConditionalJumpZero(o Op) bool {
	switch o {
	case IfEqualJumpZero, IfNotEqualJumpZero, IfGreaterThanJumpZero,
		IfGreaterOrEqualJumpZero, IfLowerThanJumpZero, IfLowerOrEqualJumpZero:
		return true
	}
	return false
}
