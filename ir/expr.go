package ir

import "github.com/yscdec/yscdec/vtype"

// ExprKind discriminates a lifted stack entry / expression (spec §3).
type ExprKind int

const (
	ExprInt ExprKind = iota
	ExprFloat
	ExprString
	ExprLocalRef
	ExprStaticRef
	ExprGlobalRef
	ExprDeref
	ExprAddrOf
	ExprOffsetConst   // struct-field access by constant field index (see SPEC_FULL.md)
	ExprOffsetDynamic // dynamic byte-offset field access
	ExprArrayItem
	ExprBinary
	ExprUnary
	ExprCast
	ExprStringHash
	ExprStruct // aggregate, e.g. LoadN's result or a vector literal
	ExprField  // projection of one field out of a struct aggregate (Dup's tail field, etc.)
	ExprCallResult
	ExprNativeCallResult
	ExprFloatToVector
	ExprCatch
)

func (k ExprKind) String() string {
	names := [...]string{
		"int", "float", "string", "local", "static", "global", "deref", "addrof",
		"offset-const", "offset-dynamic", "array-item", "binary", "unary", "cast",
		"string-hash", "struct", "field", "call-result", "native-call-result",
		"float-to-vector", "catch",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// BinOp is a binary-operator expression's operator (spec §4.6 arithmetic/
// compare rules).
type BinOp int

const (
	OpIntAdd BinOp = iota
	OpIntSub
	OpIntMul
	OpIntDiv
	OpIntMod
	OpIntEqual
	OpIntNotEqual
	OpIntGreaterThan
	OpIntGreaterOrEqual
	OpIntLowerThan
	OpIntLowerOrEqual
	OpFloatAdd
	OpFloatSub
	OpFloatMul
	OpFloatDiv
	OpFloatMod
	OpFloatEqual
	OpFloatNotEqual
	OpFloatGreaterThan
	OpFloatGreaterOrEqual
	OpFloatLowerThan
	OpFloatLowerOrEqual
	OpVectorAdd
	OpVectorSub
	OpVectorMul
	OpVectorDiv
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpLogicalAnd
	OpLogicalOr
)

// IsBitwise reports whether op is the bitwise flavor that AndOr-chain
// detection/reduction looks for and later converts to its Logical
// counterpart (spec §4.5, §4.6).
func (op BinOp) IsBitwise() bool { return op == OpBitwiseAnd || op == OpBitwiseOr }

// ToLogical converts a bitwise AND/OR operator to its logical
// counterpart, the final step of reducing an AndOr chain's tail.
func (op BinOp) ToLogical() BinOp {
	switch op {
	case OpBitwiseAnd:
		return OpLogicalAnd
	case OpBitwiseOr:
		return OpLogicalOr
	default:
		return op
	}
}

// UnOp is a unary-operator expression's operator.
type UnOp int

const (
	OpIntNot UnOp = iota
	OpIntNegate
	OpFloatNegate
	OpVectorNegate
)

// Expr is a lifted stack entry (spec §3): a tagged expression carrying an
// attached type-lattice handle. Which fields beyond Kind/Type are
// meaningful depends on Kind.
type Expr struct {
	Kind ExprKind
	Type vtype.Handle

	Int   int64
	Float float32
	Str   string

	SlotIndex int // Local/Static/Global reference index

	Operand *Expr // Deref, AddrOf, Cast, StringHash, FloatToVector, Field, Unary
	Base    *Expr // ArrayItem's array address, OffsetDynamic's base address
	Index   *Expr // ArrayItem's index, OffsetDynamic's byte-offset expression

	BinOp BinOp // ExprBinary
	UnOp  UnOp  // ExprUnary

	CastTo vtype.Primitive // ExprCast

	ItemSize   int // ExprArrayItem: element size in slots
	FieldIndex int // ExprOffsetConst, ExprField: struct field index

	Fields []*Expr // ExprStruct aggregate, in field order

	CallTarget     string // ExprCallResult: callee name ("" + Indirect for CallIndirect)
	Indirect       bool
	IndirectTarget *Expr   // ExprCallResult when Indirect: the popped function-pointer value
	NativeHash     uint64  // ExprNativeCallResult
	Size           int     // ExprCallResult / ExprNativeCallResult: number of result slots
	CallArgs       []*Expr // ExprCallResult / ExprNativeCallResult: the call's arguments, in source order
}
