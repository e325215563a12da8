package disasm

import (
	"testing"

	"github.com/yscdec/yscdec/ops"
	"github.com/yscdec/yscdec/script"
)

func TestDisassembleSimple(t *testing.T) {
	code := []byte{
		byte(ops.PushConst1),
		byte(ops.PushConst2),
		byte(ops.IntegerAdd),
		byte(ops.Drop),
	}

	dis, err := Disassemble(code, script.VersionCurrent)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	if len(dis.Code) != 4 {
		t.Fatalf("got %d instructions, want 4", len(dis.Code))
	}
	wantOps := []ops.Op{ops.PushConst1, ops.PushConst2, ops.IntegerAdd, ops.Drop}
	for i, rec := range dis.Code {
		if rec.Instruction.Op != wantOps[i] {
			t.Errorf("instr[%d].Op = %v, want %v", i, rec.Instruction.Op, wantOps[i])
		}
		if rec.Pos != i {
			t.Errorf("instr[%d].Pos = %d, want %d", i, rec.Pos, i)
		}
	}
}

func TestDisassembleImmediates(t *testing.T) {
	code := []byte{
		byte(ops.PushConstU8), 42,
		byte(ops.LocalU16), 0x34, 0x12,
		byte(ops.PushConstFloat), 0x00, 0x00, 0x80, 0x3f, // 1.0f, little-endian
	}

	dis, err := Disassemble(code, script.VersionCurrent)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	if len(dis.Code) != 3 {
		t.Fatalf("got %d instructions, want 3", len(dis.Code))
	}

	u8, ok := dis.Code[0].Instruction.Imm.(ImmU8)
	if !ok || u8.Value != 42 {
		t.Errorf("instr[0].Imm = %#v, want ImmU8{42}", dis.Code[0].Instruction.Imm)
	}

	u16, ok := dis.Code[1].Instruction.Imm.(ImmU16)
	if !ok || u16.Value != 0x1234 {
		t.Errorf("instr[1].Imm = %#v, want ImmU16{0x1234}", dis.Code[1].Instruction.Imm)
	}

	f, ok := dis.Code[2].Instruction.Imm.(ImmFloat)
	if !ok || f.Value != 1.0 {
		t.Errorf("instr[2].Imm = %#v, want ImmFloat{1.0}", dis.Code[2].Instruction.Imm)
	}
}

func TestDisassembleJumpResolvesAbsoluteTarget(t *testing.T) {
	// JUMP with a relative offset of 0, resolved against the position
	// right after the instruction's 2 operand bytes (pos 1 + 2 = 3).
	code := []byte{byte(ops.Jump), 0x00, 0x00}

	dis, err := Disassemble(code, script.VersionCurrent)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	j, ok := dis.Code[0].Instruction.Imm.(ImmJump)
	if !ok {
		t.Fatalf("instr[0].Imm = %#v, want ImmJump", dis.Code[0].Instruction.Imm)
	}
	if j.Target != 3 {
		t.Errorf("Jump target = %d, want 3", j.Target)
	}
}

func TestDisassembleNativeCallPacksArgsReturns(t *testing.T) {
	// byte layout: arg_count in bits [2:8), return_count in bits [0:2).
	// 3 args, 1 return: (3 << 2) | 1 = 13.
	code := []byte{byte(ops.NativeCall), 13, 0x00, 0x00}

	dis, err := Disassemble(code, script.VersionCurrent)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	n, ok := dis.Code[0].Instruction.Imm.(ImmNative)
	if !ok {
		t.Fatalf("instr[0].Imm = %#v, want ImmNative", dis.Code[0].Instruction.Imm)
	}
	if n.ArgCount != 3 || n.ReturnCount != 1 {
		t.Errorf("ImmNative = %+v, want ArgCount=3 ReturnCount=1", n)
	}
}

func TestDisassembleEnterWithName(t *testing.T) {
	code := []byte{byte(ops.Enter), 0, 4, 0, 3, 'f', 'o', 'o'}

	dis, err := Disassemble(code, script.VersionCurrent)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	e, ok := dis.Code[0].Instruction.Imm.(ImmEnter)
	if !ok {
		t.Fatalf("instr[0].Imm = %#v, want ImmEnter", dis.Code[0].Instruction.Imm)
	}
	if e.Name != "foo" || e.FrameSize != 4 {
		t.Errorf("ImmEnter = %+v, want Name=foo FrameSize=4", e)
	}
}

func TestDisassembleInvalidOpcode(t *testing.T) {
	code := []byte{0xff}
	if _, err := Disassemble(code, script.VersionCurrent); err == nil {
		t.Fatal("Disassemble: expected an error for an out-of-range opcode byte")
	} else if _, ok := err.(InvalidOpcodeError); !ok {
		t.Fatalf("Disassemble: expected InvalidOpcodeError, got %T: %v", err, err)
	}
}

func TestDisassembleTruncated(t *testing.T) {
	code := []byte{byte(ops.PushConstU32), 0x01, 0x02}
	if _, err := Disassemble(code, script.VersionCurrent); err == nil {
		t.Fatal("Disassemble: expected a truncation error")
	} else if _, ok := err.(TruncatedError); !ok {
		t.Fatalf("Disassemble: expected TruncatedError, got %T: %v", err, err)
	}
}

func TestDisassembleVersionPatch(t *testing.T) {
	// Pre-cutoff scripts lack the three StaticU24 opcodes and number every
	// later opcode three lower, so the raw byte equal to StaticU24Cutoff
	// decodes as GlobalU24, followed by its U24 operand.
	preCutoffByte := byte(ops.StaticU24Cutoff)
	code := []byte{preCutoffByte, 0x00, 0x00, 0x00}

	dis, err := Disassemble(code, script.VersionPreStaticU24)
	if err != nil {
		t.Fatalf("Disassemble: unexpected error: %v", err)
	}
	if dis.Code[0].Instruction.Op != ops.GlobalU24 {
		t.Errorf("patched op = %v, want GlobalU24", dis.Code[0].Instruction.Op)
	}
}
