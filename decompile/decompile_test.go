package decompile

import (
	"testing"

	"github.com/yscdec/yscdec/ir"
	"github.com/yscdec/yscdec/ops"
	"github.com/yscdec/yscdec/script"
)

// TestDecompileResolvesForwardCall builds two functions where the first
// calls the second, which is defined later in the byte stream. Lift's
// own single pass can only resolve a callee whose Callee info was already
// known, which is why Decompile gathers every FunctionDescriptor before
// lifting any of them (spec §2's two-pass shape).
func TestDecompileResolvesForwardCall(t *testing.T) {
	code := []byte{
		// func_0: calls func_1 (defined below, at byte 13).
		byte(ops.Enter), 0, 2, 0, 0,
		byte(ops.PushConst1),
		byte(ops.FunctionCall), 13, 0, 0,
		byte(ops.Leave), 0, 0,
		// func_1: takes one parameter, returns nothing.
		byte(ops.Enter), 1, 3, 0, 0,
		byte(ops.Leave), 1, 0,
	}
	s := &script.Script{Code: code, Version: script.VersionCurrent}

	result, err := Decompile(s)
	if err != nil {
		t.Fatalf("Decompile: unexpected error: %v", err)
	}
	if len(result.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(result.Functions))
	}

	caller := result.Functions[0]
	if caller.Name != "func_0" {
		t.Fatalf("Functions[0].Name = %q, want func_0", caller.Name)
	}
	if len(caller.Statements) != 2 {
		t.Fatalf("func_0 has %d statements, want 2 (call, return)", len(caller.Statements))
	}
	call := caller.Statements[0].Statement
	if call.Kind != ir.StmtFunctionCall {
		t.Fatalf("func_0.Statements[0] = %v, want StmtFunctionCall", call.Kind)
	}
	if call.CallTarget != "func_1" {
		t.Errorf("call target = %q, want func_1", call.CallTarget)
	}
	if len(call.Args) != 1 || call.Args[0].Int != 1 {
		t.Errorf("call args = %+v, want [1]", call.Args)
	}

	callee := result.Functions[1]
	if callee.Name != "func_1" {
		t.Fatalf("Functions[1].Name = %q, want func_1", callee.Name)
	}
	if len(callee.Parameters) != 1 {
		t.Errorf("func_1 has %d parameters, want 1", len(callee.Parameters))
	}
}

func TestDecompileReportsSplitError(t *testing.T) {
	// A LEAVE with no enclosing ENTER fails at the split stage.
	code := []byte{byte(ops.Leave), 0, 0}
	s := &script.Script{Code: code, Version: script.VersionCurrent}

	_, err := Decompile(s)
	if err == nil {
		t.Fatal("Decompile: expected an error")
	}
	derr, ok := err.(Error)
	if !ok {
		t.Fatalf("Decompile: expected decompile.Error, got %T: %v", err, err)
	}
	if derr.Function != "<split>" {
		t.Errorf("Error.Function = %q, want <split>", derr.Function)
	}
}
