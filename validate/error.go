package validate

import (
	"errors"
	"fmt"
)

// Error wraps a validation failure with the function and byte offset it
// was found at, mirroring wagon validate.Error{Offset,Function,Err}; here
// Function is the offending function's name rather than its index, since
// splitter.FunctionDescriptor carries a name and our function space has
// no index section to number against.
type Error struct {
	Function string
	Offset   int
	Err      error
}

func (e Error) Error() string {
	return fmt.Sprintf("validate: function %q at offset %#x: %v", e.Function, e.Offset, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// ErrStackUnderflow is returned when an instruction would pop more values
// than are present on the symbolic depth counter.
var ErrStackUnderflow = errors.New("validate: stack underflow")

// UnbalancedStackErr is returned when a LEAVE instruction's return_count
// (Got) differs from the function's return count (Wanted), which is taken
// from the LEAVE that ends the function.
type UnbalancedStackErr struct {
	Wanted int
	Got    int
}

func (e UnbalancedStackErr) Error() string {
	return fmt.Sprintf("unbalanced stack: wanted %d values, have %d", e.Wanted, e.Got)
}

// DanglingJumpError is returned when a jump/conditional-jump/switch-case
// target does not land on a recognized block boundary. cfg.Build silently
// drops these (it tolerates bad jump targets the way the source does),
// but a validation pass should surface them rather than let them vanish
// into a quietly incomplete graph.
type DanglingJumpError struct {
	Target int
}

func (e DanglingJumpError) Error() string {
	return fmt.Sprintf("jump target %#x does not land on an instruction boundary", e.Target)
}

// InvalidNativeIndexError is returned when a NATIVE instruction's
// native_index operand is out of range of the script's native table.
type InvalidNativeIndexError int

func (e InvalidNativeIndexError) Error() string {
	return fmt.Sprintf("invalid native_index %d", int(e))
}

// UnresolvedCallError is returned when a CALL instruction's target byte
// offset does not match any function descriptor produced by splitter.Split.
// This is the static-validation counterpart of the one confirmed
// panic-on-missing-call-target bug fixed as lift.ErrUnknownFunction: where
// that surfaces during lifting, this one catches it earlier, before any
// stack simulation is attempted.
type UnresolvedCallError int

func (e UnresolvedCallError) Error() string {
	return fmt.Sprintf("call target offset %#x does not match any function", int(e))
}
