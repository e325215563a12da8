// Package script holds the already-parsed container artifact that the
// decompilation pipeline consumes: flattened code bytes, a flattened
// string blob, and the native hash table. Producing this from the
// game's on-disk container format (the 16 KiB-striped block layout) is
// explicitly out of scope; script.Script only specifies the contract the
// rest of this module is built against, the way wasm.Module specifies the
// contract wagon's disasm/exec packages build against.
package script

import (
	"bytes"
	"fmt"
)

// Version selects the opcode permutation a Script's code was assembled
// against. Scripts built before a certain shipped revision lack StaticU24/
// StaticU24Load/StaticU24Store and number every later opcode three lower
// than the canonical table in package ops; see ops.PatchByte.
type Version int

const (
	// VersionCurrent is the canonical, un-shifted opcode numbering.
	VersionCurrent Version = iota
	// VersionPreStaticU24 predates the insertion of StaticU24/
	// StaticU24Load/StaticU24Store and needs the +3 patch applied.
	VersionPreStaticU24
)

// NativeDict resolves a native function hash to its signature. It is an
// optional collaborator (spec §6): a nil NativeDict means every lookup
// misses, which is always a legal (if less informative) answer.
type NativeDict interface {
	GetNative(hash uint64) (Native, bool)
}

// Native describes one native function's calling convention, as returned
// by a NativeDict.
type Native struct {
	Name    string
	Params  int
	Returns int
}

// CrossVersionMap maps a hash observed in one script build back to the
// canonical hash a NativeDict indexes by. It is an optional collaborator;
// a nil CrossVersionMap means every hash is used as-is.
type CrossVersionMap interface {
	Canonicalize(hash uint64) uint64
}

// Script is the input contract: a flattened code blob, a flattened
// null-terminated string blob, the native hash table indexed by a
// NATIVE instruction's native_index operand, and the opcode version tag.
type Script struct {
	Code    []byte
	Strings []byte
	Natives []uint64

	Version Version

	Dict      NativeDict      // optional, may be nil
	CrossHash CrossVersionMap // optional, may be nil
}

// ErrStringIndex is returned by GetString for an out-of-range offset.
type ErrStringIndex int

func (e ErrStringIndex) Error() string {
	return fmt.Sprintf("script: string offset %d out of range", int(e))
}

// GetString resolves a C-style null-terminated string at byte offset off
// in the strings blob. Per spec §4.6's STRING lift rule, an unresolved
// index does not surface as this error to the lifter: lift.pushString
// falls back to the literal "<UNKNOWN>" instead, matching the source's
// resilience to bad string indices. GetString itself still reports the
// error so callers that want strictness (e.g. a validator) can see it.
func (s *Script) GetString(off int) (string, error) {
	if off < 0 || off >= len(s.Strings) {
		return "", ErrStringIndex(off)
	}
	end := bytes.IndexByte(s.Strings[off:], 0)
	if end < 0 {
		return "", ErrStringIndex(off)
	}
	return string(s.Strings[off : off+end]), nil
}

// GetNative resolves native_index to its hash and, when a NativeDict is
// attached, its signature. ok is false if native_index is out of range.
func (s *Script) GetNative(nativeIndex int) (hash uint64, nat Native, ok bool) {
	if nativeIndex < 0 || nativeIndex >= len(s.Natives) {
		return 0, Native{}, false
	}
	hash = s.Natives[nativeIndex]
	if s.CrossHash != nil {
		hash = s.CrossHash.Canonicalize(hash)
	}
	if s.Dict == nil {
		return hash, Native{}, false
	}
	n, found := s.Dict.GetNative(hash)
	return hash, n, found
}
