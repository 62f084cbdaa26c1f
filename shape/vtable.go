package shape

import (
	"hash/maphash"
	"strings"
)

// VTable holds the type-specific operations of a shape. Every entry is
// optional: nil means the type does not support the operation.
type VTable struct {
	// Debug writes a developer-facing rendering of the value.
	Debug func(v PtrConst, b *strings.Builder)
	// Display writes a user-facing rendering of the value.
	Display func(v PtrConst, b *strings.Builder)
	Eq      func(a, b PtrConst) bool
	// Cmp returns -1, 0 or +1.
	Cmp  func(a, b PtrConst) int
	Hash func(v PtrConst, h *maphash.Hash)
	// Parse initializes dst from its textual form.
	Parse func(s string, dst PtrUninit) error
	// Default initializes dst with the default value.
	Default func(dst PtrUninit)
	// Clone initializes dst with a copy of src.
	Clone func(src PtrConst, dst PtrUninit)
	// Drop releases the value in place. After Drop the memory is uninitialized.
	Drop func(v PtrMut)
}

// DropInPlace runs the drop operation if the shape has one.
func (s *Shape) DropInPlace(v PtrMut) {
	if s.VTable.Drop != nil {
		s.VTable.Drop(v)
	}
}

// DebugString renders v with the Debug operation.
func (s *Shape) DebugString(v PtrConst) (string, bool) {
	if s.VTable.Debug == nil {
		return "", false
	}
	var b strings.Builder
	s.VTable.Debug(v, &b)
	return b.String(), true
}

// IsDefault reports whether v equals the shape's default value.
// It reports false when the shape lacks Default or Eq.
func (s *Shape) IsDefault(v PtrConst) bool {
	if s.VTable.Default == nil || s.VTable.Eq == nil {
		return false
	}
	tmp := s.Allocate()
	s.VTable.Default(tmp)
	dflt := tmp.Assume()
	eq := s.VTable.Eq(v, dflt.Const())
	s.DropInPlace(dflt)
	return eq
}
