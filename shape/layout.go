package shape

import (
	"reflect"
	"unsafe"
)

// Layout is the size and alignment of a value in memory.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// LayoutOf returns the Go layout of t.
func LayoutOf(t reflect.Type) Layout {
	return Layout{Size: t.Size(), Align: uintptr(t.Align())}
}

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uintptr) uintptr {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// zeroBase is the address handed out for zero-size allocations.
var zeroBase uint64

// Allocate returns fresh memory for one value of s. Shapes backed by a Go
// type get a typed allocation so the collector can trace interior pointers.
// Other shapes must be pointer-free and get an 8-byte aligned arena.
func (s *Shape) Allocate() PtrUninit {
	if s.GoType != nil {
		return PtrUninit{p: reflect.New(s.GoType).UnsafePointer()}
	}
	if s.Layout.Size == 0 {
		return PtrUninit{p: unsafe.Pointer(&zeroBase)}
	}
	words := (s.Layout.Size + 7) / 8
	buf := make([]uint64, words)
	return PtrUninit{p: unsafe.Pointer(&buf[0])}
}
