package shape

import "unsafe"

// PtrConst points at an initialized value that must only be read.
type PtrConst struct {
	p unsafe.Pointer
}

// PtrMut points at an initialized value that may be written or dropped.
type PtrMut struct {
	p unsafe.Pointer
}

// PtrUninit points at memory that does not hold a value yet.
// It must never be read or dropped as a value.
type PtrUninit struct {
	p unsafe.Pointer
}

func NewPtrConst(p unsafe.Pointer) PtrConst   { return PtrConst{p: p} }
func NewPtrMut(p unsafe.Pointer) PtrMut       { return PtrMut{p: p} }
func NewPtrUninit(p unsafe.Pointer) PtrUninit { return PtrUninit{p: p} }

// ConstOf returns a read-only pointer to v.
func ConstOf[T any](v *T) PtrConst { return PtrConst{p: unsafe.Pointer(v)} }

func (p PtrConst) Raw() unsafe.Pointer { return p.p }
func (p PtrConst) IsNil() bool         { return p.p == nil }

// Field returns a pointer to the sub-value at offset.
func (p PtrConst) Field(offset uintptr) PtrConst {
	return PtrConst{p: unsafe.Add(p.p, offset)}
}

func (p PtrMut) Raw() unsafe.Pointer { return p.p }
func (p PtrMut) Const() PtrConst     { return PtrConst{p: p.p} }

func (p PtrMut) Field(offset uintptr) PtrMut {
	return PtrMut{p: unsafe.Add(p.p, offset)}
}

// Uninit returns the same address as uninitialized memory. Only valid after
// the value it held has been dropped or moved out.
func (p PtrMut) Uninit() PtrUninit { return PtrUninit{p: p.p} }

func (p PtrUninit) Raw() unsafe.Pointer { return p.p }

func (p PtrUninit) Field(offset uintptr) PtrUninit {
	return PtrUninit{p: unsafe.Add(p.p, offset)}
}

// Assume declares the memory initialized. The caller must have written a
// complete value of the expected shape.
func (p PtrUninit) Assume() PtrMut { return PtrMut{p: p.p} }

// Deref reinterprets p as *T. T must match the shape the pointer was created for.
func Deref[T any](p PtrConst) *T {
	return (*T)(p.p)
}

// Write stores v into uninitialized memory and returns it as initialized.
// T must be pointer-free or the memory must be a typed Go allocation.
func Write[T any](p PtrUninit, v T) PtrMut {
	*(*T)(p.p) = v
	return PtrMut{p: p.p}
}

// Bytes returns the size bytes at p. The result aliases the value.
func Bytes(p PtrConst, size uintptr) []byte {
	if size == 0 || p.p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p.p), size)
}

// Copy moves size raw bytes from src to dst. Only valid for shapes without
// Go pointers or when both regions are typed Go allocations of the same type.
func Copy(dst PtrUninit, src PtrConst, size uintptr) PtrMut {
	if size > 0 {
		copy(unsafe.Slice((*byte)(dst.p), size), unsafe.Slice((*byte)(src.p), size))
	}
	return PtrMut{p: dst.p}
}
