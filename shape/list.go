package shape

import (
	"cmp"
	"hash/maphash"
	"strings"
)

// ListVTable holds the operations of a list-like shape.
type ListVTable struct {
	Len  func(l PtrConst) int
	Item func(l PtrConst, i int) PtrConst
	// Init creates an empty list with room for capacity items. Nil when the
	// list cannot be built.
	Init func(dst PtrUninit, capacity int)
	// Push moves the item at item into the list. The item memory is
	// uninitialized afterwards.
	Push func(l PtrMut, item PtrMut)
}

// ListDef describes a list-like shape.
type ListDef struct {
	Elem   *Shape
	VTable ListVTable
	// Fixed is the element count of fixed-size lists, or -1.
	Fixed int
}

// ItemOffset returns the offset of element i in a fixed-size list.
func (l *ListDef) ItemOffset(i int) uintptr {
	return uintptr(i) * l.Elem.Layout.Size
}

// NewList builds and seals a list shape over elem.
func NewList(name string, layout Layout, elem *Shape, vt ListVTable) *Shape {
	s := &Shape{
		TypeName: name,
		Layout:   layout,
		Kind:     KindList,
		Variance: elem.Variance,
		List:     &ListDef{Elem: elem, VTable: vt, Fixed: -1},
	}
	return Seal(s)
}

// composeList derives element-wise operations. Each is present only when
// the element shape supports it.
func composeList(s *Shape) {
	def := s.List
	elem := def.Elem.VTable
	ops := def.VTable
	vt := &s.VTable

	if vt.Debug == nil && elem.Debug != nil {
		vt.Debug = func(v PtrConst, b *strings.Builder) {
			b.WriteByte('[')
			n := ops.Len(v)
			for i := 0; i < n; i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				elem.Debug(ops.Item(v, i), b)
			}
			b.WriteByte(']')
		}
	}
	if vt.Eq == nil && elem.Eq != nil {
		vt.Eq = func(a, b PtrConst) bool {
			n := ops.Len(a)
			if n != ops.Len(b) {
				return false
			}
			for i := 0; i < n; i++ {
				if !elem.Eq(ops.Item(a, i), ops.Item(b, i)) {
					return false
				}
			}
			return true
		}
	}
	if vt.Cmp == nil && elem.Cmp != nil {
		vt.Cmp = func(a, b PtrConst) int {
			na, nb := ops.Len(a), ops.Len(b)
			for i := 0; i < min(na, nb); i++ {
				if c := elem.Cmp(ops.Item(a, i), ops.Item(b, i)); c != 0 {
					return c
				}
			}
			return cmp.Compare(na, nb)
		}
	}
	if vt.Hash == nil && elem.Hash != nil {
		vt.Hash = func(v PtrConst, h *maphash.Hash) {
			n := ops.Len(v)
			for i := 0; i < n; i++ {
				elem.Hash(ops.Item(v, i), h)
			}
		}
	}
	if vt.Default == nil && ops.Init != nil {
		vt.Default = func(dst PtrUninit) {
			ops.Init(dst, 0)
		}
	}
	if vt.Drop == nil && elem.Drop != nil {
		vt.Drop = func(v PtrMut) {
			n := ops.Len(v.Const())
			for i := 0; i < n; i++ {
				elem.Drop(PtrMut{p: ops.Item(v.Const(), i).p})
			}
		}
	}
}
