package shape

import (
	"reflect"
	"unsafe"
)

// sliceOps backs a Go slice with reflection. Items are addressed in place.
func sliceOps(t reflect.Type) ListVTable {
	elem := t.Elem()
	return ListVTable{
		Len: func(l PtrConst) int {
			return reflect.NewAt(t, l.p).Elem().Len()
		},
		Item: func(l PtrConst, i int) PtrConst {
			return PtrConst{p: reflect.NewAt(t, l.p).Elem().Index(i).Addr().UnsafePointer()}
		},
		Init: func(dst PtrUninit, capacity int) {
			reflect.NewAt(t, dst.p).Elem().Set(reflect.MakeSlice(t, 0, capacity))
		},
		Push: func(l PtrMut, item PtrMut) {
			s := reflect.NewAt(t, l.p).Elem()
			src := reflect.NewAt(elem, item.p).Elem()
			s.Set(reflect.Append(s, src))
			src.SetZero()
		},
	}
}

// arrayOps addresses a Go array by offset. Arrays are filled element by
// element, so Init and Push stay nil.
func arrayOps(t reflect.Type) ListVTable {
	n := t.Len()
	size := t.Elem().Size()
	return ListVTable{
		Len: func(PtrConst) int { return n },
		Item: func(l PtrConst, i int) PtrConst {
			return PtrConst{p: unsafe.Add(l.p, uintptr(i)*size)}
		},
	}
}

// mapOps backs a Go map with reflection. Map entries are not addressable,
// so Get and Range hand out copies.
func mapOps(t reflect.Type) MapVTable {
	kt, vt := t.Key(), t.Elem()
	return MapVTable{
		Len: func(m PtrConst) int {
			return reflect.NewAt(t, m.p).Elem().Len()
		},
		Init: func(dst PtrUninit, capacity int) {
			reflect.NewAt(t, dst.p).Elem().Set(reflect.MakeMapWithSize(t, capacity))
		},
		Get: func(m PtrConst, key PtrConst) (PtrConst, bool) {
			v := reflect.NewAt(t, m.p).Elem().MapIndex(reflect.NewAt(kt, key.p).Elem())
			if !v.IsValid() {
				return PtrConst{}, false
			}
			out := reflect.New(vt)
			out.Elem().Set(v)
			return PtrConst{p: out.UnsafePointer()}, true
		},
		Insert: func(m PtrMut, key PtrMut, value PtrMut) {
			k := reflect.NewAt(kt, key.p).Elem()
			v := reflect.NewAt(vt, value.p).Elem()
			reflect.NewAt(t, m.p).Elem().SetMapIndex(k, v)
			k.SetZero()
			v.SetZero()
		},
		Range: func(m PtrConst, yield func(k, v PtrConst) bool) {
			iter := reflect.NewAt(t, m.p).Elem().MapRange()
			k, v := reflect.New(kt), reflect.New(vt)
			for iter.Next() {
				k.Elem().SetIterKey(iter)
				v.Elem().SetIterValue(iter)
				if !yield(PtrConst{p: k.UnsafePointer()}, PtrConst{p: v.UnsafePointer()}) {
					return
				}
			}
		},
	}
}
