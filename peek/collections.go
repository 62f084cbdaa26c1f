package peek

import (
	"iter"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// List is a read view over a list value.
type List struct {
	Peek
}

func (l List) Len() int {
	return l.shape.List.VTable.Len(l.data)
}

// Elem returns the element shape.
func (l List) Elem() *shape.Shape {
	return l.shape.List.Elem
}

// Get returns the i-th element.
func (l List) Get(i int) (Peek, error) {
	n := l.Len()
	if i < 0 || i >= n {
		return Peek{}, errors.OutOfBounds(errors.PhasePeek, []string{l.shape.TypeName}, i, n)
	}
	return New(l.shape.List.VTable.Item(l.data, i), l.shape.List.Elem), nil
}

// Items yields (index, element) pairs in order.
func (l List) Items() iter.Seq2[int, Peek] {
	return func(yield func(int, Peek) bool) {
		def := l.shape.List
		n := def.VTable.Len(l.data)
		for i := 0; i < n; i++ {
			if !yield(i, New(def.VTable.Item(l.data, i), def.Elem)) {
				return
			}
		}
	}
}

// Backward yields (index, element) pairs from the last element.
func (l List) Backward() iter.Seq2[int, Peek] {
	return func(yield func(int, Peek) bool) {
		def := l.shape.List
		for i := def.VTable.Len(l.data) - 1; i >= 0; i-- {
			if !yield(i, New(def.VTable.Item(l.data, i), def.Elem)) {
				return
			}
		}
	}
}

// Map is a read view over a map value.
type Map struct {
	Peek
}

func (m Map) Len() int {
	return m.shape.Map.VTable.Len(m.data)
}

func (m Map) Key() *shape.Shape   { return m.shape.Map.Key }
func (m Map) Value() *shape.Shape { return m.shape.Map.Value }

// Get looks up key, which must have the map's key shape.
func (m Map) Get(key Peek) (Peek, bool, error) {
	def := m.shape.Map
	if !key.shape.Is(def.Key) {
		return Peek{}, false, errors.ShapeMismatch(errors.PhasePeek, []string{m.shape.TypeName}, def.Key.TypeName, key.shape.TypeName)
	}
	v, ok := def.VTable.Get(m.data, key.data)
	if !ok {
		return Peek{}, false, nil
	}
	return New(v, def.Value), true, nil
}

// Entries yields every (key, value) pair. Map order is unspecified and the
// yielded Peeks are only valid until yield returns.
func (m Map) Entries() iter.Seq2[Peek, Peek] {
	return func(yield func(Peek, Peek) bool) {
		def := m.shape.Map
		def.VTable.Range(m.data, func(k, v shape.PtrConst) bool {
			return yield(New(k, def.Key), New(v, def.Value))
		})
	}
}
