// Package peek provides read-only access to values described by shapes.
//
// A Peek pairs a pointer to initialized memory with the shape describing it.
// It never owns the memory and must not outlive it. Struct, enum, list and
// map values are inspected through the kind-specific views returned by
// Struct, Enum, List and Map; every view hands out child Peeks over the
// sub-regions of the same memory.
package peek

import (
	"hash/maphash"
	"reflect"
	"strings"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// Peek is a read accessor over one value.
type Peek struct {
	shape *shape.Shape
	data  shape.PtrConst
}

// New pairs data with sh. data must point at an initialized value of sh.
func New(data shape.PtrConst, sh *shape.Shape) Peek {
	return Peek{data: data, shape: sh}
}

// ValueOf returns a Peek over *v.
func ValueOf[T any](v *T) Peek {
	return Peek{data: shape.ConstOf(v), shape: shape.Of[T]()}
}

func (p Peek) Shape() *shape.Shape  { return p.shape }
func (p Peek) Data() shape.PtrConst { return p.data }

// Debug renders the value with the shape's Debug operation.
func (p Peek) Debug() (string, bool) {
	return p.shape.DebugString(p.data)
}

// Display renders the value with the shape's Display operation.
func (p Peek) Display() (string, bool) {
	if p.shape.VTable.Display == nil {
		return "", false
	}
	var b strings.Builder
	p.shape.VTable.Display(p.data, &b)
	return b.String(), true
}

// Eq compares two values of the same shape. ok is false when the shape has
// no equality or the shapes differ.
func (p Peek) Eq(o Peek) (eq, ok bool) {
	if !p.shape.Is(o.shape) || p.shape.VTable.Eq == nil {
		return false, false
	}
	return p.shape.VTable.Eq(p.data, o.data), true
}

// Cmp orders two values of the same shape.
func (p Peek) Cmp(o Peek) (c int, ok bool) {
	if !p.shape.Is(o.shape) || p.shape.VTable.Cmp == nil {
		return 0, false
	}
	return p.shape.VTable.Cmp(p.data, o.data), true
}

// Hash feeds the value into h. It reports false when the shape is not hashable.
func (p Peek) Hash(h *maphash.Hash) bool {
	if p.shape.VTable.Hash == nil {
		return false
	}
	p.shape.VTable.Hash(p.data, h)
	return true
}

// IsDefault reports whether the value equals its shape's default.
func (p Peek) IsDefault() bool {
	return p.shape.IsDefault(p.data)
}

// Get reads the value as a T.
func Get[T any](p Peek) (T, error) {
	var zero T
	want, err := shape.For(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	if !p.shape.Is(want) {
		return zero, errors.ShapeMismatch(errors.PhasePeek, nil, want.TypeName, p.shape.TypeName)
	}
	return *shape.Deref[T](p.data), nil
}

// Struct views the value as a struct.
func (p Peek) Struct() (Struct, error) {
	if p.shape.Kind != shape.KindStruct {
		return Struct{}, errors.WrongKind(errors.PhasePeek, p.shape.TypeName, "a struct")
	}
	return Struct{Peek: p}, nil
}

// Enum views the value as an enum. It fails with InvalidVariant when the
// tag selects no variant.
func (p Peek) Enum() (Enum, error) {
	if p.shape.Kind != shape.KindEnum {
		return Enum{}, errors.WrongKind(errors.PhasePeek, p.shape.TypeName, "an enum")
	}
	v, idx, ok := p.shape.Enum.ActiveVariant(p.data)
	if !ok {
		return Enum{}, errors.InvalidVariant(errors.PhasePeek, []string{p.shape.TypeName}, p.shape.Enum.ReadTag(p.data))
	}
	return Enum{Peek: p, variant: v, index: idx}, nil
}

// List views the value as a list.
func (p Peek) List() (List, error) {
	if p.shape.Kind != shape.KindList {
		return List{}, errors.WrongKind(errors.PhasePeek, p.shape.TypeName, "a list")
	}
	return List{Peek: p}, nil
}

// Map views the value as a map.
func (p Peek) Map() (Map, error) {
	if p.shape.Kind != shape.KindMap {
		return Map{}, errors.WrongKind(errors.PhasePeek, p.shape.TypeName, "a map")
	}
	return Map{Peek: p}, nil
}
