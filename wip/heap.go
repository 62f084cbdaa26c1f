package wip

import (
	"reflect"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/peek"
	"github.com/wippyai/shapes/scope"
	"github.com/wippyai/shapes/shape"
)

// HeapValue is a finished value produced by Build. It owns the value until
// it is dropped or materialized.
type HeapValue struct {
	shape *shape.Shape
	scope *scope.Scope
	data  shape.PtrMut
	// moved is set once ownership left the HeapValue.
	moved bool
}

func (h *HeapValue) Shape() *shape.Shape { return h.shape }

// Scope returns the scope the value was built for.
func (h *HeapValue) Scope() *scope.Scope { return h.scope }

// Peek returns a read accessor over the value.
func (h *HeapValue) Peek() peek.Peek {
	return peek.New(h.data.Const(), h.shape)
}

// Drop releases the value. It is a no-op once the value was dropped or
// materialized.
func (h *HeapValue) Drop() {
	if h.moved {
		return
	}
	h.moved = true
	h.shape.DropInPlace(h.data)
}

// Materialize moves the value out as a T. It fails when T is not the built
// shape, when the value was already moved out, or when the value borrows
// data and its scope has closed.
func Materialize[T any](h *HeapValue) (T, error) {
	var zero T
	want, err := shape.For(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	if !h.shape.Is(want) {
		return zero, errors.ShapeMismatch(errors.PhaseBuild, nil, want.TypeName, h.shape.TypeName)
	}
	if h.moved {
		return zero, errors.New(errors.PhaseBuild, errors.KindUnsupported).
			TypeName(h.shape.TypeName).
			Detail("value was already moved out").
			Build()
	}
	if h.shape.Variance != shape.Bivariant && !h.scope.Alive() {
		return zero, errors.Variance([]string{h.shape.TypeName}, "scope "+h.scope.String()+" has closed")
	}
	h.moved = true
	return *shape.Deref[T](h.data.Const()), nil
}

// MaterializeIn is Materialize for a caller that keeps the value in target.
// The value counts as borrowed for the scope it was built for, so a
// covariant value may move to any scope that scope outlives but never to a
// longer one.
func MaterializeIn[T any](h *HeapValue, target *scope.Scope) (T, error) {
	if err := scope.Check(h.shape.Variance, h.scope, target); err != nil {
		var zero T
		return zero, err
	}
	return Materialize[T](h)
}
