package scope

import "github.com/wippyai/shapes/shape"

// Ref borrows a T for reading. A Ref may be stored anywhere its source scope
// outlives the destination.
type Ref[T any] struct {
	P *T
}

func (Ref[T]) Variance() shape.Variance { return shape.Covariant }

// Sink borrows a location that accepts T values. A Sink may only be stored
// in a destination that lives at least as long as its source scope.
type Sink[T any] struct {
	P *T
}

func (Sink[T]) Variance() shape.Variance { return shape.Contravariant }

// Cell borrows a T for reading and writing. A Cell is tied to exactly the
// scope it was borrowed for.
type Cell[T any] struct {
	P *T
}

func (Cell[T]) Variance() shape.Variance { return shape.Invariant }
