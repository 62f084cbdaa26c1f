// Package shapes is a type-erased reflection engine: runtime descriptors of
// types with optional operation tables, read access to values through those
// descriptors, and incremental construction of values field by field.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	shapes/
//	├── shape/           Descriptors, layouts, operation tables, the Go type registry
//	├── peek/            Read-only accessors, field iteration, serialization projection
//	├── wip/             Incremental builders, slots, finished heap values
//	├── scope/           Scope tokens and variance checks for borrowed data
//	├── guest/           Shapes from WIT types over WASM linear memory
//	├── errors/          Structured error types
//	└── cmd/shapeview/   Inspect guest values from the command line
//
// # Quick Start
//
// Read a value through its shape:
//
//	type Point struct{ X, Y int }
//
//	p := peek.ValueOf(&Point{1, 2})
//	s, _ := p.Struct()
//	x, _ := s.FieldByName("X")
//	fmt.Println(peek.Format(x)) // 1
//
// Build one field by field:
//
//	w := wip.Of[Point]()
//	slot, _ := w.SlotForName("X")
//	slot.Fill(1)
//	slot, _ = w.SlotForName("Y")
//	slot.Fill(2)
//	hv, err := w.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pt, _ := wip.Materialize[Point](hv)
//
// # Struct Tags
//
// Go struct fields are described with the `shape` tag:
//
//	name            rename the field
//	-               leave the field out of the shape
//	skip            never serialize the field
//	omitempty       skip serializing when the value equals its default
//	skipif=Method   skip serializing when (*FieldType).Method() returns true
//	flatten         splice a struct or enum field into its parent
//	default         let builders default the field when it was not filled
//
// # Thread Safety
//
// Shapes are immutable once sealed and safe for concurrent use, as is the
// registry. Builders and heap values are NOT thread-safe and should be used
// by a single goroutine.
package shapes
