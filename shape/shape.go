package shape

import (
	"reflect"
)

// Shape is the runtime descriptor of a type: its layout, its optional
// operations, and its structural definition. Shapes are immutable once
// sealed and live for the whole process.
type Shape struct {
	// GoType is the Go type the shape describes. Nil for shapes that only
	// describe foreign memory, such as guest linear memory layouts.
	GoType reflect.Type
	Enum   *EnumDef
	List   *ListDef
	Map    *MapDef
	// TypeName is the human readable name used in errors and Debug output.
	TypeName string
	Fields   []Field
	VTable   VTable
	Layout   Layout
	ID       uint64
	Kind     Kind
	Scalar   ScalarKind
	Variance Variance
	// HasPointers reports whether values contain Go pointers. Such values
	// may only be moved through typed Go allocations.
	HasPointers bool
}

// Is reports whether s and o describe the same type.
func (s *Shape) Is(o *Shape) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s == o {
		return true
	}
	return s.ID != 0 && s.ID == o.ID
}

func (s *Shape) String() string {
	if s == nil {
		return "<nil shape>"
	}
	return s.TypeName
}

// IsZST reports whether values of s occupy no memory.
func (s *Shape) IsZST() bool {
	return s.Layout.Size == 0
}

// FieldCount returns the number of struct fields. Zero for other kinds.
func (s *Shape) FieldCount() int {
	if s.Kind != KindStruct {
		return 0
	}
	return len(s.Fields)
}

// FieldIndex returns the index of the struct field called name.
func (s *Shape) FieldIndex(name string) (int, bool) {
	return fieldIndex(s.Fields, name)
}

func fieldIndex(fields []Field, name string) (int, bool) {
	for i := range fields {
		if fields[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// FieldFlags are per-field annotations.
type FieldFlags uint16

const (
	// FlagSkipSerializing removes the field from serialization unconditionally.
	FlagSkipSerializing FieldFlags = 1 << iota
	// FlagSkipIfDefault removes the field when it holds its default value.
	FlagSkipIfDefault
	// FlagFlatten splices the field's own fields into the parent.
	FlagFlatten
	// FlagDefault lets a builder finish without the field being filled.
	FlagDefault
)

// Field describes one named member of a struct or enum variant.
type Field struct {
	Shape *Shape
	// SkipIf, when set, removes the field from serialization whenever it
	// returns true for the field's current value.
	SkipIf func(v PtrConst) bool
	Name   string
	Doc    string
	// Offset is relative to the start of the owning struct or enum.
	Offset uintptr
	Flags  FieldFlags
	// Flattened is set on fields produced by flatten expansion.
	Flattened bool
}

func (f Field) Has(flag FieldFlags) bool {
	return f.Flags&flag != 0
}

// ShouldSkipSerializing evaluates the field's skip annotations against the
// field's current value.
func (f Field) ShouldSkipSerializing(v PtrConst) bool {
	if f.Has(FlagSkipSerializing) {
		return true
	}
	if f.SkipIf != nil && f.SkipIf(v) {
		return true
	}
	if f.Has(FlagSkipIfDefault) && f.Shape != nil {
		return f.Shape.IsDefault(v)
	}
	return false
}

// Defaultable reports whether a builder may default the field.
func (f Field) Defaultable() bool {
	return f.Has(FlagDefault) && f.Shape != nil && f.Shape.VTable.Default != nil
}
