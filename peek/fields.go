package peek

import (
	"iter"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// HasFields is implemented by views whose value is a sequence of named
// fields: structs and the active variant of enums.
type HasFields interface {
	Fields() Fields
}

// Fields is a restartable, double-ended sequence of (field, value) pairs.
type Fields struct {
	base   shape.PtrConst
	fields []shape.Field
}

func (f Fields) Len() int { return len(f.fields) }

func (f Fields) at(i int) (shape.Field, Peek) {
	fd := f.fields[i]
	return fd, New(f.base.Field(fd.Offset), fd.Shape)
}

// All yields the fields in declaration order.
func (f Fields) All() iter.Seq2[shape.Field, Peek] {
	return func(yield func(shape.Field, Peek) bool) {
		for i := range f.fields {
			if !yield(f.at(i)) {
				return
			}
		}
	}
}

// Backward yields the fields in reverse declaration order.
func (f Fields) Backward() iter.Seq2[shape.Field, Peek] {
	return func(yield func(shape.Field, Peek) bool) {
		for i := len(f.fields) - 1; i >= 0; i-- {
			if !yield(f.at(i)) {
				return
			}
		}
	}
}

func fieldAt(p Peek, fields []shape.Field, i int) (Peek, error) {
	if i < 0 || i >= len(fields) {
		return Peek{}, errors.OutOfBounds(errors.PhasePeek, []string{p.shape.TypeName}, i, len(fields))
	}
	return New(p.data.Field(fields[i].Offset), fields[i].Shape), nil
}

func fieldNamed(p Peek, fields []shape.Field, name string) (Peek, error) {
	for i := range fields {
		if fields[i].Name == name {
			return fieldAt(p, fields, i)
		}
	}
	return Peek{}, errors.NoSuchField(errors.PhasePeek, []string{p.shape.TypeName}, name)
}

// Struct is a read view over a struct value.
type Struct struct {
	Peek
}

func (s Struct) FieldCount() int { return len(s.shape.Fields) }

// Field returns the value of the i-th field.
func (s Struct) Field(i int) (Peek, error) {
	return fieldAt(s.Peek, s.shape.Fields, i)
}

// FieldByName returns the value of the field called name.
func (s Struct) FieldByName(name string) (Peek, error) {
	return fieldNamed(s.Peek, s.shape.Fields, name)
}

func (s Struct) Fields() Fields {
	return Fields{base: s.data, fields: s.shape.Fields}
}

// Enum is a read view over an enum value with a valid tag.
type Enum struct {
	variant *shape.Variant
	Peek
	index int
}

func (e Enum) ActiveVariant() *shape.Variant { return e.variant }
func (e Enum) VariantName() string           { return e.variant.Name }
func (e Enum) VariantIndex() int             { return e.index }

// FieldCount returns the number of payload fields of the active variant.
func (e Enum) FieldCount() int { return len(e.variant.Fields) }

func (e Enum) Field(i int) (Peek, error) {
	return fieldAt(e.Peek, e.variant.Fields, i)
}

func (e Enum) FieldByName(name string) (Peek, error) {
	return fieldNamed(e.Peek, e.variant.Fields, name)
}

// Fields returns the payload fields of the active variant.
func (e Enum) Fields() Fields {
	return Fields{base: e.data, fields: e.variant.Fields}
}
