package peek

import (
	"iter"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// Item is one (field, value) pair produced for serialization.
type Item struct {
	Field shape.Field
	Value Peek
}

// SerializeFields is the serialization projection of a HasFields value.
// It is lazy and restartable: each call to All or Backward walks the value
// again.
type SerializeFields struct {
	fields Fields
}

// FieldsForSerialize projects h's fields for serialization:
//
//   - fields whose skip condition holds for their current value are dropped
//   - a flattened struct field is replaced by that struct's own projection
//   - a flattened enum field is renamed to its active variant and marked
//     Flattened
//   - flatten on any other kind yields an UnsupportedFlatten error
//
// Declaration order is kept, with flattened structs spliced in place.
func FieldsForSerialize(h HasFields) SerializeFields {
	return SerializeFields{fields: h.Fields()}
}

// All yields items in declaration order. After an error no further items
// are yielded.
func (s SerializeFields) All() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		project(s.fields.All(), yield, false)
	}
}

// Backward yields the same items as All in reverse order.
func (s SerializeFields) Backward() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		project(s.fields.Backward(), yield, true)
	}
}

// Collect gathers all items, stopping at the first error.
func (s SerializeFields) Collect() ([]Item, error) {
	var items []Item
	for item, err := range s.All() {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// project returns false once yield asked to stop or an error was yielded.
func project(fields iter.Seq2[shape.Field, Peek], yield func(Item, error) bool, backward bool) bool {
	for f, v := range fields {
		if f.ShouldSkipSerializing(v.data) {
			continue
		}
		if !f.Has(shape.FlagFlatten) {
			if !yield(Item{Field: f, Value: v}, nil) {
				return false
			}
			continue
		}

		switch v.shape.Kind {
		case shape.KindStruct:
			nested := Struct{Peek: v}.Fields()
			seq := nested.All()
			if backward {
				seq = nested.Backward()
			}
			if !project(seq, yield, backward) {
				return false
			}
		case shape.KindEnum:
			e, err := v.Enum()
			if err != nil {
				yield(Item{}, errors.WithPath(err.(*errors.Error), f.Name))
				return false
			}
			f.Name = e.VariantName()
			f.Flattened = true
			if !yield(Item{Field: f, Value: v}, nil) {
				return false
			}
		default:
			yield(Item{}, errors.WithPath(errors.UnsupportedFlatten(nil, v.shape.TypeName), f.Name))
			return false
		}
	}
	return true
}
