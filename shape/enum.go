package shape

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/shapes/errors"
)

// EnumDef describes a tagged union. The tag is an unsigned integer of
// TagSize bytes at TagOffset; each variant's payload fields carry offsets
// relative to the start of the enum value.
type EnumDef struct {
	Variants  []Variant
	TagOffset uintptr
	TagSize   uintptr
}

// Variant is one alternative of an enum.
type Variant struct {
	Name         string
	Doc          string
	Fields       []Field
	Discriminant int64
}

// FieldIndex returns the index of the payload field called name.
func (v *Variant) FieldIndex(name string) (int, bool) {
	return fieldIndex(v.Fields, name)
}

// IsUnit reports whether the variant carries no payload.
func (v *Variant) IsUnit() bool {
	return len(v.Fields) == 0
}

// ReadTag loads the discriminant of the enum value at p.
func (e *EnumDef) ReadTag(p PtrConst) int64 {
	at := unsafe.Add(p.p, e.TagOffset)
	switch e.TagSize {
	case 1:
		return int64(*(*uint8)(at))
	case 2:
		return int64(*(*uint16)(at))
	case 4:
		return int64(*(*uint32)(at))
	case 8:
		return int64(*(*uint64)(at))
	default:
		return 0
	}
}

// WriteTag stores the discriminant of the enum value at p.
func (e *EnumDef) WriteTag(p PtrUninit, disc int64) {
	at := unsafe.Add(p.p, e.TagOffset)
	switch e.TagSize {
	case 1:
		*(*uint8)(at) = uint8(disc)
	case 2:
		*(*uint16)(at) = uint16(disc)
	case 4:
		*(*uint32)(at) = uint32(disc)
	case 8:
		*(*uint64)(at) = uint64(disc)
	}
}

// ActiveVariant returns the variant selected by the tag at p.
func (e *EnumDef) ActiveVariant(p PtrConst) (*Variant, int, bool) {
	disc := e.ReadTag(p)
	for i := range e.Variants {
		if e.Variants[i].Discriminant == disc {
			return &e.Variants[i], i, true
		}
	}
	return nil, -1, false
}

// VariantByName looks a variant up by name.
func (e *EnumDef) VariantByName(name string) (*Variant, int, bool) {
	for i := range e.Variants {
		if e.Variants[i].Name == name {
			return &e.Variants[i], i, true
		}
	}
	return nil, -1, false
}

// EnumBuilder registers a Go struct as an enum-like shape. Go has no tagged
// unions, so the struct carries an unsigned tag field plus one field per
// variant payload:
//
//	type Event struct {
//		Kind  uint8
//		Click ClickEvent
//		Key   KeyEvent
//	}
//
//	shape.DefineEnum[Event]("Kind").
//		Variant("Click", 0, "Click").
//		Variant("Key", 1, "Key").
//		Unit("Idle", 2).
//		Register()
type EnumBuilder struct {
	err      error
	goType   reflect.Type
	variants []Variant
	tagField reflect.StructField
}

// DefineEnum starts an enum definition for T using tagField as discriminant.
func DefineEnum[T any](tagField string) *EnumBuilder {
	t := reflect.TypeFor[T]()
	b := &EnumBuilder{goType: t}
	if t.Kind() != reflect.Struct {
		b.err = errors.WrongKind(errors.PhaseShape, t.String(), "a struct")
		return b
	}
	sf, ok := t.FieldByName(tagField)
	if !ok {
		b.err = errors.NoSuchField(errors.PhaseShape, []string{t.String()}, tagField)
		return b
	}
	switch sf.Type.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		b.err = errors.New(errors.PhaseShape, errors.KindUnsupported).
			Path(t.String(), tagField).
			TypeName(sf.Type.String()).
			Detail("enum tag must be an unsigned integer").
			Build()
		return b
	}
	b.tagField = sf
	return b
}

// Unit adds a variant without payload.
func (b *EnumBuilder) Unit(name string, disc int64) *EnumBuilder {
	return b.Variant(name, disc, "")
}

// Variant adds a variant whose payload lives in payloadField. A struct
// payload contributes its own fields; any other payload becomes a single
// field named "0".
func (b *EnumBuilder) Variant(name string, disc int64, payloadField string) *EnumBuilder {
	if b.err != nil {
		return b
	}
	v := Variant{Name: name, Discriminant: disc}
	if payloadField != "" {
		sf, ok := b.goType.FieldByName(payloadField)
		if !ok {
			b.err = errors.NoSuchField(errors.PhaseShape, []string{b.goType.String()}, payloadField)
			return b
		}
		payload, err := For(sf.Type)
		if err != nil {
			b.err = err
			return b
		}
		if payload.Kind == KindStruct {
			for _, f := range payload.Fields {
				f.Offset += sf.Offset
				v.Fields = append(v.Fields, f)
			}
		} else {
			v.Fields = []Field{{Name: "0", Offset: sf.Offset, Shape: payload}}
		}
	}
	b.variants = append(b.variants, v)
	return b
}

// Register seals the enum shape and stores it for T. Registering the same
// type twice returns the shape registered first.
func (b *EnumBuilder) Register() (*Shape, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := b.goType
	sh := &Shape{
		GoType:      t,
		TypeName:    t.String(),
		Layout:      LayoutOf(t),
		Kind:        KindEnum,
		HasPointers: hasPointers(t),
		Variance:    varianceOf(t),
		Enum: &EnumDef{
			Variants:  b.variants,
			TagOffset: b.tagField.Offset,
			TagSize:   b.tagField.Type.Size(),
		},
	}
	sh.VTable = goVTable(t)
	if _, _, ok := sh.Enum.ActiveVariant(zeroConst(t)); !ok && !reflect.PointerTo(t).Implements(defaulterType) {
		// the zero value is not a valid variant
		sh.VTable.Default = nil
	}
	composeEnum(sh)
	if d := dropperVTable(t); d != nil {
		inner := sh.VTable.Drop
		sh.VTable.Drop = func(v PtrMut) {
			d(v)
			if inner != nil {
				inner(v)
			}
		}
	}
	return Register(t, sh)
}

// MustRegister is like Register but panics on error.
func (b *EnumBuilder) MustRegister() *Shape {
	sh, err := b.Register()
	if err != nil {
		panic(err)
	}
	return sh
}
