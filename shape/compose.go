package shape

import (
	"cmp"
	"hash/maphash"
	"strings"
	"sync/atomic"
)

var nextID atomic.Uint64

// Seal assigns s an identity and fills the operations a composite kind can
// derive from its components. Entries already present are kept. Seal must be
// called once, before the shape is shared.
func Seal(s *Shape) *Shape {
	if s.ID == 0 {
		s.ID = nextID.Add(1)
	}
	switch s.Kind {
	case KindStruct:
		composeStruct(s)
	case KindEnum:
		composeEnum(s)
	case KindList:
		composeList(s)
	case KindMap:
		composeMap(s)
	}
	if s.VTable.Clone == nil && !s.HasPointers {
		size := s.Layout.Size
		s.VTable.Clone = func(src PtrConst, dst PtrUninit) {
			Copy(dst, src, size)
		}
	}
	return s
}

// NewStruct builds and seals a struct shape from explicit fields.
func NewStruct(name string, layout Layout, fields []Field) *Shape {
	s := &Shape{
		TypeName: name,
		Layout:   layout,
		Kind:     KindStruct,
		Fields:   fields,
	}
	for _, f := range fields {
		s.Variance = s.Variance.Combine(f.Shape.Variance)
		s.HasPointers = s.HasPointers || f.Shape.HasPointers
	}
	return Seal(s)
}

// NewEnum builds and seals an enum shape from explicit variants.
func NewEnum(name string, layout Layout, def *EnumDef) *Shape {
	s := &Shape{
		TypeName: name,
		Layout:   layout,
		Kind:     KindEnum,
		Enum:     def,
	}
	for _, v := range def.Variants {
		for _, f := range v.Fields {
			s.Variance = s.Variance.Combine(f.Shape.Variance)
			s.HasPointers = s.HasPointers || f.Shape.HasPointers
		}
	}
	return Seal(s)
}

func allFields(fields []Field, has func(*VTable) bool) bool {
	for i := range fields {
		if !has(&fields[i].Shape.VTable) {
			return false
		}
	}
	return true
}

func writeFields(b *strings.Builder, v PtrConst, fields []Field) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		f.Shape.VTable.Debug(v.Field(f.Offset), b)
	}
}

func composeStruct(s *Shape) {
	fields := s.Fields
	vt := &s.VTable
	name := s.TypeName

	if vt.Debug == nil && allFields(fields, func(t *VTable) bool { return t.Debug != nil }) {
		vt.Debug = func(v PtrConst, b *strings.Builder) {
			b.WriteString(name)
			b.WriteByte('{')
			writeFields(b, v, fields)
			b.WriteByte('}')
		}
	}
	if vt.Eq == nil && allFields(fields, func(t *VTable) bool { return t.Eq != nil }) {
		vt.Eq = func(a, b PtrConst) bool {
			for _, f := range fields {
				if !f.Shape.VTable.Eq(a.Field(f.Offset), b.Field(f.Offset)) {
					return false
				}
			}
			return true
		}
	}
	if vt.Cmp == nil && allFields(fields, func(t *VTable) bool { return t.Cmp != nil }) {
		vt.Cmp = func(a, b PtrConst) int {
			for _, f := range fields {
				if c := f.Shape.VTable.Cmp(a.Field(f.Offset), b.Field(f.Offset)); c != 0 {
					return c
				}
			}
			return 0
		}
	}
	if vt.Hash == nil && allFields(fields, func(t *VTable) bool { return t.Hash != nil }) {
		vt.Hash = func(v PtrConst, h *maphash.Hash) {
			for _, f := range fields {
				f.Shape.VTable.Hash(v.Field(f.Offset), h)
			}
		}
	}
	if vt.Clone == nil && allFields(fields, func(t *VTable) bool { return t.Clone != nil }) {
		vt.Clone = func(src PtrConst, dst PtrUninit) {
			for _, f := range fields {
				f.Shape.VTable.Clone(src.Field(f.Offset), dst.Field(f.Offset))
			}
		}
	}
	if vt.Default == nil && allFields(fields, func(t *VTable) bool { return t.Default != nil }) {
		vt.Default = func(dst PtrUninit) {
			for _, f := range fields {
				f.Shape.VTable.Default(dst.Field(f.Offset))
			}
		}
	}
	if vt.Drop == nil {
		vt.Drop = dropFields(fields)
	}
}

// dropFields drops each field that has a drop operation, in declaration
// order. Nil when no field needs dropping.
func dropFields(fields []Field) func(PtrMut) {
	var droppable []Field
	for _, f := range fields {
		if f.Shape.VTable.Drop != nil {
			droppable = append(droppable, f)
		}
	}
	if len(droppable) == 0 {
		return nil
	}
	return func(v PtrMut) {
		for _, f := range droppable {
			f.Shape.VTable.Drop(v.Field(f.Offset))
		}
	}
}

func allVariants(def *EnumDef, has func(*VTable) bool) bool {
	for i := range def.Variants {
		if !allFields(def.Variants[i].Fields, has) {
			return false
		}
	}
	return true
}

func composeEnum(s *Shape) {
	def := s.Enum
	vt := &s.VTable

	if vt.Debug == nil && allVariants(def, func(t *VTable) bool { return t.Debug != nil }) {
		vt.Debug = func(v PtrConst, b *strings.Builder) {
			variant, _, ok := def.ActiveVariant(v)
			if !ok {
				b.WriteString("<invalid>")
				return
			}
			b.WriteString(variant.Name)
			switch {
			case variant.IsUnit():
			case len(variant.Fields) == 1 && variant.Fields[0].Name == "0":
				b.WriteByte('(')
				f := variant.Fields[0]
				f.Shape.VTable.Debug(v.Field(f.Offset), b)
				b.WriteByte(')')
			default:
				b.WriteByte('{')
				writeFields(b, v, variant.Fields)
				b.WriteByte('}')
			}
		}
	}
	if vt.Eq == nil && allVariants(def, func(t *VTable) bool { return t.Eq != nil }) {
		vt.Eq = func(a, b PtrConst) bool {
			if def.ReadTag(a) != def.ReadTag(b) {
				return false
			}
			variant, _, ok := def.ActiveVariant(a)
			if !ok {
				return false
			}
			for _, f := range variant.Fields {
				if !f.Shape.VTable.Eq(a.Field(f.Offset), b.Field(f.Offset)) {
					return false
				}
			}
			return true
		}
	}
	if vt.Cmp == nil && allVariants(def, func(t *VTable) bool { return t.Cmp != nil }) {
		vt.Cmp = func(a, b PtrConst) int {
			if c := cmp.Compare(def.ReadTag(a), def.ReadTag(b)); c != 0 {
				return c
			}
			variant, _, ok := def.ActiveVariant(a)
			if !ok {
				return 0
			}
			for _, f := range variant.Fields {
				if c := f.Shape.VTable.Cmp(a.Field(f.Offset), b.Field(f.Offset)); c != 0 {
					return c
				}
			}
			return 0
		}
	}
	if vt.Hash == nil && allVariants(def, func(t *VTable) bool { return t.Hash != nil }) {
		vt.Hash = func(v PtrConst, h *maphash.Hash) {
			maphash.WriteComparable(h, def.ReadTag(v))
			if variant, _, ok := def.ActiveVariant(v); ok {
				for _, f := range variant.Fields {
					f.Shape.VTable.Hash(v.Field(f.Offset), h)
				}
			}
		}
	}
	if vt.Clone == nil && allVariants(def, func(t *VTable) bool { return t.Clone != nil }) {
		vt.Clone = func(src PtrConst, dst PtrUninit) {
			def.WriteTag(dst, def.ReadTag(src))
			if variant, _, ok := def.ActiveVariant(src); ok {
				for _, f := range variant.Fields {
					f.Shape.VTable.Clone(src.Field(f.Offset), dst.Field(f.Offset))
				}
			}
		}
	}
	if vt.Drop == nil && !allVariants(def, func(t *VTable) bool { return t.Drop == nil }) {
		vt.Drop = func(v PtrMut) {
			variant, _, ok := def.ActiveVariant(v.Const())
			if !ok {
				return
			}
			for _, f := range variant.Fields {
				f.Shape.DropInPlace(v.Field(f.Offset))
			}
		}
	}
}
