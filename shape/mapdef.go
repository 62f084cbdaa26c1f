package shape

import (
	"slices"
	"strings"
)

// MapVTable holds the operations of a map-like shape.
type MapVTable struct {
	Len  func(m PtrConst) int
	Init func(dst PtrUninit, capacity int)
	// Get returns the value stored under key.
	Get func(m PtrConst, key PtrConst) (PtrConst, bool)
	// Insert moves key and value into the map, replacing any existing entry.
	Insert func(m PtrMut, key PtrMut, value PtrMut)
	// Range calls yield for every entry until it returns false. Pointers
	// passed to yield are only valid during the call.
	Range func(m PtrConst, yield func(k, v PtrConst) bool)
}

// MapDef describes a map-like shape.
type MapDef struct {
	Key    *Shape
	Value  *Shape
	VTable MapVTable
}

// NewMap builds and seals a map shape.
func NewMap(name string, layout Layout, key, value *Shape, vt MapVTable) *Shape {
	s := &Shape{
		TypeName:    name,
		Layout:      layout,
		Kind:        KindMap,
		Variance:    key.Variance.Combine(value.Variance),
		HasPointers: true,
		Map:         &MapDef{Key: key, Value: value, VTable: vt},
	}
	return Seal(s)
}

func composeMap(s *Shape) {
	def := s.Map
	key, val := def.Key.VTable, def.Value.VTable
	ops := def.VTable
	vt := &s.VTable

	if vt.Debug == nil && key.Debug != nil && val.Debug != nil {
		// entries are sorted by rendered key so output is stable
		vt.Debug = func(v PtrConst, b *strings.Builder) {
			var entries []string
			ops.Range(v, func(k, e PtrConst) bool {
				var eb strings.Builder
				key.Debug(k, &eb)
				eb.WriteString(": ")
				val.Debug(e, &eb)
				entries = append(entries, eb.String())
				return true
			})
			slices.Sort(entries)
			b.WriteByte('{')
			b.WriteString(strings.Join(entries, ", "))
			b.WriteByte('}')
		}
	}
	if vt.Eq == nil && val.Eq != nil {
		vt.Eq = func(a, b PtrConst) bool {
			if ops.Len(a) != ops.Len(b) {
				return false
			}
			eq := true
			ops.Range(a, func(k, av PtrConst) bool {
				bv, ok := ops.Get(b, k)
				if !ok || !val.Eq(av, bv) {
					eq = false
					return false
				}
				return true
			})
			return eq
		}
	}
	if vt.Default == nil && ops.Init != nil {
		vt.Default = func(dst PtrUninit) {
			ops.Init(dst, 0)
		}
	}
	if vt.Drop == nil && (key.Drop != nil || val.Drop != nil) {
		vt.Drop = func(v PtrMut) {
			ops.Range(v.Const(), func(k, e PtrConst) bool {
				if key.Drop != nil {
					key.Drop(PtrMut{p: k.p})
				}
				if val.Drop != nil {
					val.Drop(PtrMut{p: e.p})
				}
				return true
			})
		}
	}
}
