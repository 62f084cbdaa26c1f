package peek

import (
	"slices"
	"strings"

	"github.com/wippyai/shapes/shape"
)

// Format renders a whole value tree. Shapes with a Debug operation render
// themselves; composite shapes without one are rendered from their parts,
// and opaque values print as <TypeName>.
func Format(p Peek) string {
	var b strings.Builder
	format(&b, p)
	return b.String()
}

func format(b *strings.Builder, p Peek) {
	if p.shape.VTable.Debug != nil {
		p.shape.VTable.Debug(p.data, b)
		return
	}
	switch p.shape.Kind {
	case shape.KindStruct:
		s, _ := p.Struct()
		b.WriteString(p.shape.TypeName)
		formatFields(b, s.Fields())
	case shape.KindEnum:
		e, err := p.Enum()
		if err != nil {
			b.WriteString("<invalid>")
			return
		}
		b.WriteString(e.VariantName())
		if e.FieldCount() > 0 {
			formatFields(b, e.Fields())
		}
	case shape.KindList:
		l, _ := p.List()
		b.WriteByte('[')
		for i, item := range l.Items() {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, item)
		}
		b.WriteByte(']')
	case shape.KindMap:
		m, _ := p.Map()
		var entries []string
		for k, v := range m.Entries() {
			entries = append(entries, Format(k)+": "+Format(v))
		}
		slices.Sort(entries)
		b.WriteByte('{')
		b.WriteString(strings.Join(entries, ", "))
		b.WriteByte('}')
	default:
		b.WriteByte('<')
		b.WriteString(p.shape.TypeName)
		b.WriteByte('>')
	}
}

func formatFields(b *strings.Builder, fields Fields) {
	b.WriteByte('{')
	first := true
	for f, v := range fields.All() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(f.Name)
		b.WriteString(": ")
		format(b, v)
	}
	b.WriteByte('}')
}
