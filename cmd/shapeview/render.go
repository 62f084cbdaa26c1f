package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/shapes/peek"
	"github.com/wippyai/shapes/shape"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// renderer formats values for output. The plain renderer leaves text
// untouched so output can be piped.
type renderer struct {
	title  func(...string) string
	field  func(...string) string
	typ    func(...string) string
	result func(...string) string
}

func identity(s ...string) string { return strings.Join(s, " ") }

var (
	plainRenderer = renderer{
		title:  identity,
		field:  identity,
		typ:    identity,
		result: identity,
	}
	styledRenderer = renderer{
		title:  titleStyle.Render,
		field:  fieldStyle.Render,
		typ:    typeStyle.Render,
		result: resultStyle.Render,
	}
)

func (r renderer) value(name string, addr uint32, p peek.Peek) string {
	header := fmt.Sprintf("%s @ %#x", r.typ(name), addr)
	return r.title("shapeview") + " " + header + "\n" + r.result(peek.Format(p))
}

// fields renders the serialized field projection of p, one field per line.
// Values without fields render as a single line.
func (r renderer) fields(p peek.Peek) (string, error) {
	h, ok := hasFields(p)
	if !ok {
		return r.result(peek.Format(p)) + "\n", nil
	}
	items, err := peek.FieldsForSerialize(h).Collect()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString(r.field(it.Field.Name))
		b.WriteString(": ")
		b.WriteString(r.typ(it.Field.Shape.TypeName))
		b.WriteString(" = ")
		b.WriteString(r.result(peek.Format(it.Value)))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func hasFields(p peek.Peek) (peek.HasFields, bool) {
	switch p.Shape().Kind {
	case shape.KindStruct:
		s, err := p.Struct()
		return s, err == nil
	case shape.KindEnum:
		e, err := p.Enum()
		return e, err == nil
	default:
		return nil, false
	}
}
