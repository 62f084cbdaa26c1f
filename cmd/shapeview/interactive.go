package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/shapes/peek"
	"github.com/wippyai/shapes/shape"
)

type interactiveModel struct {
	err        error
	session    *session
	cfg        sessionConfig
	stack      []frame
	entries    []entry
	input      textinput.Model
	selected   int
	state      modelState
	serialized bool
}

// frame is one level of the browse path.
type frame struct {
	p    peek.Peek
	name string
}

type entry struct {
	p     peek.Peek
	name  string
	typ   string
	value string
}

type modelState int

const (
	stateEnterAddr modelState = iota
	stateBrowse
)

func newInteractiveModel(cfg sessionConfig) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "0x1000"
	ti.Prompt = "address: "
	ti.Width = 20
	ti.Focus()
	return &interactiveModel{
		cfg:   cfg,
		input: ti,
		state: stateEnterAddr,
	}
}

type loadedMsg struct {
	err     error
	session *session
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.load, textinput.Blink)
}

func (m *interactiveModel) load() tea.Msg {
	s, err := openSession(context.Background(), m.cfg)
	return loadedMsg{session: s, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()

		case "q":
			if m.state == stateBrowse {
				return m.quit()
			}

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.entries)-1 {
				m.selected++
			}
			return m, nil

		case "s":
			if m.state == stateBrowse {
				m.serialized = !m.serialized
				m.refresh()
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateEnterAddr:
				m.open()
			case stateBrowse:
				if m.selected < len(m.entries) {
					e := m.entries[m.selected]
					if browsable(e.p) {
						m.stack = append(m.stack, frame{p: e.p, name: e.name})
						m.selected = 0
						m.refresh()
					}
				}
			}
			return m, nil

		case "esc":
			if m.state == stateBrowse {
				m.back()
				return m, nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		return m, nil
	}

	if m.state == stateEnterAddr {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Close(context.Background())
	}
	return m, tea.Quit
}

func (m *interactiveModel) open() {
	if m.session == nil {
		return
	}
	addr, err := parseAddr(m.input.Value())
	if err != nil {
		m.err = err
		return
	}
	p, err := m.session.inspect(addr)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.stack = []frame{{p: p, name: fmt.Sprintf("%#x", addr)}}
	m.selected = 0
	m.state = stateBrowse
	m.refresh()
}

func (m *interactiveModel) back() {
	m.stack = m.stack[:len(m.stack)-1]
	m.selected = 0
	m.err = nil
	if len(m.stack) == 0 {
		m.state = stateEnterAddr
		m.entries = nil
		return
	}
	m.refresh()
}

func (m *interactiveModel) refresh() {
	cur := m.stack[len(m.stack)-1].p
	m.entries, m.err = children(cur, m.serialized)
	if m.selected >= len(m.entries) {
		m.selected = max(len(m.entries)-1, 0)
	}
}

func browsable(p peek.Peek) bool {
	switch p.Shape().Kind {
	case shape.KindStruct, shape.KindEnum, shape.KindList, shape.KindMap:
		return true
	default:
		return false
	}
}

// children lists the members of p: fields, the serialized projection when
// serialized is set, list items or map entries.
func children(p peek.Peek, serialized bool) ([]entry, error) {
	var out []entry
	add := func(name string, v peek.Peek) {
		out = append(out, entry{
			p:     v,
			name:  name,
			typ:   v.Shape().TypeName,
			value: peek.Format(v),
		})
	}

	if h, ok := hasFields(p); ok {
		if serialized {
			items, err := peek.FieldsForSerialize(h).Collect()
			for _, it := range items {
				add(it.Field.Name, it.Value)
			}
			return out, err
		}
		for f, v := range h.Fields().All() {
			add(f.Name, v)
		}
		return out, nil
	}

	switch p.Shape().Kind {
	case shape.KindList:
		l, err := p.List()
		if err != nil {
			return nil, err
		}
		for i, v := range l.Items() {
			add("["+strconv.Itoa(i)+"]", v)
		}
	case shape.KindMap:
		mp, err := p.Map()
		if err != nil {
			return nil, err
		}
		for k, v := range mp.Entries() {
			add("["+peek.Format(k)+"]", v)
		}
	}
	return out, nil
}

func (m *interactiveModel) View() string {
	if m.session == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
		}
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("shapeview"))
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.session.sh.TypeName))
	b.WriteString(" in ")
	b.WriteString(m.cfg.wasmFile)
	b.WriteString("\n\n")

	switch m.state {
	case stateEnterAddr:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter inspect • ctrl+c quit"))

	case stateBrowse:
		path := make([]string, len(m.stack))
		for i, f := range m.stack {
			path[i] = f.name
		}
		cur := m.stack[len(m.stack)-1].p
		b.WriteString(fieldStyle.Render(strings.Join(path, ".")))
		b.WriteString(" = ")
		b.WriteString(resultStyle.Render(peek.Format(cur)))
		b.WriteString("\n\n")
		if m.serialized {
			b.WriteString(helpStyle.Render("serialized view"))
			b.WriteString("\n")
		}
		for i, e := range m.entries {
			line := fmt.Sprintf("%s: %s = %s", e.name, typeStyle.Render(e.typ), e.value)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • s serialized • esc back • q quit"))
	}

	return b.String()
}

func runInteractive(cfg sessionConfig) error {
	p := tea.NewProgram(newInteractiveModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
