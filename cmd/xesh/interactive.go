package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
	"github.com/crosswalk-project/crosswalk-sub003/jscontext"
	"github.com/crosswalk-project/crosswalk-sub003/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	memberStyle = lipgloss.NewStyle().
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

// describer is implemented by extensions whose surface comes from a
// descriptor.
type describer interface {
	Descriptor() *descriptor.Descriptor
}

// item is one callable entry of the explorer. A nil member stands for the
// raw sync channel of an extension without a descriptor.
type item struct {
	extension string
	member    *descriptor.MemberInfo
	params    []paramInfo
}

type paramInfo struct {
	name    string
	typeStr string
}

func (it item) label() string {
	if it.member == nil {
		return it.extension + " (sync message)"
	}
	return it.extension + "." + it.member.Name
}

// listItems walks every registered extension in registration order.
func listItems(rt *runtime.Runtime) []item {
	var items []item
	for _, ext := range rt.Extensions() {
		d, ok := ext.(describer)
		if !ok || d.Descriptor() == nil {
			items = append(items, item{
				extension: ext.Name(),
				params:    []paramInfo{{name: "message", typeStr: "string"}},
			})
			continue
		}
		for _, m := range d.Descriptor().Members() {
			it := item{extension: ext.Name(), member: m}
			if m.Kind != descriptor.KindProperty {
				params := m.ScriptParams()
				if m.Promise && len(params) > 0 {
					params = params[:len(params)-1]
				}
				for i, p := range params {
					it.params = append(it.params, paramInfo{
						name:    fmt.Sprintf("arg%d", i),
						typeStr: p.String(),
					})
				}
			}
			items = append(items, it)
		}
	}
	return items
}

// callExpr renders the script that exercises it. Arguments are script
// expressions; empty ones become undefined.
func callExpr(it item, args []string) string {
	m := it.member
	target := it.extension
	if !m.EntryPoint {
		target += "." + m.Name
	}
	argList := make([]string, len(args))
	for i, a := range args {
		if a = strings.TrimSpace(a); a == "" {
			a = "undefined"
		}
		argList[i] = a
	}
	call := "(" + strings.Join(argList, ", ") + ")"

	var expr string
	switch {
	case m.Kind == descriptor.KindProperty:
		expr = target
	case m.Kind == descriptor.KindConstructor:
		expr = "new " + target + call
	case m.Promise:
		return "var __xeshResult = \"(pending)\";\n" + target + call +
			".then(function(v) { __xeshResult = v; }, function(e) { __xeshResult = \"rejected: \" + e; });"
	default:
		expr = target + call
	}
	return "(function() { var v = " + expr + "; return v === undefined ? \"undefined\" : JSON.stringify(v); })()"
}

type modelState int

const (
	stateSelect modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	sc       *jscontext.Context
	callMu   sync.Mutex
	result   string
	items    []item
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(rt *runtime.Runtime, sc *jscontext.Context) *interactiveModel {
	return &interactiveModel{sc: sc, items: listItems(rt), state: stateSelect}
}

func (m *interactiveModel) Init() tea.Cmd { return nil }

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.items)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.items) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.call
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.call

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state != stateSelect {
				m.reset()
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelect
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInputs() {
	it := m.items[m.selected]
	m.inputs = make([]textinput.Model, len(it.params))
	for i, p := range it.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) call() tea.Msg {
	m.callMu.Lock()
	defer m.callMu.Unlock()

	it := m.items[m.selected]
	args := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		args[i] = in.Value()
	}

	if it.member == nil {
		reply, err := m.sc.SendSyncMessage(it.extension, args[0])
		return callResultMsg{result: reply, err: err}
	}

	v, err := m.sc.Run(callExpr(it, args))
	if err != nil {
		return callResultMsg{err: err}
	}
	if it.member.Promise {
		if v, err = m.sc.Run(`JSON.stringify(__xeshResult)`); err != nil {
			return callResultMsg{err: err}
		}
	}
	return callResultMsg{result: display(v)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("XESh Explorer"))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString("No extensions loaded.\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	switch m.state {
	case stateSelect:
		b.WriteString("Select a member:\n\n")
		for i, it := range m.items {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatItem(it)))
			} else {
				b.WriteString("  " + formatItem(it))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		it := m.items[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", memberStyle.Render(it.label())))
		for i, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(it.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("arguments are JavaScript expressions • tab next field • enter call • esc back"))

	case stateShowResult:
		it := m.items[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", memberStyle.Render(it.label())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func formatItem(it item) string {
	if it.member == nil {
		return memberStyle.Render(it.label()) + "(" + typeStyle.Render("message") + ")"
	}
	kind := it.member.Kind.String()
	if it.member.Static {
		kind = "static " + kind
	}
	if it.member.Promise {
		kind += ", promise"
	}
	if it.member.Kind == descriptor.KindProperty {
		if it.member.Writable {
			kind += ", writable"
		}
		return memberStyle.Render(it.label()) + " " + typeStyle.Render("["+kind+"]")
	}
	params := make([]string, len(it.params))
	for i, p := range it.params {
		params[i] = p.name + ": " + typeStyle.Render(p.typeStr)
	}
	return memberStyle.Render(it.label()) + "(" + strings.Join(params, ", ") + ") " + typeStyle.Render("["+kind+"]")
}

func runInteractive(rt *runtime.Runtime, sc *jscontext.Context) error {
	p := tea.NewProgram(newInteractiveModel(rt, sc), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
