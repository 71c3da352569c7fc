package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/lang-runtime/engine"
	"github.com/wippyai/lang-runtime/languages/wasmlang"
	"github.com/wippyai/lang-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	validStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	invalidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB347"))

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

// interactiveModel is a live inspector for one engine: it creates and
// closes contexts, calls guest functions through a fixed context
// reference, and shows how the guard assumptions and the selected
// reference strategy react.
type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	language *engine.Language
	ctxRef   engine.ContextRef
	langRef  engine.LanguageRef
	cfgPath  string
	wasmPath string
	langName string
	contexts []*engine.Context
	selected int
	inputs   []textinput.Model
	focusIdx int
	result   string
	state    modelState
}

type modelState int

const (
	stateDashboard modelState = iota
	stateInputCall
	stateShowResult
)

func newInteractiveModel(cfgPath, wasmPath, langName string) *interactiveModel {
	return &interactiveModel{
		cfgPath:  cfgPath,
		wasmPath: wasmPath,
		langName: langName,
		state:    stateDashboard,
	}
}

type loadedMsg struct {
	err      error
	rt       *runtime.Runtime
	language *engine.Language
	ctxRef   engine.ContextRef
	langRef  engine.LanguageRef
}

type contextMsg struct {
	err error
	c   *engine.Context
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadRuntime
}

func (m *interactiveModel) loadRuntime() tea.Msg {
	cfg, err := loadConfig(m.cfgPath)
	if err != nil {
		return loadedMsg{err: err}
	}
	data, err := os.ReadFile(m.wasmPath)
	if err != nil {
		return loadedMsg{err: err}
	}
	rt, err := runtime.NewFromConfig(cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	l, err := rt.Register(wasmlang.New(m.langName, data))
	if err != nil {
		rt.Close(context.Background())
		return loadedMsg{err: err}
	}
	return loadedMsg{
		rt:       rt,
		language: l,
		ctxRef:   l.ContextRef(),
		langRef:  l.LanguageRef(),
	}
}

func (m *interactiveModel) newContext() tea.Msg {
	c, err := m.rt.NewContext(context.Background())
	return contextMsg{c: c, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputCall && msg.String() == "q" {
				break
			}
			if m.rt != nil {
				m.rt.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateDashboard && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateDashboard && m.selected < len(m.contexts)-1 {
				m.selected++
			}

		case "n":
			if m.state == stateDashboard && m.rt != nil {
				return m, m.newContext
			}

		case "d":
			if m.state == stateDashboard && len(m.contexts) > 0 {
				c := m.contexts[m.selected]
				c.Close(context.Background())
				m.contexts = append(m.contexts[:m.selected], m.contexts[m.selected+1:]...)
				if m.selected >= len(m.contexts) && m.selected > 0 {
					m.selected--
				}
			}

		case "enter":
			switch m.state {
			case stateDashboard:
				if len(m.contexts) > 0 {
					m.prepareCallInputs()
					m.state = stateInputCall
				}
			case stateInputCall:
				return m, m.callFunction
			case stateShowResult:
				m.state = stateDashboard
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputCall && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputCall:
				m.state = stateDashboard
				m.inputs = nil
			case stateShowResult:
				m.state = stateDashboard
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.language = msg.language
		m.ctxRef = msg.ctxRef
		m.langRef = msg.langRef

	case contextMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateShowResult
			return m, nil
		}
		m.contexts = append(m.contexts, msg.c)
		m.selected = len(m.contexts) - 1

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputCall {
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

func (m *interactiveModel) prepareCallInputs() {
	fn := textinput.New()
	fn.Prompt = "function: "
	fn.Width = 40
	fn.Focus()
	args := textinput.New()
	args.Prompt = "args: "
	args.Placeholder = "1,2"
	args.Width = 40
	m.inputs = []textinput.Model{fn, args}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	ctx := context.Background()
	c := m.contexts[m.selected]

	fnName := m.inputs[0].Value()
	args, err := parseArgs(m.inputs[1].Value())
	if err != nil {
		return callResultMsg{err: err}
	}

	var out string
	err = func() (err error) {
		// Resolution faults are panics; surface them in the result
		// pane instead of tearing down the terminal.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fault: %v", r)
			}
		}()
		return c.Run(func() error {
			session := m.ctxRef.Resolve().(*wasmlang.Session)
			results, err := session.Call(ctx, fnName, args...)
			if err != nil {
				return err
			}
			out = fmt.Sprintf("%s(%v) = %v", fnName, args, results)
			return nil
		})
	}()
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: out}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.rt == nil {
		return "Loading runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Runtime Inspector"))
	b.WriteString(" ")
	b.WriteString(m.wasmPath)
	b.WriteString("\n\n")

	eng := m.rt.Engine()
	b.WriteString(labelStyle.Render("mode: "))
	b.WriteString(eng.Mode().String())
	b.WriteString(labelStyle.Render("  verify: "))
	b.WriteString(fmt.Sprintf("%v", eng.Verified()))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("language: "))
	b.WriteString(fmt.Sprintf("%s (%s)", m.language.Name(), m.language.Policy()))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("context ref: "))
	b.WriteString(refName(m.ctxRef))
	b.WriteString(labelStyle.Render("  language ref: "))
	b.WriteString(refName(m.langRef))
	b.WriteString("\n\n")

	b.WriteString("Assumptions:\n")
	b.WriteString("  " + m.formatAssumption(eng.SingleContext()) + "\n")
	b.WriteString("  " + m.formatAssumption(m.language.SingleInstance()) + "\n\n")

	switch m.state {
	case stateDashboard:
		if len(m.contexts) == 0 {
			b.WriteString("No contexts. Press n to create one.\n")
		} else {
			b.WriteString("Contexts:\n")
			for i, c := range m.contexts {
				line := fmt.Sprintf("  context %d  %s", i, c.ID())
				if i == m.selected {
					b.WriteString(selectedStyle.Render("> " + line[2:]))
				} else {
					b.WriteString(line)
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("n new • d close • ↑/↓ select • enter call • q quit"))

	case stateInputCall:
		b.WriteString(fmt.Sprintf("Call in context %d:\n\n", m.selected))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
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

func (m *interactiveModel) formatAssumption(a *engine.Assumption) string {
	if a.IsValid() {
		return a.Name() + ": " + validStyle.Render("valid")
	}
	return a.Name() + ": " + invalidStyle.Render("invalidated")
}

func runInteractive(cfgPath, wasmPath, langName string) error {
	p := tea.NewProgram(newInteractiveModel(cfgPath, wasmPath, langName), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
