package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/corevm/stackvm/vm/interp"
	"github.com/corevm/stackvm/vm/vmctx"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	currentLineStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#3A3A3A"))
)

const disasmViewportHeight = 12

type stepDebugModel struct {
	filename    string
	ctx         *vmctx.Context
	err         error
	halted      bool
	exitCode    int
	disasmLines []string
	disasmIPs   []int64
	disasm      viewport.Model
}

func newStepDebugModel(filename string) *stepDebugModel {
	return &stepDebugModel{
		filename: filename,
		disasm:   viewport.New(60, disasmViewportHeight),
	}
}

// disasmLineFor returns the index into disasmLines whose instruction
// starts at the given IP, or -1 if ip falls outside the code buffer.
func (m *stepDebugModel) disasmLineFor(ip int64) int {
	for i, at := range m.disasmIPs {
		if at == ip {
			return i
		}
	}
	return -1
}

// renderDisasm re-renders the disassembly listing with the line at the
// current IP highlighted, and scrolls the viewport to keep it visible.
func (m *stepDebugModel) renderDisasm(ip int64) {
	cur := m.disasmLineFor(ip)
	var b strings.Builder
	for i, line := range m.disasmLines {
		if i == cur {
			b.WriteString(currentLineStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	m.disasm.SetContent(b.String())
	if cur >= 0 {
		m.disasm.YOffset = max(0, cur-disasmViewportHeight/2)
	}
}

type loadedVMMsg struct {
	ctx *vmctx.Context
	err error
}

func (m *stepDebugModel) Init() tea.Cmd {
	return m.load
}

func (m *stepDebugModel) load() tea.Msg {
	ctx, err := vmctx.Open(m.filename)
	if err != nil {
		return loadedVMMsg{err: err}
	}
	return loadedVMMsg{ctx: ctx}
}

func (m *stepDebugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.ctx != nil {
				_ = m.ctx.Close()
			}
			return m, tea.Quit

		case "s", "enter":
			if m.ctx != nil && !m.halted {
				halted, fault := m.ctx.VM.Step()
				if fault != nil {
					m.err = fault
					m.halted = true
				} else if halted {
					m.halted = true
					m.exitCode = m.ctx.VM.ExitCode()
				}
			}
		}

	case loadedVMMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ctx = msg.ctx
		lines, offsets, derr := interp.DisassembleWithOffsets(msg.ctx.Program.Code)
		if derr != nil {
			m.err = derr
			return m, nil
		}
		m.disasmLines = lines
		m.disasmIPs = offsets
	}

	if m.ctx != nil && m.err == nil {
		m.renderDisasm(m.ctx.VM.IP())
	}
	var cmd tea.Cmd
	m.disasm, cmd = m.disasm.Update(msg)
	return m, cmd
}

func (m *stepDebugModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("step debugger"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	if m.ctx == nil {
		b.WriteString("Loading...")
		return b.String()
	}

	b.WriteString(boxStyle.Render(m.disasm.View()))
	b.WriteString("\n\n")

	vm := m.ctx.VM
	state := fmt.Sprintf("IP:     %d\nFP:     %d\nLocals: %v\nStack:  %v",
		vm.IP(), vm.Machine.FP, vm.Machine.Locals[:8], vm.Machine.Stack.Snapshot())
	b.WriteString(boxStyle.Render(state))
	b.WriteString("\n\n")

	if m.halted {
		b.WriteString(resultStyle.Render(fmt.Sprintf("halted, exit code %d", m.exitCode)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
	} else {
		b.WriteString(helpStyle.Render("s/enter step • q quit"))
	}

	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newStepDebugModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
