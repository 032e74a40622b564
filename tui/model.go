// Package tui provides an interactive cycle-by-cycle viewer of the stepped
// pipeline.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/report"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

// historyRows is the number of past cycles kept on screen.
const historyRows = 12

const (
	// jumpCycles is how far the jump key advances.
	jumpCycles = 10

	// runCycles bounds one run key press so a program that never halts
	// still hands control back.
	runCycles = 1 << 20
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	panelTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// Option configures a Model.
type Option func(*Model)

// WithConsole shows the text of console, typically the buffer the trap
// handler writes to, in a panel.
func WithConsole(console fmt.Stringer) Option {
	return func(m *Model) {
		m.console = console
	}
}

// Model is a bubbletea model that steps a pipeline on key presses.
type Model struct {
	pipe    *pipeline.Pipeline
	regFile *emu.RegFile
	console fmt.Stringer

	keys keyMap
	help help.Model

	history []string
	status  string
	err     error
}

// New creates a Model for p. regFile is the state p executes against.
func New(p *pipeline.Pipeline, regFile *emu.RegFile, opts ...Option) Model {
	m := Model{
		pipe:    p,
		regFile: regFile,
		keys:    defaultKeyMap(),
		help:    help.New(),
		status:  "Ready",
	}
	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Step):
			m.step(1)
		case key.Matches(msg, m.keys.Jump):
			m.step(jumpCycles)
		case key.Matches(msg, m.keys.Run):
			m.step(runCycles)
		}
	}

	return m, nil
}

// step ticks the pipeline up to n times.
func (m *Model) step(n int) {
	for i := 0; i < n && !m.pipe.Done(); i++ {
		row := m.occupancy()
		cycle := m.pipe.Cycle()

		if err := m.pipe.Tick(); err != nil {
			m.err = err
			break
		}

		m.history = append(m.history, report.Row(cycle, row))
		if len(m.history) > historyRows {
			m.history = m.history[1:]
		}
	}

	switch {
	case m.err != nil:
		m.status = "Stopped"
	case m.pipe.Halted():
		m.status = fmt.Sprintf("Halted after %d cycles", m.pipe.Cycles())
	default:
		m.status = fmt.Sprintf("Cycle %d", m.pipe.Cycle())
	}
}

// occupancy returns the opcode held by each stage slot.
func (m *Model) occupancy() [pipeline.Depth]string {
	var row [pipeline.Depth]string
	for _, stage := range pipeline.Stages() {
		slot := m.pipe.Slot(stage)
		if !slot.Occupied() {
			continue
		}
		if slot.Status == pipeline.SlotPending && stage == pipeline.StageFetch {
			row[stage] = "?"
			continue
		}
		row[stage] = slot.Rec.Inst.Op.String()
	}

	return row
}

// History returns the rendered rows of the cycles stepped so far, oldest
// first.
func (m Model) History() []string {
	return m.history
}

// Err returns the error that stopped the pipeline.
func (m Model) Err() error {
	return m.err
}

// View implements tea.Model.
func (m Model) View() string {
	sections := []string{headerStyle.Render("LC-3b pipeline stepper")}

	var slots []string
	for _, stage := range pipeline.Stages() {
		slot := m.pipe.Slot(stage)
		slots = append(slots, fmt.Sprintf("%-6s %s", stage, slot.String()))
	}
	slotPanel := panelStyle.Render(panelTitle.Render("Slots") + "\n" + strings.Join(slots, "\n"))
	regPanel := panelStyle.Render(panelTitle.Render("Registers") + "\n" + report.Registers(*m.regFile))
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, slotPanel, regPanel))

	if len(m.history) > 0 {
		sections = append(sections,
			panelStyle.Render(panelTitle.Render("History")+"\n"+strings.Join(m.history, "\n")))
	}

	if m.console != nil {
		if out := m.console.String(); out != "" {
			sections = append(sections, panelStyle.Render(panelTitle.Render("Console")+"\n"+out))
		}
	}

	stats := m.pipe.Stats()
	sections = append(sections, fmt.Sprintf("retired %d · control stalls %d · data stalls %d",
		stats.Instructions, stats.ControlStalls, stats.DataStalls))

	status := statusStyle.Render(m.status)
	if m.err != nil {
		status = errStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	sections = append(sections, status, m.help.View(m.keys))

	return strings.Join(sections, "\n")
}

// Run starts the interactive program and blocks until the user quits.
func Run(p *pipeline.Pipeline, regFile *emu.RegFile, opts ...Option) error {
	_, err := tea.NewProgram(New(p, regFile, opts...), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("failed to run stepper: %w", err)
	}
	return nil
}
