// Package report renders simulation results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/timing/core"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(16)
	haltStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// emptyCell marks a stage that completed no instruction in a cycle.
const emptyCell = "----"

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

// Summary renders the statistics of a run in a bordered box.
func Summary(r core.Result) string {
	stats := r.Stats

	status := haltStyle.Render(fmt.Sprintf("machine halted after %d cycles", r.Cycles))
	if !r.Halted {
		status = errorStyle.Render(fmt.Sprintf("machine stopped after %d cycles", r.Cycles))
	}

	lines := []string{
		titleStyle.Render("LC-3b pipeline · " + r.Kind.String()),
		status,
		"",
		field("Instructions", fmt.Sprintf("%d", stats.Instructions)),
		field("Cycles", fmt.Sprintf("%d", r.Cycles)),
		field("CPI", fmt.Sprintf("%.3f", stats.CPI())),
		field("Control stalls", fmt.Sprintf("%d", stats.ControlStalls)),
		field("Data stalls", fmt.Sprintf("%d", stats.DataStalls)),
		field("Simulated time", fmt.Sprintf("%v @ %s", r.SimulatedTime(), Frequency(r.Clock))),
	}

	if r.CacheEnabled {
		c := r.Cache
		lines = append(lines,
			"",
			field("DCache accesses", fmt.Sprintf("%d (%d reads, %d writes)", c.Accesses(), c.Reads, c.Writes)),
			field("DCache hits", fmt.Sprintf("%d (%.1f%%)", c.Hits, 100*c.HitRate())),
			field("DCache misses", fmt.Sprintf("%d", c.Misses)),
			field("DCache evicts", fmt.Sprintf("%d", c.Evictions)),
			field("DCache writebacks", fmt.Sprintf("%d", c.Writebacks)),
		)
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Frequency formats a clock frequency with the largest whole unit.
func Frequency(f sim.Freq) string {
	switch {
	case f >= 1*sim.GHz:
		return fmt.Sprintf("%.2f GHz", float64(f)/float64(sim.GHz))
	case f >= 1*sim.MHz:
		return fmt.Sprintf("%.2f MHz", float64(f)/float64(sim.MHz))
	default:
		return fmt.Sprintf("%.0f Hz", float64(f))
	}
}

// Registers lists R0-R7 as hex and signed decimal, then PC and the
// condition codes.
func Registers(rf emu.RegFile) string {
	var sb strings.Builder
	for i, v := range rf.R {
		fmt.Fprintf(&sb, "R%d=0x%04X=%d\n", i, v, int16(v))
	}
	fmt.Fprintf(&sb, "PC=0x%04X CC=%s", rf.PC, rf.CC)

	return sb.String()
}

// Diagram renders one row per cycle showing which instruction completed
// each stage in that cycle.
func Diagram(schedule []pipeline.Timing, cycles uint64) string {
	grid := make([][pipeline.Depth]string, cycles+1)
	for _, t := range schedule {
		for _, stage := range pipeline.Stages() {
			c := t.At(stage)
			if c < uint64(len(grid)) {
				grid[c][stage] = t.Op.String()
			}
		}
	}

	var header strings.Builder
	header.WriteString("cycle ")
	for _, stage := range pipeline.Stages() {
		fmt.Fprintf(&header, "|%-4s| ", strings.ToUpper(stage.String()[:1]))
	}

	lines := []string{titleStyle.Render(strings.TrimRight(header.String(), " "))}
	for c, row := range grid {
		lines = append(lines, Row(uint64(c), row))
	}

	return strings.Join(lines, "\n")
}

// Row formats the stage cells of one cycle.
func Row(cycle uint64, cells [pipeline.Depth]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5d ", cycle)
	for _, cell := range cells {
		if cell == "" {
			cell = emptyCell
		}
		fmt.Fprintf(&sb, "|%4s| ", cell)
	}

	return strings.TrimRight(sb.String(), " ")
}
