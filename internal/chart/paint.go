package chart

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

// Temperature colour thresholds in °C.
const (
	WarmThreshold = 26.0
	HotThreshold  = 28.0
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Palette colours one painted chart.
type Palette struct {
	Line   lipgloss.Color
	Area   lipgloss.Color
	Marker lipgloss.Color
	Grid   lipgloss.Color
	Label  lipgloss.Color
}

var palettes = map[sensor.Signal]Palette{
	sensor.Continuous: {Line: "#148C5A", Area: "#48C9B0", Marker: "#0E6B45", Grid: "238", Label: "244"},
	sensor.Binary:     {Line: "#F59E0B", Area: "#F59E0B", Marker: "#FFBE50", Grid: "238", Label: "244"},
}

// PaletteFor returns the palette for a signal kind.
func PaletteFor(sig sensor.Signal) Palette {
	if p, ok := palettes[sig]; ok {
		return p
	}
	return palettes[sensor.Continuous]
}

// ValueColor returns the colour of a reading.
func ValueColor(sig sensor.Signal, v float64) lipgloss.Color {
	if sig == sensor.Binary {
		if v >= Threshold {
			return lipgloss.Color("214")
		}
		return lipgloss.Color("240")
	}
	switch {
	case v >= HotThreshold:
		return lipgloss.Color("208") // orange
	case v >= WarmThreshold:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderValue renders a reading formatted and colour coded for its sensor.
func RenderValue(spec sensor.Spec, v float64) string {
	style := lipgloss.NewStyle().Foreground(ValueColor(spec.Signal, v))
	if (spec.Signal == sensor.Binary && v >= Threshold) || (spec.Signal == sensor.Continuous && v >= HotThreshold) {
		style = style.Bold(true)
	}
	return style.Render(spec.Format(v))
}

// Sparkline renders the last width samples as block characters scaled to
// [lo, hi]. Missing history is padded with a dim dashed line.
func Sparkline(sig sensor.Signal, samples []history.Sample, width int, lo, hi float64) string {
	if width <= 0 {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	span := hi - lo
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	sb.WriteString(dim.Render(strings.Repeat("╌", width-len(samples))))
	for _, s := range samples {
		norm := math.Max(0, math.Min(1, (s.Value-lo)/span))
		idx := min(int(norm*7), 7)
		style := lipgloss.NewStyle().Foreground(ValueColor(sig, s.Value))
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}

// axisWidth is the number of cells reserved for y-axis labels.
const axisWidth = 8

// Terminal paints frames as braille charts. Cols and Rows size the whole
// chart including its axis column; a header line comes on top.
type Terminal struct {
	Cols, Rows int
}

func (t Terminal) canvasSize() (cols, rows int) {
	return max(t.Cols-axisWidth, 4), max(t.Rows, 2)
}

// Region returns the region renderers should draw into, in braille dots.
func (t Terminal) Region() Region {
	cols, rows := t.canvasSize()
	return Region{
		Width:   float64(cols * 2),
		Height:  float64(rows * 4),
		Margins: Margins{Top: 1, Bottom: 1, Right: 1},
	}
}

// Header returns the latest-value line shown above a chart.
func Header(f Frame) string {
	if f.NoData {
		return ""
	}
	if f.Signal == sensor.Binary {
		if f.Latest >= Threshold {
			return "Latest: Motion DETECTED"
		}
		return "Latest: No Motion"
	}
	return fmt.Sprintf("Latest: %.2f %s", f.Latest, f.Unit)
}

// Paint returns the frame as Rows+1 lines of text.
func (t Terminal) Paint(f Frame) string {
	cols, rows := t.canvasSize()
	pal := PaletteFor(f.Signal)
	labelStyle := lipgloss.NewStyle().Foreground(pal.Label)

	header := lipgloss.NewStyle().Bold(true).Foreground(pal.Line).Render(Header(f))
	if f.NoData {
		return header + "\n" + t.paintEmpty(f, cols, rows)
	}

	c := NewCanvas(cols, rows)
	if f.Signal == sensor.Continuous {
		c.fill(collect(f.Area), layerArea)
	}
	for _, g := range f.Grid {
		c.hline(g.Y, layerGrid)
	}
	var prev *Point
	for p := range f.Line {
		if prev != nil {
			c.line(*prev, p, layerLine)
		}
		prev = &p
	}
	if prev != nil {
		c.line(*prev, *prev, layerLine)
	}
	for p := range f.Markers {
		x, y := c.clampDot(p)
		c.set(x, y, layerMarker)
	}

	styles := map[layer]lipgloss.Style{
		layerArea:   lipgloss.NewStyle().Foreground(pal.Area).Faint(true),
		layerGrid:   lipgloss.NewStyle().Foreground(pal.Grid),
		layerLine:   lipgloss.NewStyle().Foreground(pal.Line).Bold(true),
		layerMarker: lipgloss.NewStyle().Foreground(pal.Marker).Bold(true),
	}
	body := c.render(styles)

	labels := make([]string, rows)
	for _, g := range f.Grid {
		_, y := c.clampDot(Point{Y: g.Y})
		labels[y/4] = axisLabel(f, g)
	}

	var sb strings.Builder
	sb.WriteString(header)
	for r, line := range body {
		sb.WriteByte('\n')
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%*s ", axisWidth-1, labels[r])))
		sb.WriteString(line)
	}
	return sb.String()
}

func (t Terminal) paintEmpty(f Frame, cols, rows int) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	msg := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	lines := make([]string, rows)
	for r := range lines {
		pad := strings.Repeat(" ", axisWidth)
		if r == rows/2 {
			lines[r] = pad + msg.Render(lipgloss.PlaceHorizontal(cols, lipgloss.Center, f.Message))
			continue
		}
		lines[r] = pad + dim.Render(strings.Repeat("╌", cols))
	}
	return strings.Join(lines, "\n")
}

func axisLabel(f Frame, g GridLine) string {
	if f.Signal == sensor.Binary {
		if g.Value >= Threshold {
			return "DETECT"
		}
		return "NONE"
	}
	return fmt.Sprintf("%.1f%s", g.Value, f.Unit)
}

func collect(seq iter.Seq[Point]) []Point {
	var out []Point
	for p := range seq {
		out = append(out, p)
	}
	return out
}
