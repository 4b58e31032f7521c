package chart

import (
	"fmt"
	"strings"

	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

// Band positions as a fraction of the plot height, from the top.
const (
	HighBand  = 0.28
	LowBand   = 0.72
	Threshold = 0.5
)

// Step renders a two-level signal as a zero-order hold: each level is held
// until the next sample, then the path jumps vertically.
type Step struct {
	Label string
}

// NewStep creates a step renderer.
func NewStep(label string) *Step {
	return &Step{Label: label}
}

// Signal implements Renderer.
func (s *Step) Signal() sensor.Signal { return sensor.Binary }

// Render implements Renderer.
func (s *Step) Render(snapshot []history.Sample, region Region) Frame {
	f := emptyFrame(sensor.Binary, s.Label, "", region)
	f.Count = len(snapshot)
	if len(snapshot) == 0 {
		f.NoData = true
		f.Message = fmt.Sprintf("No %s data yet.", strings.ToLower(s.Label))
		return f
	}

	plot := f.Plot
	yHigh := plot.Top + plot.Height*HighBand
	yLow := plot.Top + plot.Height*LowBand
	level := func(v float64) float64 {
		if v >= Threshold {
			return yHigh
		}
		return yLow
	}
	axis := newTimeAxis(snapshot, plot)

	f.Min, f.Max = 0, 1
	f.Latest = snapshot[len(snapshot)-1].Value
	f.Grid = []GridLine{{Y: yHigh, Value: 1}, {Y: yLow, Value: 0}}

	f.Line = func(yield func(Point) bool) {
		px, py := axis.x(snapshot[0].Timestamp), level(snapshot[0].Value)
		if !yield(Point{X: px, Y: py}) {
			return
		}
		for _, smp := range snapshot[1:] {
			x, y := axis.x(smp.Timestamp), level(smp.Value)
			if x != px {
				if !yield(Point{X: x, Y: py}) {
					return
				}
			}
			if y != py {
				if !yield(Point{X: x, Y: y}) {
					return
				}
			}
			px, py = x, y
		}
	}
	f.Markers = func(yield func(Point) bool) {
		for _, smp := range snapshot {
			if !yield(Point{X: axis.x(smp.Timestamp), Y: level(smp.Value)}) {
				return
			}
		}
	}
	// Glow passes first, then the main stroke.
	for r := 8; r >= 4; r -= 2 {
		f.Strokes = append(f.Strokes, Stroke{Width: float64(r), Alpha: uint8(30 + r*6)})
	}
	f.Strokes = append(f.Strokes, Stroke{Width: 3, Alpha: 255})
	return f
}
