package chart

import (
	"fmt"
	"strings"

	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

// Continuous renders a line with a filled area beneath it.
type Continuous struct {
	Label string
	Unit  string
}

// NewContinuous creates a continuous renderer.
func NewContinuous(label, unit string) *Continuous {
	return &Continuous{Label: label, Unit: unit}
}

// Signal implements Renderer.
func (c *Continuous) Signal() sensor.Signal { return sensor.Continuous }

// Domain returns the value range of a non-empty snapshot, widened to
// [v-1, v+1] when every value is equal.
func Domain(snapshot []history.Sample) (lo, hi float64) {
	lo, hi = snapshot[0].Value, snapshot[0].Value
	for _, s := range snapshot[1:] {
		if s.Value < lo {
			lo = s.Value
		}
		if s.Value > hi {
			hi = s.Value
		}
	}
	if lo == hi {
		lo--
		hi++
	}
	return lo, hi
}

// Render implements Renderer.
func (c *Continuous) Render(snapshot []history.Sample, region Region) Frame {
	f := emptyFrame(sensor.Continuous, c.Label, c.Unit, region)
	f.Count = len(snapshot)
	if len(snapshot) == 0 {
		f.NoData = true
		f.Message = fmt.Sprintf("No %s data yet.", strings.ToLower(c.Label))
		return f
	}

	lo, hi := Domain(snapshot)
	plot := f.Plot
	axis := newTimeAxis(snapshot, plot)
	y := func(v float64) float64 {
		return plot.Top + (hi-v)/(hi-lo)*plot.Height
	}

	f.Min, f.Max = lo, hi
	f.Latest = snapshot[len(snapshot)-1].Value

	for i := 0; i <= 4; i++ {
		f.Grid = append(f.Grid, GridLine{
			Y:     plot.Top + float64(i)*plot.Height/4,
			Value: hi - float64(i)*(hi-lo)/4,
		})
	}

	f.Line = func(yield func(Point) bool) {
		for _, s := range snapshot {
			if !yield(Point{X: axis.x(s.Timestamp), Y: y(s.Value)}) {
				return
			}
		}
	}
	f.Markers = f.Line
	f.Area = func(yield func(Point) bool) {
		bottom := plot.Bottom()
		first := axis.x(snapshot[0].Timestamp)
		last := axis.x(snapshot[len(snapshot)-1].Timestamp)
		if !yield(Point{X: first, Y: bottom}) {
			return
		}
		for p := range f.Line {
			if !yield(p) {
				return
			}
		}
		yield(Point{X: last, Y: bottom})
	}
	f.Strokes = []Stroke{{Width: 3, Alpha: 255}}
	return f
}
