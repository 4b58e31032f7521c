// Package chart turns buffer snapshots into drawable frames and paints them
// as braille terminal charts or PNG images. Renderers never touch buffers;
// they only read the snapshot they are given.
package chart

import (
	"fmt"
	"iter"

	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

// Point is a position in region coordinates, y growing downwards.
type Point struct {
	X, Y float64
}

// Margins reserve space around the plot area.
type Margins struct {
	Left, Right, Top, Bottom float64
}

// Region is the drawable area handed to a renderer.
type Region struct {
	Width, Height float64
	Margins       Margins
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Left, Top, Width, Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Plot returns the region minus its margins. Negative sizes clamp to zero.
func (r Region) Plot() Rect {
	w := r.Width - r.Margins.Left - r.Margins.Right
	h := r.Height - r.Margins.Top - r.Margins.Bottom
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rect{Left: r.Margins.Left, Top: r.Margins.Top, Width: w, Height: h}
}

// GridLine is a horizontal guide at Y labelled with the value it represents.
type GridLine struct {
	Y     float64
	Value float64
}

// Stroke is one pass over the frame's line. Frames list strokes from the
// widest (drawn first) to the main stroke.
type Stroke struct {
	Width float64
	Alpha uint8
}

// Frame is one renderer output. The vertex sequences read the snapshot the
// frame was rendered from; render again to see newer samples.
type Frame struct {
	Signal sensor.Signal
	Label  string
	Unit   string

	Width, Height float64
	Plot          Rect

	NoData  bool
	Message string

	Count    int
	Min, Max float64
	Latest   float64

	Grid    []GridLine
	Line    iter.Seq[Point]
	Area    iter.Seq[Point]
	Markers iter.Seq[Point]
	Strokes []Stroke
}

// Renderer maps a snapshot to a frame.
type Renderer interface {
	Signal() sensor.Signal
	Render(snapshot []history.Sample, region Region) Frame
}

// constructors selects a renderer variant per signal kind.
var constructors = map[sensor.Signal]func(spec sensor.Spec) Renderer{
	sensor.Continuous: func(spec sensor.Spec) Renderer { return NewContinuous(spec.Label, spec.Unit) },
	sensor.Binary:     func(spec sensor.Spec) Renderer { return NewStep(spec.Label) },
}

// For returns the renderer matching the sensor's signal kind.
func For(spec sensor.Spec) (Renderer, error) {
	ctor, ok := constructors[spec.Signal]
	if !ok {
		return nil, fmt.Errorf("no renderer for %s signal of sensor %q", spec.Signal, spec.ID)
	}
	return ctor(spec), nil
}

func noPoints(func(Point) bool) {}

func emptyFrame(sig sensor.Signal, label, unit string, region Region) Frame {
	return Frame{
		Signal:  sig,
		Label:   label,
		Unit:    unit,
		Width:   region.Width,
		Height:  region.Height,
		Plot:    region.Plot(),
		Line:    noPoints,
		Area:    noPoints,
		Markers: noPoints,
	}
}

// timeAxis maps timestamps onto the plot's horizontal extent.
type timeAxis struct {
	t0   int64
	dt   float64
	left float64
	w    float64
}

func newTimeAxis(snapshot []history.Sample, plot Rect) timeAxis {
	t0 := snapshot[0].Timestamp
	t1 := snapshot[len(snapshot)-1].Timestamp
	dt := t1 - t0
	if dt < 1 {
		dt = 1
	}
	return timeAxis{t0: t0, dt: float64(dt), left: plot.Left, w: plot.Width}
}

func (a timeAxis) x(ts int64) float64 {
	return a.left + float64(ts-a.t0)/a.dt*a.w
}
