package chart

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

var square = Region{Width: 100, Height: 100}

func samples(pairs ...float64) []history.Sample {
	out := make([]history.Sample, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, history.Sample{Timestamp: int64(pairs[i]), Value: pairs[i+1]})
	}
	return out
}

func TestContinuousEmptySnapshot(t *testing.T) {
	f := NewContinuous("Temperature", "°C").Render(nil, square)

	assert.True(t, f.NoData)
	assert.Equal(t, "No temperature data yet.", f.Message)
	assert.Empty(t, collect(f.Line))
	assert.Empty(t, collect(f.Area))
	assert.Empty(t, collect(f.Markers))
	assert.Empty(t, f.Grid)
}

func TestContinuousDomainWidening(t *testing.T) {
	snap := samples(0, 25, 1000, 25, 2000, 25)
	f := NewContinuous("Temperature", "°C").Render(snap, square)

	assert.Equal(t, 24.0, f.Min)
	assert.Equal(t, 26.0, f.Max)
	for _, p := range collect(f.Line) {
		assert.InDelta(t, 50, p.Y, 1e-9)
	}
}

func TestContinuousSingleSample(t *testing.T) {
	f := NewContinuous("Temperature", "°C").Render(samples(500, 21.5), square)

	line := collect(f.Line)
	require.Len(t, line, 1)
	assert.Equal(t, Point{X: 0, Y: 50}, line[0])
	assert.Equal(t, 21.5, f.Latest)
}

func TestContinuousGeometry(t *testing.T) {
	region := Region{Width: 120, Height: 140, Margins: Margins{Left: 10, Right: 10, Top: 20, Bottom: 20}}
	snap := samples(0, 20, 50, 30, 100, 25)
	f := NewContinuous("Temperature", "°C").Render(snap, region)

	assert.Equal(t, []Point{{10, 120}, {60, 20}, {110, 70}}, collect(f.Line))
	assert.Equal(t, collect(f.Line), collect(f.Markers))

	area := collect(f.Area)
	require.Len(t, area, len(snap)+2)
	assert.Equal(t, Point{X: 10, Y: 120}, area[0])
	assert.Equal(t, Point{X: 110, Y: 120}, area[len(area)-1])

	require.Len(t, f.Grid, 5)
	for i, g := range f.Grid {
		assert.InDelta(t, 20+float64(i)*25, g.Y, 1e-9)
		assert.InDelta(t, 30-float64(i)*2.5, g.Value, 1e-9)
	}
}

func TestContinuousEqualTimestamps(t *testing.T) {
	f := NewContinuous("Temperature", "°C").Render(samples(7, 20, 7, 30), square)
	for _, p := range collect(f.Line) {
		assert.Equal(t, 0.0, p.X)
	}
}

func TestRenderDoesNotMutateSnapshot(t *testing.T) {
	snap := samples(0, 22, 10, 28)
	before := append([]history.Sample(nil), snap...)

	NewContinuous("Temperature", "°C").Render(snap, square)
	NewStep("Motion").Render(snap, square)

	assert.Equal(t, before, snap)
}

func TestStepPath(t *testing.T) {
	f := NewStep("Motion").Render(samples(0, 0, 1, 1, 2, 0), square)

	path := collect(f.Line)
	assert.Equal(t, []Point{{0, 72}, {50, 72}, {50, 28}, {100, 28}, {100, 72}}, path)
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		assert.True(t, a.X == b.X || a.Y == b.Y, "diagonal segment %v -> %v", a, b)
		assert.NotEqual(t, a, b)
	}

	assert.Equal(t, []Point{{0, 72}, {50, 28}, {100, 72}}, collect(f.Markers))
	assert.Equal(t, []GridLine{{Y: 28, Value: 1}, {Y: 72, Value: 0}}, f.Grid)
}

func TestStepOmitsDuplicateVertices(t *testing.T) {
	f := NewStep("Motion").Render(samples(0, 1, 1, 1), square)
	assert.Equal(t, []Point{{0, 28}, {100, 28}}, collect(f.Line))

	f = NewStep("Motion").Render(samples(5, 0, 5, 1), square)
	assert.Equal(t, []Point{{0, 72}, {0, 28}}, collect(f.Line))
}

func TestStepThreshold(t *testing.T) {
	f := NewStep("Motion").Render(samples(0, 0.5, 1, 0.49), square)
	assert.Equal(t, []Point{{0, 28}, {100, 28}, {100, 72}}, collect(f.Line))
}

func TestStepStrokes(t *testing.T) {
	f := NewStep("Motion").Render(samples(0, 1), square)
	widths := make([]float64, 0, len(f.Strokes))
	for _, s := range f.Strokes {
		widths = append(widths, s.Width)
	}
	assert.Equal(t, []float64{8, 6, 4, 3}, widths)
	assert.Equal(t, uint8(255), f.Strokes[len(f.Strokes)-1].Alpha)
}

func TestStepEmptySnapshot(t *testing.T) {
	f := NewStep("Motion").Render(nil, square)
	assert.True(t, f.NoData)
	assert.Equal(t, "No motion data yet.", f.Message)
	assert.Empty(t, collect(f.Line))
	assert.Empty(t, collect(f.Markers))
}

func TestForSelectsRenderer(t *testing.T) {
	temp, err := sensor.NewSpec(sensor.Temperature, time.Second, sensor.NewUniform(20, 30, nil))
	require.NoError(t, err)
	motion, err := sensor.NewSpec(sensor.Motion, time.Second, sensor.NewBernoulli(0.4, nil))
	require.NoError(t, err)

	r, err := For(temp)
	require.NoError(t, err)
	assert.IsType(t, &Continuous{}, r)

	r, err = For(motion)
	require.NoError(t, err)
	assert.IsType(t, &Step{}, r)
	assert.Equal(t, sensor.Binary, r.Signal())

	motion.Signal = sensor.Signal(9)
	_, err = For(motion)
	assert.Error(t, err)
}

func TestTerminalPaintEmpty(t *testing.T) {
	term := Terminal{Cols: 60, Rows: 8}
	out := term.Paint(NewContinuous("Temperature", "°C").Render(nil, term.Region()))

	assert.Contains(t, out, "No temperature data yet.")
	assert.Len(t, strings.Split(out, "\n"), 9)
}

func TestTerminalPaint(t *testing.T) {
	term := Terminal{Cols: 60, Rows: 8}
	snap := samples(0, 22, 2000, 24, 4000, 23.456)
	out := term.Paint(NewContinuous("Temperature", "°C").Render(snap, term.Region()))

	assert.Contains(t, out, "Latest: 23.46 °C")
	assert.Contains(t, out, "24.0°C")
	assert.Contains(t, out, "22.0°C")
	assert.True(t, strings.ContainsFunc(out, func(r rune) bool { return r > 0x2800 && r <= 0x28FF }))
	assert.Len(t, strings.Split(out, "\n"), 9)

	out = term.Paint(NewStep("Motion").Render(samples(0, 0, 1500, 1), term.Region()))
	assert.Contains(t, out, "Latest: Motion DETECTED")
	assert.Contains(t, out, "DETECT")
	assert.Contains(t, out, "NONE")
}

func TestBrailleBits(t *testing.T) {
	c := NewCanvas(1, 1)
	c.set(0, 0, layerLine)
	c.set(1, 3, layerLine)
	assert.Equal(t, uint8(0x81), c.bits[0][0])
	assert.Equal(t, []string{"⢁"}, c.render(nil))

	c.set(5, 5, layerLine)
	assert.Equal(t, uint8(0x81), c.bits[0][0])
}

func TestSparkline(t *testing.T) {
	out := Sparkline(sensor.Continuous, samples(0, 20, 1, 25, 2, 30), 10, 20, 30)
	assert.Contains(t, out, "▁")
	assert.Contains(t, out, "█")
	assert.Contains(t, out, "╌")
	assert.Empty(t, Sparkline(sensor.Continuous, nil, 0, 0, 1))
}

func TestPaintImage(t *testing.T) {
	region := ImageRegion(sensor.Continuous, ImageWidth, ImageHeight)
	f := NewContinuous("Temperature", "°C").Render(samples(0, 25, 1000, 25), region)

	img := PaintImage(f)
	assert.Equal(t, ImageWidth, img.Bounds().Dx())
	assert.Equal(t, ImageHeight, img.Bounds().Dy())

	mid := f.Plot.Top + f.Plot.Height/2
	assert.NotEqual(t, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, img.NRGBAAt(320, int(mid)))
}

func TestSavePNG(t *testing.T) {
	region := ImageRegion(sensor.Binary, 200, 120)
	f := NewStep("Motion").Render(samples(0, 0, 10, 1), region)

	path := filepath.Join(t.TempDir(), "motion.png")
	require.NoError(t, SavePNG(f, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	err = SavePNG(f, filepath.Join(t.TempDir(), "missing", "motion.png"))
	assert.True(t, errors.IsCode(err, errors.ErrExport))
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0x14, G: 0x8C, B: 0x5A, A: 0xFF}, hexColor("#148C5A"))
}
