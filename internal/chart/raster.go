package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/sensor"
)

// Default PNG size.
const (
	ImageWidth  = 640
	ImageHeight = 420
)

var imageMargins = map[sensor.Signal]Margins{
	sensor.Continuous: {Left: 60, Right: 20, Top: 26, Bottom: 40},
	sensor.Binary:     {Left: 52, Right: 20, Top: 28, Bottom: 40},
}

var (
	imageBackground = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	imageGrid       = color.NRGBA{R: 0xE2, G: 0xE8, B: 0xF0, A: 0xFF}
	imageText       = color.NRGBA{R: 0x47, G: 0x55, B: 0x69, A: 0xFF}
)

// ImageRegion returns the pixel region for a w x h image of a sensor chart.
func ImageRegion(sig sensor.Signal, w, h int) Region {
	m, ok := imageMargins[sig]
	if !ok {
		m = imageMargins[sensor.Continuous]
	}
	return Region{Width: float64(w), Height: float64(h), Margins: m}
}

// PaintImage rasterises a frame. The frame must have been rendered for a
// region of whole-pixel size.
func PaintImage(f Frame) *image.NRGBA {
	w, h := max(int(f.Width), 1), max(int(f.Height), 1)
	img := imaging.New(w, h, imageBackground)
	pal := PaletteFor(f.Signal)
	line := hexColor(string(pal.Line))
	area := hexColor(string(pal.Area))
	marker := hexColor(string(pal.Marker))

	p := &pen{dst: img, z: vector.NewRasterizer(w, h)}

	for _, g := range f.Grid {
		p.segment(Point{X: f.Plot.Left, Y: g.Y}, Point{X: f.Plot.Right(), Y: g.Y}, 1)
		p.flush(imageGrid)
		p.text(ascii(axisLabel(f, g)), int(f.Plot.Left)-6, int(g.Y)+4, true)
	}

	if f.NoData {
		msg := ascii(f.Message)
		p.text(msg, int(f.Plot.Left+f.Plot.Width/2)-len(msg)*7/2, int(f.Plot.Top+f.Plot.Height/2), false)
		p.title(f)
		return img
	}

	if f.Signal == sensor.Continuous {
		p.polygon(collect(f.Area))
		p.flush(withAlpha(area, 70))
	}

	pts := collect(f.Line)
	for _, s := range f.Strokes {
		for i := 1; i < len(pts); i++ {
			p.segment(pts[i-1], pts[i], s.Width)
		}
		for _, v := range pts {
			p.circle(v, s.Width/2)
		}
		p.flush(withAlpha(line, s.Alpha))
	}

	r := 2.5
	if f.Signal == sensor.Binary {
		r = 4
		for m := range f.Markers {
			p.circle(m, 8)
		}
		p.flush(withAlpha(marker, 50))
	}
	for m := range f.Markers {
		p.circle(m, r)
	}
	p.flush(marker)

	p.title(f)
	return img
}

// SavePNG renders a frame and writes it to path.
func SavePNG(f Frame, path string) error {
	if err := imaging.Save(PaintImage(f), path); err != nil {
		return errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Failed to write chart %s", path),
			"Check that the export directory exists and is writable")
	}
	return nil
}

// pen accumulates vector paths and fills them in one colour per flush.
type pen struct {
	dst *image.NRGBA
	z   *vector.Rasterizer
}

func (p *pen) polygon(pts []Point) {
	if len(pts) < 3 {
		return
	}
	p.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		p.z.LineTo(float32(pt.X), float32(pt.Y))
	}
	p.z.ClosePath()
}

// segment adds a stroke of width w from a to b as a quad.
func (p *pen) segment(a, b Point, w float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	p.polygon([]Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	})
}

// circle adds a disc with the same winding as segment so overlaps add up.
func (p *pen) circle(c Point, r float64) {
	const n = 16
	pts := make([]Point, n)
	for i := range pts {
		t := -2 * math.Pi * float64(i) / n
		pts[i] = Point{X: c.X + r*math.Cos(t), Y: c.Y + r*math.Sin(t)}
	}
	p.polygon(pts)
}

func (p *pen) flush(c color.NRGBA) {
	p.z.DrawOp = draw.Over
	p.z.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{})
	p.z.Reset(p.dst.Bounds().Dx(), p.dst.Bounds().Dy())
}

func (p *pen) text(s string, x, y int, alignRight bool) {
	d := &font.Drawer{Dst: p.dst, Src: image.NewUniform(imageText), Face: basicfont.Face7x13}
	if alignRight {
		x -= d.MeasureString(s).Round()
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func (p *pen) title(f Frame) {
	title := f.Label
	if f.Unit != "" {
		title = fmt.Sprintf("%s (%s)", f.Label, f.Unit)
	}
	p.text(ascii(title), int(f.Plot.Left), int(f.Plot.Top)-10, false)
	if h := Header(f); h != "" {
		p.text(ascii(h), int(f.Plot.Left), int(f.Plot.Bottom())+26, false)
	}
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

func hexColor(s string) color.NRGBA {
	c := color.NRGBA{A: 0xFF}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	}
	return c
}

// ascii replaces runes the built-in bitmap font cannot draw.
func ascii(s string) string {
	s = strings.ReplaceAll(s, "°", "")
	return strings.Map(func(r rune) rune {
		if r > 0x7e {
			return '?'
		}
		return r
	}, s)
}
