package chart

import (
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// layer orders what is drawn in a cell; higher layers win the cell colour.
type layer uint8

const (
	layerNone layer = iota
	layerArea
	layerGrid
	layerLine
	layerMarker
)

// Canvas is a braille dot grid: every terminal cell holds 2x4 dots.
type Canvas struct {
	cols, rows int
	bits       [][]uint8
	top        [][]layer
}

// NewCanvas allocates a canvas of cols x rows cells.
func NewCanvas(cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	c := &Canvas{cols: cols, rows: rows}
	c.bits = make([][]uint8, rows)
	c.top = make([][]layer, rows)
	for r := range c.bits {
		c.bits[r] = make([]uint8, cols)
		c.top[r] = make([]layer, cols)
	}
	return c
}

// DotWidth returns the horizontal resolution in dots.
func (c *Canvas) DotWidth() int { return c.cols * 2 }

// DotHeight returns the vertical resolution in dots.
func (c *Canvas) DotHeight() int { return c.rows * 4 }

// brailleBit returns the bitmask for a dot at offset (offX, offY) within a
// cell, following the Unicode braille dot numbering.
func brailleBit(offX, offY int) uint8 {
	if offX == 0 {
		switch offY {
		case 0:
			return 0x01
		case 1:
			return 0x02
		case 2:
			return 0x04
		case 3:
			return 0x40
		}
		return 0
	}
	switch offY {
	case 0:
		return 0x08
	case 1:
		return 0x10
	case 2:
		return 0x20
	case 3:
		return 0x80
	}
	return 0
}

func (c *Canvas) set(x, y int, l layer) {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return
	}
	row, col := y/4, x/2
	c.bits[row][col] |= brailleBit(x%2, y%4)
	if l > c.top[row][col] {
		c.top[row][col] = l
	}
}

func (c *Canvas) clampDot(p Point) (int, int) {
	x := int(math.Round(p.X))
	y := int(math.Round(p.Y))
	x = max(0, min(x, c.DotWidth()-1))
	y = max(0, min(y, c.DotHeight()-1))
	return x, y
}

// line draws a segment with Bresenham's algorithm.
func (c *Canvas) line(a, b Point, l layer) {
	x0, y0 := c.clampDot(a)
	x1, y1 := c.clampDot(b)
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, l)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// hline draws a dotted horizontal guide.
func (c *Canvas) hline(y float64, l layer) {
	_, row := c.clampDot(Point{Y: y})
	for x := 0; x < c.DotWidth(); x += 3 {
		c.set(x, row, l)
	}
}

// fill shades the inside of a closed polygon with a checkerboard of dots,
// using even-odd scanlines through dot centres.
func (c *Canvas) fill(poly []Point, l layer) {
	if len(poly) < 3 {
		return
	}
	var xs []float64
	for y := 0; y < c.DotHeight(); y++ {
		cy := float64(y) + 0.5
		xs = xs[:0]
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			if (a.Y <= cy && b.Y > cy) || (b.Y <= cy && a.Y > cy) {
				xs = append(xs, a.X+(cy-a.Y)/(b.Y-a.Y)*(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			from := int(math.Ceil(xs[i] - 0.5))
			to := int(math.Floor(xs[i+1] - 0.5))
			for x := from; x <= to; x++ {
				if (x+y)%2 == 0 {
					c.set(x, y, l)
				}
			}
		}
	}
}

// render returns one string per cell row, styling each cell by its top layer.
func (c *Canvas) render(styles map[layer]lipgloss.Style) []string {
	lines := make([]string, c.rows)
	for r := 0; r < c.rows; r++ {
		var sb strings.Builder
		for col := 0; col < c.cols; col++ {
			bits := c.bits[r][col]
			if bits == 0 {
				sb.WriteByte(' ')
				continue
			}
			ch := string(rune(0x2800 + int(bits)))
			if st, ok := styles[c.top[r][col]]; ok {
				sb.WriteString(st.Render(ch))
			} else {
				sb.WriteString(ch)
			}
		}
		lines[r] = sb.String()
	}
	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
