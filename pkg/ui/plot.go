package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/pairplot/pkg/projection"
	"github.com/vanderheijden86/pairplot/pkg/surface"
)

// Plot glyphs.
const (
	glyphInstruction = '●'
	glyphOutput      = '▲'
	glyphMarked      = '◆'
	glyphLine        = '·'
	glyphSeparator   = '─'
	glyphCursor      = '┼'
)

type cell struct {
	glyph rune
	color string
	fixed lipgloss.AdaptiveColor
	isFix bool
}

// PlotPane rasterizes a surface spec into a character grid and tracks a
// cursor over it. Cursor and lasso positions are in cells; they are turned
// into data coordinates against the bounds of the last rendered spec.
type PlotPane struct {
	width, height int
	spec          surface.Spec
	bounds        surface.Rect
	hasData       bool

	cursorX, cursorY int
	anchored         bool
	anchorX, anchorY int
}

// NewPlotPane returns a pane of the given size in cells.
func NewPlotPane(width, height int) PlotPane {
	p := PlotPane{}
	p.SetSize(width, height)
	return p
}

// SetSize resizes the pane and keeps the cursor inside it.
func (p *PlotPane) SetSize(width, height int) {
	p.width = max(width, 4)
	p.height = max(height, 3)
	p.cursorX = clamp(p.cursorX, 0, p.width-1)
	p.cursorY = clamp(p.cursorY, 0, p.height-1)
	p.anchorX = clamp(p.anchorX, 0, p.width-1)
	p.anchorY = clamp(p.anchorY, 0, p.height-1)
}

// Size returns the pane size in cells.
func (p PlotPane) Size() (int, int) { return p.width, p.height }

// SetSpec replaces the rendered spec. Bounds are taken from the structural
// traces only so overlays never rescale the plot under the cursor.
func (p *PlotPane) SetSpec(spec surface.Spec) {
	p.spec = spec
	base := surface.Spec{Traces: structural(spec.Traces)}
	b, ok := surface.Bounds(base)
	p.hasData = ok
	if !ok {
		p.bounds = surface.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
		return
	}
	if b.Width() == 0 {
		b.MinX, b.MaxX = b.MinX-1, b.MaxX+1
	}
	if b.Height() == 0 {
		b.MinY, b.MaxY = b.MinY-1, b.MaxY+1
	}
	p.bounds = b
}

func structural(traces []surface.Trace) []surface.Trace {
	var out []surface.Trace
	for _, t := range traces {
		if t.Structural {
			out = append(out, t)
		}
	}
	return out
}

// Move shifts the cursor by (dx, dy) cells.
func (p *PlotPane) Move(dx, dy int) {
	p.cursorX = clamp(p.cursorX+dx, 0, p.width-1)
	p.cursorY = clamp(p.cursorY+dy, 0, p.height-1)
}

// Cursor returns the cursor cell.
func (p PlotPane) Cursor() (int, int) { return p.cursorX, p.cursorY }

// SetCursor moves the cursor to a cell.
func (p *PlotPane) SetCursor(x, y int) {
	p.cursorX = clamp(x, 0, p.width-1)
	p.cursorY = clamp(y, 0, p.height-1)
}

// Anchor starts a lasso at the cursor.
func (p *PlotPane) Anchor() {
	p.anchored = true
	p.anchorX, p.anchorY = p.cursorX, p.cursorY
}

// Anchored reports whether a lasso is being drawn.
func (p PlotPane) Anchored() bool { return p.anchored }

// ClearAnchor abandons the lasso.
func (p *PlotPane) ClearAnchor() { p.anchored = false }

// CellToData returns the data coordinates at the centre of a cell.
func (p PlotPane) CellToData(cx, cy int) (float64, float64) {
	x := p.bounds.MinX + (float64(cx)+0.5)/float64(p.width)*p.bounds.Width()
	y := p.bounds.MaxY - (float64(cy)+0.5)/float64(p.height)*p.bounds.Height()
	return x, y
}

// DataToCell returns the cell a data point falls in and whether it is
// inside the pane.
func (p PlotPane) DataToCell(x, y float64) (int, int, bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, false
	}
	cx := int(math.Floor((x - p.bounds.MinX) / p.bounds.Width() * float64(p.width)))
	cy := int(math.Floor((p.bounds.MaxY - y) / p.bounds.Height() * float64(p.height)))
	// The max edge belongs to the last cell.
	if cx == p.width {
		cx--
	}
	if cy == p.height {
		cy--
	}
	if cx < 0 || cx >= p.width || cy < 0 || cy >= p.height {
		return 0, 0, false
	}
	return cx, cy, true
}

// LassoRect returns the data rectangle spanned by the anchor and the
// cursor, cells included.
func (p PlotPane) LassoRect() surface.Rect {
	x0, x1 := min(p.anchorX, p.cursorX), max(p.anchorX, p.cursorX)
	y0, y1 := min(p.anchorY, p.cursorY), max(p.anchorY, p.cursorY)
	cw := p.bounds.Width() / float64(p.width)
	ch := p.bounds.Height() / float64(p.height)
	return surface.NewRect(
		p.bounds.MinX+float64(x0)*cw,
		p.bounds.MaxY-float64(y1+1)*ch,
		p.bounds.MinX+float64(x1+1)*cw,
		p.bounds.MaxY-float64(y0)*ch,
	)
}

// ClickEvent returns the click the cursor stands for: the nearest point.
func (p PlotPane) ClickEvent() (surface.Event, bool) {
	x, y := p.CellToData(p.cursorX, p.cursorY)
	ref, ok := surface.NearestPoint(p.spec, x, y)
	if !ok {
		return surface.Event{}, false
	}
	return surface.Event{Kind: surface.EventClick, Points: []surface.PointRef{ref}}, true
}

// HoverText returns the hover text of the point nearest the cursor, the
// point a click would pick.
func (p PlotPane) HoverText() (string, bool) {
	x, y := p.CellToData(p.cursorX, p.cursorY)
	ref, ok := surface.NearestPoint(p.spec, x, y)
	if !ok {
		return "", false
	}
	for _, t := range p.spec.Traces {
		i := ref.Position
		if t.Name != ref.Series || i >= len(t.Text) || i >= len(t.X) || i >= len(t.Y) {
			continue
		}
		if t.X[i] == ref.X && t.Y[i] == ref.Y {
			return t.Text[i], true
		}
	}
	return "", false
}

// SelectEvent returns the lasso selection over the current rectangle.
func (p PlotPane) SelectEvent() surface.Event {
	return surface.Event{Kind: surface.EventSelect, Points: surface.PointsInRect(p.spec, p.LassoRect())}
}

// View renders the grid.
func (p PlotPane) View(theme Theme) string {
	grid := make([][]cell, p.height)
	for i := range grid {
		grid[i] = make([]cell, p.width)
	}
	put := func(cx, cy int, c cell) {
		if cy >= 0 && cy < p.height && cx >= 0 && cx < p.width {
			grid[cy][cx] = c
		}
	}

	// Lines first so markers draw over them.
	for _, t := range p.spec.Traces {
		if t.Kind != surface.KindLines {
			continue
		}
		c := cell{glyph: glyphLine, fixed: theme.Trace, isFix: true}
		if t.Structural {
			c = cell{glyph: glyphSeparator, fixed: theme.Separator, isFix: true}
		}
		for i := 1; i < len(t.X) && i < len(t.Y); i++ {
			x0, y0, ok0 := p.DataToCell(t.X[i-1], t.Y[i-1])
			x1, y1, ok1 := p.DataToCell(t.X[i], t.Y[i])
			if !ok0 || !ok1 {
				continue
			}
			for _, pt := range bresenham(x0, y0, x1, y1) {
				put(pt[0], pt[1], c)
			}
		}
	}
	for _, t := range p.spec.Traces {
		if t.Kind != surface.KindMarkers {
			continue
		}
		for i := 0; i < len(t.X) && i < len(t.Y); i++ {
			cx, cy, ok := p.DataToCell(t.X[i], t.Y[i])
			if !ok {
				continue
			}
			switch {
			case !t.Structural:
				put(cx, cy, cell{glyph: glyphMarked, fixed: theme.Marked, isFix: true})
			case t.Name == projection.OutputSeriesName:
				put(cx, cy, cell{glyph: glyphOutput, color: t.PointColor(i)})
			default:
				put(cx, cy, cell{glyph: glyphInstruction, color: t.PointColor(i)})
			}
		}
	}

	var lasso surface.Rect
	if p.anchored {
		lasso = surface.NewRect(float64(p.anchorX), float64(p.anchorY), float64(p.cursorX), float64(p.cursorY))
	}

	r := theme.Renderer
	cursorStyle := r.NewStyle().Foreground(theme.Primary).Bold(true)
	lassoStyle := r.NewStyle().Background(theme.Highlight)

	var sb strings.Builder
	for cy, row := range grid {
		if cy > 0 {
			sb.WriteByte('\n')
		}
		for cx, c := range row {
			inLasso := p.anchored && lasso.Contains(float64(cx), float64(cy))
			if cx == p.cursorX && cy == p.cursorY {
				sb.WriteString(cursorStyle.Render(string(glyphCursor)))
				continue
			}
			var s string
			var style lipgloss.Style
			switch {
			case c.glyph == 0:
				s, style = " ", r.NewStyle()
			case c.isFix:
				s, style = string(c.glyph), r.NewStyle().Foreground(c.fixed)
			default:
				s, style = string(c.glyph), r.NewStyle().Foreground(ThemeFg(c.color))
			}
			if inLasso {
				style = style.Inherit(lassoStyle)
			}
			sb.WriteString(style.Render(s))
		}
	}
	return sb.String()
}

// bresenham returns the cells on the segment from (x0, y0) to (x1, y1).
func bresenham(x0, y0, x1, y1 int) [][2]int {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	var out [][2]int
	for {
		out = append(out, [2]int{x0, y0})
		if x0 == x1 && y0 == y1 {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
