package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ajstarks/svgo"

	"github.com/vanderheijden86/pairplot/pkg/surface"
)

const colorBarID = "colorbar"

// RenderSVG writes spec as an SVG document to w.
func RenderSVG(w io.Writer, spec surface.Spec) error {
	return renderSVG(w, newFrame(spec))
}

func renderSVG(w io.Writer, f frame) error {
	layout := f.spec.Layout
	canvas := svg.New(w)
	canvas.Start(f.width, f.height)
	canvas.Title(layout.Title)

	if scale, cmin, cmax, ok := f.colorBar(); ok {
		canvas.Def()
		canvas.LinearGradient(colorBarID, 0, 100, 0, 0, gradientStops(scale, cmin, cmax))
		canvas.DefEnd()
	}

	canvas.Rect(0, 0, f.width, f.height, "fill:"+layout.Background)
	drawAxesSVG(canvas, f)

	for _, t := range f.spec.Traces {
		canvas.Gid(traceID(t))
		switch t.Kind {
		case surface.KindLines:
			drawLineTraceSVG(canvas, f, t)
		default:
			drawMarkerTraceSVG(canvas, f, t)
		}
		canvas.Gend()
	}

	drawColorBarSVG(canvas, f)
	canvas.End()
	return nil
}

// traceID derives an XML-safe group id from the trace name.
func traceID(t surface.Trace) string {
	name := t.Name
	if name == "" {
		name = t.Kind.String()
	}
	return "trace-" + strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, name)
}

func drawAxesSVG(canvas *svg.SVG, f frame) {
	fg := f.spec.Layout.Foreground
	x0, y0 := int(f.plotX), int(f.plotY)
	pw, ph := int(f.plotW), int(f.plotH)
	axis := fmt.Sprintf("stroke:%s;stroke-width:1", fg)
	grid := fmt.Sprintf("stroke:%s;stroke-opacity:0.15;stroke-width:1", fg)
	label := fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", fg)

	for _, v := range f.xTicks {
		x := int(f.px(v))
		canvas.Line(x, y0, x, y0+ph, grid)
		canvas.Text(x, y0+ph+16, tickLabel(v), label+";text-anchor:middle")
	}
	for _, v := range f.yTicks {
		y := int(f.py(v))
		canvas.Line(x0, y, x0+pw, y, grid)
		canvas.Text(x0-6, y+4, tickLabel(v), label+";text-anchor:end")
	}
	canvas.Line(x0, y0+ph, x0+pw, y0+ph, axis)
	canvas.Line(x0, y0, x0, y0+ph, axis)

	title := fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold;text-anchor:middle", fg)
	canvas.Text(f.width/2, 32, f.spec.Layout.Title, title)
	axisTitle := fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:middle", fg)
	canvas.Text(x0+pw/2, y0+ph+40, f.spec.Layout.XTitle, axisTitle)
	canvas.TranslateRotate(24, y0+ph/2, -90)
	canvas.Text(0, 0, f.spec.Layout.YTitle, axisTitle)
	canvas.Gend()
}

func drawMarkerTraceSVG(canvas *svg.SVG, f frame, t surface.Trace) {
	r := int(t.Size / 2)
	if r < 2 {
		r = 2
	}
	for i := 0; i < len(t.X) && i < len(t.Y); i++ {
		if !finite(t.X[i]) || !finite(t.Y[i]) {
			continue
		}
		x, y, style := int(f.px(t.X[i])), int(f.py(t.Y[i])), "fill:"+t.PointColor(i)
		if i >= len(t.Text) || t.Text[i] == "" {
			canvas.Circle(x, y, r, style)
			continue
		}
		// The title is the viewer's tooltip.
		canvas.Group()
		canvas.Circle(x, y, r, style)
		canvas.Title(t.Text[i])
		canvas.Gend()
	}
}

func drawLineTraceSVG(canvas *svg.SVG, f frame, t surface.Trace) {
	var xs, ys []int
	for i := 0; i < len(t.X) && i < len(t.Y); i++ {
		if !finite(t.X[i]) || !finite(t.Y[i]) {
			continue
		}
		xs = append(xs, int(f.px(t.X[i])))
		ys = append(ys, int(f.py(t.Y[i])))
	}
	if len(xs) < 2 {
		return
	}
	width := t.Width
	if width <= 0 {
		width = 1
	}
	canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", t.PointColor(-1), width))
}

func drawColorBarSVG(canvas *svg.SVG, f frame) {
	_, cmin, cmax, ok := f.colorBar()
	if !ok {
		return
	}
	fg := f.spec.Layout.Foreground
	x := f.width - int(marginRight) + 40
	y, h := int(f.plotY), int(f.plotH)
	canvas.Rect(x, y, 18, h, fmt.Sprintf("fill:url(#%s);stroke:%s;stroke-width:1", colorBarID, fg))
	label := fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", fg)
	canvas.Text(x+24, y+8, tickLabel(cmax), label)
	canvas.Text(x+24, y+h, tickLabel(cmin), label)
	if title := f.spec.Layout.ColorTitle; title != "" {
		canvas.Text(x, y-12, truncate(title, 16), label)
	}
}

// gradientStops samples the colour scale into SVG gradient stops.
func gradientStops(scale string, cmin, cmax float64) []svg.Offcolor {
	const samples = 10
	stops := make([]svg.Offcolor, 0, samples+1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / samples
		stops = append(stops, svg.Offcolor{
			Offset:  uint8(t * 100),
			Color:   surface.ScaleColor(scale, cmin+t*(cmax-cmin), cmin, cmax),
			Opacity: 1,
		})
	}
	return stops
}
