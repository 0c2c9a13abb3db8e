package export

import (
	"image/color"
	"image/png"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/pairplot/pkg/surface"
)

// RenderPNG writes spec as a PNG image to w.
func RenderPNG(w io.Writer, spec surface.Spec) error {
	dc := drawPNG(newFrame(spec))
	return png.Encode(w, dc.Image())
}

func renderPNG(path string, f frame) error {
	return drawPNG(f).SavePNG(path)
}

func hexColor(s string) color.RGBA {
	r, g, b := surface.ParseHex(s)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func drawPNG(f frame) *gg.Context {
	layout := f.spec.Layout
	dc := gg.NewContext(f.width, f.height)
	dc.SetColor(hexColor(layout.Background))
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	drawAxesPNG(dc, f)
	for _, t := range f.spec.Traces {
		switch t.Kind {
		case surface.KindLines:
			drawLineTracePNG(dc, f, t)
		default:
			drawMarkerTracePNG(dc, f, t)
		}
	}
	drawColorBarPNG(dc, f)
	return dc
}

func drawAxesPNG(dc *gg.Context, f frame) {
	fg := hexColor(f.spec.Layout.Foreground)
	grid := color.RGBA{R: fg.R, G: fg.G, B: fg.B, A: 0x26}
	bottom := f.plotY + f.plotH

	dc.SetLineWidth(1)
	for _, v := range f.xTicks {
		x := f.px(v)
		dc.SetColor(grid)
		dc.DrawLine(x, f.plotY, x, bottom)
		dc.Stroke()
		dc.SetColor(fg)
		dc.DrawStringAnchored(tickLabel(v), x, bottom+14, 0.5, 0.5)
	}
	for _, v := range f.yTicks {
		y := f.py(v)
		dc.SetColor(grid)
		dc.DrawLine(f.plotX, y, f.plotX+f.plotW, y)
		dc.Stroke()
		dc.SetColor(fg)
		dc.DrawStringAnchored(tickLabel(v), f.plotX-6, y, 1, 0.5)
	}

	dc.SetColor(fg)
	dc.DrawLine(f.plotX, bottom, f.plotX+f.plotW, bottom)
	dc.Stroke()
	dc.DrawLine(f.plotX, f.plotY, f.plotX, bottom)
	dc.Stroke()

	dc.DrawStringAnchored(f.spec.Layout.Title, float64(f.width)/2, 28, 0.5, 0.5)
	dc.DrawStringAnchored(f.spec.Layout.XTitle, f.plotX+f.plotW/2, bottom+38, 0.5, 0.5)

	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 20, f.plotY+f.plotH/2)
	dc.DrawStringAnchored(f.spec.Layout.YTitle, 20, f.plotY+f.plotH/2, 0.5, 0.5)
	dc.Pop()
}

func drawMarkerTracePNG(dc *gg.Context, f frame, t surface.Trace) {
	r := t.Size / 2
	if r < 2 {
		r = 2
	}
	for i := 0; i < len(t.X) && i < len(t.Y); i++ {
		if !finite(t.X[i]) || !finite(t.Y[i]) {
			continue
		}
		dc.SetColor(hexColor(t.PointColor(i)))
		dc.DrawCircle(f.px(t.X[i]), f.py(t.Y[i]), r)
		dc.Fill()
	}
}

func drawLineTracePNG(dc *gg.Context, f frame, t surface.Trace) {
	width := t.Width
	if width <= 0 {
		width = 1
	}
	dc.SetColor(hexColor(t.PointColor(-1)))
	dc.SetLineWidth(width)
	started := false
	for i := 0; i < len(t.X) && i < len(t.Y); i++ {
		if !finite(t.X[i]) || !finite(t.Y[i]) {
			continue
		}
		if !started {
			dc.MoveTo(f.px(t.X[i]), f.py(t.Y[i]))
			started = true
			continue
		}
		dc.LineTo(f.px(t.X[i]), f.py(t.Y[i]))
	}
	if started {
		dc.Stroke()
	}
	dc.ClearPath()
}

func drawColorBarPNG(dc *gg.Context, f frame) {
	scale, cmin, cmax, ok := f.colorBar()
	if !ok {
		return
	}
	x := float64(f.width) - marginRight + 40
	const barW = 18.0
	steps := int(f.plotH)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		dc.SetColor(hexColor(surface.ScaleColor(scale, cmin+t*(cmax-cmin), cmin, cmax)))
		dc.DrawRectangle(x, f.plotY+f.plotH-float64(i)-1, barW, 1)
		dc.Fill()
	}
	fg := hexColor(f.spec.Layout.Foreground)
	dc.SetColor(fg)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, f.plotY, barW, f.plotH)
	dc.Stroke()
	dc.DrawStringAnchored(tickLabel(cmax), x+barW+6, f.plotY+4, 0, 0.5)
	dc.DrawStringAnchored(tickLabel(cmin), x+barW+6, f.plotY+f.plotH-4, 0, 0.5)
	if title := f.spec.Layout.ColorTitle; title != "" {
		dc.DrawStringAnchored(truncate(title, 16), x, f.plotY-12, 0, 0.5)
	}
}
