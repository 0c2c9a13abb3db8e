// Package export writes static snapshots of a plot surface and dumps of the
// dataset behind it.
package export

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vanderheijden86/pairplot/pkg/surface"
)

// SnapshotOptions controls snapshot export.
type SnapshotOptions struct {
	Path   string       // Output path; format inferred from extension when Format is empty
	Format string       // "svg" or "png" (case-insensitive)
	Spec   surface.Spec // Surface to render, overlays included
}

// SaveSnapshot renders opts.Spec to opts.Path as SVG or PNG.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if len(opts.Spec.Traces) == 0 {
		return fmt.Errorf("no traces to export")
	}

	format, path, err := resolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f := newFrame(opts.Spec)
	switch format {
	case "svg":
		return saveSVG(path, f)
	default:
		return renderPNG(path, f)
	}
}

// saveSVG writes through a buffer: svgo drops write errors, the buffer keeps
// the first one for Flush.
func saveSVG(path string, f frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err := renderSVG(w, f); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// FormatOf returns the snapshot format a path would be written in, or ""
// when the extension is not svg or png.
func FormatOf(path string) string {
	format, _, err := resolveFormat("", path)
	if err != nil {
		return ""
	}
	return format
}

// resolveFormat picks the output format. An explicit format wins; otherwise
// the extension decides and an extension-less path defaults to SVG.
func resolveFormat(format, path string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		case "":
			format = "svg"
			path += ".svg"
		default:
			return "", "", fmt.Errorf("cannot infer format from %q (want .svg or .png)", path)
		}
	}
	if format != "svg" && format != "png" {
		return "", "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return format, path, nil
}

// --- frame ----------------------------------------------------------------

const (
	marginLeft   = 80.0
	marginRight  = 130.0
	marginTop    = 64.0
	marginBottom = 64.0
	tickCount    = 6
)

// frame maps data coordinates onto the pixel canvas.
type frame struct {
	spec          surface.Spec
	width, height int
	bounds        surface.Rect
	plotX, plotY  float64
	plotW, plotH  float64
	xTicks        []float64
	yTicks        []float64
}

func newFrame(spec surface.Spec) frame {
	w, h := spec.Layout.Width, spec.Layout.Height
	if w <= 0 {
		w = surface.DefaultLayout().Width
	}
	if h <= 0 {
		h = surface.DefaultLayout().Height
	}

	b, ok := surface.Bounds(spec)
	if !ok {
		b = surface.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	}
	b = pad(b)

	return frame{
		spec:   spec,
		width:  w,
		height: h,
		bounds: b,
		plotX:  marginLeft,
		plotY:  marginTop,
		plotW:  float64(w) - marginLeft - marginRight,
		plotH:  float64(h) - marginTop - marginBottom,
		xTicks: niceTicks(b.MinX, b.MaxX, tickCount),
		yTicks: niceTicks(b.MinY, b.MaxY, tickCount),
	}
}

// pad widens degenerate extents and adds a 5% border.
func pad(r surface.Rect) surface.Rect {
	if r.Width() == 0 {
		r.MinX, r.MaxX = r.MinX-1, r.MaxX+1
	}
	if r.Height() == 0 {
		r.MinY, r.MaxY = r.MinY-1, r.MaxY+1
	}
	dx, dy := r.Width()*0.05, r.Height()*0.05
	return surface.Rect{MinX: r.MinX - dx, MinY: r.MinY - dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

func (f frame) px(x float64) float64 {
	return f.plotX + (x-f.bounds.MinX)/f.bounds.Width()*f.plotW
}

func (f frame) py(y float64) float64 {
	return f.plotY + f.plotH - (y-f.bounds.MinY)/f.bounds.Height()*f.plotH
}

// colorBar returns the range and scale of the first colour-scaled trace.
func (f frame) colorBar() (scale string, cmin, cmax float64, ok bool) {
	for _, t := range f.spec.Traces {
		if len(t.ColorValues) > 0 {
			return t.ColorScale, t.CMin, t.CMax, true
		}
	}
	return "", 0, 0, false
}

// niceTicks returns roughly n evenly spaced round values covering [lo, hi].
func niceTicks(lo, hi float64, n int) []float64 {
	if !(hi > lo) || n < 2 {
		return []float64{lo}
	}
	step := niceNum((hi-lo)/float64(n-1), true)
	start := math.Ceil(lo/step) * step
	var ticks []float64
	for v := start; v <= hi+step*1e-9; v += step {
		// Snap accumulated error so labels print cleanly.
		ticks = append(ticks, math.Round(v/step)*step)
	}
	return ticks
}

func niceNum(x float64, round bool) float64 {
	exp := math.Floor(math.Log10(x))
	frac := x / math.Pow(10, exp)
	var nice float64
	switch {
	case round && frac < 1.5, !round && frac <= 1:
		nice = 1
	case round && frac < 3, !round && frac <= 2:
		nice = 2
	case round && frac < 7, !round && frac <= 5:
		nice = 5
	default:
		nice = 10
	}
	return nice * math.Pow(10, exp)
}

func tickLabel(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
