package surface

import (
	"github.com/vanderheijden86/pairplot/pkg/projection"
)

// BaseTraceCount is the number of structural traces every surface starts
// with: instructions, output and the separator line.
const BaseTraceCount = 3

// OverlayName tags marker overlays added by a click. Clicking a trace with
// this name toggles the selection off.
const OverlayName = "Clicked"

// Kind is how a trace is drawn.
type Kind int

const (
	KindMarkers Kind = iota
	KindLines
)

func (k Kind) String() string {
	if k == KindLines {
		return "lines"
	}
	return "markers"
}

// Default palette.
const (
	ColorBackground = "#343541"
	ColorForeground = "#ffffff"
	ColorSeparator  = "#ff0000"
	ColorMarked     = "#ff0000"
	ColorTrace      = "#00ff00"
	ColorScale      = "Electric"
)

// Trace is one drawable layer. Traces are values: the adapter copies them on
// the way in and out.
type Trace struct {
	Name string
	Kind Kind
	X    []float64
	Y    []float64
	Text []string

	// Color is a fixed colour. When ColorValues is set it is ignored and
	// markers are coloured along ColorScale between CMin and CMax.
	Color       string
	ColorValues []float64
	ColorScale  string
	CMin, CMax  float64

	Size  float64 // marker size
	Width float64 // line width

	// Structural traces are part of the base plot and never purged.
	Structural bool
}

// Len returns the number of points in the trace.
func (t Trace) Len() int { return len(t.X) }

// Clone returns a deep copy of t.
func (t Trace) Clone() Trace {
	out := t
	out.X = append([]float64(nil), t.X...)
	out.Y = append([]float64(nil), t.Y...)
	out.Text = append([]string(nil), t.Text...)
	out.ColorValues = append([]float64(nil), t.ColorValues...)
	return out
}

// Layout holds the plot decoration.
type Layout struct {
	Title      string
	XTitle     string
	YTitle     string
	ColorTitle string
	Background string
	Foreground string
	Width      int
	Height     int
	ShowLegend bool
}

// DefaultLayout returns the standard dashboard layout.
func DefaultLayout() Layout {
	return Layout{
		Title:      "Clustered 2D Plot of Instructions & Answers Embedding",
		XTitle:     "instructions_x & answers_x",
		YTitle:     "instructions_y & answers_y",
		ColorTitle: "Instruction & Answers Cluster",
		Background: ColorBackground,
		Foreground: ColorForeground,
		Width:      960,
		Height:     720,
	}
}

// Spec is a complete, immutable description of what a surface shows.
type Spec struct {
	Traces []Trace
	Layout Layout
}

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	out := Spec{Layout: s.Layout, Traces: make([]Trace, len(s.Traces))}
	for i, t := range s.Traces {
		out.Traces[i] = t.Clone()
	}
	return out
}

// Overlays returns the traces above the structural base.
func (s Spec) Overlays() []Trace {
	if len(s.Traces) <= BaseTraceCount {
		return nil
	}
	return s.Traces[BaseTraceCount:]
}

// BuildSpec turns a projection into the base surface spec: the instruction
// series, the output series and the separator line, in that order.
func BuildSpec(p projection.Projection, layout Layout) Spec {
	instructions := seriesTrace(p.Instructions, p.ColorMin, p.ColorMax)
	output := seriesTrace(p.Output, p.ColorMin, p.ColorMax)
	separator := Trace{
		Name:       p.Separator.Name,
		Kind:       KindLines,
		X:          append([]float64(nil), p.Separator.X...),
		Y:          append([]float64(nil), p.Separator.Y...),
		Color:      ColorSeparator,
		Width:      2,
		Structural: true,
	}
	return Spec{
		Traces: []Trace{instructions, output, separator},
		Layout: layout,
	}
}

func seriesTrace(s projection.Series, cmin, cmax float64) Trace {
	return Trace{
		Name:        s.Name,
		Kind:        KindMarkers,
		X:           append([]float64(nil), s.X...),
		Y:           append([]float64(nil), s.Y...),
		Text:        append([]string(nil), s.Text...),
		ColorValues: append([]float64(nil), s.Color...),
		ColorScale:  ColorScale,
		CMin:        cmin,
		CMax:        cmax,
		Size:        8,
		Structural:  true,
	}
}

// MarkerOverlay builds a marker trace highlighting pts.
func MarkerOverlay(name string, pts ...projection.Point) Trace {
	t := Trace{Name: name, Kind: KindMarkers, Color: ColorMarked, Size: 10}
	for _, p := range pts {
		t.X = append(t.X, p.X)
		t.Y = append(t.Y, p.Y)
		t.Text = append(t.Text, p.Text)
	}
	return t
}

// LineOverlay builds a line trace from a to b.
func LineOverlay(a, b projection.Point) Trace {
	return Trace{
		Kind:  KindLines,
		X:     []float64{a.X, b.X},
		Y:     []float64{a.Y, b.Y},
		Color: ColorTrace,
		Width: 2,
	}
}
