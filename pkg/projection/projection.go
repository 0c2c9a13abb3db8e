// Package projection turns dataset records into the two position-aligned plot
// series (instructions and outputs) drawn on one shared canvas.
//
// Instruction and output points are paired by array position: the point at
// position i in one series belongs to the same record as position i in the
// other. The instruction series is shifted up by an offset derived from the
// output series so that the two clusters occupy separate bands, with a
// separator line between them.
package projection

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/vanderheijden86/pairplot/pkg/metrics"
	"github.com/vanderheijden86/pairplot/pkg/model"
)

// Series names as they appear on the render surface.
const (
	InstructionSeriesName = "Instructions"
	OutputSeriesName      = "Output"
	SeparatorName         = "Input & Output Separator"
)

// Offset defaults: offset = DefaultOffsetFactor * max(output y), or
// DefaultOffsetFallback when that max is zero or undefined.
const (
	DefaultOffsetFactor   = 4.0
	DefaultOffsetFallback = 300.0
)

var (
	// ErrLengthMismatch means the two series are not position-aligned.
	ErrLengthMismatch = errors.New("instruction and output series differ in length")
	// ErrPairOutOfRange means a position has no point in the requested series.
	ErrPairOutOfRange = errors.New("position out of range")
)

// Options tunes the offset computation. Zero values select the defaults.
type Options struct {
	OffsetFactor   float64
	OffsetFallback float64
}

func (o Options) normalized() Options {
	if o.OffsetFactor == 0 {
		o.OffsetFactor = DefaultOffsetFactor
	}
	if o.OffsetFallback == 0 {
		o.OffsetFallback = DefaultOffsetFallback
	}
	return o
}

// Point is one plotted point.
type Point struct {
	X, Y float64
	Text string
}

// Series is one named, ordered sequence of points.
type Series struct {
	Name string
	X    []float64
	Y    []float64
	Text []string

	// Color holds the colour-scale value of each marker (its plotted y).
	Color []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.X) }

// Point returns the point at position i.
func (s Series) Point(i int) (Point, bool) {
	if i < 0 || i >= len(s.X) || i >= len(s.Y) {
		return Point{}, false
	}
	p := Point{X: s.X[i], Y: s.Y[i]}
	if i < len(s.Text) {
		p.Text = s.Text[i]
	}
	return p, true
}

// Projection is the derived, immutable view of one dataset state.
type Projection struct {
	Instructions Series
	Output       Series
	Offset       float64

	// Separator is a two-point horizontal line between the bands. It is
	// empty when there are no finite points.
	Separator Series

	// ColorMin and ColorMax bound the shared marker colour scale.
	ColorMin, ColorMax float64

	// Source holds the records in rendered order.
	Source []model.Record
}

// Project builds both series. When searching is true only subset is
// projected, with no fallback to all.
func Project(all, subset []model.Record, searching bool, opts Options) Projection {
	defer metrics.Timer(metrics.ProjectionBuild)()

	src := all
	if searching {
		src = subset
	}
	source := make([]model.Record, len(src))
	copy(source, src)

	offset := ComputeOffset(source, opts)

	p := Projection{
		Instructions: Series{
			Name: InstructionSeriesName,
			X:    make([]float64, len(source)),
			Y:    make([]float64, len(source)),
			Text: make([]string, len(source)),
		},
		Output: Series{
			Name: OutputSeriesName,
			X:    make([]float64, len(source)),
			Y:    make([]float64, len(source)),
			Text: make([]string, len(source)),
		},
		Offset: offset,
		Source: source,
	}
	for i, r := range source {
		p.Instructions.X[i] = r.InstructionX
		p.Instructions.Y[i] = r.InstructionY + offset
		p.Instructions.Text[i] = InstructionText(r)

		p.Output.X[i] = r.OutputX
		p.Output.Y[i] = r.OutputY
		p.Output.Text[i] = OutputText(r)
	}

	p.Instructions.Color = append([]float64(nil), p.Instructions.Y...)
	p.Output.Color = append([]float64(nil), p.Output.Y...)
	p.Separator = separator(p.Instructions, p.Output)
	p.ColorMin, p.ColorMax = colorRange(p.Instructions, p.Output)
	return p
}

// ComputeOffset returns factor * max(output y) over records, or the fallback
// when that max is zero, NaN or records is empty.
func ComputeOffset(records []model.Record, opts Options) float64 {
	opts = opts.normalized()
	ys := make([]float64, 0, len(records))
	for _, r := range records {
		ys = append(ys, r.OutputY)
	}
	maxY, ok := finiteMax(ys)
	if !ok || maxY == 0 {
		return opts.OffsetFallback
	}
	return opts.OffsetFactor * maxY
}

// Validate checks the pairing invariant.
func (p Projection) Validate() error {
	if p.Instructions.Len() != p.Output.Len() {
		return fmt.Errorf("%w: %d instructions, %d outputs", ErrLengthMismatch, p.Instructions.Len(), p.Output.Len())
	}
	return nil
}

// Len returns the number of rendered records.
func (p Projection) Len() int { return len(p.Source) }

// Series returns the series that draws the given role.
func (p Projection) Series(role model.Role) Series {
	if role == model.RoleOutput {
		return p.Output
	}
	return p.Instructions
}

// Point returns the point drawn for role at position.
func (p Projection) Point(role model.Role, position int) (Point, error) {
	pt, ok := p.Series(role).Point(position)
	if !ok {
		return Point{}, fmt.Errorf("%w: %s[%d]", ErrPairOutOfRange, SeriesName(role), position)
	}
	return pt, nil
}

// Pair returns the point paired with role[position], i.e. the point at the
// same position in the other series.
func (p Projection) Pair(role model.Role, position int) (Point, error) {
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p.Point(role.Other(), position)
}

// Record returns the source record rendered at position.
func (p Projection) Record(position int) (model.Record, error) {
	if position < 0 || position >= len(p.Source) {
		return model.Record{}, fmt.Errorf("%w: record %d of %d", ErrPairOutOfRange, position, len(p.Source))
	}
	return p.Source[position], nil
}

// InstructionView returns the normalized instruction record at position.
func (p Projection) InstructionView(position int) (model.InstructionView, error) {
	r, err := p.Record(position)
	if err != nil {
		return model.InstructionView{}, err
	}
	return model.InstructionViewOf(r, position, r.InstructionY+p.Offset), nil
}

// OutputView returns the normalized output record at position.
func (p Projection) OutputView(position int) (model.OutputView, error) {
	r, err := p.Record(position)
	if err != nil {
		return model.OutputView{}, err
	}
	return model.OutputViewOf(r, position), nil
}

// StableIndices maps rendered positions to stable record indices, skipping
// positions that are out of range.
func (p Projection) StableIndices(positions []int) []int {
	out := make([]int, 0, len(positions))
	for _, pos := range positions {
		if r, err := p.Record(pos); err == nil {
			out = append(out, r.Index)
		}
	}
	return out
}

// RoleOf resolves a series name. Anything other than the output series is
// treated as the instruction series.
func RoleOf(seriesName string) model.Role {
	if seriesName == OutputSeriesName {
		return model.RoleOutput
	}
	return model.RoleInstruction
}

// SeriesName returns the surface name of the series drawing role.
func SeriesName(role model.Role) string {
	if role == model.RoleOutput {
		return OutputSeriesName
	}
	return InstructionSeriesName
}

// InstructionText is the hover text of an instruction point.
func InstructionText(r model.Record) string {
	return "input: " + r.Input +
		"\nword count: " + strconv.Itoa(r.InstructionWordCount) +
		"\navg word len: " + formatNumber(r.InstructionAvgWordLen)
}

// OutputText is the hover text of an output point.
func OutputText(r model.Record) string {
	return "output: " + r.Output +
		"\nword count: " + strconv.Itoa(r.OutputWordCount) +
		"\navg word len: " + formatNumber(r.OutputAvgWordLen)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func separator(instructions, output Series) Series {
	s := Series{Name: SeparatorName}
	maxOut, okOut := finiteMax(output.Y)
	minIn, okIn := finiteMin(instructions.Y)
	xs := make([]float64, 0, len(instructions.X)+len(output.X))
	xs = append(xs, instructions.X...)
	xs = append(xs, output.X...)
	minX, okMinX := finiteMin(xs)
	maxX, _ := finiteMax(xs)
	if !okOut || !okIn || !okMinX {
		return s
	}
	mid := (maxOut + minIn) / 2
	s.X = []float64{minX, maxX}
	s.Y = []float64{mid, mid}
	return s
}

func colorRange(instructions, output Series) (float64, float64) {
	lo, okLo := finiteMin(instructions.Y)
	hi, okHi := finiteMax(output.Y)
	if !okLo || !okHi {
		return 0, 0
	}
	return lo, hi
}

func finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func finiteMax(vs []float64) (float64, bool) {
	f := finite(vs)
	if len(f) == 0 {
		return 0, false
	}
	return floats.Max(f), true
}

func finiteMin(vs []float64) (float64, bool) {
	f := finite(vs)
	if len(f) == 0 {
		return 0, false
	}
	return floats.Min(f), true
}
