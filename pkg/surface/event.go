package surface

import (
	"math"
)

// EventKind distinguishes surface events.
type EventKind int

const (
	// EventClick is a pointer click on one or more points.
	EventClick EventKind = iota
	// EventSelect is a lasso or box selection. An empty point list means
	// the selection was cleared.
	EventSelect
	// EventDeselect clears the selection.
	EventDeselect
)

func (k EventKind) String() string {
	switch k {
	case EventClick:
		return "click"
	case EventSelect:
		return "select"
	case EventDeselect:
		return "deselect"
	default:
		return "unknown"
	}
}

// PointRef identifies a point on the surface as the surface reports it: by
// the name of the trace it belongs to and its position in that trace.
type PointRef struct {
	Series   string
	Position int
	X, Y     float64
}

// Event is one user action on a surface.
type Event struct {
	Kind   EventKind
	Points []PointRef
}

// Empty reports whether the event carries no points.
func (e Event) Empty() bool { return len(e.Points) == 0 }

// Rect is an axis-aligned rectangle in data coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewRect returns the rectangle spanned by two corners in any order.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		MinX: math.Min(x0, x1),
		MinY: math.Min(y0, y1),
		MaxX: math.Max(x0, x1),
		MaxY: math.Max(y0, y1),
	}
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Width of r.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height of r.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds returns the data extent of every finite point in spec.
func Bounds(spec Spec) (Rect, bool) {
	r := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	found := false
	for _, t := range spec.Traces {
		for i := 0; i < len(t.X) && i < len(t.Y); i++ {
			x, y := t.X[i], t.Y[i]
			if !finite(x) || !finite(y) {
				continue
			}
			found = true
			r.MinX = math.Min(r.MinX, x)
			r.MaxX = math.Max(r.MaxX, x)
			r.MinY = math.Min(r.MinY, y)
			r.MaxY = math.Max(r.MaxY, y)
		}
	}
	return r, found
}

// selectable reports whether points of t can be clicked or lassoed: the two
// structural marker series and marker overlays.
func selectable(t Trace) bool {
	return t.Kind == KindMarkers
}

// NearestPoint returns the selectable point closest to (x, y). Distances are
// measured after scaling both axes to the spec bounds so that elongated
// plots do not favour one axis. Overlay markers win ties because they are
// drawn on top.
func NearestPoint(spec Spec, x, y float64) (PointRef, bool) {
	bounds, ok := Bounds(spec)
	if !ok {
		return PointRef{}, false
	}
	sx, sy := bounds.Width(), bounds.Height()
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}

	best := PointRef{}
	bestDist := math.Inf(1)
	found := false
	for _, t := range spec.Traces {
		if !selectable(t) {
			continue
		}
		for i := 0; i < len(t.X) && i < len(t.Y); i++ {
			px, py := t.X[i], t.Y[i]
			if !finite(px) || !finite(py) {
				continue
			}
			dx, dy := (px-x)/sx, (py-y)/sy
			d := dx*dx + dy*dy
			if d <= bestDist {
				best = PointRef{Series: t.Name, Position: i, X: px, Y: py}
				bestDist = d
				found = true
			}
		}
	}
	return best, found
}

// PointsInRect returns every point of the structural series inside r, in
// trace order.
func PointsInRect(spec Spec, r Rect) []PointRef {
	var out []PointRef
	for _, t := range spec.Traces {
		if !t.Structural || !selectable(t) {
			continue
		}
		for i := 0; i < len(t.X) && i < len(t.Y); i++ {
			if finite(t.X[i]) && finite(t.Y[i]) && r.Contains(t.X[i], t.Y[i]) {
				out = append(out, PointRef{Series: t.Name, Position: i, X: t.X[i], Y: t.Y[i]})
			}
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
