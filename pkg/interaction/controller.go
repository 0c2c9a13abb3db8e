// Package interaction turns click and lasso events from a surface into
// overlays on that surface and normalized selection results for consumers.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/metrics"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/projection"
	"github.com/vanderheijden86/pairplot/pkg/surface"
)

// State of the selection state machine.
type State int

const (
	Idle State = iota
	SingleSelection
	RangeSelection
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SingleSelection:
		return "single"
	case RangeSelection:
		return "range"
	default:
		return "unknown"
	}
}

// Surface is the part of surface.Adapter the controller draws through.
type Surface interface {
	AddOverlayTrace(ctx context.Context, h surface.Handle, trace surface.Trace) (int, error)
	PurgeOverlaysAbove(ctx context.Context, h surface.Handle, base int) error
	TraceCount(h surface.Handle) (int, error)
}

// Result is one normalized selection. Instruction and output halves are
// reported separately, each with the rendered positions they came from.
type Result struct {
	Instructions   []model.InstructionView
	InstructionIdx []int
	Outputs        []model.OutputView
	OutputIdx      []int
}

// Empty reports whether nothing was selected.
func (r Result) Empty() bool {
	return len(r.InstructionIdx) == 0 && len(r.OutputIdx) == 0
}

// Callbacks receive controller output. Nil callbacks are skipped. They are
// invoked without any controller lock held.
type Callbacks struct {
	OnClickResult     func(Result)
	OnSelectionStart  func()
	OnSelectionResult func(Result)
	OnEmptySelection  func()
	OnToggleOff       func()
	OnError           func(error)
}

// Options configures a Controller.
type Options struct {
	Tracing   bool
	Callbacks Callbacks
}

// Selection is a snapshot of the controller's bookkeeping.
type Selection struct {
	State          State
	InstructionIdx []int
	OutputIdx      []int
	// Preview lists the panes the consumer should show.
	Preview []model.Role
}

// errStale aborts drawing for a cycle that a newer cycle has replaced.
var errStale = errors.New("stale interaction cycle")

// Controller is bound to one mounted surface and the projection it shows.
type Controller struct {
	surf   Surface
	handle surface.Handle
	proj   projection.Projection
	cb     Callbacks

	// drawMu orders surface mutations against each other. A mutation only
	// lands while its cycle is still current.
	drawMu sync.Mutex

	mu         sync.Mutex
	tracing    bool
	state      State
	generation uint64
	sel        Selection
}

// New creates a controller for the surface h showing proj.
func New(surf Surface, h surface.Handle, proj projection.Projection, opts Options) *Controller {
	return &Controller{
		surf:    surf,
		handle:  h,
		proj:    proj,
		cb:      opts.Callbacks,
		tracing: opts.Tracing,
	}
}

// SetEnableTracing toggles line drawing for subsequent clicks and lassos.
func (c *Controller) SetEnableTracing(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracing = enabled
	debug.Log("interaction: tracing=%v", enabled)
}

// Tracing reports whether lines are drawn.
func (c *Controller) Tracing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracing
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the current cycle token.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Selection returns a copy of the current selection bookkeeping.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Selection{
		State:          c.state,
		InstructionIdx: append([]int(nil), c.sel.InstructionIdx...),
		OutputIdx:      append([]int(nil), c.sel.OutputIdx...),
		Preview:        append([]model.Role(nil), c.sel.Preview...),
	}
}

// begin starts a new cycle and returns its token and the tracing flag.
func (c *Controller) begin() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation, c.tracing
}

// draw runs fn unless cycle gen has been replaced.
func (c *Controller) draw(gen uint64, fn func() error) error {
	c.drawMu.Lock()
	defer c.drawMu.Unlock()
	if c.Generation() != gen {
		return errStale
	}
	return fn()
}

func (c *Controller) purge(ctx context.Context, gen uint64) error {
	return c.draw(gen, func() error {
		return c.surf.PurgeOverlaysAbove(ctx, c.handle, surface.BaseTraceCount)
	})
}

func (c *Controller) addOverlay(ctx context.Context, gen uint64, trace surface.Trace) error {
	return c.draw(gen, func() error {
		_, err := c.surf.AddOverlayTrace(ctx, c.handle, trace)
		return err
	})
}

// dropStale turns errStale into a silent return.
func dropStale(gen uint64, err error) error {
	if errors.Is(err, errStale) {
		debug.Log("interaction: cycle %d replaced while drawing", gen)
		return nil
	}
	return err
}

// commit applies the outcome of cycle gen unless a newer cycle started.
func (c *Controller) commit(gen uint64, state State, sel Selection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		debug.Log("interaction: dropping stale cycle %d (current %d)", gen, c.generation)
		return false
	}
	if c.state != state {
		debug.Log("interaction: %s -> %s", c.state, state)
	}
	c.state = state
	sel.State = state
	c.sel = sel
	return true
}

// OnClick handles a click on points. If overlays are already shown, or the
// click hit an overlay, the selection is toggled off: overlays are purged
// and OnToggleOff fires instead of a result.
func (c *Controller) OnClick(ctx context.Context, points []surface.PointRef) error {
	gen, err := c.onClick(ctx, points)
	return dropStale(gen, err)
}

func (c *Controller) onClick(ctx context.Context, points []surface.PointRef) (uint64, error) {
	if len(points) == 0 {
		return 0, nil
	}
	count, err := c.surf.TraceCount(c.handle)
	if err != nil {
		return 0, err
	}
	toggleOff := count > surface.BaseTraceCount
	for _, p := range points {
		if p.Series == surface.OverlayName {
			toggleOff = true
		}
	}

	gen, tracing := c.begin()
	if toggleOff {
		if err := c.purge(ctx, gen); err != nil {
			return gen, err
		}
		if c.commit(gen, Idle, Selection{}) && c.cb.OnToggleOff != nil {
			c.cb.OnToggleOff()
		}
		return gen, nil
	}

	var res Result
	for _, p := range points {
		role := projection.RoleOf(p.Series)
		clicked, err := c.proj.Point(role, p.Position)
		if err != nil {
			return gen, err
		}
		paired, err := c.proj.Pair(role, p.Position)
		if err != nil {
			return gen, err
		}
		iv, err := c.proj.InstructionView(p.Position)
		if err != nil {
			return gen, err
		}
		ov, err := c.proj.OutputView(p.Position)
		if err != nil {
			return gen, err
		}
		res.Instructions = append(res.Instructions, iv)
		res.InstructionIdx = append(res.InstructionIdx, p.Position)
		res.Outputs = append(res.Outputs, ov)
		res.OutputIdx = append(res.OutputIdx, p.Position)

		marked := []projection.Point{clicked}
		if tracing {
			marked = append(marked, paired)
		}
		if err := c.addOverlay(ctx, gen, surface.MarkerOverlay(surface.OverlayName, marked...)); err != nil {
			return gen, err
		}
		if tracing {
			if err := c.addOverlay(ctx, gen, surface.LineOverlay(clicked, paired)); err != nil {
				return gen, err
			}
		}
	}

	sel := Selection{
		InstructionIdx: res.InstructionIdx,
		OutputIdx:      res.OutputIdx,
		Preview:        []model.Role{model.RoleInstruction, model.RoleOutput},
	}
	if c.commit(gen, SingleSelection, sel) && c.cb.OnClickResult != nil {
		c.cb.OnClickResult(res)
	}
	return gen, nil
}

// OnSelect handles a lasso selection. An empty selection clears everything
// and fires OnEmptySelection once. Otherwise OnSelectionStart fires before
// any drawing, previous overlays are replaced by one marker overlay plus,
// when tracing, one line per point, and OnSelectionResult fires after every
// line has been drawn.
func (c *Controller) OnSelect(ctx context.Context, points []surface.PointRef) error {
	gen, tracing := c.begin()
	return dropStale(gen, c.onSelect(ctx, gen, tracing, points))
}

func (c *Controller) onSelect(ctx context.Context, gen uint64, tracing bool, points []surface.PointRef) error {
	if len(points) == 0 {
		if err := c.purge(ctx, gen); err != nil {
			return err
		}
		if c.commit(gen, Idle, Selection{}) && c.cb.OnEmptySelection != nil {
			c.cb.OnEmptySelection()
		}
		return nil
	}

	if c.cb.OnSelectionStart != nil {
		c.cb.OnSelectionStart()
	}
	defer metrics.Timer(metrics.LassoBatch)()

	var (
		res    Result
		marked []projection.Point
		lines  []surface.Trace
		roles  = map[model.Role]bool{}
	)
	for _, p := range points {
		role := projection.RoleOf(p.Series)
		selected, err := c.proj.Point(role, p.Position)
		if err != nil {
			return err
		}
		paired, err := c.proj.Pair(role, p.Position)
		if err != nil {
			return err
		}
		switch role {
		case model.RoleOutput:
			ov, err := c.proj.OutputView(p.Position)
			if err != nil {
				return err
			}
			res.Outputs = append(res.Outputs, ov)
			res.OutputIdx = append(res.OutputIdx, p.Position)
		default:
			iv, err := c.proj.InstructionView(p.Position)
			if err != nil {
				return err
			}
			res.Instructions = append(res.Instructions, iv)
			res.InstructionIdx = append(res.InstructionIdx, p.Position)
		}
		roles[role] = true
		marked = append(marked, selected, paired)
		if tracing {
			lines = append(lines, surface.LineOverlay(selected, paired))
		}
	}

	if err := c.purge(ctx, gen); err != nil {
		return err
	}
	if err := c.addOverlay(ctx, gen, surface.MarkerOverlay(surface.OverlayName, marked...)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, line := range lines {
		g.Go(func() error {
			return c.addOverlay(gctx, gen, line)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, errStale) {
			return err
		}
		return fmt.Errorf("drawing selection lines: %w", err)
	}

	sel := Selection{InstructionIdx: res.InstructionIdx, OutputIdx: res.OutputIdx}
	for _, r := range []model.Role{model.RoleInstruction, model.RoleOutput} {
		if roles[r] {
			sel.Preview = append(sel.Preview, r)
		}
	}
	if c.commit(gen, RangeSelection, sel) && c.cb.OnSelectionResult != nil {
		c.cb.OnSelectionResult(res)
	}
	return nil
}

// Reset purges overlays and returns to Idle without notifying consumers.
// Draws still pending for an in-flight cycle are skipped and its result is
// dropped.
func (c *Controller) Reset(ctx context.Context) error {
	gen, _ := c.begin()
	err := dropStale(gen, c.purge(ctx, gen))
	c.commit(gen, Idle, Selection{})
	return err
}

// Handle dispatches one surface event.
func (c *Controller) Handle(ctx context.Context, ev surface.Event) error {
	switch ev.Kind {
	case surface.EventClick:
		return c.OnClick(ctx, ev.Points)
	case surface.EventSelect:
		return c.OnSelect(ctx, ev.Points)
	case surface.EventDeselect:
		return c.OnSelect(ctx, nil)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// Run consumes events until ctx is done or the channel is closed. Handler
// errors are reported through OnError and do not stop the loop.
func (c *Controller) Run(ctx context.Context, events <-chan surface.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.Handle(ctx, ev); err != nil {
				debug.Log("interaction: %s event failed: %v", ev.Kind, err)
				if c.cb.OnError != nil {
					c.cb.OnError(err)
				}
			}
		}
	}
}
