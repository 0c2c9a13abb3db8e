// Package viewsync keeps the plot surface in step with the dataset.
//
// The Synchronizer decides when the surface must be rebuilt: after the
// canonical records change (load, delete, edit), when search mode is entered
// or left, and when the search result set changes while searching. A rebuild
// always tears the previous surface down, and joins its event loop, before
// the next one is mounted. Toggling tracing never rebuilds; it is pushed into
// the live controller.
//
// The Synchronizer also holds the consumer-facing selection state that the
// tables and previews render.
package viewsync

import (
	"context"
	"errors"
	"sync"

	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/interaction"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/projection"
	"github.com/vanderheijden86/pairplot/pkg/store"
	"github.com/vanderheijden86/pairplot/pkg/surface"
)

// DefaultContainer is the container id the dashboard plot is mounted on.
const DefaultContainer = "chart1"

// LoadingLines is shown while lasso lines are being drawn.
const LoadingLines = "Creating Lines"

// Mutator applies mutation intents to the dataset.
type Mutator interface {
	Delete(indices ...int) error
	Edit(index int, p model.Patch) error
}

// Store is the dataset the Synchronizer watches and mutates.
type Store interface {
	Mutator
	Snapshot() store.Snapshot
	Search(text string) []model.Record
}

// Options configures a Synchronizer.
type Options struct {
	ContainerID string
	Tracing     bool
	Layout      surface.Layout
	Projection  projection.Options
}

// View is what consumers show: the records behind the current selection.
type View struct {
	Instructions   []model.InstructionView
	Outputs        []model.OutputView
	InstructionIdx []int
	OutputIdx      []int
	Preview        []model.Role
	Loading        string
	Err            error
}

// HasSelection reports whether any point is selected.
func (v View) HasSelection() bool {
	return len(v.InstructionIdx) > 0 || len(v.OutputIdx) > 0
}

// Synchronizer is safe for concurrent use.
type Synchronizer struct {
	store   Store
	adapter *surface.Adapter
	opts    Options

	// mu guards the surface lifecycle.
	mu        sync.Mutex
	mounted   bool
	handle    surface.Handle
	ctrl      *interaction.Controller
	proj      projection.Projection
	stopLoop  context.CancelFunc
	loopDone  chan struct{}
	unsub     func()
	tracing   bool
	synced    bool
	version   uint64
	searchVer uint64
	searching bool
	rebuilds  int

	// viewMu guards view. Controller callbacks only take viewMu so that the
	// lifecycle can join the event loop while holding mu.
	viewMu sync.Mutex
	view   View

	notify chan struct{}
}

// New creates a Synchronizer. Nothing is mounted until the first Sync.
func New(st Store, adapter *surface.Adapter, opts Options) *Synchronizer {
	if opts.ContainerID == "" {
		opts.ContainerID = DefaultContainer
	}
	if opts.Layout == (surface.Layout{}) {
		opts.Layout = surface.DefaultLayout()
	}
	return &Synchronizer{
		store:   st,
		adapter: adapter,
		opts:    opts,
		tracing: opts.Tracing,
		notify:  make(chan struct{}, 1),
	}
}

// Sync rebuilds the surface if the dataset or search state changed since the
// last rebuild. It reports whether a rebuild happened.
func (s *Synchronizer) Sync(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	need := !s.synced ||
		snap.Version != s.version ||
		snap.Searching != s.searching ||
		(snap.Searching && snap.SearchVersion != s.searchVer)
	if !need {
		return false, nil
	}

	if err := s.releaseLocked(); err != nil {
		debug.Log("viewsync: teardown before rebuild: %v", err)
	}
	s.clearView()

	proj := projection.Project(snap.All, snap.Subset, snap.Searching, s.opts.Projection)
	spec := surface.BuildSpec(proj, s.opts.Layout)
	h, err := s.adapter.Initialize(ctx, s.opts.ContainerID, spec)
	if err != nil {
		s.setErr(err)
		return false, err
	}
	events, unsub, err := s.adapter.Subscribe(h)
	if err != nil {
		_ = s.adapter.Teardown(h)
		s.setErr(err)
		return false, err
	}

	ctrl := interaction.New(s.adapter, h, proj, interaction.Options{
		Tracing:   s.tracing,
		Callbacks: s.callbacks(),
	})
	loopCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Run(loopCtx, events); err != nil && !errors.Is(err, context.Canceled) {
			debug.Log("viewsync: event loop ended: %v", err)
		}
	}()

	s.mounted = true
	s.handle = h
	s.ctrl = ctrl
	s.proj = proj
	s.stopLoop = stop
	s.loopDone = done
	s.unsub = unsub
	s.synced = true
	s.version = snap.Version
	s.searchVer = snap.SearchVersion
	s.searching = snap.Searching
	s.rebuilds++
	debug.Log("viewsync: rebuild %d (%d points, searching=%v)", s.rebuilds, proj.Len(), snap.Searching)
	s.signal()
	return true, nil
}

// releaseLocked tears down the live surface and waits for its event loop.
func (s *Synchronizer) releaseLocked() error {
	if !s.mounted {
		return nil
	}
	s.stopLoop()
	err := s.adapter.Teardown(s.handle)
	<-s.loopDone
	s.unsub()
	s.mounted = false
	s.ctrl = nil
	s.stopLoop = nil
	s.loopDone = nil
	s.unsub = nil
	return err
}

// Close releases the surface. The Synchronizer can be synced again later.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.releaseLocked()
	s.synced = false
	return err
}

// SetTracing pushes the tracing flag into the live controller.
func (s *Synchronizer) SetTracing(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracing = enabled
	if s.ctrl != nil {
		s.ctrl.SetEnableTracing(enabled)
	}
}

// Tracing returns the tracing flag.
func (s *Synchronizer) Tracing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracing
}

// Rebuilds returns how many surfaces have been mounted.
func (s *Synchronizer) Rebuilds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuilds
}

// Projection returns the projection shown on the live surface.
func (s *Synchronizer) Projection() projection.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj
}

// Handle returns the live surface handle.
func (s *Synchronizer) Handle() (surface.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.mounted
}

// State returns the live controller's state.
func (s *Synchronizer) State() interaction.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return interaction.Idle
	}
	return s.ctrl.State()
}

// Snapshot returns the live surface spec.
func (s *Synchronizer) Snapshot() (surface.Spec, error) {
	s.mu.Lock()
	h, mounted := s.handle, s.mounted
	s.mu.Unlock()
	if !mounted {
		return surface.Spec{}, surface.ErrUnknownContainer
	}
	return s.adapter.Snapshot(h)
}

// Dispatch forwards a user action to the live surface.
func (s *Synchronizer) Dispatch(ctx context.Context, ev surface.Event) error {
	return s.adapter.Dispatch(ctx, s.opts.ContainerID, ev)
}

// Selection returns a copy of the consumer view.
func (s *Synchronizer) Selection() View {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	v := s.view
	v.Instructions = append([]model.InstructionView(nil), v.Instructions...)
	v.Outputs = append([]model.OutputView(nil), v.Outputs...)
	v.InstructionIdx = append([]int(nil), v.InstructionIdx...)
	v.OutputIdx = append([]int(nil), v.OutputIdx...)
	v.Preview = append([]model.Role(nil), v.Preview...)
	return v
}

// Subscribe returns a channel that receives a value whenever the view or the
// surface changed. Notifications coalesce.
func (s *Synchronizer) Subscribe() <-chan struct{} {
	return s.notify
}

// Reset clears the selection and the overlays.
func (s *Synchronizer) Reset(ctx context.Context) error {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	s.clearView()
	s.signal()
	if ctrl == nil {
		return nil
	}
	return ctrl.Reset(ctx)
}

// Search runs a search on the store and rebuilds as needed.
func (s *Synchronizer) Search(ctx context.Context, text string) error {
	s.store.Search(text)
	_, err := s.Sync(ctx)
	return err
}

// Delete removes records by stable index and rebuilds.
func (s *Synchronizer) Delete(ctx context.Context, indices ...int) error {
	if err := s.store.Delete(indices...); err != nil {
		return err
	}
	s.clearView()
	_, err := s.Sync(ctx)
	return err
}

// DeleteSelected removes the records behind the current selection. Rendered
// positions are mapped to stable indices against the projection they were
// selected on.
func (s *Synchronizer) DeleteSelected(ctx context.Context) error {
	v := s.Selection()
	seen := make(map[int]bool)
	var positions []int
	for _, p := range append(v.InstructionIdx, v.OutputIdx...) {
		if !seen[p] {
			seen[p] = true
			positions = append(positions, p)
		}
	}
	if len(positions) == 0 {
		return nil
	}
	indices := s.Projection().StableIndices(positions)
	return s.Delete(ctx, indices...)
}

// Edit merges p into the record with the given stable index and rebuilds.
func (s *Synchronizer) Edit(ctx context.Context, index int, p model.Patch) error {
	if err := s.store.Edit(index, p); err != nil {
		return err
	}
	_, err := s.Sync(ctx)
	return err
}

func (s *Synchronizer) callbacks() interaction.Callbacks {
	show := func(res interaction.Result, preview []model.Role) {
		s.viewMu.Lock()
		s.view = View{
			Instructions:   res.Instructions,
			Outputs:        res.Outputs,
			InstructionIdx: res.InstructionIdx,
			OutputIdx:      res.OutputIdx,
			Preview:        preview,
		}
		s.viewMu.Unlock()
		s.signal()
	}
	return interaction.Callbacks{
		OnClickResult: func(res interaction.Result) {
			show(res, []model.Role{model.RoleInstruction, model.RoleOutput})
		},
		OnSelectionStart: func() {
			s.viewMu.Lock()
			s.view.Loading = LoadingLines
			s.viewMu.Unlock()
			s.signal()
		},
		OnSelectionResult: func(res interaction.Result) {
			var preview []model.Role
			if len(res.InstructionIdx) > 0 {
				preview = append(preview, model.RoleInstruction)
			}
			if len(res.OutputIdx) > 0 {
				preview = append(preview, model.RoleOutput)
			}
			show(res, preview)
		},
		OnEmptySelection: func() {
			s.clearView()
			s.signal()
		},
		OnToggleOff: func() {
			s.clearView()
			s.signal()
		},
		OnError: func(err error) {
			s.setErr(err)
		},
	}
}

func (s *Synchronizer) clearView() {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	s.view = View{}
}

func (s *Synchronizer) setErr(err error) {
	s.viewMu.Lock()
	s.view.Err = err
	s.view.Loading = ""
	s.viewMu.Unlock()
	s.signal()
}

func (s *Synchronizer) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
