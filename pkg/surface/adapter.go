// Package surface owns the drawing surfaces the plot is rendered on.
//
// A surface lives in a named container. At most one surface is live per
// container; Initialize refuses to mount a second one until the first has
// been torn down. All mutation goes through the Adapter, which mirrors every
// change into a Backend (the actual drawing library) and keeps the current
// Spec so that it can be snapshotted for rendering or export.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/metrics"
)

var (
	// ErrSurfaceMounted means the container already has a live surface.
	ErrSurfaceMounted = errors.New("surface already mounted on container")
	// ErrStaleHandle means the handle's surface has been torn down.
	ErrStaleHandle = errors.New("surface handle is stale")
	// ErrUnknownContainer means no live surface exists for the container.
	ErrUnknownContainer = errors.New("unknown surface container")
)

// Backend draws surfaces. Implementations may block; the Adapter serializes
// calls per surface so that the backend sees traces in the same order as
// the Adapter records them.
type Backend interface {
	NewPlot(ctx context.Context, container string, spec Spec) error
	AddTraces(ctx context.Context, container string, traces []Trace) error
	DeleteTraces(ctx context.Context, container string, positions []int) error
	Purge(ctx context.Context, container string) error
}

// NopBackend accepts every call and draws nothing. The Adapter's own Spec
// is then the only rendering of the surface.
type NopBackend struct{}

func (NopBackend) NewPlot(context.Context, string, Spec) error      { return nil }
func (NopBackend) AddTraces(context.Context, string, []Trace) error { return nil }
func (NopBackend) DeleteTraces(context.Context, string, []int) error {
	return nil
}
func (NopBackend) Purge(context.Context, string) error { return nil }

// Handle refers to one mounted surface. A handle outlives its surface; using
// it after Teardown yields ErrStaleHandle.
type Handle struct {
	container string
	id        uint64
}

// Container returns the container the surface was mounted on.
func (h Handle) Container() string { return h.container }

// Valid reports whether h was returned by Initialize.
func (h Handle) Valid() bool { return h.id != 0 }

type liveSurface struct {
	id        uint64
	container string

	mu   sync.Mutex // guards spec and serializes backend calls
	spec Spec

	subMu   sync.Mutex // guards subs
	subs    map[int]chan Event
	nextSub int
	done    chan struct{}
}

// Adapter manages the surfaces of all containers.
type Adapter struct {
	backend Backend

	mu       sync.Mutex
	surfaces map[string]*liveSurface
	nextID   uint64

	// EventBuffer is the capacity of each subscription channel.
	EventBuffer int
}

// NewAdapter creates an Adapter drawing through backend. A nil backend
// selects NopBackend.
func NewAdapter(backend Backend) *Adapter {
	if backend == nil {
		backend = NopBackend{}
	}
	return &Adapter{
		backend:     backend,
		surfaces:    make(map[string]*liveSurface),
		EventBuffer: 64,
	}
}

// Initialize mounts a new surface on container drawing spec. If the backend
// fails, nothing is left mounted.
func (a *Adapter) Initialize(ctx context.Context, container string, spec Spec) (Handle, error) {
	defer metrics.Timer(metrics.SurfaceInit)()

	if container == "" {
		return Handle{}, fmt.Errorf("%w: empty container id", ErrUnknownContainer)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.surfaces[container]; ok {
		return Handle{}, fmt.Errorf("%w: %s", ErrSurfaceMounted, container)
	}
	spec = spec.Clone()
	if err := a.backend.NewPlot(ctx, container, spec); err != nil {
		// Best effort: the backend may have attached something before failing.
		_ = a.backend.Purge(context.Background(), container)
		return Handle{}, fmt.Errorf("initializing surface %s: %w", container, err)
	}

	a.nextID++
	s := &liveSurface{
		id:        a.nextID,
		container: container,
		spec:      spec,
		subs:      make(map[int]chan Event),
		done:      make(chan struct{}),
	}
	a.surfaces[container] = s
	debug.Log("surface: mounted %s (id %d, %d traces)", container, s.id, len(spec.Traces))
	return Handle{container: container, id: s.id}, nil
}

func (a *Adapter) lookup(h Handle) (*liveSurface, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.surfaces[h.container]
	if !ok || s.id != h.id {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h.container)
	}
	return s, nil
}

// alive reports whether s is still the mounted surface of its container.
func (a *Adapter) alive(s *liveSurface) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.surfaces[s.container]
	return ok && cur == s
}

// AddOverlayTrace appends a transient trace and returns the new trace count.
func (a *Adapter) AddOverlayTrace(ctx context.Context, h Handle, trace Trace) (int, error) {
	defer metrics.Timer(metrics.OverlayDraw)()

	s, err := a.lookup(h)
	if err != nil {
		return 0, err
	}
	trace = trace.Clone()
	trace.Structural = false

	s.mu.Lock()
	defer s.mu.Unlock()
	if !a.alive(s) {
		return 0, fmt.Errorf("%w: %s", ErrStaleHandle, h.container)
	}
	if err := a.backend.AddTraces(ctx, s.container, []Trace{trace}); err != nil {
		return len(s.spec.Traces), fmt.Errorf("adding overlay to %s: %w", s.container, err)
	}
	s.spec.Traces = append(s.spec.Traces, trace)
	return len(s.spec.Traces), nil
}

// PurgeOverlaysAbove removes every trace beyond base. It is a no-op when the
// surface already has base traces or fewer.
func (a *Adapter) PurgeOverlaysAbove(ctx context.Context, h Handle, base int) error {
	s, err := a.lookup(h)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.spec.Traces)
	if n <= base {
		return nil
	}
	if base < 0 {
		base = 0
	}
	positions := make([]int, 0, n-base)
	for i := base; i < n; i++ {
		positions = append(positions, i)
	}
	if err := a.backend.DeleteTraces(ctx, s.container, positions); err != nil {
		return fmt.Errorf("purging overlays on %s: %w", s.container, err)
	}
	s.spec.Traces = s.spec.Traces[:base:base]
	debug.Log("surface: purged %d overlays on %s", len(positions), s.container)
	return nil
}

// Teardown releases the surface and closes its subscriptions. The container
// is free for a new surface even if the backend purge fails.
func (a *Adapter) Teardown(h Handle) error {
	a.mu.Lock()
	s, ok := a.surfaces[h.container]
	if !ok || s.id != h.id {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStaleHandle, h.container)
	}
	delete(a.surfaces, h.container)
	a.mu.Unlock()

	close(s.done)
	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	debug.Log("surface: torn down %s (id %d)", h.container, s.id)
	if err := a.backend.Purge(context.Background(), h.container); err != nil {
		return fmt.Errorf("purging surface %s: %w", h.container, err)
	}
	return nil
}

// TraceCount returns the current number of traces.
func (a *Adapter) TraceCount(h Handle) (int, error) {
	s, err := a.lookup(h)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spec.Traces), nil
}

// Snapshot returns a copy of the current spec, overlays included.
func (a *Adapter) Snapshot(h Handle) (Spec, error) {
	s, err := a.lookup(h)
	if err != nil {
		return Spec{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec.Clone(), nil
}

// Live reports whether container has a mounted surface.
func (a *Adapter) Live(container string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.surfaces[container]
	return ok
}

// Current returns the handle of the surface mounted on container.
func (a *Adapter) Current(container string) (Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.surfaces[container]
	if !ok {
		return Handle{}, false
	}
	return Handle{container: container, id: s.id}, true
}

// Subscribe registers for the surface's events. The channel is closed on
// Teardown or when the returned cancel function is called.
func (a *Adapter) Subscribe(h Handle) (<-chan Event, func(), error) {
	s, err := a.lookup(h)
	if err != nil {
		return nil, nil, err
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	select {
	case <-s.done:
		return nil, nil, fmt.Errorf("%w: %s", ErrStaleHandle, h.container)
	default:
	}
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, a.EventBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				close(c)
				delete(s.subs, id)
			}
		})
	}
	return ch, cancel, nil
}

// Dispatch delivers ev to every subscriber of the surface on container. It
// blocks while a subscriber's buffer is full, until ctx is done or the
// surface is torn down.
func (a *Adapter) Dispatch(ctx context.Context, container string, ev Event) error {
	a.mu.Lock()
	s, ok := a.surfaces[container]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContainer, container)
	}

	ev.Points = append([]PointRef(nil), ev.Points...)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return fmt.Errorf("%w: %s", ErrStaleHandle, container)
		}
	}
	return nil
}
