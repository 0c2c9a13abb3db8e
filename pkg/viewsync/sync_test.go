package viewsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/pairplot/pkg/interaction"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/projection"
	"github.com/vanderheijden86/pairplot/pkg/store"
	"github.com/vanderheijden86/pairplot/pkg/surface"
	"github.com/vanderheijden86/pairplot/pkg/testutil"
)

// exclusiveBackend fails the test if two surfaces are ever live on one
// container, and can hold line draws behind a gate.
type exclusiveBackend struct {
	surface.NopBackend
	t *testing.T

	mu      sync.Mutex
	live    map[string]int
	maxLive int

	gate    chan struct{}
	started chan struct{}
}

func newExclusiveBackend(t *testing.T) *exclusiveBackend {
	return &exclusiveBackend{t: t, live: make(map[string]int), started: make(chan struct{}, 16)}
}

func (b *exclusiveBackend) NewPlot(_ context.Context, container string, _ surface.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[container]++
	if b.live[container] > b.maxLive {
		b.maxLive = b.live[container]
	}
	if b.live[container] > 1 {
		b.t.Errorf("two live surfaces on %s", container)
	}
	return nil
}

func (b *exclusiveBackend) Purge(_ context.Context, container string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[container]--
	return nil
}

func (b *exclusiveBackend) AddTraces(ctx context.Context, _ string, traces []surface.Trace) error {
	if b.gate == nil || traces[0].Kind != surface.KindLines {
		return nil
	}
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newSync(t *testing.T, records []model.Record) (*Synchronizer, *store.Store, *surface.Adapter, *exclusiveBackend) {
	t.Helper()
	backend := newExclusiveBackend(t)
	adapter := surface.NewAdapter(backend)
	st := store.New(records, store.Options{})
	s := New(st, adapter, Options{Tracing: true})
	t.Cleanup(func() { _ = s.Close() })
	if rebuilt, err := s.Sync(context.Background()); err != nil || !rebuilt {
		t.Fatalf("initial Sync = %v, %v", rebuilt, err)
	}
	return s, st, adapter, backend
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func click(t *testing.T, s *Synchronizer, series string, pos int) {
	t.Helper()
	err := s.Dispatch(context.Background(), surface.Event{
		Kind:   surface.EventClick,
		Points: []surface.PointRef{{Series: series, Position: pos}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
}

func threeRecords() []model.Record {
	return testutil.Grid([]float64{1, 2, 3}, []float64{5, 2, 9})
}

func TestSyncOnlyWhenChanged(t *testing.T) {
	s, _, adapter, _ := newSync(t, threeRecords())
	ctx := context.Background()

	if !adapter.Live(DefaultContainer) {
		t.Fatal("surface should be mounted")
	}
	rebuilt, err := s.Sync(ctx)
	if err != nil || rebuilt {
		t.Fatalf("unchanged Sync = %v, %v", rebuilt, err)
	}
	if s.Rebuilds() != 1 {
		t.Fatalf("Rebuilds = %d", s.Rebuilds())
	}
}

func TestSearchTriggers(t *testing.T) {
	records := threeRecords()
	s, st, _, _ := newSync(t, records)
	ctx := context.Background()

	if err := s.Search(ctx, "instruction 1"); err != nil {
		t.Fatal(err)
	}
	if s.Rebuilds() != 2 || s.Projection().Len() != 1 {
		t.Fatalf("entering search: rebuilds=%d len=%d", s.Rebuilds(), s.Projection().Len())
	}

	// New result set while searching.
	if err := s.Search(ctx, "output"); err != nil {
		t.Fatal(err)
	}
	if s.Rebuilds() != 3 || s.Projection().Len() != 3 {
		t.Fatalf("new results: rebuilds=%d len=%d", s.Rebuilds(), s.Projection().Len())
	}

	// No match projects nothing rather than everything.
	_ = s.Search(ctx, "zzz")
	if s.Projection().Len() != 0 {
		t.Fatalf("no-match search projected %d points", s.Projection().Len())
	}

	_ = s.Search(ctx, "")
	if s.Rebuilds() != 5 || s.Projection().Len() != 3 {
		t.Fatalf("leaving search: rebuilds=%d len=%d", s.Rebuilds(), s.Projection().Len())
	}

	// Clearing an already cleared search changes nothing.
	st.Search("")
	if rebuilt, _ := s.Sync(ctx); rebuilt {
		t.Fatal("clearing an inactive search must not rebuild")
	}
}

func TestTracingDoesNotRebuild(t *testing.T) {
	s, _, adapter, _ := newSync(t, threeRecords())

	s.SetTracing(false)
	if s.Rebuilds() != 1 {
		t.Fatalf("SetTracing rebuilt the surface")
	}
	click(t, s, projection.OutputSeriesName, 0)
	waitFor(t, "click result", func() bool { return s.Selection().HasSelection() })

	h, _ := s.Handle()
	n, _ := adapter.TraceCount(h)
	if n != surface.BaseTraceCount+1 {
		t.Fatalf("trace count = %d, want marker only", n)
	}
}

func TestClickPopulatesView(t *testing.T) {
	s, _, _, _ := newSync(t, threeRecords())
	click(t, s, projection.OutputSeriesName, 1)
	waitFor(t, "click result", func() bool { return s.Selection().HasSelection() })

	v := s.Selection()
	if len(v.Instructions) != 1 || len(v.Outputs) != 1 || v.OutputIdx[0] != 1 {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Preview) != 2 {
		t.Errorf("preview = %v", v.Preview)
	}
	if s.State() != interaction.SingleSelection {
		t.Errorf("state = %s", s.State())
	}

	// Clicking again toggles everything off.
	click(t, s, projection.OutputSeriesName, 1)
	waitFor(t, "toggle off", func() bool { return !s.Selection().HasSelection() })
}

func TestDeleteClearsStaleSelection(t *testing.T) {
	s, st, _, _ := newSync(t, threeRecords())
	ctx := context.Background()

	click(t, s, projection.InstructionSeriesName, 2)
	waitFor(t, "click result", func() bool { return s.Selection().HasSelection() })

	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	p := s.Projection()
	if p.Instructions.Len() != 2 || p.Output.Len() != 2 {
		t.Fatalf("series lengths = %d/%d, want 2", p.Instructions.Len(), p.Output.Len())
	}
	if v := s.Selection(); v.HasSelection() || len(v.Instructions) != 0 {
		t.Fatalf("stale selection kept: %+v", v)
	}
	if s.State() != interaction.Idle {
		t.Errorf("state = %s", s.State())
	}
	testutil.AssertIndices(t, st.Records(), 0, 2)
}

func TestDeleteSelectedMapsPositions(t *testing.T) {
	s, st, _, _ := newSync(t, threeRecords())
	ctx := context.Background()

	if err := s.Delete(ctx, 0); err != nil {
		t.Fatal(err)
	}
	// Position 1 now shows the record with stable index 2.
	click(t, s, projection.OutputSeriesName, 1)
	waitFor(t, "click result", func() bool { return s.Selection().HasSelection() })

	if err := s.DeleteSelected(ctx); err != nil {
		t.Fatalf("DeleteSelected: %v", err)
	}
	testutil.AssertIndices(t, st.Records(), 1)

	// Nothing selected: no-op.
	before := s.Rebuilds()
	if err := s.DeleteSelected(ctx); err != nil || s.Rebuilds() != before {
		t.Fatalf("empty DeleteSelected: err=%v rebuilds %d -> %d", err, before, s.Rebuilds())
	}
}

func TestEditRebuilds(t *testing.T) {
	s, st, _, _ := newSync(t, threeRecords())
	if err := s.Edit(context.Background(), 1, model.Patch{Output: model.String("edited")}); err != nil {
		t.Fatal(err)
	}
	if s.Rebuilds() != 2 {
		t.Fatalf("Rebuilds = %d", s.Rebuilds())
	}
	r, _ := st.Lookup(1)
	if r.Output != "edited" {
		t.Fatalf("record not edited: %+v", r)
	}
	if got := s.Projection().Output.Text[1]; got != projection.OutputText(r) {
		t.Errorf("hover text not rebuilt: %q", got)
	}
}

func TestRebuildExclusivity(t *testing.T) {
	s, st, _, backend := newSync(t, testutil.QuickRecords(20))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = s.Search(ctx, "response")
		_ = s.Search(ctx, "")
		if err := st.Delete(st.Records()[0].Index); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Sync(ctx); err != nil {
			t.Fatal(err)
		}
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.maxLive != 1 {
		t.Fatalf("max live surfaces = %d", backend.maxLive)
	}
}

func TestLassoShowsLoadingLabel(t *testing.T) {
	s, _, _, backend := newSync(t, threeRecords())
	backend.gate = make(chan struct{})

	err := s.Dispatch(context.Background(), surface.Event{
		Kind: surface.EventSelect,
		Points: []surface.PointRef{
			{Series: projection.InstructionSeriesName, Position: 0},
			{Series: projection.InstructionSeriesName, Position: 1},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	<-backend.started
	if got := s.Selection().Loading; got != LoadingLines {
		t.Fatalf("Loading = %q during line draws", got)
	}

	close(backend.gate)
	waitFor(t, "selection result", func() bool { return s.Selection().HasSelection() })
	v := s.Selection()
	if v.Loading != "" || len(v.InstructionIdx) != 2 || len(v.OutputIdx) != 0 {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Preview) != 1 || v.Preview[0] != model.RoleInstruction {
		t.Errorf("preview = %v", v.Preview)
	}

	_ = s.Dispatch(context.Background(), surface.Event{Kind: surface.EventDeselect})
	waitFor(t, "empty selection", func() bool { return !s.Selection().HasSelection() })
}

func TestCloseReleasesSurface(t *testing.T) {
	s, _, adapter, _ := newSync(t, threeRecords())
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if adapter.Live(DefaultContainer) {
		t.Fatal("surface still live after Close")
	}
	if rebuilt, err := s.Sync(context.Background()); err != nil || !rebuilt {
		t.Fatalf("Sync after Close = %v, %v", rebuilt, err)
	}
}

func TestSubscribeNotifies(t *testing.T) {
	s, _, _, _ := newSync(t, threeRecords())
	select {
	case <-s.Subscribe():
	case <-time.After(time.Second):
		t.Fatal("no notification after initial sync")
	}
	click(t, s, projection.OutputSeriesName, 0)
	select {
	case <-s.Subscribe():
	case <-time.After(time.Second):
		t.Fatal("no notification after click")
	}
}
