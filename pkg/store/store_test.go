package store

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/testutil"
)

func fruitRecords() []model.Record {
	return []model.Record{
		{Instruction: "Name a fruit", Output: "Apple", Index: 0},
		{Instruction: "Name a colour", Output: "Red", Index: 1},
		{Instruction: "Name a vegetable", Input: "green", Output: "Kale", Index: 2},
		{Instruction: "Spell apple", Output: "a-p-p-l-e", Index: 3},
	}
}

func TestNewAndLoad(t *testing.T) {
	s := New(nil, Options{})
	if s.Loaded() || s.Version() != 0 {
		t.Fatal("nil records should leave the store unloaded")
	}
	s.Load(fruitRecords())
	if !s.Loaded() || s.Len() != 4 || s.Version() != 1 {
		t.Fatalf("after Load: loaded=%v len=%d version=%d", s.Loaded(), s.Len(), s.Version())
	}
	s.Load(fruitRecords()[:2])
	if s.Version() != 2 {
		t.Errorf("reload should bump version, got %d", s.Version())
	}
}

func TestRecordsAreCopies(t *testing.T) {
	s := New(fruitRecords(), Options{})
	got := s.Records()
	got[0].Output = "changed"
	if r, _ := s.Lookup(0); r.Output != "Apple" {
		t.Fatal("Records must return a copy")
	}
}

func TestSearch(t *testing.T) {
	s := New(fruitRecords(), Options{})

	got := s.Search("apple")
	testutil.AssertIndices(t, got, 3)
	if !s.IsSearching() || s.SearchVersion() != 1 {
		t.Fatalf("searching=%v searchVersion=%d", s.IsSearching(), s.SearchVersion())
	}
	testutil.AssertIndices(t, s.Active(), 3)

	// Input is searched too.
	testutil.AssertIndices(t, s.Search("green"), 2)

	// No match still counts as searching, with an empty subset.
	if got := s.Search("zzz"); len(got) != 0 || !s.IsSearching() {
		t.Fatalf("no-match search: %v searching=%v", got, s.IsSearching())
	}
	if len(s.Active()) != 0 {
		t.Fatal("Active must not fall back to all records while searching")
	}

	s.Search("")
	if s.IsSearching() {
		t.Fatal("empty search should leave search mode")
	}
	testutil.AssertIndices(t, s.Active(), 0, 1, 2, 3)
	if s.SearchVersion() != 4 {
		t.Errorf("SearchVersion = %d, want 4", s.SearchVersion())
	}
	if s.Version() != 1 {
		t.Errorf("search must not bump the dataset version, got %d", s.Version())
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := New(fruitRecords(), Options{CaseInsensitive: true})
	testutil.AssertIndices(t, s.Search("APPLE"), 0, 3)
}

func TestDeleteKeepsStableIndices(t *testing.T) {
	s := New(fruitRecords(), Options{})

	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	testutil.AssertIndices(t, s.Records(), 0, 2, 3)
	if s.Version() != 2 {
		t.Errorf("Version = %d, want 2", s.Version())
	}
	if _, ok := s.Lookup(1); ok {
		t.Error("deleted record still found")
	}
	if r, ok := s.Lookup(3); !ok || r.Output != "a-p-p-l-e" {
		t.Error("survivor should keep its index")
	}

	if err := s.Delete(0, 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	testutil.AssertIndices(t, s.Records(), 2)
}

func TestDeleteUnknownIndexDeletesNothing(t *testing.T) {
	s := New(fruitRecords(), Options{})
	err := s.Delete(0, 42)
	if !errors.Is(err, ErrUnknownIndex) {
		t.Fatalf("expected ErrUnknownIndex, got %v", err)
	}
	if s.Len() != 4 || s.Version() != 1 {
		t.Fatalf("failed delete must not change the store: len=%d version=%d", s.Len(), s.Version())
	}
}

func TestDeleteRerunsSearch(t *testing.T) {
	s := New(fruitRecords(), Options{CaseInsensitive: true})
	s.Search("apple")
	if err := s.Delete(3); err != nil {
		t.Fatal(err)
	}
	testutil.AssertIndices(t, s.Active(), 0)
}

func TestEdit(t *testing.T) {
	s := New(fruitRecords(), Options{})
	before := s.Snapshot()

	if err := s.Edit(1, model.Patch{Output: model.String("Blue sky")}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	r, _ := s.Lookup(1)
	if r.Output != "Blue sky" || r.OutputWordCount != 2 {
		t.Errorf("edited record = %+v", r)
	}
	if s.Version() != 2 {
		t.Errorf("Version = %d, want 2", s.Version())
	}
	if before.All[1].Output != "Red" {
		t.Error("edit leaked into an earlier snapshot")
	}

	if err := s.Edit(9, model.Patch{Output: model.String("x")}); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("expected ErrUnknownIndex, got %v", err)
	}
	if err := s.Edit(1, model.Patch{}); err != nil || s.Version() != 2 {
		t.Errorf("empty patch should be a no-op: err=%v version=%d", err, s.Version())
	}
}

func TestMutationsNeedDataset(t *testing.T) {
	s := New(nil, Options{})
	if err := s.Delete(0); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Delete: expected ErrNoDataset, got %v", err)
	}
	if err := s.Edit(0, model.Patch{Output: model.String("x")}); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Edit: expected ErrNoDataset, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	s := New(fruitRecords(), Options{})
	s.Search("Name")
	snap := s.Snapshot()
	if !snap.Searching || len(snap.Subset) != 3 || len(snap.All) != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Version != 1 || snap.SearchVersion != 1 {
		t.Errorf("versions = %d/%d", snap.Version, snap.SearchVersion)
	}
}
