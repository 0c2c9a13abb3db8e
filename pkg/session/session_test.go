package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "session.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestLoad_FreshDatabase(t *testing.T) {
	s, _ := openTemp(t)
	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Tracing != nil || st.LastSearch != "" || st.LastDataset != "" || !st.UpdatedAt.IsZero() {
		t.Errorf("expected zero settings, got %+v", st)
	}
}

func TestSaveLoad_SurvivesReopen(t *testing.T) {
	s, path := openTemp(t)
	before := time.Now().Add(-time.Second)
	if err := s.Save(Settings{Tracing: Bool(false), LastSearch: "poem", LastDataset: "/data/set.json"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	st, err := s2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Tracing == nil || *st.Tracing {
		t.Errorf("tracing = %v, want false", st.Tracing)
	}
	if st.LastSearch != "poem" || st.LastDataset != "/data/set.json" {
		t.Errorf("settings = %+v", st)
	}
	if st.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v, want after %v", st.UpdatedAt, before)
	}
}

func TestSave_NilTracingKeepsStoredValue(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Save(Settings{Tracing: Bool(true)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(Settings{LastSearch: "x"}); err != nil {
		t.Fatal(err)
	}
	st, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.Tracing == nil || !*st.Tracing {
		t.Errorf("tracing = %v, want true", st.Tracing)
	}
	if st.LastSearch != "x" {
		t.Errorf("last search = %q", st.LastSearch)
	}
}

func TestOpen_ResetsOnSchemaChange(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Save(Settings{LastSearch: "old"}); err != nil {
		t.Fatal(err)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte("99"))
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	st, err := s2.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.LastSearch != "" {
		t.Errorf("settings survived schema change: %+v", st)
	}
}

func TestClosedStore(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrClosed) {
		t.Errorf("Load after Close = %v, want ErrClosed", err)
	}
	if err := s.Save(Settings{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Save after Close = %v, want ErrClosed", err)
	}
	if s.Path() != "" {
		t.Errorf("Path after Close = %q", s.Path())
	}
}

func TestOpen_LockedTimesOut(t *testing.T) {
	_, path := openTemp(t)
	start := time.Now()
	if _, err := Open(path); err == nil {
		t.Fatal("expected timeout opening a locked database")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Open did not honour the lock timeout")
	}
}
