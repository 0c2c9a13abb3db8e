package datasource

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/pairplot/pkg/loader"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/testutil"
)

func quiet() loader.ParseOptions {
	return loader.ParseOptions{WarningHandler: func(string) {}}
}

func TestTypeForPath(t *testing.T) {
	tests := map[string]SourceType{
		"a.json":      SourceTypeJSON,
		"a.JSONL":     SourceTypeJSONL,
		"a.ndjson":    SourceTypeJSONL,
		"a.db":        SourceTypeSQLite,
		"a.sqlite3":   SourceTypeSQLite,
		"dir/x.jsonl": SourceTypeJSONL,
	}
	for path, want := range tests {
		got, ok := TypeForPath(path)
		if !ok || got != want {
			t.Errorf("TypeForPath(%q) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := TypeForPath("a.csv"); ok {
		t.Error("csv should not be recognized")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")

	records := testutil.QuickRecords(10)
	records[3].OutputY = math.NaN()
	if err := SaveSQLite(path, records); err != nil {
		t.Fatalf("SaveSQLite: %v", err)
	}

	loaded, err := LoadRecords(path, quiet())
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	testutil.AssertRecordCount(t, loaded, 10)
	for i, r := range loaded {
		if r.Index != i {
			t.Errorf("record %d has index %d", i, r.Index)
		}
		if r.Instruction != records[i].Instruction || r.OutputWordCount != records[i].OutputWordCount {
			t.Errorf("record %d mismatch: %+v", i, r)
		}
	}
	if !math.IsNaN(loaded[3].OutputY) {
		t.Errorf("NaN coordinate should round-trip as NULL, got %v", loaded[3].OutputY)
	}
	if loaded[4].InstructionX != records[4].InstructionX {
		t.Errorf("coordinate mismatch: %v vs %v", loaded[4].InstructionX, records[4].InstructionX)
	}

	src, _ := DetectSource(path)
	reader, err := NewSQLiteReader(src)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	if n, err := reader.CountRecords(); err != nil || n != 10 {
		t.Errorf("CountRecords = %d, %v", n, err)
	}
}

func TestSaveSQLiteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	if err := SaveSQLite(path, testutil.QuickRecords(5)); err != nil {
		t.Fatal(err)
	}
	if err := SaveSQLite(path, testutil.QuickRecords(2)); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadRecords(path, quiet())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRecordCount(t, loaded, 2)
}

func TestLoadRecordsJSON(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDatasetFile(t, dir, "data.jsonl", testutil.QuickRecords(3))
	loaded, err := LoadRecords(path, quiet())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRecordCount(t, loaded, 3)

	if _, err := LoadRecords(filepath.Join(dir, "data.csv"), quiet()); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestLoadFromDirPrefersNewest(t *testing.T) {
	dir := t.TempDir()
	older := testutil.WriteDatasetFile(t, dir, "old.jsonl", testutil.QuickRecords(2))
	testutil.WriteDatasetFile(t, dir, "new.json", testutil.QuickRecords(4))
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	// Invalid files are skipped during discovery.
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("nope"), 0644)
	os.Chtimes(filepath.Join(dir, "broken.json"), past, past)

	records, src, err := LoadFromDir(dir, quiet())
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if filepath.Base(src.Path) != "new.json" || len(records) != 4 {
		t.Fatalf("selected %s with %d records", src.Path, len(records))
	}
}

func TestSelectBestSourcePriorityTieBreak(t *testing.T) {
	now := time.Now()
	sources := []DataSource{
		{Type: SourceTypeJSONL, Path: "a.jsonl", Priority: PriorityJSONL, ModTime: now, Valid: true},
		{Type: SourceTypeSQLite, Path: "a.db", Priority: PrioritySQLite, ModTime: now, Valid: true},
		{Type: SourceTypeJSON, Path: "b.json", Priority: PriorityJSON, ModTime: now.Add(time.Second), ValidationError: "bad"},
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		t.Fatal(err)
	}
	if best.Type != SourceTypeSQLite {
		t.Errorf("best = %s", best)
	}
	if _, err := SelectBestSource(nil); err == nil {
		t.Error("expected error for no sources")
	}
}

func TestDiffRecords(t *testing.T) {
	a := testutil.QuickRecords(4)
	b := append([]model.Record(nil), a[:3]...)
	b[1].Output = "changed"
	b[2].OutputY = math.NaN()
	a[2].OutputY = math.NaN()

	d := DiffRecords(a, b)
	if d.Removed != 1 || d.Added != 0 || len(d.Changed) != 1 || d.Changed[0] != 1 {
		t.Fatalf("diff = %+v", d)
	}
	if !d.HasChanges() || d.Summary() != "3 records (+0 -1 ~1)" {
		t.Errorf("summary = %q", d.Summary())
	}
	if DiffRecords(a, a).HasChanges() {
		t.Error("identical datasets should not differ")
	}
}
