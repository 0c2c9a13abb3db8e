package loader_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/pairplot/pkg/loader"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/testutil"
)

func quiet() loader.ParseOptions {
	return loader.ParseOptions{WarningHandler: func(string) {}}
}

func TestFindDatasetPath_NonExistentDirectory(t *testing.T) {
	_, err := loader.FindDatasetPath("/nonexistent/path/to/data")
	if err == nil {
		t.Fatal("Expected error for non-existent directory")
	}
	if !strings.Contains(err.Error(), "failed to read dataset directory") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFindDatasetPath_EmptyDirectory(t *testing.T) {
	_, err := loader.FindDatasetPath(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no dataset file found") {
		t.Fatalf("expected 'no dataset file found', got %v", err)
	}
}

func TestFindDatasetPath_PrefersSubsetData(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "other.jsonl"), []byte(`{"output":"a"}`), 0644)
	os.WriteFile(filepath.Join(dir, "data.json"), []byte(`[]`), 0644)
	os.WriteFile(filepath.Join(dir, "subset_data.json"), []byte(`[]`), 0644)

	path, err := loader.FindDatasetPath(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if filepath.Base(path) != "subset_data.json" {
		t.Errorf("expected subset_data.json, got %s", path)
	}
}

func TestFindDatasetPath_SkipsBackupsAndEmpty(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "data.json.backup.json"), []byte(`[]`), 0644)
	os.WriteFile(filepath.Join(dir, "data.json"), nil, 0644)
	os.WriteFile(filepath.Join(dir, "mine.jsonl"), []byte(`{"output":"a"}`), 0644)

	path, err := loader.FindDatasetPath(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if filepath.Base(path) != "mine.jsonl" {
		t.Errorf("expected mine.jsonl, got %s", path)
	}
}

func TestGetDatasetDir_EnvOverride(t *testing.T) {
	t.Setenv(loader.DatasetDirEnvVar, "/custom/data")
	dir, err := loader.GetDatasetDir("/ignored")
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/custom/data" {
		t.Errorf("GetDatasetDir = %q", dir)
	}
}

func TestParseRecords_JSONArray(t *testing.T) {
	input := `[
		{"instruction":"a","input":"","output":"x","instruction_x":1,"instruction_y":2,"output_x":3,"output_y":4,
		 "instruction_word_count":1,"instruction_avg_word_len":1,"output_word_count":1,"output_avg_word_len":1},
		{"instruction":"b","input":"c","output":"y","instruction_x":5,"instruction_y":6,"output_x":7,"output_y":8,"idx":99}
	]`
	records, err := loader.ParseRecordsWithOptions(strings.NewReader(input), quiet())
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	testutil.AssertRecordCount(t, records, 2)
	testutil.AssertIndices(t, records, 0, 1)
	if records[0].InstructionY != 2 || records[0].OutputX != 3 {
		t.Errorf("coordinates not decoded: %+v", records[0])
	}
	// Metrics absent from the file are derived from the text.
	if records[1].InstructionWordCount != 2 || records[1].OutputWordCount != 1 {
		t.Errorf("derived metrics = %d/%d", records[1].InstructionWordCount, records[1].OutputWordCount)
	}
}

func TestParseRecords_JSONL(t *testing.T) {
	records := testutil.QuickRecords(5)
	got, err := loader.ParseRecordsWithOptions(strings.NewReader(testutil.ToJSONL(records)), quiet())
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	testutil.AssertRecordCount(t, got, 5)
	for i := range got {
		if got[i].Instruction != records[i].Instruction || got[i].OutputY != records[i].OutputY {
			t.Errorf("record %d mismatch: %+v", i, got[i])
		}
	}
}

func TestParseRecords_MissingCoordinatesBecomeNaN(t *testing.T) {
	var warnings []string
	opts := loader.ParseOptions{WarningHandler: func(msg string) { warnings = append(warnings, msg) }}

	input := `{"instruction":"a","output":"b","instruction_x":1,"instruction_y":2,"output_x":3}` + "\n"
	records, err := loader.ParseRecordsWithOptions(strings.NewReader(input), opts)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRecordCount(t, records, 1)
	if !math.IsNaN(records[0].OutputY) {
		t.Errorf("OutputY = %v, want NaN", records[0].OutputY)
	}
	if records[0].HasCoordinates() {
		t.Error("record with NaN should not report finite coordinates")
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "output_y") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestParseRecords_SkipsMalformedLines(t *testing.T) {
	var warnings []string
	opts := loader.ParseOptions{WarningHandler: func(msg string) { warnings = append(warnings, msg) }}

	input := strings.Join([]string{
		`{"instruction":"ok","output":"1","instruction_x":0,"instruction_y":0,"output_x":0,"output_y":0}`,
		`{"instruction":"broken"`,
		`not json`,
		``,
		`{"instruction":"ok2","output":"2","instruction_x":0,"instruction_y":0,"output_x":0,"output_y":0}`,
	}, "\n")
	records, err := loader.ParseRecordsWithOptions(strings.NewReader(input), opts)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRecordCount(t, records, 2)
	testutil.AssertIndices(t, records, 0, 1)
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
}

func TestParseRecords_BOMAndEmpty(t *testing.T) {
	records, err := loader.ParseRecordsWithOptions(strings.NewReader("\xEF\xBB\xBF[]"), quiet())
	if err != nil || len(records) != 0 {
		t.Fatalf("BOM array: %v %v", records, err)
	}
	records, err = loader.ParseRecordsWithOptions(strings.NewReader("  \n"), quiet())
	if err != nil || len(records) != 0 {
		t.Fatalf("empty input: %v %v", records, err)
	}
}

func TestParseRecords_UnsupportedFormat(t *testing.T) {
	_, err := loader.ParseRecordsWithOptions(strings.NewReader("instruction,output\n"), quiet())
	if !errors.Is(err, loader.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseRecords_LongLineSkipped(t *testing.T) {
	var warnings []string
	opts := loader.ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
		BufferSize:     64,
	}
	long := `{"instruction":"` + strings.Repeat("x", 200) + `","output":"y"}`
	short := `{"instruction":"a","output":"b","instruction_x":0,"instruction_y":0,"output_x":0,"output_y":0}`
	input := short + "\n" + long + "\n"
	records, err := loader.ParseRecordsWithOptions(strings.NewReader(input), opts)
	if err != nil {
		t.Fatal(err)
	}
	// The short line itself exceeds 64 bytes; both are skipped.
	if len(records) != 0 {
		t.Errorf("expected all lines skipped, got %d", len(records))
	}
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
}

func TestParseRecords_Filter(t *testing.T) {
	opts := quiet()
	opts.RecordFilter = func(r *model.Record) bool { return strings.Contains(r.Output, "1") }
	records := testutil.QuickRecords(12)
	got, err := loader.ParseRecordsWithOptions(strings.NewReader(testutil.ToJSONL(records)), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range got {
		if r.Index != i {
			t.Errorf("filtered records must be indexed densely: %d at %d", r.Index, i)
		}
		if !strings.Contains(r.Output, "1") {
			t.Errorf("filter not applied: %q", r.Output)
		}
	}
}

func TestLoadRecordsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDatasetFile(t, dir, "data.json", testutil.QuickRecords(4))

	records, err := loader.LoadRecordsFromFileWithOptions(path, quiet())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRecordCount(t, records, 4)

	if _, err := loader.LoadRecordsFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func BenchmarkParseRecords(b *testing.B) {
	content := testutil.ToJSONL(testutil.QuickRecords(2000))
	opts := quiet()
	b.SetBytes(int64(len(content)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := loader.ParseRecordsWithOptions(strings.NewReader(content), opts); err != nil {
			b.Fatal(err)
		}
	}
}
