package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/pairplot/internal/datasource"
	"github.com/vanderheijden86/pairplot/pkg/model"
)

// exportRecord is the on-disk shape of a record. Coordinates are pointers so
// NaN is written as null.
type exportRecord struct {
	Index                 int      `json:"idx"`
	Instruction           string   `json:"instruction"`
	Input                 string   `json:"input"`
	Output                string   `json:"output"`
	InstructionX          *float64 `json:"instruction_x"`
	InstructionY          *float64 `json:"instruction_y"`
	OutputX               *float64 `json:"output_x"`
	OutputY               *float64 `json:"output_y"`
	InstructionWordCount  int      `json:"instruction_word_count"`
	InstructionAvgWordLen float64  `json:"instruction_avg_word_len"`
	OutputWordCount       int      `json:"output_word_count"`
	OutputAvgWordLen      float64  `json:"output_avg_word_len"`
}

func toExport(r model.Record) exportRecord {
	num := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	avg := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	return exportRecord{
		Index:                 r.Index,
		Instruction:           r.Instruction,
		Input:                 r.Input,
		Output:                r.Output,
		InstructionX:          num(r.InstructionX),
		InstructionY:          num(r.InstructionY),
		OutputX:               num(r.OutputX),
		OutputY:               num(r.OutputY),
		InstructionWordCount:  r.InstructionWordCount,
		InstructionAvgWordLen: avg(r.InstructionAvgWordLen),
		OutputWordCount:       r.OutputWordCount,
		OutputAvgWordLen:      avg(r.OutputAvgWordLen),
	}
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.Record) error {
	out := make([]exportRecord, len(records))
	for i, r := range records {
		out[i] = toExport(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteJSONL writes one record per line.
func WriteJSONL(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range records {
		if err := enc.Encode(toExport(r)); err != nil {
			return fmt.Errorf("encoding record %d: %w", r.Index, err)
		}
	}
	return bw.Flush()
}

// SaveDataset writes records to path. The extension picks the format: .json
// for an array, .jsonl/.ndjson for lines and .db/.sqlite/.sqlite3 for a
// SQLite database. JSON files are written to a temp file and renamed into
// place so a watcher never sees a partial file.
func SaveDataset(path string, records []model.Record) error {
	typ, ok := datasource.TypeForPath(path)
	if !ok {
		return fmt.Errorf("unsupported dataset extension %q", filepath.Ext(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if typ == datasource.SourceTypeSQLite {
		return datasource.SaveSQLite(path, records)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	write := WriteJSONL
	if typ == datasource.SourceTypeJSON {
		write = WriteJSON
	}
	if err := write(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
