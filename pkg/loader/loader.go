package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/pairplot/pkg/metrics"
	"github.com/vanderheijden86/pairplot/pkg/model"
)

// DatasetDirEnvVar names the environment variable for a custom dataset directory.
const DatasetDirEnvVar = "PAIRPLOT_DATA_DIR"

// PreferredDatasetNames defines the lookup priority for dataset files.
var PreferredDatasetNames = []string{"subset_data.json", "data.json", "data.jsonl"}

// ErrUnsupportedFormat is returned when a dataset is neither a JSON array nor JSONL.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// DefaultMaxBufferSize is the default buffer size for a single JSONL line (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of ParseRecords.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON,
	// missing coordinates). If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum JSONL line size. Longer lines are skipped
	// with a warning. If 0, uses DefaultMaxBufferSize.
	BufferSize int

	// RecordFilter optionally filters parsed records. Return true to include.
	RecordFilter func(*model.Record) bool
}

// rawRecord mirrors model.Record with nullable numbers so that missing
// coordinates can be told apart from zero.
type rawRecord struct {
	Instruction           string   `json:"instruction"`
	Input                 string   `json:"input"`
	Output                string   `json:"output"`
	InstructionX          *float64 `json:"instruction_x"`
	InstructionY          *float64 `json:"instruction_y"`
	OutputX               *float64 `json:"output_x"`
	OutputY               *float64 `json:"output_y"`
	InstructionWordCount  *int     `json:"instruction_word_count"`
	InstructionAvgWordLen *float64 `json:"instruction_avg_word_len"`
	OutputWordCount       *int     `json:"output_word_count"`
	OutputAvgWordLen      *float64 `json:"output_avg_word_len"`
}

// GetDatasetDir returns the dataset directory, respecting PAIRPLOT_DATA_DIR.
// Falls back to dir (or the working directory when dir is empty).
func GetDatasetDir(dir string) (string, error) {
	if envDir := os.Getenv(DatasetDirEnvVar); envDir != "" {
		return envDir, nil
	}
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return wd, nil
}

// FindDatasetPath locates a dataset file in dir. Preferred names win;
// otherwise the first non-empty .json or .jsonl file is used.
func FindDatasetPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no dataset file found in %s", dir)
	}

	nonEmpty := func(name string) bool {
		info, err := os.Stat(filepath.Join(dir, name))
		return err == nil && info.Size() > 0
	}
	for _, preferred := range PreferredDatasetNames {
		for _, name := range candidates {
			if name == preferred && nonEmpty(name) {
				return filepath.Join(dir, name), nil
			}
		}
	}
	for _, name := range candidates {
		if nonEmpty(name) {
			return filepath.Join(dir, name), nil
		}
	}
	return filepath.Join(dir, candidates[0]), nil
}

// LoadRecordsFromFile reads records from a JSON or JSONL file.
func LoadRecordsFromFile(path string) ([]model.Record, error) {
	return LoadRecordsFromFileWithOptions(path, ParseOptions{})
}

// LoadRecordsFromFileWithOptions reads records from a file with custom options.
func LoadRecordsFromFileWithOptions(path string, opts ParseOptions) ([]model.Record, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no dataset found at %s", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	return ParseRecordsWithOptions(file, opts)
}

// ParseRecords parses a JSON array or JSONL stream into records.
func ParseRecords(r io.Reader) ([]model.Record, error) {
	return ParseRecordsWithOptions(r, ParseOptions{})
}

// ParseRecordsWithOptions parses with custom options. The format is sniffed
// from the first non-space byte: '[' means a JSON array, '{' means JSONL.
// Record indices are assigned in load order starting at 0; any idx value in
// the input is ignored.
func ParseRecordsWithOptions(r io.Reader, opts ParseOptions) ([]model.Record, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}

	first, err := peekFirstByte(reader)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	var raws [][]byte
	var labels []string
	switch first {
	case '[':
		raws, err = splitArray(reader)
		if err != nil {
			return nil, err
		}
		labels = make([]string, len(raws))
		for i := range raws {
			labels[i] = fmt.Sprintf("element %d", i)
		}
	case '{':
		raws, labels, err = splitLines(reader, maxCapacity, warn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrUnsupportedFormat, first)
	}

	records := make([]model.Record, 0, len(raws))
	for i, raw := range raws {
		var rr rawRecord
		if err := json.Unmarshal(raw, &rr); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON at %s: %v", labels[i], err))
			continue
		}
		rec, missing := rr.toRecord()
		if len(missing) > 0 {
			warn(fmt.Sprintf("%s is missing %s; plotting it as NaN", labels[i], strings.Join(missing, ", ")))
		}
		if opts.RecordFilter != nil && !opts.RecordFilter(&rec) {
			continue
		}
		rec.Index = len(records)
		records = append(records, rec)
	}
	return records, nil
}

func (rr rawRecord) toRecord() (model.Record, []string) {
	var missing []string
	coord := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return math.NaN()
		}
		return *v
	}
	rec := model.Record{
		Instruction:  rr.Instruction,
		Input:        rr.Input,
		Output:       rr.Output,
		InstructionX: coord("instruction_x", rr.InstructionX),
		InstructionY: coord("instruction_y", rr.InstructionY),
		OutputX:      coord("output_x", rr.OutputX),
		OutputY:      coord("output_y", rr.OutputY),
	}

	// Metrics are derived from the text when the file does not carry them.
	if rr.InstructionWordCount != nil {
		rec.InstructionWordCount = *rr.InstructionWordCount
	}
	if rr.InstructionAvgWordLen != nil {
		rec.InstructionAvgWordLen = *rr.InstructionAvgWordLen
	}
	if rr.InstructionWordCount == nil && rr.InstructionAvgWordLen == nil {
		rec.InstructionWordCount, rec.InstructionAvgWordLen = model.WordMetrics(strings.TrimSpace(rr.Instruction + " " + rr.Input))
	}
	if rr.OutputWordCount != nil {
		rec.OutputWordCount = *rr.OutputWordCount
	}
	if rr.OutputAvgWordLen != nil {
		rec.OutputAvgWordLen = *rr.OutputAvgWordLen
	}
	if rr.OutputWordCount == nil && rr.OutputAvgWordLen == nil {
		rec.OutputWordCount, rec.OutputAvgWordLen = model.WordMetrics(rr.Output)
	}
	return rec, missing
}

func peekFirstByte(r *bufio.Reader) (byte, error) {
	// Strip UTF-8 BOM if present
	if b, err := r.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = r.Discard(3)
	}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if err := r.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func splitArray(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("parsing dataset array: %w", err)
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out, nil
}

func splitLines(reader *bufio.Reader, maxCapacity int, warn func(string)) ([][]byte, []string, error) {
	var out [][]byte
	var labels []string
	lineNum := 0
	for {
		lineNum++
		// ReadLine returns a single line, not including the end-of-line bytes.
		// If the line was too long for the buffer then isPrefix is set.
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("error reading dataset stream at line %d: %w", lineNum, err)
		}
		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' {
			warn(fmt.Sprintf("skipping line %d: not a JSON object", lineNum))
			continue
		}
		out = append(out, append([]byte(nil), line...))
		labels = append(labels, fmt.Sprintf("line %d", lineNum))
	}
	return out, labels, nil
}
