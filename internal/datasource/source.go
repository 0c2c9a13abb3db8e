// Package datasource detects and loads dataset sources: JSON array files,
// JSONL files and SQLite databases holding a records table.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a file holding one JSON array of records
	SourceTypeJSON SourceType = "json"
	// SourceTypeJSONL is a file holding one JSON record per line
	SourceTypeJSONL SourceType = "jsonl"
	// SourceTypeSQLite is a SQLite database with a records table
	SourceTypeSQLite SourceType = "sqlite"
)

// Priority values for source types (higher = preferred on equal mod time)
const (
	PrioritySQLite = 100
	PriorityJSON   = 80
	PriorityJSONL  = 50
)

// DataSource represents a potential source of records
type DataSource struct {
	Type     SourceType `json:"type"`
	Path     string     `json:"path"`
	Priority int        `json:"priority"`
	ModTime  time.Time  `json:"mod_time"`
	Size     int64      `json:"size"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// RecordCount is set during validation
	RecordCount int `json:"record_count"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, records=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RecordCount, status)
}

// TypeForPath maps a file extension to a source type.
func TypeForPath(path string) (SourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SourceTypeJSON, true
	case ".jsonl", ".ndjson":
		return SourceTypeJSONL, true
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, true
	default:
		return "", false
	}
}

func priorityFor(t SourceType) int {
	switch t {
	case SourceTypeSQLite:
		return PrioritySQLite
	case SourceTypeJSON:
		return PriorityJSON
	default:
		return PriorityJSONL
	}
}

// DetectSource describes the file at path. The source is not validated.
func DetectSource(path string) (DataSource, error) {
	typ, ok := TypeForPath(path)
	if !ok {
		return DataSource{}, fmt.Errorf("unrecognized dataset extension: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot stat dataset: %w", err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("dataset path is a directory: %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return DataSource{
		Type:     typ,
		Path:     abs,
		Priority: priorityFor(typ),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is searched (non-recursively) for dataset files
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives log messages (optional)
	Logger func(msg string)
}

// DiscoverSources finds all dataset files in opts.Dir.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = wd
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") {
			continue
		}
		if _, ok := TypeForPath(name); !ok {
			continue
		}
		src, err := DetectSource(filepath.Join(dir, name))
		if err != nil {
			opts.Logger(fmt.Sprintf("skipping %s: %v", name, err))
			continue
		}
		if opts.ValidateAfterDiscovery {
			ValidateSource(&src)
			if !src.Valid && !opts.IncludeInvalid {
				opts.Logger(fmt.Sprintf("skipping invalid source %s", src))
				continue
			}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// ValidateSource loads the source and records whether it holds records.
func ValidateSource(src *DataSource) {
	if src.Size == 0 {
		src.Valid = false
		src.ValidationError = "empty file"
		return
	}
	records, err := LoadFromSource(*src)
	if err != nil {
		src.Valid = false
		src.ValidationError = err.Error()
		return
	}
	src.RecordCount = len(records)
	src.Valid = true
	src.ValidationError = ""
}

// SelectBestSource picks the most recently modified valid source, preferring
// the higher priority type on equal modification times.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid || s.ValidationError == "" {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, fmt.Errorf("no valid sources available")
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if !valid[i].ModTime.Equal(valid[j].ModTime) {
			return valid[i].ModTime.After(valid[j].ModTime)
		}
		return valid[i].Priority > valid[j].Priority
	})
	return valid[0], nil
}
