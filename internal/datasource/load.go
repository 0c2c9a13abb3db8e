package datasource

import (
	"fmt"

	"github.com/vanderheijden86/pairplot/pkg/loader"
	"github.com/vanderheijden86/pairplot/pkg/model"
)

// LoadRecords loads the dataset at path, dispatching on its extension.
func LoadRecords(path string, opts loader.ParseOptions) ([]model.Record, error) {
	src, err := DetectSource(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSourceWithOptions(src, opts)
}

// LoadFromDir discovers the sources in dir and loads the best one. It falls
// back to the loader's preferred-name lookup when discovery finds nothing
// valid.
func LoadFromDir(dir string, opts loader.ParseOptions) ([]model.Record, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err == nil && len(sources) > 0 {
		best, err := SelectBestSource(sources)
		if err == nil {
			records, err := LoadFromSourceWithOptions(best, opts)
			return records, best, err
		}
	}

	path, err := loader.FindDatasetPath(dir)
	if err != nil {
		return nil, DataSource{}, err
	}
	src, err := DetectSource(path)
	if err != nil {
		return nil, DataSource{}, err
	}
	records, err := LoadFromSourceWithOptions(src, opts)
	return records, src, err
}

// LoadFromSource loads records from a specific DataSource.
func LoadFromSource(source DataSource) ([]model.Record, error) {
	return LoadFromSourceWithOptions(source, loader.ParseOptions{WarningHandler: func(string) {}})
}

// LoadFromSourceWithOptions loads records from a specific DataSource,
// dispatching to the appropriate reader based on source type.
func LoadFromSourceWithOptions(source DataSource, opts loader.ParseOptions) ([]model.Record, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadRecords()

	case SourceTypeJSON, SourceTypeJSONL:
		return loader.LoadRecordsFromFileWithOptions(source.Path, opts)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
