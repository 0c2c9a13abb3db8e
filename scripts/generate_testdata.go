//go:build ignore

// generate_testdata.go creates standard datasets for benchmarking the plot.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/benchmark/small.jsonl   (100 records)
//	testdata/benchmark/medium.jsonl  (1000 records)
//	testdata/benchmark/large.jsonl   (5000 records)
//	testdata/benchmark/huge.jsonl    (20000 records)
//	testdata/benchmark/large.db      (the large set as SQLite)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/pairplot/internal/datasource"
	"github.com/vanderheijden86/pairplot/pkg/testutil"
)

type datasetSpec struct {
	name     string
	size     int
	clusters int
	sqlite   bool
}

var datasets = []datasetSpec{
	{"small", 100, 3, false},
	{"medium", 1000, 5, false},
	{"large", 5000, 8, true},
	{"huge", 20000, 12, false},
}

func main() {
	outputDir := filepath.Join("testdata", "benchmark")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d records)...\n", ds.name, ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:      int64(ds.size), // reproducible per size
			Clusters:  ds.clusters,
			Spread:    1.5,
			Extent:    40,
			WithInput: true,
		})
		records := gen.Records(ds.size)

		jsonl := testutil.ToJSONL(records)
		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d bytes)\n", outputPath, len(jsonl))

		if ds.sqlite {
			dbPath := filepath.Join(outputDir, ds.name+".db")
			_ = os.Remove(dbPath)
			if err := datasource.SaveSQLite(dbPath, records); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dbPath, err)
				os.Exit(1)
			}
			fmt.Printf("  Written %s\n", dbPath)
		}
	}

	fmt.Println("\nDone! Datasets created in", outputDir)
}
