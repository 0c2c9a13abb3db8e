// Package testutil provides dataset fixture generators and assertions.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/pairplot/pkg/model"
)

// GeneratorConfig controls record generation.
type GeneratorConfig struct {
	Seed      int64   // Random seed for determinism (0 = fixed default seed)
	Clusters  int     // Number of embedding clusters per role (default: 3)
	Spread    float64 // Standard deviation of points around a cluster centre (default: 1)
	Extent    float64 // Cluster centres are drawn from [-Extent, Extent] (default: 10)
	WithInput bool    // Fill the optional input field
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		Clusters: 3,
		Spread:   1,
		Extent:   10,
	}
}

// Generator creates synthetic instruction/output datasets.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.Clusters <= 0 {
		cfg.Clusters = 3
	}
	if cfg.Spread <= 0 {
		cfg.Spread = 1
	}
	if cfg.Extent <= 0 {
		cfg.Extent = 10
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

var (
	verbs    = []string{"Summarize", "Translate", "Explain", "List", "Rewrite", "Classify"}
	subjects = []string{"the paragraph", "this sentence", "photosynthesis", "the poem", "a recipe", "the error"}
	answers  = []string{"Sure", "Here is", "The answer is", "In short", "Plants convert light", "It means"}
)

// Records generates n records with coordinates scattered around cluster
// centres. Indices are assigned 0..n-1.
func (g *Generator) Records(n int) []model.Record {
	inCentres := g.centres()
	outCentres := g.centres()

	records := make([]model.Record, n)
	for i := 0; i < n; i++ {
		c := i % g.cfg.Clusters
		r := model.Record{
			Instruction: fmt.Sprintf("%s %s #%d", verbs[g.rng.Intn(len(verbs))], subjects[g.rng.Intn(len(subjects))], i),
			Output:      fmt.Sprintf("%s response %d", answers[g.rng.Intn(len(answers))], i),
			Index:       i,
		}
		if g.cfg.WithInput && g.rng.Intn(2) == 0 {
			r.Input = fmt.Sprintf("context %d", i)
		}
		r.InstructionX = inCentres[c][0] + g.rng.NormFloat64()*g.cfg.Spread
		r.InstructionY = inCentres[c][1] + g.rng.NormFloat64()*g.cfg.Spread
		r.OutputX = outCentres[c][0] + g.rng.NormFloat64()*g.cfg.Spread
		r.OutputY = outCentres[c][1] + g.rng.NormFloat64()*g.cfg.Spread
		r.InstructionWordCount, r.InstructionAvgWordLen = model.WordMetrics(strings.TrimSpace(r.Instruction + " " + r.Input))
		r.OutputWordCount, r.OutputAvgWordLen = model.WordMetrics(r.Output)
		records[i] = r
	}
	return records
}

func (g *Generator) centres() [][2]float64 {
	out := make([][2]float64, g.cfg.Clusters)
	for i := range out {
		out[i] = [2]float64{
			(g.rng.Float64()*2 - 1) * g.cfg.Extent,
			(g.rng.Float64()*2 - 1) * g.cfg.Extent,
		}
	}
	return out
}

// Grid builds records whose coordinates are exact: record i has
// instruction (i, instructionY[i]) and output (i, outputY[i]).
func Grid(instructionY, outputY []float64) []model.Record {
	n := len(instructionY)
	if len(outputY) < n {
		n = len(outputY)
	}
	records := make([]model.Record, n)
	for i := 0; i < n; i++ {
		records[i] = model.Record{
			Instruction:  fmt.Sprintf("instruction %d", i),
			Output:       fmt.Sprintf("output %d", i),
			InstructionX: float64(i),
			InstructionY: instructionY[i],
			OutputX:      float64(i),
			OutputY:      outputY[i],
			Index:        i,
		}
		records[i].InstructionWordCount, records[i].InstructionAvgWordLen = model.WordMetrics(records[i].Instruction)
		records[i].OutputWordCount, records[i].OutputAvgWordLen = model.WordMetrics(records[i].Output)
	}
	return records
}

// ToJSONL converts records to JSONL format (one JSON object per line).
func ToJSONL(records []model.Record) string {
	var sb strings.Builder
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToJSONArray converts records to a single JSON array.
func ToJSONArray(records []model.Record) string {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// QuickRecords generates n records with the default config.
func QuickRecords(n int) []model.Record {
	return NewDefault().Records(n)
}

// Empty returns an empty dataset.
func Empty() []model.Record {
	return []model.Record{}
}

// Single returns a dataset with one record.
func Single() []model.Record {
	return Grid([]float64{1}, []float64{1})
}
