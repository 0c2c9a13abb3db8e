// Package model defines the instruction/output record and the per-role views
// emitted to consumers when points are selected on the plot.
package model

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Record is one instruction/output pair with its precomputed embedding
// coordinates and text metrics.
type Record struct {
	Instruction           string  `json:"instruction"`
	Input                 string  `json:"input"`
	Output                string  `json:"output"`
	InstructionX          float64 `json:"instruction_x"`
	InstructionY          float64 `json:"instruction_y"`
	OutputX               float64 `json:"output_x"`
	OutputY               float64 `json:"output_y"`
	InstructionWordCount  int     `json:"instruction_word_count"`
	InstructionAvgWordLen float64 `json:"instruction_avg_word_len"`
	OutputWordCount       int     `json:"output_word_count"`
	OutputAvgWordLen      float64 `json:"output_avg_word_len"`

	// Index is the stable position assigned at load time. It is never reused
	// after other records are deleted.
	Index int `json:"idx"`
}

// HasCoordinates reports whether all four plot coordinates are finite.
func (r Record) HasCoordinates() bool {
	for _, v := range []float64{r.InstructionX, r.InstructionY, r.OutputX, r.OutputY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Contains reports whether text occurs in the instruction, input or output.
func (r Record) Contains(text string, caseInsensitive bool) bool {
	if !caseInsensitive {
		return strings.Contains(r.Instruction, text) ||
			strings.Contains(r.Input, text) ||
			strings.Contains(r.Output, text)
	}
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(r.Instruction), needle) ||
		strings.Contains(strings.ToLower(r.Input), needle) ||
		strings.Contains(strings.ToLower(r.Output), needle)
}

// Patch carries an edit to a record's text fields. Nil fields are left alone.
type Patch struct {
	Instruction *string `json:"instruction,omitempty"`
	Input       *string `json:"input,omitempty"`
	Output      *string `json:"output,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Instruction == nil && p.Input == nil && p.Output == nil
}

// Apply returns a copy of r with the patch merged in. Word metrics are
// recomputed for the side whose text changed; coordinates are kept.
func (r Record) Apply(p Patch) Record {
	out := r
	instructionChanged := false
	if p.Instruction != nil {
		out.Instruction = *p.Instruction
		instructionChanged = true
	}
	if p.Input != nil {
		out.Input = *p.Input
		instructionChanged = true
	}
	if p.Output != nil {
		out.Output = *p.Output
		out.OutputWordCount, out.OutputAvgWordLen = WordMetrics(out.Output)
	}
	if instructionChanged {
		out.InstructionWordCount, out.InstructionAvgWordLen = WordMetrics(strings.TrimSpace(out.Instruction + " " + out.Input))
	}
	return out
}

// WordMetrics returns the number of whitespace separated words in text and
// their average length in runes.
func WordMetrics(text string) (count int, avg float64) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0, 0
	}
	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w)
	}
	return len(words), float64(total) / float64(len(words))
}

// String helps build patches from literals.
func String(s string) *string { return &s }
