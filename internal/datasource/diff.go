package datasource

import (
	"fmt"

	"github.com/vanderheijden86/pairplot/pkg/model"
)

// RecordDiff summarizes how a reloaded dataset differs from the previous one.
// Records are matched by load position.
type RecordDiff struct {
	CountA  int
	CountB  int
	Added   int
	Removed int
	// Changed lists positions whose text or coordinates differ.
	Changed []int
}

// HasChanges returns true if the datasets differ
func (d RecordDiff) HasChanges() bool {
	return d.Added > 0 || d.Removed > 0 || len(d.Changed) > 0
}

// Summary returns a one-line human-readable summary
func (d RecordDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("no changes (%d records)", d.CountB)
	}
	return fmt.Sprintf("%d records (+%d -%d ~%d)", d.CountB, d.Added, d.Removed, len(d.Changed))
}

// DiffRecords compares two loads of the same dataset.
func DiffRecords(a, b []model.Record) RecordDiff {
	d := RecordDiff{CountA: len(a), CountB: len(b)}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if !sameRecord(a[i], b[i]) {
			d.Changed = append(d.Changed, i)
		}
	}
	if len(b) > len(a) {
		d.Added = len(b) - len(a)
	} else {
		d.Removed = len(a) - len(b)
	}
	return d
}

func sameRecord(a, b model.Record) bool {
	return a.Instruction == b.Instruction &&
		a.Input == b.Input &&
		a.Output == b.Output &&
		sameFloat(a.InstructionX, b.InstructionX) &&
		sameFloat(a.InstructionY, b.InstructionY) &&
		sameFloat(a.OutputX, b.OutputX) &&
		sameFloat(a.OutputY, b.OutputY)
}

// sameFloat treats two NaNs as equal.
func sameFloat(a, b float64) bool {
	return a == b || (a != a && b != b)
}
