package model

import (
	"math"
	"testing"
)

func TestWordMetrics(t *testing.T) {
	tests := []struct {
		text  string
		count int
		avg   float64
	}{
		{"", 0, 0},
		{"   ", 0, 0},
		{"hello", 1, 5},
		{"ab abcd", 2, 3},
		{"  spaced\tout\nwords ", 3, 5},
		{"héllo wörld", 2, 5},
	}
	for _, tt := range tests {
		count, avg := WordMetrics(tt.text)
		if count != tt.count || avg != tt.avg {
			t.Errorf("WordMetrics(%q) = (%d, %v), want (%d, %v)", tt.text, count, avg, tt.count, tt.avg)
		}
	}
}

func TestRecordContains(t *testing.T) {
	r := Record{Instruction: "Translate to French", Input: "cheese", Output: "Fromage"}

	if !r.Contains("French", false) {
		t.Error("expected instruction match")
	}
	if !r.Contains("chee", false) {
		t.Error("expected input match")
	}
	if r.Contains("fromage", false) {
		t.Error("case-sensitive search should not match lower-case output")
	}
	if !r.Contains("fromage", true) {
		t.Error("case-insensitive search should match output")
	}
	if r.Contains("german", true) {
		t.Error("unexpected match")
	}
}

func TestRecordHasCoordinates(t *testing.T) {
	r := Record{InstructionX: 1, InstructionY: 2, OutputX: 3, OutputY: 4}
	if !r.HasCoordinates() {
		t.Fatal("expected finite coordinates")
	}
	r.OutputY = math.NaN()
	if r.HasCoordinates() {
		t.Fatal("NaN coordinate should be reported")
	}
	r.OutputY = math.Inf(1)
	if r.HasCoordinates() {
		t.Fatal("Inf coordinate should be reported")
	}
}

func TestRecordApply(t *testing.T) {
	r := Record{
		Instruction:          "say hi",
		Output:               "hi",
		InstructionX:         1,
		InstructionY:         2,
		InstructionWordCount: 2,
		OutputWordCount:      1,
		OutputAvgWordLen:     2,
		Index:                7,
	}

	got := r.Apply(Patch{Output: String("hello there")})
	if got.Output != "hello there" {
		t.Fatalf("Output = %q", got.Output)
	}
	if got.OutputWordCount != 2 || got.OutputAvgWordLen != 5 {
		t.Errorf("output metrics = (%d, %v), want (2, 5)", got.OutputWordCount, got.OutputAvgWordLen)
	}
	if got.InstructionWordCount != 2 {
		t.Errorf("instruction metrics should be untouched, got %d", got.InstructionWordCount)
	}
	if got.Index != 7 || got.InstructionX != 1 || got.InstructionY != 2 {
		t.Errorf("index and coordinates must be kept: %+v", got)
	}
	if r.Output != "hi" {
		t.Error("Apply must not mutate the receiver")
	}

	got = r.Apply(Patch{Input: String("extra context")})
	if got.InstructionWordCount != 4 {
		t.Errorf("instruction word count = %d, want 4", got.InstructionWordCount)
	}
}

func TestPatchEmpty(t *testing.T) {
	if !(Patch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if (Patch{Input: String("")}).Empty() {
		t.Error("patch setting input to empty string is not empty")
	}
}

func TestRoleOther(t *testing.T) {
	if RoleInstruction.Other() != RoleOutput || RoleOutput.Other() != RoleInstruction {
		t.Fatal("Other should swap roles")
	}
	if RoleInstruction.String() != "instruction" || RoleOutput.String() != "output" {
		t.Fatalf("unexpected role names %q %q", RoleInstruction, RoleOutput)
	}
}

func TestViews(t *testing.T) {
	r := Record{Instruction: "i", Input: "in", Output: "o", InstructionX: 1, InstructionY: 2, OutputX: 3, OutputY: 4, Index: 9}
	iv := InstructionViewOf(r, 2, 42)
	if iv.InstructionY != 42 || iv.Position != 2 || iv.Index != 9 || iv.Input != "in" {
		t.Errorf("unexpected instruction view %+v", iv)
	}
	ov := OutputViewOf(r, 2)
	if ov.OutputY != 4 || ov.Position != 2 || ov.Index != 9 || ov.Output != "o" {
		t.Errorf("unexpected output view %+v", ov)
	}
}
