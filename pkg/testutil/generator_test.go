package testutil

import (
	"strings"
	"testing"
)

func TestRecordsDeterministic(t *testing.T) {
	a := NewDefault().Records(20)
	b := NewDefault().Records(20)
	AssertJSONEqual(t, a, b)
	AssertRecordCount(t, a, 20)
	AssertUniqueIndices(t, a)
	for i, r := range a {
		if r.Index != i {
			t.Fatalf("record %d has index %d", i, r.Index)
		}
		if !r.HasCoordinates() {
			t.Fatalf("record %d has non-finite coordinates", i)
		}
		if r.OutputWordCount == 0 {
			t.Fatalf("record %d has no output metrics", i)
		}
	}
}

func TestGrid(t *testing.T) {
	records := Grid([]float64{1, 2, 3}, []float64{5, 2})
	AssertRecordCount(t, records, 2)
	if records[1].InstructionY != 2 || records[1].OutputY != 2 || records[1].OutputX != 1 {
		t.Errorf("unexpected record %+v", records[1])
	}
}

func TestToJSONL(t *testing.T) {
	out := ToJSONL(QuickRecords(3))
	if n := strings.Count(out, "\n"); n != 3 {
		t.Fatalf("expected 3 lines, got %d", n)
	}
	if !strings.Contains(out, `"instruction_x"`) {
		t.Error("expected snake_case field names")
	}
}

func TestToJSONArray(t *testing.T) {
	if got := ToJSONArray(nil); got != "[]" {
		t.Errorf("ToJSONArray(nil) = %q", got)
	}
	if out := ToJSONArray(Single()); !strings.HasPrefix(out, "[{") {
		t.Errorf("unexpected array %q", out)
	}
}

func TestIndices(t *testing.T) {
	records := QuickRecords(4)
	records = append(records[:1], records[2:]...)
	AssertIndices(t, records, 0, 2, 3)
	if FindRecord(records, 1) != nil {
		t.Error("deleted record should not be found")
	}
	if r := FindRecord(records, 3); r == nil || r.Index != 3 {
		t.Error("expected to find record 3")
	}
}
