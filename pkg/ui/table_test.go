package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/pairplot/pkg/model"
)

func instructionViews(n int) []model.InstructionView {
	views := make([]model.InstructionView, n)
	for i := range views {
		views[i] = model.InstructionView{
			Instruction: "instruction text",
			Position:    i,
			Index:       i * 10,
		}
	}
	return views
}

func TestRecordTable_Paging(t *testing.T) {
	tbl := NewInstructionTable(6)
	tbl.SetInstructions(instructionViews(14))

	if page, total := tbl.Page(); page != 0 || total != 3 {
		t.Fatalf("page = %d/%d, want 0/3", page, total)
	}
	tbl.NextPage()
	tbl.NextPage()
	if page, _ := tbl.Page(); page != 2 {
		t.Fatalf("page = %d, want 2", page)
	}
	tbl.NextPage()
	if page, _ := tbl.Page(); page != 2 {
		t.Errorf("NextPage past the end moved to %d", page)
	}

	// Last page holds two rows; the cursor cannot leave them.
	tbl.MoveCursor(5)
	row, ok := tbl.Focused()
	if !ok || row.Index != 130 {
		t.Errorf("focused = %+v, %v; want index 130", row, ok)
	}

	tbl.PrevPage()
	if page, _ := tbl.Page(); page != 1 {
		t.Errorf("page = %d, want 1", page)
	}
}

func TestRecordTable_ShrinkKeepsValidPage(t *testing.T) {
	tbl := NewInstructionTable(6)
	tbl.SetInstructions(instructionViews(20))
	tbl.NextPage()
	tbl.NextPage()
	tbl.NextPage()

	tbl.SetInstructions(instructionViews(4))
	if page, total := tbl.Page(); page != 0 || total != 1 {
		t.Errorf("page = %d/%d, want 0/1", page, total)
	}

	tbl.SetInstructions(nil)
	if page, total := tbl.Page(); page != 0 || total != 1 {
		t.Errorf("empty table page = %d/%d, want 0/1", page, total)
	}
	if _, ok := tbl.Focused(); ok {
		t.Error("empty table should have no focused row")
	}
}

func TestRecordTable_View(t *testing.T) {
	tbl := NewOutputTable(6)
	tbl.SetWidth(60)
	tbl.SetOutputs([]model.OutputView{
		{Output: "first answer", OutputX: 1.5, OutputY: 2, Index: 3},
		{Output: "second\nanswer", Index: 7, Position: 1},
	})

	out := tbl.View(TestTheme(), true)
	for _, want := range []string{"Answers", "2 total data", "first answer", "second answer", "1.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "page") {
		t.Error("single page table should not show a pager")
	}

	empty := NewOutputTable(6)
	if out := empty.View(TestTheme(), false); !strings.Contains(out, "no data") || !strings.Contains(out, "0 total data") {
		t.Errorf("empty view = %q", out)
	}
}

func TestRecordTable_ColumnWidths(t *testing.T) {
	tbl := NewInstructionTable(6)
	tbl.SetWidth(80)
	widths := tbl.columnWidths()

	sum := len(widths) - 1
	for _, w := range widths {
		sum += w
	}
	if sum != 80 {
		t.Errorf("columns span %d cells, want 80 (%v)", sum, widths)
	}
}

func TestFitCell(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"a\n b", 4, "a b "},
		{"日本語", 5, "日本…"},
	}
	for _, tc := range tests {
		if got := fitCell(tc.in, tc.width); got != tc.want {
			t.Errorf("fitCell(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
