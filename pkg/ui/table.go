package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"

	"github.com/vanderheijden86/pairplot/pkg/model"
)

type column struct {
	title string
	width int // 0 means flexible
}

// tableRow is one rendered row. Index is the stable record index and
// Position the rendered series position.
type tableRow struct {
	Index    int
	Position int
	Cells    []string
}

// RecordTable is a paged table of instruction or output views.
type RecordTable struct {
	title   string
	columns []column
	rows    []tableRow
	pager   paginator.Model
	cursor  int
	width   int
}

func newRecordTable(title string, columns []column, pageSize int) RecordTable {
	p := paginator.New()
	p.Type = paginator.Arabic
	p.PerPage = max(pageSize, 1)
	return RecordTable{title: title, columns: columns, pager: p, width: 80}
}

// NewInstructionTable returns the Instructions table.
func NewInstructionTable(pageSize int) RecordTable {
	return newRecordTable("Instructions", []column{
		{title: "#", width: 5},
		{title: "Instruction"},
		{title: "Input"},
		{title: "x", width: 8},
		{title: "y", width: 8},
		{title: "words", width: 5},
	}, pageSize)
}

// NewOutputTable returns the Answers table.
func NewOutputTable(pageSize int) RecordTable {
	return newRecordTable("Answers", []column{
		{title: "#", width: 5},
		{title: "Output"},
		{title: "x", width: 8},
		{title: "y", width: 8},
		{title: "words", width: 5},
	}, pageSize)
}

// SetInstructions replaces the rows with instruction views.
func (t *RecordTable) SetInstructions(views []model.InstructionView) {
	rows := make([]tableRow, len(views))
	for i, v := range views {
		rows[i] = tableRow{
			Index:    v.Index,
			Position: v.Position,
			Cells: []string{
				strconv.Itoa(v.Index),
				v.Instruction,
				v.Input,
				formatFloat(v.InstructionX),
				formatFloat(v.InstructionY),
				strconv.Itoa(v.InstructionWordCount),
			},
		}
	}
	t.setRows(rows)
}

// SetOutputs replaces the rows with output views.
func (t *RecordTable) SetOutputs(views []model.OutputView) {
	rows := make([]tableRow, len(views))
	for i, v := range views {
		rows[i] = tableRow{
			Index:    v.Index,
			Position: v.Position,
			Cells: []string{
				strconv.Itoa(v.Index),
				v.Output,
				formatFloat(v.OutputX),
				formatFloat(v.OutputY),
				strconv.Itoa(v.OutputWordCount),
			},
		}
	}
	t.setRows(rows)
}

// setRows keeps the current page when it still exists.
func (t *RecordTable) setRows(rows []tableRow) {
	t.rows = rows
	// SetTotalPages ignores an empty item count.
	t.pager.TotalPages = 1
	t.pager.SetTotalPages(len(rows))
	if t.pager.Page >= t.pager.TotalPages {
		t.pager.Page = t.pager.TotalPages - 1
	}
	t.clampCursor()
}

// SetPageSize changes the page size and returns to the first page.
func (t *RecordTable) SetPageSize(n int) {
	t.pager.PerPage = max(n, 1)
	t.pager.Page = 0
	t.setRows(t.rows)
}

// SetWidth sets the rendered width in cells.
func (t *RecordTable) SetWidth(w int) { t.width = max(w, 20) }

// Len returns the total number of rows.
func (t RecordTable) Len() int { return len(t.rows) }

// Page returns the zero-based page and the page count.
func (t RecordTable) Page() (int, int) { return t.pager.Page, t.pager.TotalPages }

// NextPage advances one page.
func (t *RecordTable) NextPage() {
	t.pager.NextPage()
	t.clampCursor()
}

// PrevPage goes back one page.
func (t *RecordTable) PrevPage() {
	t.pager.PrevPage()
	t.clampCursor()
}

// MoveCursor moves the row cursor within the current page.
func (t *RecordTable) MoveCursor(delta int) {
	t.cursor += delta
	t.clampCursor()
}

func (t *RecordTable) clampCursor() {
	start, end := t.pager.GetSliceBounds(len(t.rows))
	t.cursor = clamp(t.cursor, 0, max(end-start-1, 0))
}

// Focused returns the row under the cursor.
func (t RecordTable) Focused() (tableRow, bool) {
	start, end := t.pager.GetSliceBounds(len(t.rows))
	if start+t.cursor >= end {
		return tableRow{}, false
	}
	return t.rows[start+t.cursor], true
}

func (t RecordTable) columnWidths() []int {
	fixed, flex := 0, 0
	for _, c := range t.columns {
		if c.width == 0 {
			flex++
		} else {
			fixed += c.width
		}
	}
	gaps := len(t.columns) - 1
	rest := max(t.width-fixed-gaps, flex*6)
	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		if c.width != 0 {
			widths[i] = c.width
			continue
		}
		// The first flexible column gets the remainder.
		widths[i] = rest / flex
	}
	for i, c := range t.columns {
		if c.width == 0 {
			widths[i] += rest % flex
			break
		}
	}
	return widths
}

// View renders the table. focused highlights the cursor row.
func (t RecordTable) View(theme Theme, focused bool) string {
	widths := t.columnWidths()

	var sb strings.Builder
	sb.WriteString(theme.Header.Render(fmt.Sprintf("%s  %d total data", t.title, len(t.rows))))
	sb.WriteByte('\n')

	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		header[i] = fitCell(c.title, widths[i])
	}
	sb.WriteString(theme.Muted.Render(strings.Join(header, " ")))

	start, end := t.pager.GetSliceBounds(len(t.rows))
	if start >= end {
		sb.WriteByte('\n')
		sb.WriteString(theme.Muted.Render("no data"))
	}
	for i, row := range t.rows[start:end] {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = fitCell(c, widths[j])
		}
		line := strings.Join(cells, " ")
		sb.WriteByte('\n')
		if focused && i == t.cursor {
			sb.WriteString(theme.Selected.Render(line))
		} else {
			sb.WriteString(theme.Base.Render(line))
		}
	}
	if t.pager.TotalPages > 1 {
		sb.WriteByte('\n')
		sb.WriteString(theme.Muted.Render("page " + t.pager.View()))
	}
	return sb.String()
}
