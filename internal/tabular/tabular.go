// Package tabular reconstructs tables from positioned text fragments, as
// produced by PDF layout extraction. It is pure and deterministic: no I/O,
// fixed tolerances, ties always resolved in original left-to-right,
// top-to-bottom order.
package tabular

import (
	"math"
	"sort"
	"strings"
)

// Fragment is a piece of text with its page position.
type Fragment struct {
	Text string
	X    float64
	Y    float64
	Page int
}

// Cell is one table cell with its grid coordinates.
type Cell struct {
	Text string
	Row  int
	Col  int
}

// Table is a reconstructed table. Every row has exactly len(Headers) cells;
// positions with no matching fragment hold the empty string.
type Table struct {
	Page    int
	Headers []string
	Rows    [][]string
	Cells   [][]Cell
}

// Config holds the clustering tolerances, in the source coordinate units.
type Config struct {
	RowTolerance    float64 // vertical distance treated as the same row
	AlignTolerance  float64 // horizontal distance treated as the same column when comparing rows
	ColumnTolerance float64 // horizontal distance for mapping a cell to a header column
}

// DefaultConfig returns the standard tolerances.
func DefaultConfig() Config {
	return Config{RowTolerance: 3, AlignTolerance: 20, ColumnTolerance: 30}
}

// Extract reconstructs tables from per-page fragment lists, in page order.
func Extract(pages [][]Fragment, cfg Config) []Table {
	var tables []Table
	for i, frags := range pages {
		for _, t := range ExtractPage(frags, cfg) {
			t.Page = i
			tables = append(tables, t)
		}
	}
	return tables
}

// ExtractPage reconstructs the tables of a single page.
func ExtractPage(frags []Fragment, cfg Config) []Table {
	rows := groupByRow(frags, cfg.RowTolerance)

	// Rows with fewer than 3 fragments are assumed to be prose, not table rows.
	tableRows := rows[:0:0]
	for _, r := range rows {
		if len(r) > 2 {
			tableRows = append(tableRows, r)
		}
	}
	if len(tableRows) < 2 {
		return nil
	}

	var tables []Table
	for _, block := range groupIntoBlocks(tableRows, cfg.AlignTolerance) {
		tables = append(tables, buildTable(block, cfg.ColumnTolerance))
	}
	return tables
}

// groupByRow clusters fragments into rows by vertical position. The first
// fragment of a row anchors its Y; fragments within tolerance join, a
// fragment outside it flushes the row. Whitespace-only fragments are
// dropped before grouping. Each finished row is ordered left to right.
func groupByRow(frags []Fragment, tolerance float64) [][]Fragment {
	sorted := make([]Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	var rows [][]Fragment
	var current []Fragment
	var anchorY float64

	flush := func() {
		if len(current) > 0 {
			sort.SliceStable(current, func(i, j int) bool { return current[i].X < current[j].X })
			rows = append(rows, current)
		}
	}

	for _, f := range sorted {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		if len(current) > 0 && math.Abs(f.Y-anchorY) <= tolerance {
			current = append(current, f)
			continue
		}
		flush()
		current = []Fragment{f}
		anchorY = f.Y
	}
	flush()
	return rows
}

// groupIntoBlocks merges consecutive rows that mutually align into table
// blocks. A non-aligning row closes the block (kept only with >= 2 rows)
// and opens a new one.
func groupIntoBlocks(rows [][]Fragment, tolerance float64) [][][]Fragment {
	var blocks [][][]Fragment
	var current [][]Fragment

	for _, row := range rows {
		if len(current) == 0 || rowsAlign(current[len(current)-1], row, tolerance) {
			current = append(current, row)
			continue
		}
		if len(current) >= 2 {
			blocks = append(blocks, current)
		}
		current = [][]Fragment{row}
	}
	if len(current) >= 2 {
		blocks = append(blocks, current)
	}
	return blocks
}

// rowsAlign reports whether two rows look like rows of the same table:
// fragment counts within 2 of each other, and at least half the fragments
// of the smaller row sharing a horizontal position.
func rowsAlign(a, b []Fragment, tolerance float64) bool {
	diff := len(a) - len(b)
	if diff < -2 || diff > 2 {
		return false
	}
	aligned := 0
	for _, fa := range a {
		for _, fb := range b {
			if math.Abs(fa.X-fb.X) <= tolerance {
				aligned++
				break
			}
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(aligned) >= float64(smaller)*0.5
}

// buildTable turns a block into a Table. The first row supplies the
// headers; each following row is mapped onto header columns by horizontal
// position, left to right.
func buildTable(block [][]Fragment, tolerance float64) Table {
	headerRow := block[0]
	headers := make([]string, len(headerRow))
	for i, f := range headerRow {
		headers[i] = strings.TrimSpace(f.Text)
	}

	rows := make([][]string, 0, len(block)-1)
	for _, fr := range block[1:] {
		cells := make([]string, len(headers))
		idx := 0
		for col := range headers {
			if idx < len(fr) && math.Abs(fr[idx].X-headerRow[col].X) <= tolerance {
				cells[col] = strings.TrimSpace(fr[idx].Text)
				idx++
			}
		}
		rows = append(rows, cells)
	}

	cells := make([][]Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]Cell, len(headers))
		for c := range headers {
			cells[r][c] = Cell{Text: row[c], Row: r, Col: c}
		}
	}

	return Table{Headers: headers, Rows: rows, Cells: cells}
}

// Markdown renders the table as a Markdown pipe table.
func (t Table) Markdown() string {
	if len(t.Headers) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(t.Headers, " | ") + " |\n")
	sb.WriteString("|")
	for range t.Headers {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for _, row := range t.Rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String()
}

// Records renders the table rows as header-keyed maps.
func (t Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			rec[h] = row[i]
		}
		records = append(records, rec)
	}
	return records
}
