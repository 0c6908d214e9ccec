package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/fault"
)

const a1Hint = "Use an A1 notation range like Sheet1!A1:C10."

// CellValue is one cell with its A1-notation location.
type CellValue struct {
	Value    string `json:"value"`
	Location string `json:"location"`
}

// SheetRange is a rectangular window of one sheet. The first row of the
// window supplies the column headers; Data holds the rows below it.
type SheetRange struct {
	SheetName     string        `json:"sheetName"`
	ColumnHeaders []CellValue   `json:"columnHeaders,omitempty"`
	Data          [][]CellValue `json:"data"`
	TotalRows     int           `json:"totalRows"`
	TotalColumns  int           `json:"totalColumns"`
}

// ReadSheet reads one sheet of a spreadsheet, optionally restricted to an
// A1-notation range like "Sheet1!A1:C10", a bare sheet name, or a cell
// range on the first sheet. Native spreadsheets go through the store's
// XLSX export; regular workbook files are downloaded, subject to the
// extraction size ceiling.
func (e *Extractor) ReadSheet(ctx context.Context, id, rng string) (*SheetRange, error) {
	node, err := e.store.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case node.MimeType == drive.MimeSpreadsheet:
		content, err := e.store.Export(ctx, node.ID, mimeXLSX)
		if err != nil {
			return nil, err
		}
		data = []byte(content)
	case formatFor(node.MimeType, node.Name) == FormatWorkbook:
		if node.Size > e.cfg.MaxDocumentBytes {
			return nil, fault.New(fault.CodeSizeLimit,
				"%s is %.1f MB, over the %.1f MB extraction ceiling",
				node.Name, mb(node.Size), mb(e.cfg.MaxDocumentBytes))
		}
		data, err = e.store.Download(ctx, node.ID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fault.New(fault.CodeNotExport, "%s is not a spreadsheet", node.Name).
			WithHint("Use drive_read_file for non-spreadsheet content.")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, classifyWorkbookError(node.Name, err)
	}
	defer f.Close()

	sheet, win, err := resolveWindow(f, rng)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fault.Wrap(fault.CodeParse, err, "read sheet %q of %s", sheet, node.Name)
	}
	return buildSheetRange(sheet, rows, win), nil
}

// window is a 1-based inclusive cell rectangle; the zero value means the
// whole sheet.
type window struct {
	c1, r1, c2, r2 int
}

// resolveWindow parses the range and validates the sheet against the
// workbook, defaulting to its first sheet.
func resolveWindow(f *excelize.File, rng string) (string, window, error) {
	sheet, win, err := parseA1Range(rng)
	if err != nil {
		return "", window{}, err
	}
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return "", window{}, fault.New(fault.CodeParse, "workbook has no sheets")
		}
		sheet = list[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return "", window{}, fault.New(fault.CodeInvalidRange, "sheet %q not found", sheet).WithHint(a1Hint)
	}
	return sheet, win, nil
}

// parseA1Range splits "Sheet1!A1:C10" into its sheet and cell window. A
// bare sheet name or empty range selects a whole sheet; a single cell is
// a one-cell window.
func parseA1Range(rng string) (string, window, error) {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return "", window{}, nil
	}

	sheet := ""
	cells := rng
	if i := strings.IndexByte(rng, '!'); i >= 0 {
		sheet = strings.Trim(rng[:i], "'")
		cells = rng[i+1:]
		if sheet == "" {
			return "", window{}, fault.New(fault.CodeInvalidRange, "invalid range %q", rng).WithHint(a1Hint)
		}
		if cells == "" {
			return sheet, window{}, nil
		}
	}

	parts := strings.SplitN(cells, ":", 2)
	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		// Not a cell reference: a bare token is a sheet name.
		if sheet == "" && len(parts) == 1 {
			return strings.Trim(cells, "'"), window{}, nil
		}
		return "", window{}, fault.Wrap(fault.CodeInvalidRange, err, "invalid range %q", rng).WithHint(a1Hint)
	}

	win := window{c1: c1, r1: r1, c2: c1, r2: r1}
	if len(parts) == 2 {
		c2, r2, err := excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return "", window{}, fault.Wrap(fault.CodeInvalidRange, err, "invalid range %q", rng).WithHint(a1Hint)
		}
		win.c2, win.r2 = c2, r2
	}
	if win.c2 < win.c1 {
		win.c1, win.c2 = win.c2, win.c1
	}
	if win.r2 < win.r1 {
		win.r1, win.r2 = win.r2, win.r1
	}
	return sheet, win, nil
}

func buildSheetRange(sheet string, rows [][]string, win window) *SheetRange {
	if win.r1 == 0 {
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		win = window{c1: 1, r1: 1, c2: width, r2: len(rows)}
	}
	if win.r2 > len(rows) {
		win.r2 = len(rows)
	}

	sr := &SheetRange{SheetName: sheet}
	if win.r1 > win.r2 || win.c1 > win.c2 {
		return sr
	}

	grid := make([][]CellValue, 0, win.r2-win.r1+1)
	for r := win.r1; r <= win.r2; r++ {
		row := rows[r-1]
		line := make([]CellValue, 0, win.c2-win.c1+1)
		for c := win.c1; c <= win.c2; c++ {
			val := ""
			if c-1 < len(row) {
				val = row[c-1]
			}
			name, _ := excelize.CoordinatesToCellName(c, r)
			line = append(line, CellValue{Value: val, Location: sheet + "!" + name})
		}
		grid = append(grid, line)
	}

	sr.TotalRows = len(grid)
	sr.TotalColumns = win.c2 - win.c1 + 1
	sr.ColumnHeaders = grid[0]
	sr.Data = grid[1:]
	return sr
}
