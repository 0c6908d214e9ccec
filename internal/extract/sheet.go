package extract

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/drivescope/internal/fault"
)

// decodeWorkbook parses every sheet of an XLSX workbook. The first row of
// each sheet becomes its headers and the remaining rows header-keyed
// records; resolved cell values are read as-is (no formula evaluation).
func decodeWorkbook(res *Result, data []byte) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return classifyWorkbookError(res.Name, err)
	}
	defer f.Close()

	var sheets []Sheet
	var text strings.Builder

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return fault.Wrap(fault.CodeParse, err, "read sheet %q of %s", name, res.Name)
		}
		sheet := buildSheet(name, rows)
		sheets = append(sheets, sheet)

		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString("## " + name + "\n")
		text.WriteString(sheet.CSV)
	}

	res.Sheets = sheets
	res.Text = text.String()
	return nil
}

func buildSheet(name string, rows [][]string) Sheet {
	sheet := Sheet{Name: name, RowCount: len(rows)}
	if len(rows) == 0 {
		return sheet
	}

	sheet.Headers = rows[0]
	sheet.ColumnCount = len(rows[0])
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(sheet.Headers))
		for i, h := range sheet.Headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		sheet.Records = append(sheet.Records, rec)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		// Pad short rows so every line has at least the header width.
		line := row
		if len(row) < sheet.ColumnCount {
			line = make([]string, sheet.ColumnCount)
			copy(line, row)
		}
		_ = w.Write(line)
	}
	w.Flush()
	sheet.CSV = buf.String()
	return sheet
}

func classifyWorkbookError(name string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "encrypt") || strings.Contains(msg, "password") {
		return fault.Wrap(fault.CodeEncrypted, err, "%s is password protected", name)
	}
	return fault.Wrap(fault.CodeParse, err, "parse workbook %s", name)
}
