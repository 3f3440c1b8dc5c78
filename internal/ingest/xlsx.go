package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/evidex/trialqa/internal/model"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// LoadXLSX reads a record batch from the first sheet of an XLSX workbook.
func LoadXLSX(path string) (*model.RecordBatch, error) {
	return LoadXLSXSheet(path, XLSXOptions{})
}

// LoadXLSXSheet reads a record batch from the selected sheet. The first row
// must be a header; the header decides the record shape.
func LoadXLSXSheet(path string, opts XLSXOptions) (*model.RecordBatch, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	if len(rows) == 0 {
		return nil, eris.New("ingest: xlsx sheet is empty")
	}

	batch := &model.RecordBatch{}
	batch.SingleArm, batch.Comparative = fromRows(rows[0], rows[1:])
	finishBatch(batch, path)
	return batch, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}
