// Package spreadsheet exposes XLSX workbooks as typed cell grids.
//
// Cells are read raw: a date formatted cell comes back as its serial number,
// and converting it is left to the institution parser.
package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellType is the type of a decoded cell.
type CellType int

const (
	CellEmpty CellType = iota
	CellString
	CellNumber
)

// Cell is a single typed value.
type Cell struct {
	Type   CellType
	Text   string  // raw text, trimmed
	Number float64 // set when Type == CellNumber
}

// IsEmpty reports whether the cell holds nothing.
func (c Cell) IsEmpty() bool { return c.Type == CellEmpty }

// Workbook is an opened XLSX file.
type Workbook struct {
	file *excelize.File
}

// Open reads a workbook from r.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

// Close releases resources held by the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Sheet loads the used range of the named sheet.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return &Sheet{name: name, rows: rows, cols: cols}, nil
}

// Sheet is the used range of one worksheet.
type Sheet struct {
	name string
	rows [][]string
	cols int
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Bounds returns the number of rows and columns of the used range.
func (s *Sheet) Bounds() (rows, cols int) {
	return len(s.rows), s.cols
}

// Cell returns the cell at the 0-based (row, col). Out-of-range
// coordinates yield an empty cell.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.rows) || col < 0 || col >= len(s.rows[row]) {
		return Cell{}
	}
	return classify(s.rows[row][col])
}

// classify types a raw cell. Only finite values are numbers: "NaN" or
// "Inf" typed into a cell stays text.
func classify(raw string) Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Cell{}
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return Cell{Type: CellNumber, Text: text, Number: n}
	}
	return Cell{Type: CellString, Text: text}
}
