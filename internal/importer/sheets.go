package importer

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/locale"
	"github.com/cleared-dev/ledgerkit/internal/model"
	"github.com/cleared-dev/ledgerkit/internal/spreadsheet"
)

// SheetLayout describes where an institution's spreadsheet export keeps its
// transactions. Absent columns are -1.
type SheetLayout struct {
	Key         string
	SheetPrefix string // only sheets whose name starts with this are read
	SkipRows    int    // metadata and header rows before the first transaction
	DateLayout  string // for dates stored as text; serial numbers are always accepted
	DateCol     int
	LabelCol    int
	OpTypeCol   int // operation type, prefixed to the description and translated
	DebitCol    int
	CreditCol   int
}

// SheetParser parses XLSX exports laid out per SheetLayout.
type SheetParser struct {
	layout SheetLayout
	vocab  prefixVocabulary
}

// NewCreditAgricoleParser handles Crédit Agricole XLSX exports: one sheet per
// account named "Compte ...", nine metadata rows, serial dates and
// Date/Libellé/Débit/Crédit columns.
func NewCreditAgricoleParser() *SheetParser {
	return &SheetParser{layout: SheetLayout{
		Key:         "ca",
		SheetPrefix: "Compte",
		SkipRows:    9,
		DateLayout:  locale.LayoutDMY,
		DateCol:     0,
		LabelCol:    1,
		OpTypeCol:   -1,
		DebitCol:    2,
		CreditCol:   3,
	}}
}

// NewBourseDirectParser handles Bourse Direct brokerage statements: sheets
// named "Relevé ...", three metadata rows, DD/MM/YYYY text dates and an
// operation type column.
func NewBourseDirectParser() *SheetParser {
	return &SheetParser{
		layout: SheetLayout{
			Key:         "boursedirect",
			SheetPrefix: "Relevé",
			SkipRows:    3,
			DateLayout:  locale.LayoutDMY,
			DateCol:     0,
			OpTypeCol:   1,
			LabelCol:    2,
			DebitCol:    3,
			CreditCol:   4,
		},
		vocab: bourseDirectVocab,
	}
}

func (p *SheetParser) Key() string { return p.layout.Key }

func (p *SheetParser) Parse(r io.Reader) (model.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("reading %s export: %w", p.layout.Key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.ParseResult{}, nil
	}

	wb, err := spreadsheet.Open(bytes.NewReader(data))
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("%w: %s: %v", ErrMalformedFile, p.layout.Key, err)
	}
	defer wb.Close()

	var result model.ParseResult
	for _, name := range wb.SheetNames() {
		if !strings.HasPrefix(fold(name), fold(p.layout.SheetPrefix)) {
			continue
		}
		sheet, err := wb.Sheet(name)
		if err != nil {
			return model.ParseResult{}, err
		}
		p.parseSheet(sheet, &result)
	}
	return result, nil
}

func (p *SheetParser) parseSheet(sheet *spreadsheet.Sheet, result *model.ParseResult) {
	rows, _ := sheet.Bounds()
	for i := p.layout.SkipRows; i < rows; i++ {
		if p.blankRow(sheet, i) {
			continue
		}
		txn, ok := p.parseRow(sheet, i)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}
}

func (p *SheetParser) blankRow(sheet *spreadsheet.Sheet, row int) bool {
	_, cols := sheet.Bounds()
	for c := 0; c < cols; c++ {
		if !sheet.Cell(row, c).IsEmpty() {
			return false
		}
	}
	return true
}

func (p *SheetParser) parseRow(sheet *spreadsheet.Sheet, row int) (model.ParsedTransaction, bool) {
	l := p.layout
	date, ok := cellDate(sheet.Cell(row, l.DateCol), l.DateLayout)
	if !ok {
		return model.ParsedTransaction{}, false
	}
	amount, kind, ok := mergeDebitCredit(cellAmount(sheet.Cell(row, l.DebitCol)), cellAmount(sheet.Cell(row, l.CreditCol)))
	if !ok {
		return model.ParsedTransaction{}, false
	}

	label := sheet.Cell(row, l.LabelCol).Text
	txn := model.ParsedTransaction{
		Date:   date,
		Amount: amount,
		Kind:   kind,
	}
	if l.OpTypeCol >= 0 {
		opType := sheet.Cell(row, l.OpTypeCol).Text
		label = strings.TrimSpace(opType + " " + label)
		txn.RawCategory = p.vocab.translate(opType)
		if txn.RawCategory == categories.Transfer {
			txn.Kind = model.KindTransfer
		}
	}
	txn.Description = locale.CleanDescription(label)
	return txn, true
}

// maxExcelSerial is the serial of 9999-12-31, the last date Excel stores.
const maxExcelSerial = 2958465

// cellDate accepts a serial date number or a text date in layout.
func cellDate(c spreadsheet.Cell, layout string) (time.Time, bool) {
	switch c.Type {
	case spreadsheet.CellNumber:
		if math.IsNaN(c.Number) || c.Number < 1 || c.Number > maxExcelSerial {
			return time.Time{}, false
		}
		return locale.ExcelSerialToDate(c.Number), true
	case spreadsheet.CellString:
		return locale.ParseDate(c.Text, layout)
	}
	return time.Time{}, false
}

// cellAmount reads a numeric cell, or a locale formatted text cell.
// Empty cells are zero.
func cellAmount(c spreadsheet.Cell) decimal.Decimal {
	switch c.Type {
	case spreadsheet.CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(c.Number).Round(2)
	case spreadsheet.CellString:
		return locale.ParseAmount(c.Text)
	}
	return decimal.Zero
}
