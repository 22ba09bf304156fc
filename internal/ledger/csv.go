package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// Header is the CSV header of a per-account transactions file.
const Header = "transaction_id,account_id,source,date,value_date,description,amount,kind,raw_category,reference,additional_info,reconciled,position,category_id,category_source,rule_id,import_id,imported_at"

const (
	numFields     = 18
	dateFormat    = "2006-01-02"
	colID         = 0
	colAcctID     = 1
	colSource     = 2
	colDate       = 3
	colValueDate  = 4
	colDesc       = 5
	colAmount     = 6
	colKind       = 7
	colRawCat     = 8
	colRef        = 9
	colInfo       = 10
	colReconciled = 11
	colPosition   = 12
	colCatID      = 13
	colCatSource  = 14
	colRuleID     = 15
	colImportID   = 16
	colImportedAt = 17
)

// ReadTransactions reads all rows from a transactions CSV reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes txns to w, including the header.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colAcctID] = t.AccountID
	row[colSource] = t.Source
	row[colDate] = t.Date.Format(dateFormat)
	if t.ValueDate != nil {
		row[colValueDate] = t.ValueDate.Format(dateFormat)
	}
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colKind] = string(t.Kind)
	row[colRawCat] = t.RawCategory
	row[colRef] = t.Reference
	row[colInfo] = t.AdditionalInfo
	row[colReconciled] = strconv.FormatBool(t.Reconciled)
	row[colPosition] = strconv.Itoa(t.Position)
	if t.CategoryID != 0 {
		row[colCatID] = strconv.Itoa(t.CategoryID)
	}
	row[colCatSource] = string(t.CategorySource)
	row[colRuleID] = t.RuleID
	row[colImportID] = t.ImportID
	if !t.ImportedAt.IsZero() {
		row[colImportedAt] = t.ImportedAt.UTC().Format(time.RFC3339)
	}
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var valueDate *time.Time
	if record[colValueDate] != "" {
		vd, err := time.Parse(dateFormat, record[colValueDate])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing value_date %q: %w", record[colValueDate], err)
		}
		valueDate = &vd
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	reconciled, err := strconv.ParseBool(record[colReconciled])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing reconciled %q: %w", record[colReconciled], err)
	}

	position, err := strconv.Atoi(record[colPosition])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing position %q: %w", record[colPosition], err)
	}

	var categoryID int
	if record[colCatID] != "" {
		categoryID, err = strconv.Atoi(record[colCatID])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing category_id %q: %w", record[colCatID], err)
		}
	}

	var importedAt time.Time
	if record[colImportedAt] != "" {
		importedAt, err = time.Parse(time.RFC3339, record[colImportedAt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing imported_at %q: %w", record[colImportedAt], err)
		}
	}

	return model.Transaction{
		ID:             record[colID],
		AccountID:      record[colAcctID],
		Source:         record[colSource],
		Date:           date,
		ValueDate:      valueDate,
		Description:    record[colDesc],
		Amount:         amount,
		Kind:           model.Kind(record[colKind]),
		RawCategory:    record[colRawCat],
		Reference:      record[colRef],
		AdditionalInfo: record[colInfo],
		Reconciled:     reconciled,
		Position:       position,
		CategoryID:     categoryID,
		CategorySource: model.CategorySource(record[colCatSource]),
		RuleID:         record[colRuleID],
		ImportID:       record[colImportID],
		ImportedAt:     importedAt,
	}, nil
}
