package importer

import (
	"fmt"
	"io"

	"github.com/cleared-dev/ledgerkit/internal/locale"
	"github.com/cleared-dev/ledgerkit/internal/model"
	"github.com/cleared-dev/ledgerkit/internal/tabular"
)

// Enterprise (SCI) CSV columns:
// Date comptable;Date opération;Libellé;Référence;Informations complémentaires;
// Type opération;Débit;Crédit;Date de valeur;Pointage
const (
	entColAccountingDate = iota
	entColOperationDate
	entColLabel
	entColReference
	entColInfo
	entColType
	entColDebit
	entColCredit
	entColValueDate
	entColPointage
	entMinCols = entColCredit + 1
)

// EnterpriseParser parses the ten-column business account export used by
// property companies. It carries no bank categories.
type EnterpriseParser struct{}

func (p *EnterpriseParser) Key() string { return "sci" }

func (p *EnterpriseParser) Parse(r io.Reader) (model.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("reading sci export: %w", err)
	}
	rows := tabular.DecodeBytes(data, tabular.DefaultDelimiter)
	if len(rows) == 0 {
		return model.ParseResult{}, nil
	}

	start := 0
	if rowHas(rows[0], "libelle", "pointage", "date comptable") {
		start = 1
	}

	var result model.ParseResult
	for _, row := range rows[start:] {
		txn, ok := parseEnterpriseRow(row)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}
	return result, nil
}

func parseEnterpriseRow(row []string) (model.ParsedTransaction, bool) {
	if len(row) < entMinCols {
		return model.ParsedTransaction{}, false
	}
	date, ok := locale.ParseDate(tabular.Field(row, entColOperationDate), locale.LayoutDMY)
	if !ok {
		date, ok = locale.ParseDate(tabular.Field(row, entColAccountingDate), locale.LayoutDMY)
		if !ok {
			return model.ParsedTransaction{}, false
		}
	}

	debit := locale.ParseAmount(tabular.Field(row, entColDebit)).Abs()
	credit := locale.ParseAmount(tabular.Field(row, entColCredit)).Abs()
	amount, kind, ok := mergeDebitCredit(debit, credit)
	if !ok {
		return model.ParsedTransaction{}, false
	}

	txn := model.ParsedTransaction{
		Date:        date,
		Description: locale.CleanDescription(tabular.Field(row, entColLabel)),
		Amount:      amount,
		Kind:        kind,
		Reference:   tabular.Field(row, entColReference),
		Reconciled:  isPointed(tabular.Field(row, entColPointage)),
	}
	if vd, ok := locale.ParseDate(tabular.Field(row, entColValueDate), locale.LayoutDMY); ok {
		txn.ValueDate = &vd
	}

	var opType string
	if t := tabular.Field(row, entColType); t != "" {
		opType = "Type: " + t
	}
	txn.AdditionalInfo = joinInfo(opType, tabular.Field(row, entColInfo))
	return txn, true
}
