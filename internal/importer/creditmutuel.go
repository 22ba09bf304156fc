package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/locale"
	"github.com/cleared-dev/ledgerkit/internal/model"
	"github.com/cleared-dev/ledgerkit/internal/tabular"
)

// cmLayout is one of the column arrangements Crédit Mutuel exports use.
// Absent columns are -1.
type cmLayout struct {
	name        string
	date        int
	valueDate   int
	label       int
	reference   int
	debit       int
	credit      int
	category    int
	subcategory int
	pointage    int
	minCols     int
}

// Personal accounts:
// Date;Date de valeur;Libellé;Débit;Crédit;Catégorie;Sous-catégorie;Solde
var cmPersonal = cmLayout{
	name: "personal", date: 0, valueDate: 1, label: 2, reference: -1,
	debit: 3, credit: 4, category: 5, subcategory: 6, pointage: -1,
	minCols: 5,
}

// Professional accounts:
// Date;Date de valeur;Libellé;Référence;Débit;Crédit;Solde;Pointage
var cmProfessional = cmLayout{
	name: "professional", date: 0, valueDate: 1, label: 2, reference: 3,
	debit: 4, credit: 5, category: -1, subcategory: -1, pointage: 7,
	minCols: 6,
}

// CreditMutuelParser parses Crédit Mutuel ';' separated CSV exports in
// either the personal or the professional layout.
type CreditMutuelParser struct{}

func (p *CreditMutuelParser) Key() string { return "creditmutuel" }

func (p *CreditMutuelParser) Parse(r io.Reader) (model.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("reading creditmutuel export: %w", err)
	}
	rows := tabular.DecodeBytes(data, tabular.DefaultDelimiter)
	if len(rows) == 0 {
		return model.ParseResult{}, nil
	}

	layout, start := detectCMLayout(rows)

	var result model.ParseResult
	for _, row := range rows[start:] {
		txn, ok := parseCMRow(row, layout)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}
	return result, nil
}

// detectCMLayout picks the layout from the header row. The personal layout
// has category columns; the professional one has a reference column.
// Without a recognizable header, every row is data in the personal layout.
func detectCMLayout(rows [][]string) (cmLayout, int) {
	header := rows[0]
	if !rowHas(header, "libelle", "date") {
		return cmPersonal, 0
	}
	if rowHas(header, "categorie") {
		return cmPersonal, 1
	}
	if rowHas(header, "reference") {
		return cmProfessional, 1
	}
	return cmPersonal, 1
}

func parseCMRow(row []string, l cmLayout) (model.ParsedTransaction, bool) {
	if len(row) < l.minCols {
		return model.ParsedTransaction{}, false
	}
	date, ok := locale.ParseDate(tabular.Field(row, l.date), locale.LayoutDMY)
	if !ok {
		return model.ParsedTransaction{}, false
	}
	debit := locale.ParseAmount(tabular.Field(row, l.debit))
	credit := locale.ParseAmount(tabular.Field(row, l.credit))
	amount, kind, ok := mergeDebitCredit(debit, credit)
	if !ok {
		return model.ParsedTransaction{}, false
	}

	txn := model.ParsedTransaction{
		Date:        date,
		Description: locale.CleanDescription(tabular.Field(row, l.label)),
		Amount:      amount,
		Kind:        kind,
	}
	if vd, ok := locale.ParseDate(tabular.Field(row, l.valueDate), locale.LayoutDMY); ok {
		txn.ValueDate = &vd
	}
	if l.reference >= 0 {
		txn.Reference = tabular.Field(row, l.reference)
	}
	if l.pointage >= 0 {
		txn.Reconciled = isPointed(tabular.Field(row, l.pointage))
	}
	if l.category >= 0 {
		category := tabular.Field(row, l.category)
		sub := tabular.Field(row, l.subcategory)
		txn.RawCategory = creditMutuelVocab.translate(category, sub)
		if fold(sub) == "virements internes" || fold(category) == "operations exclues" {
			txn.RawCategory = categories.Transfer
		}
		if txn.RawCategory == categories.Transfer {
			txn.Kind = model.KindTransfer
		}
	}
	return txn, true
}

// isPointed reads a reconciliation flag, numeric (1/0) or textual (Oui/Non).
func isPointed(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "oui", "o", "x", "true":
		return true
	}
	return false
}
