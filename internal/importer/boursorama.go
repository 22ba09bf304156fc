package importer

import (
	"fmt"
	"io"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/locale"
	"github.com/cleared-dev/ledgerkit/internal/model"
	"github.com/cleared-dev/ledgerkit/internal/tabular"
)

// Boursorama CSV columns:
// dateOp;dateVal;label;category;categoryParent;supplierFound;amount;comment;accountNum;accountLabel;accountbalance
const (
	bsColDateOp = iota
	bsColDateVal
	bsColLabel
	bsColCategory
	bsColParent
	bsColSupplier
	bsColAmount
	bsColComment
	bsMinCols = bsColAmount + 1
)

// BoursoramaParser parses Boursorama CSV exports. Amounts come in a single
// signed column.
type BoursoramaParser struct{}

func (p *BoursoramaParser) Key() string { return "boursorama" }

func (p *BoursoramaParser) Parse(r io.Reader) (model.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("reading boursorama export: %w", err)
	}
	rows := tabular.DecodeBytes(data, tabular.DefaultDelimiter)
	if len(rows) == 0 {
		return model.ParseResult{}, nil
	}

	start := 0
	if rowHas(rows[0], "dateop", "label", "amount") {
		start = 1
	}

	var result model.ParseResult
	for _, row := range rows[start:] {
		txn, ok := parseBoursoramaRow(row)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}
	return result, nil
}

func parseBoursoramaRow(row []string) (model.ParsedTransaction, bool) {
	if len(row) < bsMinCols {
		return model.ParsedTransaction{}, false
	}
	date, ok := locale.ParseDate(tabular.Field(row, bsColDateOp), locale.LayoutISO)
	if !ok {
		return model.ParsedTransaction{}, false
	}
	amount, kind, ok := signedToKind(locale.ParseAmount(tabular.Field(row, bsColAmount)))
	if !ok {
		return model.ParsedTransaction{}, false
	}

	txn := model.ParsedTransaction{
		Date:        date,
		Description: locale.CleanDescription(tabular.Field(row, bsColLabel)),
		Amount:      amount,
		Kind:        kind,
	}
	if vd, ok := locale.ParseDate(tabular.Field(row, bsColDateVal), locale.LayoutISO); ok {
		txn.ValueDate = &vd
	}

	category := tabular.Field(row, bsColCategory)
	parent := tabular.Field(row, bsColParent)
	if fold(parent) == "mouvements internes" {
		txn.Kind = model.KindTransfer
		txn.RawCategory = categories.Transfer
	} else {
		// The category column is the finer label, the parent the broader one.
		txn.RawCategory = boursoramaVocab.translate(parent, category)
		if txn.RawCategory == categories.Transfer {
			txn.Kind = model.KindTransfer
		}
	}

	var supplier string
	if s := tabular.Field(row, bsColSupplier); s != "" {
		supplier = "Fournisseur: " + s
	}
	txn.AdditionalInfo = joinInfo(supplier, tabular.Field(row, bsColComment))
	return txn, true
}
