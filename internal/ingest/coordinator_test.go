package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/importer"
	"github.com/cleared-dev/ledgerkit/internal/ledger"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

var errUnknownAccount = errors.New("unknown account")

type accountMap map[string]string

func (m accountMap) ParserKey(accountID string) (string, error) {
	key, ok := m[accountID]
	if !ok {
		return "", fmt.Errorf("%w: %s", errUnknownAccount, accountID)
	}
	return key, nil
}

func newCoordinator(t *testing.T) (*Coordinator, ledger.Store) {
	t.Helper()
	store := ledger.NewFileStore(t.TempDir(), categories.Default())
	c := NewCoordinator(store, accountMap{"checking": "creditmutuel", "sci": "sci"})
	c.now = func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) }
	return c, store
}

func date(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func parsed(day int, desc, amount string, kind model.Kind) model.ParsedTransaction {
	return model.ParsedTransaction{
		Date:        date(day),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Kind:        kind,
	}
}

func sample() []model.ParsedTransaction {
	return []model.ParsedTransaction{
		parsed(3, "CB CARREFOUR", "45.20", model.KindExpense),
		parsed(5, "VIR SALAIRE", "2850.00", model.KindIncome),
		parsed(7, "VIR LIVRET", "500.00", model.KindTransfer),
		parsed(8, "PRLV FREE MOBILE", "19.99", model.KindExpense),
	}
}

func TestImport_Idempotent(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	first, err := c.Import(ctx, "checking", sample())
	require.NoError(t, err)
	assert.Equal(t, 4, first.Parsed)
	assert.Equal(t, 4, first.Inserted)
	assert.NotEmpty(t, first.ImportID)

	second, err := c.Import(ctx, "checking", sample())
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 4, second.Skipped)
	assert.NotEqual(t, first.ImportID, second.ImportID)

	txns, err := store.ListTransactions(ctx, "checking")
	require.NoError(t, err)
	assert.Len(t, txns, 4)
	for _, tx := range txns {
		assert.Equal(t, first.ImportID, tx.ImportID, "rows keep the import that created them")
		assert.Equal(t, "creditmutuel", tx.Source)
	}
}

func TestImport_SameDaySameAmountAreDistinct(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	rows := []model.ParsedTransaction{
		parsed(3, "CB BOULANGERIE", "2.40", model.KindExpense),
		parsed(3, "CB BOULANGERIE", "2.40", model.KindExpense),
	}
	res, err := c.Import(ctx, "checking", rows)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	txns, err := store.ListTransactions(ctx, "checking")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.NotEqual(t, txns[0].ID, txns[1].ID)
	assert.Equal(t, []int{1, 2}, []int{txns[0].Position, txns[1].Position})
}

func TestImport_OverlappingExports(t *testing.T) {
	c, _ := newCoordinator(t)
	ctx := context.Background()

	_, err := c.Import(ctx, "checking", sample()[:3])
	require.NoError(t, err)

	res, err := c.Import(ctx, "checking", sample()[1:])
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
}

func TestImport_Balance(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	res, err := c.Import(ctx, "checking", sample())
	require.NoError(t, err)
	// 2850.00 - 45.20 - 19.99; the transfer does not count.
	assert.Equal(t, "2784.81", res.Balance.StringFixed(2))

	stored, err := store.GetAccountBalance(ctx, "checking")
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(stored))
}

func TestImport_UnknownAccount(t *testing.T) {
	c, _ := newCoordinator(t)
	_, err := c.Import(context.Background(), "nope", sample())
	assert.True(t, errors.Is(err, errUnknownAccount))
}

func TestImport_Empty(t *testing.T) {
	c, _ := newCoordinator(t)
	res, err := c.Import(context.Background(), "checking", nil)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.True(t, res.Balance.IsZero())
}

func TestReprocess_OverwritesAndClearsCategory(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	_, err := c.Import(ctx, "checking", sample())
	require.NoError(t, err)
	txns, err := store.ListTransactions(ctx, "checking")
	require.NoError(t, err)
	_, err = store.AssignCategories(ctx, []ledger.Assignment{{TransactionID: txns[0].ID, CategoryID: 100, Source: model.SourceRule, RuleID: "rule_0123456789ab"}})
	require.NoError(t, err)

	rows := sample()
	rows[0].Description = "CB CARREFOUR MARKET 02/01"
	rows[0].RawCategory = categories.Groceries
	res, err := c.Reprocess(ctx, "checking", rows)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 4, res.Updated)

	got, err := store.GetTransaction(ctx, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "CB CARREFOUR MARKET 02/01", got.Description)
	assert.Equal(t, categories.Groceries, got.RawCategory)
	assert.Zero(t, got.CategoryID)
}

func TestImportFile_Enterprise(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	f, err := os.Open("../../testdata/sci.csv")
	require.NoError(t, err)
	defer f.Close()

	res, err := c.ImportFile(ctx, "sci", &importer.EnterpriseParser{}, f, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, "2250.00", res.Balance.StringFixed(2))

	txns, err := store.ListTransactions(ctx, "sci")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "sci", txns[0].Source)
	assert.True(t, txns[0].Reconciled)
}

func TestImportFile_NothingImportable(t *testing.T) {
	c, _ := newCoordinator(t)
	res, err := c.ImportFile(context.Background(), "checking", &importer.CreditMutuelParser{}, strings.NewReader("a;b\n"), false)
	require.NoError(t, err)
	assert.Zero(t, res.Parsed)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 1, res.SkippedRows)
}

func TestImport_DropsRowsWithoutPositiveAmount(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	rows := append(sample(), parsed(9, "INTERETS", "0.004", model.KindIncome))
	res, err := c.Import(ctx, "checking", rows)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Parsed)
	assert.Equal(t, 4, res.Inserted)
	assert.Equal(t, 1, res.SkippedRows)

	txns, err := store.ListTransactions(ctx, "checking")
	require.NoError(t, err)
	assert.Len(t, txns, 4)
}

func TestImportFile_SubCentRowDoesNotFailTheFile(t *testing.T) {
	c, _ := newCoordinator(t)
	data := "Date;Date de valeur;Libellé;Débit;Crédit;Catégorie;Sous-catégorie;Solde\n" +
		"03/01/2025;03/01/2025;CB CARREFOUR;-45,20;;Alimentation;Supermarché;954,80\n" +
		"04/01/2025;04/01/2025;INTERETS;;0,004;;;954,80\n"

	res, err := c.ImportFile(context.Background(), "checking", &importer.CreditMutuelParser{}, strings.NewReader(data), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.SkippedRows)
	assert.Equal(t, "-45.20", res.Balance.StringFixed(2))
}

func TestImportFile_NotAWorkbook(t *testing.T) {
	c, _ := newCoordinator(t)
	_, err := c.ImportFile(context.Background(), "checking", importer.NewCreditAgricoleParser(), strings.NewReader("a;b\n"), false)
	assert.True(t, errors.Is(err, importer.ErrMalformedFile))
}

func TestBuild_Identity(t *testing.T) {
	txns := Build("checking", "creditmutuel", "imp", time.Time{}, sample())
	again := Build("checking", "creditmutuel", "other", time.Time{}, sample())
	for i := range txns {
		assert.Equal(t, txns[i].ID, again[i].ID)
		assert.Len(t, txns[i].ID, 24)
	}
}
