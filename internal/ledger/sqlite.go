package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

//go:embed schema.sql
var schema string

const timestampFormat = time.RFC3339Nano

// SQLiteStore keeps the ledger, rules and recurring patterns in one SQLite
// database.
type SQLiteStore struct {
	db   *sql.DB
	cats CategoryChecker
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string, cats CategoryChecker) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	return &SQLiteStore{db: db, cats: cats}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const transactionColumns = `id, account_id, source, date, value_date, description, amount, kind,
	raw_category, reference, additional_info, reconciled, position, category_id,
	category_source, rule_id, import_id, imported_at`

func (s *SQLiteStore) UpsertTransactions(ctx context.Context, txns []model.Transaction, mode Mode) (UpsertResult, error) {
	var res UpsertResult
	if err := validationFailed(ValidateTransactions(txns, s.cats)); err != nil {
		return res, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	for _, t := range txns {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ?)`, t.ID).Scan(&exists); err != nil {
			return res, fmt.Errorf("check transaction %s: %w", t.ID, err)
		}

		switch {
		case !exists:
			if _, err := tx.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, transactionArgs(t)...); err != nil {
				return res, fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
			res.Inserted++
		case mode == ModeOverwrite:
			if _, err := tx.ExecContext(ctx, `
				UPDATE transactions SET
					amount = ?, description = ?, raw_category = ?, reference = ?,
					additional_info = ?, value_date = ?, reconciled = ?,
					category_id = CASE WHEN category_source = 'manual' THEN category_id ELSE 0 END,
					rule_id = CASE WHEN category_source = 'manual' THEN rule_id ELSE '' END,
					category_source = CASE WHEN category_source = 'manual' THEN category_source ELSE '' END
				WHERE id = ?
			`, t.Amount.StringFixed(2), t.Description, t.RawCategory, t.Reference,
				t.AdditionalInfo, nullDate(t.ValueDate), t.Reconciled, t.ID); err != nil {
				return res, fmt.Errorf("update transaction %s: %w", t.ID, err)
			}
			res.Updated++
		default:
			res.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit upsert: %w", err)
	}
	return res, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = ? ORDER BY date, position`, accountID)
}

func (s *SQLiteStore) UncategorizedTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if accountID == "" {
		return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
			WHERE category_id = 0 ORDER BY account_id, date, position`)
	}
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = ? AND category_id = 0 ORDER BY date, position`, accountID)
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	txns, err := s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(txns) == 0 {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return txns[0], nil
}

func (s *SQLiteStore) AssignCategories(ctx context.Context, assignments []Assignment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, a := range assignments {
		result, err := tx.ExecContext(ctx, `
			UPDATE transactions SET category_id = ?, category_source = ?, rule_id = ?
			WHERE id = ? AND category_id = 0
		`, a.CategoryID, string(a.Source), a.RuleID, a.TransactionID)
		if err != nil {
			return 0, fmt.Errorf("assign category to %s: %w", a.TransactionID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("assign category to %s: %w", a.TransactionID, err)
		}
		applied += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit assign: %w", err)
	}
	return applied, nil
}

func (s *SQLiteStore) SetCategory(ctx context.Context, id string, categoryID int, source model.CategorySource) error {
	if s.cats != nil && categoryID != 0 && !s.cats.Exists(categoryID) {
		return fmt.Errorf("unknown category %d", categoryID)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET category_id = ?, category_source = ?, rule_id = ''
		WHERE id = ?
	`, categoryID, string(source), id)
	if err != nil {
		return fmt.Errorf("set category of %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set category of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM account_balances WHERE account_id = ?`, accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query balance of %s: %w", accountID, err)
	}
	b, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing balance of %s: %w", accountID, err)
	}
	return b, nil
}

func (s *SQLiteStore) SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at
	`, accountID, balance.StringFixed(2), time.Now().UTC().Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("set balance of %s: %w", accountID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM transactions WHERE account_id = ?`,
		`DELETE FROM account_balances WHERE account_id = ?`,
		`DELETE FROM recurring_patterns WHERE account_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, accountID); err != nil {
			return fmt.Errorf("delete account %s: %w", accountID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var (
		t                  model.Transaction
		date, amount, kind string
		source, importedAt string
		valueDate          sql.NullString
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Source, &date, &valueDate, &t.Description, &amount, &kind,
		&t.RawCategory, &t.Reference, &t.AdditionalInfo, &t.Reconciled, &t.Position, &t.CategoryID,
		&source, &t.RuleID, &t.ImportID, &importedAt); err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	if t.Date, err = time.Parse(dateFormat, date); err != nil {
		return t, fmt.Errorf("parsing date of %s: %w", t.ID, err)
	}
	if valueDate.Valid && valueDate.String != "" {
		vd, err := time.Parse(dateFormat, valueDate.String)
		if err != nil {
			return t, fmt.Errorf("parsing value date of %s: %w", t.ID, err)
		}
		t.ValueDate = &vd
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("parsing amount of %s: %w", t.ID, err)
	}
	if importedAt != "" {
		if t.ImportedAt, err = time.Parse(timestampFormat, importedAt); err != nil {
			return t, fmt.Errorf("parsing imported_at of %s: %w", t.ID, err)
		}
	}
	t.Kind = model.Kind(kind)
	t.CategorySource = model.CategorySource(source)
	return t, nil
}

func transactionArgs(t model.Transaction) []any {
	var importedAt string
	if !t.ImportedAt.IsZero() {
		importedAt = t.ImportedAt.UTC().Format(timestampFormat)
	}
	return []any{
		t.ID, t.AccountID, t.Source, t.Date.Format(dateFormat), nullDate(t.ValueDate),
		t.Description, t.Amount.StringFixed(2), string(t.Kind), t.RawCategory, t.Reference,
		t.AdditionalInfo, t.Reconciled, t.Position, t.CategoryID, string(t.CategorySource),
		t.RuleID, t.ImportID, importedAt,
	}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateFormat), Valid: true}
}
