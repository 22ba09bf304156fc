package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

const (
	ledgerDir    = "ledger"
	balancesFile = "balances.yaml"
)

// FileStore keeps one transactions CSV per account under <root>/ledger/ and
// the account balances in <root>/ledger/balances.yaml. Every write rewrites
// the affected file.
type FileStore struct {
	mu   sync.Mutex
	root string
	cats CategoryChecker
}

// NewFileStore returns a store rooted at root. cats, when non-nil, is used to
// reject rows pointing at unknown categories.
func NewFileStore(root string, cats CategoryChecker) *FileStore {
	return &FileStore{root: root, cats: cats}
}

func (s *FileStore) accountPath(accountID string) string {
	return filepath.Join(s.root, ledgerDir, accountID+".csv")
}

func (s *FileStore) UpsertTransactions(_ context.Context, txns []model.Transaction, mode Mode) (UpsertResult, error) {
	var res UpsertResult
	if err := validationFailed(ValidateTransactions(txns, s.cats)); err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byAccount := make(map[string][]model.Transaction)
	var order []string
	for _, t := range txns {
		if _, ok := byAccount[t.AccountID]; !ok {
			order = append(order, t.AccountID)
		}
		byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
	}

	for _, accountID := range order {
		existing, err := s.readAccount(accountID)
		if err != nil {
			return res, err
		}
		index := make(map[string]int, len(existing))
		for i, t := range existing {
			index[t.ID] = i
		}

		changed := false
		for _, t := range byAccount[accountID] {
			i, ok := index[t.ID]
			switch {
			case !ok:
				index[t.ID] = len(existing)
				existing = append(existing, t)
				res.Inserted++
				changed = true
			case mode == ModeOverwrite:
				existing[i] = overwrite(existing[i], t)
				res.Updated++
				changed = true
			default:
				res.Skipped++
			}
		}

		if changed {
			if err := s.writeAccount(accountID, existing); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (s *FileStore) ListTransactions(_ context.Context, accountID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAccount(accountID)
}

func (s *FileStore) UncategorizedTransactions(_ context.Context, accountID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := []string{accountID}
	if accountID == "" {
		var err error
		if accounts, err = s.accounts(); err != nil {
			return nil, err
		}
	}

	var out []model.Transaction
	for _, a := range accounts {
		txns, err := s.readAccount(a)
		if err != nil {
			return nil, err
		}
		for _, t := range txns {
			if !t.Categorized() {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (s *FileStore) GetTransaction(_ context.Context, id string) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, txns, i, err := s.find(id)
	if err != nil {
		return model.Transaction{}, err
	}
	return txns[i], nil
}

func (s *FileStore) AssignCategories(_ context.Context, assignments []Assignment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.accounts()
	if err != nil {
		return 0, err
	}
	pending := make(map[string]Assignment, len(assignments))
	for _, a := range assignments {
		pending[a.TransactionID] = a
	}

	applied := 0
	for _, accountID := range accounts {
		if len(pending) == 0 {
			break
		}
		txns, err := s.readAccount(accountID)
		if err != nil {
			return applied, err
		}
		changed := false
		for i := range txns {
			a, ok := pending[txns[i].ID]
			if !ok {
				continue
			}
			delete(pending, txns[i].ID)
			if txns[i].Categorized() {
				continue
			}
			txns[i].CategoryID = a.CategoryID
			txns[i].CategorySource = a.Source
			txns[i].RuleID = a.RuleID
			applied++
			changed = true
		}
		if changed {
			if err := s.writeAccount(accountID, txns); err != nil {
				return applied, err
			}
		}
	}
	return applied, nil
}

func (s *FileStore) SetCategory(_ context.Context, id string, categoryID int, source model.CategorySource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cats != nil && categoryID != 0 && !s.cats.Exists(categoryID) {
		return fmt.Errorf("unknown category %d", categoryID)
	}
	accountID, txns, i, err := s.find(id)
	if err != nil {
		return err
	}
	txns[i].CategoryID = categoryID
	txns[i].CategorySource = source
	txns[i].RuleID = ""
	return s.writeAccount(accountID, txns)
}

func (s *FileStore) GetAccountBalance(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances, err := s.readBalances()
	if err != nil {
		return decimal.Zero, err
	}
	raw, ok := balances[accountID]
	if !ok {
		return decimal.Zero, nil
	}
	b, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing balance of %s: %w", accountID, err)
	}
	return b, nil
}

func (s *FileStore) SetAccountBalance(_ context.Context, accountID string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances, err := s.readBalances()
	if err != nil {
		return err
	}
	balances[accountID] = balance.StringFixed(2)
	return s.writeBalances(balances)
}

func (s *FileStore) DeleteAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.accountPath(accountID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing ledger of %s: %w", accountID, err)
	}
	balances, err := s.readBalances()
	if err != nil {
		return err
	}
	if _, ok := balances[accountID]; !ok {
		return nil
	}
	delete(balances, accountID)
	return s.writeBalances(balances)
}

// Close is a no-op; files are closed after every operation.
func (s *FileStore) Close() error { return nil }

// find locates a transaction across accounts. Callers hold s.mu.
func (s *FileStore) find(id string) (string, []model.Transaction, int, error) {
	accounts, err := s.accounts()
	if err != nil {
		return "", nil, 0, err
	}
	for _, accountID := range accounts {
		txns, err := s.readAccount(accountID)
		if err != nil {
			return "", nil, 0, err
		}
		for i, t := range txns {
			if t.ID == id {
				return accountID, txns, i, nil
			}
		}
	}
	return "", nil, 0, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// accounts lists the account IDs that have a ledger file, sorted.
func (s *FileStore) accounts() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, ledgerDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) readAccount(accountID string) ([]model.Transaction, error) {
	path := s.accountPath(accountID)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return txns, nil
}

func (s *FileStore) writeAccount(accountID string, txns []model.Transaction) error {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].Position < txns[j].Position
	})
	var buf bytes.Buffer
	if err := WriteTransactions(&buf, txns); err != nil {
		return fmt.Errorf("encoding ledger of %s: %w", accountID, err)
	}
	return writeFileAtomic(s.accountPath(accountID), buf.Bytes())
}

func (s *FileStore) readBalances() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, ledgerDir, balancesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading balances: %w", err)
	}
	balances := map[string]string{}
	if err := yaml.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("parsing balances: %w", err)
	}
	return balances, nil
}

func (s *FileStore) writeBalances(balances map[string]string) error {
	data, err := yaml.Marshal(balances)
	if err != nil {
		return fmt.Errorf("marshaling balances: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.root, ledgerDir, balancesFile), data)
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
