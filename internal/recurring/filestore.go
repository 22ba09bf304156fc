package recurring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// Path is the pattern file location relative to the project root.
const Path = "ledger/recurring-patterns.yaml"

type patternFile struct {
	Patterns []patternEntry `yaml:"patterns"`
}

type patternEntry struct {
	ID               string    `yaml:"id"`
	AccountID        string    `yaml:"account_id"`
	Description      string    `yaml:"description"`
	Amount           string    `yaml:"amount"`
	Kind             string    `yaml:"kind"`
	Frequency        string    `yaml:"frequency"`
	TolerancePercent string    `yaml:"tolerance_percent"`
	Occurrences      int       `yaml:"occurrences"`
	Active           bool      `yaml:"active"`
	LastSeenAt       time.Time `yaml:"last_seen_at"`
	CreatedAt        time.Time `yaml:"created_at"`
}

// FileStore keeps patterns for every account in one YAML file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a pattern store for the project at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{path: filepath.Join(root, Path)}
}

// ListPatterns returns the account's patterns, active ones included or not.
func (s *FileStore) ListPatterns(_ context.Context, accountID string) ([]model.RecurringPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []model.RecurringPattern
	for _, p := range all {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

// SavePattern inserts p or replaces the pattern with the same ID.
func (s *FileStore) SavePattern(_ context.Context, p model.RecurringPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].ID == p.ID {
			all[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, p)
	}
	return s.save(all)
}

// DeletePatterns removes every pattern of the account.
func (s *FileStore) DeletePatterns(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, p := range all {
		if p.AccountID != accountID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	return s.save(kept)
}

func (s *FileStore) load() ([]model.RecurringPattern, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading patterns: %w", err)
	}

	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing patterns: %w", err)
	}
	out := make([]model.RecurringPattern, 0, len(f.Patterns))
	for _, e := range f.Patterns {
		p, err := e.toPattern()
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", e.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *FileStore) save(all []model.RecurringPattern) error {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].AccountID != all[j].AccountID {
			return all[i].AccountID < all[j].AccountID
		}
		return all[i].NormalizedDescription < all[j].NormalizedDescription
	})

	f := patternFile{Patterns: make([]patternEntry, len(all))}
	for i, p := range all {
		f.Patterns[i] = patternEntry{
			ID:               p.ID,
			AccountID:        p.AccountID,
			Description:      p.NormalizedDescription,
			Amount:           p.Amount.StringFixed(2),
			Kind:             string(p.Kind),
			Frequency:        string(p.Frequency),
			TolerancePercent: p.TolerancePercent.String(),
			Occurrences:      p.OccurrenceCount,
			Active:           p.IsActive,
			LastSeenAt:       p.LastSeenAt.UTC(),
			CreatedAt:        p.CreatedAt.UTC(),
		}
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling patterns: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing patterns: %w", err)
	}
	return nil
}

func (e patternEntry) toPattern() (model.RecurringPattern, error) {
	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return model.RecurringPattern{}, fmt.Errorf("parsing amount %q: %w", e.Amount, err)
	}
	tolerance := decimal.Zero
	if e.TolerancePercent != "" {
		if tolerance, err = decimal.NewFromString(e.TolerancePercent); err != nil {
			return model.RecurringPattern{}, fmt.Errorf("parsing tolerance %q: %w", e.TolerancePercent, err)
		}
	}
	kind := model.Kind(e.Kind)
	if !kind.Valid() {
		return model.RecurringPattern{}, fmt.Errorf("unknown kind %q", e.Kind)
	}
	freq := model.Frequency(e.Frequency)
	if freq.Days() == 0 {
		return model.RecurringPattern{}, fmt.Errorf("unknown frequency %q", e.Frequency)
	}
	return model.RecurringPattern{
		ID:                    e.ID,
		AccountID:             e.AccountID,
		NormalizedDescription: e.Description,
		Amount:                amount,
		Kind:                  kind,
		Frequency:             freq,
		TolerancePercent:      tolerance,
		OccurrenceCount:       e.Occurrences,
		IsActive:              e.Active,
		LastSeenAt:            e.LastSeenAt,
		CreatedAt:             e.CreatedAt,
	}, nil
}
