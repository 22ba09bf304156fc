// Package rules keeps categorization rules in a YAML file under the project
// root, for projects that use the CSV ledger.
package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// Path is the rules file location relative to the project root.
const Path = "rules/categorization-rules.yaml"

// File is the on-disk layout of the rules file.
type File struct {
	Rules []Entry `yaml:"rules"`
}

// Entry is one rule as written in YAML.
type Entry struct {
	ID         string    `yaml:"id"`
	Pattern    string    `yaml:"pattern"`
	MatchType  string    `yaml:"match_type"`
	Priority   int       `yaml:"priority"`
	CategoryID int       `yaml:"category_id"`
	Source     string    `yaml:"source,omitempty"`
	Active     *bool     `yaml:"active,omitempty"` // omitted = active
	CreatedAt  time.Time `yaml:"created_at"`
}

// FileStore reads and writes rules in <root>/rules/categorization-rules.yaml.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store for the project at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{path: filepath.Join(root, Path)}
}

// ListRules returns every rule in file order.
func (s *FileStore) ListRules(_ context.Context) ([]model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ListActiveRules returns active rules that apply to source. An empty source
// returns every active rule.
func (s *FileStore) ListActiveRules(_ context.Context, source string) ([]model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []model.Rule
	for _, r := range all {
		if !r.IsActive {
			continue
		}
		if source != "" && r.SourceFilter != "" && !strings.EqualFold(r.SourceFilter, source) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// CreateRule appends a rule. IDs must be unique.
func (s *FileStore) CreateRule(_ context.Context, r model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.ID == r.ID {
			return fmt.Errorf("rule %s already exists", r.ID)
		}
	}
	return s.save(append(all, r))
}

func (s *FileStore) load() ([]model.Rule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	out := make([]model.Rule, 0, len(f.Rules))
	for i, e := range f.Rules {
		r, err := e.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *FileStore) save(all []model.Rule) error {
	f := File{Rules: make([]Entry, len(all))}
	for i, r := range all {
		f.Rules[i] = fromRule(r)
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}

func (e Entry) toRule() (model.Rule, error) {
	if e.ID == "" {
		return model.Rule{}, errors.New("missing id")
	}
	if e.Pattern == "" {
		return model.Rule{}, fmt.Errorf("%s: missing pattern", e.ID)
	}
	mt, ok := model.ParseMatchType(e.MatchType)
	if !ok {
		return model.Rule{}, fmt.Errorf("%s: unknown match type %q", e.ID, e.MatchType)
	}
	return model.Rule{
		ID:           e.ID,
		Pattern:      e.Pattern,
		MatchType:    mt,
		Priority:     e.Priority,
		CategoryID:   e.CategoryID,
		SourceFilter: e.Source,
		IsActive:     e.Active == nil || *e.Active,
		CreatedAt:    e.CreatedAt,
	}, nil
}

func fromRule(r model.Rule) Entry {
	e := Entry{
		ID:         r.ID,
		Pattern:    r.Pattern,
		MatchType:  string(r.MatchType),
		Priority:   r.Priority,
		CategoryID: r.CategoryID,
		Source:     r.SourceFilter,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if !r.IsActive {
		inactive := false
		e.Active = &inactive
	}
	return e
}
