// Package categories holds the canonical category table that rules, bank
// hints and manual corrections all resolve to.
package categories

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// Service provides in-memory lookup over the category table.
type Service struct {
	cats  []model.Category
	byID  map[int]model.Category
	byKey map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(cats []model.Category) *Service {
	byID := make(map[int]model.Category, len(cats))
	byKey := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
		byKey[c.Key] = c
	}
	return &Service{cats: cats, byID: byID, byKey: byKey}
}

// Default returns a Service over DefaultTable.
func Default() *Service {
	return NewService(DefaultTable())
}

// Load reads categories/categories.csv from a project root. A missing file
// yields the default table.
func Load(root string) (*Service, error) {
	path := filepath.Join(root, "categories", "categories.csv")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening category table: %w", err)
	}
	defer f.Close()

	cats, err := ReadCategories(f)
	if err != nil {
		return nil, fmt.Errorf("reading category table: %w", err)
	}
	return NewService(cats), nil
}

// All returns all categories.
func (s *Service) All() []model.Category {
	return s.cats
}

// Get returns a category by ID.
func (s *Service) Get(id int) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// ByKey returns a category by its canonical key.
func (s *Service) ByKey(key string) (model.Category, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

// Exists reports whether a category ID exists.
func (s *Service) Exists(id int) bool {
	_, ok := s.byID[id]
	return ok
}

// Resolve accepts a numeric ID or a key, as typed on the command line.
func (s *Service) Resolve(ref string) (model.Category, bool) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		return s.Get(n)
	}
	return s.ByKey(strings.ToLower(ref))
}

// Save writes the table to categories/categories.csv.
func (s *Service) Save(root string) error {
	dir := filepath.Join(root, "categories")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}

	path := filepath.Join(dir, "categories.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating category table file: %w", err)
	}
	defer f.Close()

	if err := WriteCategories(f, s.cats); err != nil {
		return fmt.Errorf("writing category table: %w", err)
	}
	return nil
}
