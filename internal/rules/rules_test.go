package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

func TestFileStore_CreateAndList(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)
	ctx := context.Background()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.CreateRule(ctx, model.Rule{
		ID: "rule_000000000001", Pattern: "CARREFOUR", MatchType: model.MatchContains,
		Priority: 100, CategoryID: 100, IsActive: true, CreatedAt: created,
	}))
	require.NoError(t, s.CreateRule(ctx, model.Rule{
		ID: "rule_000000000002", Pattern: "^PRLV URSSAF", MatchType: model.MatchRegex,
		Priority: 120, CategoryID: 190, SourceFilter: "sci", IsActive: true, CreatedAt: created,
	}))
	require.NoError(t, s.CreateRule(ctx, model.Rule{
		ID: "rule_000000000003", Pattern: "OLD", MatchType: model.MatchExact,
		Priority: 10, CategoryID: 900, IsActive: false, CreatedAt: created,
	}))

	// A fresh store reads what the first wrote.
	all, err := NewFileStore(root).ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CARREFOUR", all[0].Pattern)
	assert.True(t, all[0].CreatedAt.Equal(created))
	assert.Equal(t, model.MatchRegex, all[1].MatchType)
	assert.Equal(t, "sci", all[1].SourceFilter)
	assert.False(t, all[2].IsActive)

	cm, err := s.ListActiveRules(ctx, "creditmutuel")
	require.NoError(t, err)
	assert.Len(t, cm, 1)

	sci, err := s.ListActiveRules(ctx, "sci")
	require.NoError(t, err)
	assert.Len(t, sci, 2)
}

func TestFileStore_SourceIgnoresCase(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.CreateRule(ctx, model.Rule{
		ID: "rule_000000000001", Pattern: "URSSAF", MatchType: model.MatchContains,
		Priority: 100, CategoryID: 190, SourceFilter: "creditmutuel", IsActive: true,
	}))

	for _, source := range []string{"creditmutuel", "CreditMutuel", "CREDITMUTUEL"} {
		active, err := s.ListActiveRules(ctx, source)
		require.NoError(t, err)
		assert.Len(t, active, 1, source)
	}
}

func TestFileStore_DuplicateID(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()
	r := model.Rule{ID: "rule_000000000001", Pattern: "X", MatchType: model.MatchExact, IsActive: true}
	require.NoError(t, s.CreateRule(ctx, r))
	assert.Error(t, s.CreateRule(ctx, r))
}

func TestFileStore_MissingFile(t *testing.T) {
	rules, err := NewFileStore(t.TempDir()).ListRules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestFileStore_HandWrittenFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rules"), 0o755))
	yml := `rules:
  - id: rule_00000000000a
    pattern: free mobile
    match_type: contains
    priority: 50
    category_id: 133
    created_at: 2025-01-01T00:00:00Z
`
	require.NoError(t, os.WriteFile(filepath.Join(root, Path), []byte(yml), 0o644))

	rules, err := NewFileStore(root).ListActiveRules(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, model.MatchContains, rules[0].MatchType)
	assert.True(t, rules[0].IsActive)
}

func TestFileStore_BadMatchType(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rules"), 0o755))
	yml := "rules:\n  - id: r1\n    pattern: X\n    match_type: FUZZY\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, Path), []byte(yml), 0o644))

	_, err := NewFileStore(root).ListRules(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown match type")
}
