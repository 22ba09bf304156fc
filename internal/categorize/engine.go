// Package categorize assigns categories to ledger transactions: ordered user
// rules first, then the institution's own category, then the transfer
// shortcut. Anything left stays uncategorized.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/id"
	"github.com/cleared-dev/ledgerkit/internal/ledger"
	"github.com/cleared-dev/ledgerkit/internal/logger"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

// ErrUnknownCategory is returned by Correct for a category not in the table.
var ErrUnknownCategory = errors.New("unknown category")

// DefaultLearnedRulePriority is used when Options leaves it unset.
const DefaultLearnedRulePriority = 200

// RuleStore provides categorization rules.
type RuleStore interface {
	// ListActiveRules returns active rules applicable to source; universal
	// rules are always included and an empty source returns all of them.
	ListActiveRules(ctx context.Context, source string) ([]model.Rule, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
	CreateRule(ctx context.Context, r model.Rule) error
}

// Categories resolves canonical category keys.
type Categories interface {
	ByKey(key string) (model.Category, bool)
	Exists(id int) bool
}

// Stats counts the outcome of one categorization run. The AI fields are
// reserved for a model-backed tier and stay zero.
type Stats struct {
	Total           int
	RuleMatches     int
	BankMatches     int
	AIMatches       int
	TransferMatches int
	Unmatched       int
	Duration        time.Duration
	EstimatedCost   decimal.Decimal
}

// Categorized returns the number of transactions that received a category.
func (s Stats) Categorized() int {
	return s.RuleMatches + s.BankMatches + s.AIMatches + s.TransferMatches
}

// Options tunes rule learning.
type Options struct {
	LearnFromCorrections bool
	LearnedRulePriority  int
}

// Engine runs categorization against a ledger.
type Engine struct {
	store ledger.Store
	rules RuleStore
	cats  Categories
	opts  Options
	now   func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(store ledger.Store, rules RuleStore, cats Categories, opts Options) *Engine {
	if opts.LearnedRulePriority == 0 {
		opts.LearnedRulePriority = DefaultLearnedRulePriority
	}
	return &Engine{store: store, rules: rules, cats: cats, opts: opts, now: time.Now}
}

// Run categorizes the uncategorized transactions of accountID, or of every
// account when accountID is empty. Assignments only land on rows that are
// still uncategorized when they are written.
func (e *Engine) Run(ctx context.Context, accountID string) (Stats, error) {
	start := e.now()
	log := logger.FromContext(ctx)
	if accountID != "" {
		log = logger.WithAccount(log, accountID)
	}

	txns, err := e.store.UncategorizedTransactions(ctx, accountID)
	if err != nil {
		return Stats{}, fmt.Errorf("loading uncategorized transactions: %w", err)
	}
	if len(txns) == 0 {
		return Stats{EstimatedCost: decimal.Zero}, nil
	}

	rules, err := e.rules.ListActiveRules(ctx, singleSource(txns))
	if err != nil {
		return Stats{}, fmt.Errorf("loading rules: %w", err)
	}
	compiled, invalid := compile(rules)
	for _, err := range invalid {
		log.Warn().Err(err).Msg("rule skipped")
	}

	assignments, stats := categorize(txns, compiled, e.cats)
	applied, err := e.store.AssignCategories(ctx, assignments)
	if err != nil {
		return Stats{}, fmt.Errorf("storing categories: %w", err)
	}
	stats.Duration = e.now().Sub(start)

	log.Info().
		Int("total", stats.Total).
		Int("rule", stats.RuleMatches).
		Int("bank", stats.BankMatches).
		Int("transfer", stats.TransferMatches).
		Int("unmatched", stats.Unmatched).
		Int("applied", applied).
		Dur("duration", stats.Duration).
		Msg("categorization complete")
	return stats, nil
}

// Categorize is the in-memory form of Run: it evaluates rules and fallbacks
// without touching any store.
func Categorize(txns []model.Transaction, rules []model.Rule, cats Categories) ([]ledger.Assignment, Stats) {
	compiled, _ := compile(rules)
	return categorize(txns, compiled, cats)
}

func categorize(txns []model.Transaction, rules []compiledRule, cats Categories) ([]ledger.Assignment, Stats) {
	stats := Stats{Total: len(txns), EstimatedCost: decimal.Zero}
	var out []ledger.Assignment

	var transferID int
	if c, ok := cats.ByKey(categories.Transfer); ok {
		transferID = c.ID
	}

	for _, t := range txns {
		if a, ok := byRule(t, rules); ok {
			out = append(out, a)
			stats.RuleMatches++
			continue
		}
		if t.RawCategory != "" {
			if c, ok := cats.ByKey(t.RawCategory); ok {
				out = append(out, ledger.Assignment{TransactionID: t.ID, CategoryID: c.ID, Source: model.SourceBank})
				stats.BankMatches++
				continue
			}
		}
		if t.Kind == model.KindTransfer && transferID != 0 {
			out = append(out, ledger.Assignment{TransactionID: t.ID, CategoryID: transferID, Source: model.SourceTransfer})
			stats.TransferMatches++
			continue
		}
		stats.Unmatched++
	}
	return out, stats
}

func byRule(t model.Transaction, rules []compiledRule) (ledger.Assignment, bool) {
	for _, r := range rules {
		if r.matches(t.Description, t.Source) {
			return ledger.Assignment{TransactionID: t.ID, CategoryID: r.CategoryID, Source: model.SourceRule, RuleID: r.ID}, true
		}
	}
	return ledger.Assignment{}, false
}

// singleSource returns the parser key shared by every transaction, or "".
func singleSource(txns []model.Transaction) string {
	source := txns[0].Source
	for _, t := range txns[1:] {
		if t.Source != source {
			return ""
		}
	}
	return source
}

// Correct sets a transaction's category by hand. With learn (or when the
// engine learns from every correction) it also creates an EXACT rule on the
// description so future imports are categorized the same way. Other rows
// are never recategorized. The created rule is returned, or nil when none
// was created.
func (e *Engine) Correct(ctx context.Context, txID string, categoryID int, learn bool) (*model.Rule, error) {
	if !e.cats.Exists(categoryID) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, categoryID)
	}
	t, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetCategory(ctx, txID, categoryID, model.SourceManual); err != nil {
		return nil, fmt.Errorf("setting category: %w", err)
	}

	log := logger.WithAccount(logger.FromContext(ctx), t.AccountID)
	log.Info().Str("transaction", txID).Int("category", categoryID).Msg("category corrected")

	if !learn && !e.opts.LearnFromCorrections {
		return nil, nil
	}

	existing, err := e.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	for _, r := range existing {
		if r.MatchType == model.MatchExact && r.Pattern == t.Description {
			log.Debug().Str("rule", r.ID).Msg("learned rule already exists")
			return nil, nil
		}
	}

	rule := model.Rule{
		ID:         id.NewRuleID(),
		Pattern:    t.Description,
		MatchType:  model.MatchExact,
		Priority:   e.opts.LearnedRulePriority,
		CategoryID: categoryID,
		IsActive:   true,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.rules.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("creating learned rule: %w", err)
	}
	log.Info().Str("rule", rule.ID).Str("pattern", rule.Pattern).Msg("rule learned")
	return &rule, nil
}
