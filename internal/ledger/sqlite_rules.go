package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

const ruleColumns = `id, pattern, match_type, priority, category_id, source_filter, is_active, created_at`

// ListActiveRules returns active rules that apply to source. Universal rules
// (no source filter) are always included; an empty source returns every
// active rule.
func (s *SQLiteStore) ListActiveRules(ctx context.Context, source string) ([]model.Rule, error) {
	if source == "" {
		return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM categorization_rules
			WHERE is_active = 1 ORDER BY priority DESC, created_at, id`)
	}
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM categorization_rules
		WHERE is_active = 1 AND (source_filter = '' OR lower(source_filter) = lower(?))
		ORDER BY priority DESC, created_at, id`, source)
}

// ListRules returns every rule, active or not.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM categorization_rules
		ORDER BY priority DESC, created_at, id`)
}

// CreateRule inserts a rule.
func (s *SQLiteStore) CreateRule(ctx context.Context, r model.Rule) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO categorization_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Pattern, string(r.MatchType), r.Priority, r.CategoryID, r.SourceFilter,
		r.IsActive, r.CreatedAt.UTC().Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) queryRules(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var (
			r                    model.Rule
			matchType, createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Pattern, &matchType, &r.Priority, &r.CategoryID,
			&r.SourceFilter, &r.IsActive, &createdAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.MatchType = model.MatchType(matchType)
		if r.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at of rule %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const patternColumns = `id, account_id, normalized_description, amount, kind, frequency,
	tolerance_percent, occurrence_count, is_active, last_seen_at, created_at`

// ListPatterns returns the recurring patterns of an account.
func (s *SQLiteStore) ListPatterns(ctx context.Context, accountID string) ([]model.RecurringPattern, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+patternColumns+` FROM recurring_patterns
		WHERE account_id = ? ORDER BY normalized_description, created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query recurring patterns: %w", err)
	}
	defer rows.Close()

	var patterns []model.RecurringPattern
	for rows.Next() {
		var (
			p                             model.RecurringPattern
			amount, kind, freq, tolerance string
			lastSeen, createdAt           string
		)
		if err := rows.Scan(&p.ID, &p.AccountID, &p.NormalizedDescription, &amount, &kind, &freq,
			&tolerance, &p.OccurrenceCount, &p.IsActive, &lastSeen, &createdAt); err != nil {
			return nil, fmt.Errorf("scan recurring pattern: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing amount of pattern %s: %w", p.ID, err)
		}
		if p.TolerancePercent, err = decimal.NewFromString(tolerance); err != nil {
			return nil, fmt.Errorf("parsing tolerance of pattern %s: %w", p.ID, err)
		}
		if p.LastSeenAt, err = time.Parse(dateFormat, lastSeen); err != nil {
			return nil, fmt.Errorf("parsing last_seen_at of pattern %s: %w", p.ID, err)
		}
		if p.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at of pattern %s: %w", p.ID, err)
		}
		p.Kind = model.Kind(kind)
		p.Frequency = model.Frequency(freq)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// DeletePatterns removes every pattern of the account.
func (s *SQLiteStore) DeletePatterns(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recurring_patterns WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete patterns of %s: %w", accountID, err)
	}
	return nil
}

// SavePattern inserts a pattern or replaces the one with the same ID.
func (s *SQLiteStore) SavePattern(ctx context.Context, p model.RecurringPattern) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			normalized_description = excluded.normalized_description,
			amount = excluded.amount,
			kind = excluded.kind,
			frequency = excluded.frequency,
			tolerance_percent = excluded.tolerance_percent,
			occurrence_count = excluded.occurrence_count,
			is_active = excluded.is_active,
			last_seen_at = excluded.last_seen_at
	`, p.ID, p.AccountID, p.NormalizedDescription, p.Amount.StringFixed(2), string(p.Kind),
		string(p.Frequency), p.TolerancePercent.String(), p.OccurrenceCount, p.IsActive,
		p.LastSeenAt.Format(dateFormat), p.CreatedAt.UTC().Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("save recurring pattern %s: %w", p.ID, err)
	}
	return nil
}
