// Package recurring finds transactions that repeat on a cadence, such as
// subscriptions, rent or salaries, and keeps them as patterns per account.
package recurring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/id"
	"github.com/cleared-dev/ledgerkit/internal/logger"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

// Defaults applied when Options leaves a field unset.
const (
	DefaultMinOccurrences   = 3
	DefaultTolerancePercent = 5
)

// TransactionLister reads an account's ledger.
type TransactionLister interface {
	ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)
}

// PatternStore persists recurring patterns.
type PatternStore interface {
	ListPatterns(ctx context.Context, accountID string) ([]model.RecurringPattern, error)
	SavePattern(ctx context.Context, p model.RecurringPattern) error
	DeletePatterns(ctx context.Context, accountID string) error
}

// Options tunes detection.
type Options struct {
	// TolerancePercent is how far an amount may stray from the first amount
	// of its band and still belong to it.
	TolerancePercent decimal.Decimal
	MinOccurrences   int
}

// Candidate is a recurring group found in a set of transactions.
type Candidate struct {
	NormalizedDescription string
	Kind                  model.Kind
	Amount                decimal.Decimal // mean of the group, rounded to cents
	Frequency             model.Frequency
	Occurrences           int
	FirstSeen             time.Time
	LastSeen              time.Time
}

// Summary counts what Detect changed.
type Summary struct {
	Candidates  int
	Created     int
	Updated     int
	Deactivated int
}

// Detector finds and stores recurring patterns.
type Detector struct {
	txns     TransactionLister
	patterns PatternStore
	opts     Options
	now      func() time.Time
}

// NewDetector creates a Detector.
func NewDetector(txns TransactionLister, patterns PatternStore, opts Options) *Detector {
	if opts.MinOccurrences <= 0 {
		opts.MinOccurrences = DefaultMinOccurrences
	}
	if !opts.TolerancePercent.IsPositive() {
		opts.TolerancePercent = decimal.NewFromInt(DefaultTolerancePercent)
	}
	return &Detector{txns: txns, patterns: patterns, opts: opts, now: time.Now}
}

// Detect analyzes an account's ledger, updates matching patterns in place,
// creates new ones and deactivates patterns that stopped recurring.
func (d *Detector) Detect(ctx context.Context, accountID string) (Summary, error) {
	log := logger.WithAccount(logger.FromContext(ctx), accountID)

	txns, err := d.txns.ListTransactions(ctx, accountID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing transactions for %s: %w", accountID, err)
	}
	existing, err := d.patterns.ListPatterns(ctx, accountID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing patterns for %s: %w", accountID, err)
	}

	now := d.now().UTC()
	candidates := d.Analyze(txns)
	summary := Summary{Candidates: len(candidates)}
	touched := make(map[string]bool)

	for _, c := range candidates {
		p, ok := d.find(existing, touched, c)
		if ok {
			summary.Updated++
		} else {
			p = model.RecurringPattern{
				ID:                    id.NewPatternID(),
				AccountID:             accountID,
				NormalizedDescription: c.NormalizedDescription,
				Kind:                  c.Kind,
				TolerancePercent:      d.opts.TolerancePercent,
				CreatedAt:             now,
			}
			existing = append(existing, p)
			summary.Created++
		}
		p.Amount = c.Amount
		p.Frequency = c.Frequency
		p.OccurrenceCount = c.Occurrences
		p.LastSeenAt = c.LastSeen
		p.IsActive = !stale(p, now)
		if !p.IsActive {
			summary.Deactivated++
		}
		if err := d.patterns.SavePattern(ctx, p); err != nil {
			return summary, fmt.Errorf("saving pattern %q: %w", p.NormalizedDescription, err)
		}
		touched[p.ID] = true
		for i := range existing {
			if existing[i].ID == p.ID {
				existing[i] = p
			}
		}
	}

	for _, p := range existing {
		if touched[p.ID] || !p.IsActive || !stale(p, now) {
			continue
		}
		p.IsActive = false
		if err := d.patterns.SavePattern(ctx, p); err != nil {
			return summary, fmt.Errorf("deactivating pattern %q: %w", p.NormalizedDescription, err)
		}
		summary.Deactivated++
	}

	log.Info().
		Int("candidates", summary.Candidates).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("deactivated", summary.Deactivated).
		Msg("recurring detection complete")
	return summary, nil
}

// find returns the stored pattern for a candidate: same description and kind,
// amount within the pattern's tolerance. A pattern already matched during
// this run is not matched again.
func (d *Detector) find(existing []model.RecurringPattern, touched map[string]bool, c Candidate) (model.RecurringPattern, bool) {
	for _, p := range existing {
		if touched[p.ID] || p.NormalizedDescription != c.NormalizedDescription || p.Kind != c.Kind {
			continue
		}
		tol := p.TolerancePercent
		if !tol.IsPositive() {
			tol = d.opts.TolerancePercent
		}
		if withinTolerance(p.Amount, c.Amount, tol) {
			return p, true
		}
	}
	return model.RecurringPattern{}, false
}

// stale reports whether a pattern has not been seen for more than two of its
// periods.
func stale(p model.RecurringPattern, now time.Time) bool {
	days := p.Frequency.Days()
	if days == 0 {
		return false
	}
	return now.Sub(p.LastSeenAt) > time.Duration(2*days)*24*time.Hour
}

// Analyze groups transactions by normalized description, kind and amount
// band and returns the groups that recur on a recognizable cadence.
// Transfers are ignored.
func (d *Detector) Analyze(txns []model.Transaction) []Candidate {
	type key struct {
		desc string
		kind model.Kind
	}
	groups := make(map[key][]model.Transaction)
	for _, t := range txns {
		if t.Kind == model.KindTransfer {
			continue
		}
		k := key{Normalize(t.Description), t.Kind}
		if k.desc == "" {
			continue
		}
		groups[k] = append(groups[k], t)
	}

	var out []Candidate
	for k, group := range groups {
		for _, band := range bands(group, d.opts.TolerancePercent) {
			if len(band) < d.opts.MinOccurrences {
				continue
			}
			sort.SliceStable(band, func(i, j int) bool { return band[i].Date.Before(band[j].Date) })
			freq, ok := Cadence(band)
			if !ok {
				continue
			}
			amounts := make([]decimal.Decimal, len(band))
			for i, t := range band {
				amounts[i] = t.Amount
			}
			out = append(out, Candidate{
				NormalizedDescription: k.desc,
				Kind:                  k.kind,
				Amount:                decimal.Avg(amounts[0], amounts[1:]...).Round(2),
				Frequency:             freq,
				Occurrences:           len(band),
				FirstSeen:             band[0].Date,
				LastSeen:              band[len(band)-1].Date,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.NormalizedDescription != b.NormalizedDescription {
			return a.NormalizedDescription < b.NormalizedDescription
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Amount.LessThan(b.Amount)
	})
	return out
}

// bands splits a group by amount. Amounts are walked in ascending order and a
// new band starts when one strays beyond tolerance from the band's first.
func bands(group []model.Transaction, tolerance decimal.Decimal) [][]model.Transaction {
	sorted := append([]model.Transaction(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Amount.Equal(sorted[j].Amount) {
			return sorted[i].Amount.LessThan(sorted[j].Amount)
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var (
		out     [][]model.Transaction
		current []model.Transaction
	)
	for _, t := range sorted {
		if len(current) > 0 && !withinTolerance(current[0].Amount, t.Amount, tolerance) {
			out = append(out, current)
			current = nil
		}
		current = append(current, t)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

var hundred = decimal.NewFromInt(100)

func withinTolerance(base, amount, tolerancePercent decimal.Decimal) bool {
	limit := base.Abs().Mul(tolerancePercent).Div(hundred)
	return amount.Sub(base).Abs().LessThanOrEqual(limit)
}

// cadences lists the interval windows in days, shortest first.
var cadences = []struct {
	freq     model.Frequency
	min, max int
}{
	{model.FrequencyWeekly, 5, 9},
	{model.FrequencyMonthly, 25, 35},
	{model.FrequencyQuarterly, 80, 100},
	{model.FrequencyAnnual, 350, 380},
}

// Cadence buckets the intervals between consecutive dates of txns (sorted by
// date) and returns the most common bucket. Ties go to the shorter cadence.
// ok is false when no interval falls in any bucket.
func Cadence(txns []model.Transaction) (model.Frequency, bool) {
	counts := make([]int, len(cadences))
	for i := 1; i < len(txns); i++ {
		days := int(txns[i].Date.Sub(txns[i-1].Date).Hours() / 24)
		for b, c := range cadences {
			if days >= c.min && days <= c.max {
				counts[b]++
				break
			}
		}
	}

	best := -1
	for b, n := range counts {
		if n > 0 && (best < 0 || n > counts[best]) {
			best = b
		}
	}
	if best < 0 {
		return "", false
	}
	return cadences[best].freq, true
}

// Normalize lower-cases a description and collapses whitespace.
func Normalize(desc string) string {
	return strings.Join(strings.Fields(strings.ToLower(desc)), " ")
}
