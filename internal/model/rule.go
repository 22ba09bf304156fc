package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchType selects how a rule pattern is compared against a description.
type MatchType string

const (
	MatchExact      MatchType = "EXACT"
	MatchContains   MatchType = "CONTAINS"
	MatchStartsWith MatchType = "STARTS_WITH"
	MatchRegex      MatchType = "REGEX"
)

// ParseMatchType accepts any casing and "-" in place of "_".
func ParseMatchType(s string) (MatchType, bool) {
	mt := MatchType(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	switch mt {
	case MatchExact, MatchContains, MatchStartsWith, MatchRegex:
		return mt, true
	}
	return "", false
}

// Rule assigns CategoryID to transactions whose description matches Pattern.
type Rule struct {
	ID           string
	Pattern      string
	MatchType    MatchType
	Priority     int
	CategoryID   int
	SourceFilter string // parser key; "" applies to every source
	IsActive     bool
	CreatedAt    time.Time
}

// Frequency is the inferred cadence of a recurring pattern.
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnual    Frequency = "ANNUAL"
)

// Days returns the nominal length of one period.
func (f Frequency) Days() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	case FrequencyQuarterly:
		return 91
	case FrequencyAnnual:
		return 365
	}
	return 0
}

// RecurringPattern is a repeating description/amount group with a cadence.
type RecurringPattern struct {
	ID                    string
	AccountID             string
	NormalizedDescription string
	Amount                decimal.Decimal
	Kind                  Kind
	Frequency             Frequency
	TolerancePercent      decimal.Decimal
	OccurrenceCount       int
	IsActive              bool
	LastSeenAt            time.Time
	CreatedAt             time.Time
}
