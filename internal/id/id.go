package id

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// transactionIDLen is the number of hex characters kept from the digest.
const transactionIDLen = 24

// TransactionID returns the dedup identity of a ledger transaction. The same
// inputs always give the same ID; position separates same-day, same-amount rows.
func TransactionID(accountID string, date time.Time, amount decimal.Decimal, kind model.Kind, position int) string {
	key := TransactionKey(accountID, date, amount, kind, position)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:transactionIDLen]
}

// TransactionKey is the unhashed form of TransactionID, e.g.
// "checking|2025-01-03|42.10|expense|1".
func TransactionKey(accountID string, date time.Time, amount decimal.Decimal, kind model.Kind, position int) string {
	return strings.Join([]string{
		accountID,
		date.Format("2006-01-02"),
		amount.StringFixed(2),
		string(kind),
		strconv.Itoa(position),
	}, "|")
}

// NewImportID returns a fresh identifier for one import run.
func NewImportID() string {
	return uuid.NewString()
}

// NewPatternID returns a fresh identifier for a recurring pattern.
func NewPatternID() string {
	return uuid.NewString()
}

// NewRuleID returns a fresh identifier for a categorization rule.
func NewRuleID() string {
	return "rule_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ParseRuleID validates a rule ID produced by NewRuleID.
func ParseRuleID(s string) (string, error) {
	rest, ok := strings.CutPrefix(s, "rule_")
	if !ok || len(rest) != 12 {
		return "", fmt.Errorf("invalid rule ID format: %q", s)
	}
	if _, err := hex.DecodeString(rest); err != nil {
		return "", fmt.Errorf("invalid rule ID %q: %w", s, err)
	}
	return rest, nil
}
