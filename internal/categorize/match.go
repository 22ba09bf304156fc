package categorize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// compiledRule is a rule ready for matching. A REGEX rule whose pattern does
// not compile keeps re == nil and never matches.
type compiledRule struct {
	model.Rule
	lower string
	re    *regexp.Regexp
}

// SortRules orders rules for evaluation: priority descending, then creation
// time ascending, then ID. The result does not depend on storage order.
func SortRules(rules []model.Rule) []model.Rule {
	sorted := append([]model.Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return sorted
}

// compile sorts active rules and compiles their patterns once. Invalid
// regular expressions are reported, not fatal.
func compile(rules []model.Rule) ([]compiledRule, []error) {
	var (
		out  []compiledRule
		errs []error
	)
	for _, r := range SortRules(rules) {
		if !r.IsActive {
			continue
		}
		c := compiledRule{Rule: r, lower: strings.ToLower(r.Pattern)}
		if r.MatchType == model.MatchRegex {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				errs = append(errs, fmt.Errorf("rule %s: invalid pattern %q: %w", r.ID, r.Pattern, err))
			} else {
				c.re = re
			}
		}
		out = append(out, c)
	}
	return out, errs
}

// matches reports whether the rule applies to a description from source.
func (c compiledRule) matches(description, source string) bool {
	if c.SourceFilter != "" && !strings.EqualFold(c.SourceFilter, source) {
		return false
	}
	switch c.MatchType {
	case model.MatchExact:
		return description == c.Pattern
	case model.MatchContains:
		return strings.Contains(strings.ToLower(description), c.lower)
	case model.MatchStartsWith:
		return strings.HasPrefix(strings.ToLower(description), c.lower)
	case model.MatchRegex:
		return c.re != nil && c.re.MatchString(description)
	}
	return false
}

// Match returns whether rule matches description from source. It compiles
// REGEX patterns on every call; the engine compiles once per run instead.
func Match(rule model.Rule, description, source string) bool {
	rules, _ := compile([]model.Rule{rule})
	return len(rules) == 1 && rules[0].matches(description, source)
}
