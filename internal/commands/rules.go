package commands

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerkit/internal/categorize"
	"github.com/cleared-dev/ledgerkit/internal/id"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

const defaultRulePriority = 100

func newRulesCommand(repoDir *string) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}
	rulesCmd.AddCommand(newRulesAddCommand(repoDir), newRulesListCommand(repoDir))
	return rulesCmd
}

func newRulesAddCommand(repoDir *string) *cobra.Command {
	var (
		pattern   string
		matchType string
		priority  int
		category  string
		source    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a categorization rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			var rule model.Rule
			defer func() {
				p.record("rules add", "", fmt.Sprintf("rule=%s pattern=%q", rule.ID, pattern), err)
			}()

			mt, ok := model.ParseMatchType(matchType)
			if !ok {
				return fmt.Errorf("unknown match type %q", matchType)
			}
			if mt == model.MatchRegex {
				if _, err := regexp.Compile(pattern); err != nil {
					return fmt.Errorf("invalid pattern: %w", err)
				}
			}
			cat, ok := p.cats.Resolve(category)
			if !ok {
				return fmt.Errorf("%w: %q", categorize.ErrUnknownCategory, category)
			}
			if source != "" && p.registry.Get(source) == nil {
				return fmt.Errorf("unknown source %q: want one of %s", source, strings.Join(p.registry.Keys(), ", "))
			}

			rule = model.Rule{
				ID:           id.NewRuleID(),
				Pattern:      pattern,
				MatchType:    mt,
				Priority:     priority,
				CategoryID:   cat.ID,
				SourceFilter: strings.ToLower(source),
				IsActive:     true,
				CreatedAt:    time.Now().UTC(),
			}
			if err := p.rules.CreateRule(cmd.Context(), rule); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Added rule %s: %s %q → %s\n", rule.ID, rule.MatchType, rule.Pattern, cat.Key)
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "text or expression matched against descriptions (required)")
	_ = cmd.MarkFlagRequired("pattern")
	cmd.Flags().StringVar(&matchType, "match", string(model.MatchContains), "EXACT, CONTAINS, STARTS_WITH or REGEX")
	cmd.Flags().IntVar(&priority, "priority", defaultRulePriority, "higher priorities are evaluated first")
	cmd.Flags().StringVar(&category, "category", "", "category ID or key (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().StringVar(&source, "source", "", "restrict the rule to one parser")

	return cmd
}

func newRulesListCommand(repoDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categorization rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			all, err := p.rules.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			all = categorize.SortRules(all)

			out := cmd.OutOrStdout()
			for _, r := range all {
				cat, _ := p.cats.Get(r.CategoryID)
				state := ""
				if !r.IsActive {
					state = " (inactive)"
				}
				source := r.SourceFilter
				if source == "" {
					source = "*"
				}
				printf(out, "%-17s %4d  %-11s %-14s %-16s %q%s\n",
					r.ID, r.Priority, r.MatchType, source, cat.Key, r.Pattern, state)
			}
			return nil
		},
	}
}
