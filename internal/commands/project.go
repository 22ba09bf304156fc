package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/accountlock"
	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/categorize"
	"github.com/cleared-dev/ledgerkit/internal/config"
	"github.com/cleared-dev/ledgerkit/internal/id"
	"github.com/cleared-dev/ledgerkit/internal/importer"
	"github.com/cleared-dev/ledgerkit/internal/ingest"
	"github.com/cleared-dev/ledgerkit/internal/ledger"
	"github.com/cleared-dev/ledgerkit/internal/logger"
	"github.com/cleared-dev/ledgerkit/internal/recurring"
	"github.com/cleared-dev/ledgerkit/internal/rules"
	"github.com/cleared-dev/ledgerkit/internal/runlog"
)

// project is an opened ledgerkit project: configuration, stores and the
// services built on them.
type project struct {
	root     string
	cfg      *config.Config
	cats     *categories.Service
	store    ledger.Store
	rules    categorize.RuleStore
	patterns recurring.PatternStore
	registry *importer.Registry
	locks    *accountlock.Locker
	log      zerolog.Logger
	runID    string
}

func openProject(repoDir string) (*project, error) {
	root, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	cats, err := categories.Load(root)
	if err != nil {
		return nil, err
	}

	p := &project{
		root:     root,
		cfg:      cfg,
		cats:     cats,
		registry: importer.DefaultRegistry(),
		locks:    &accountlock.Locker{},
		runID:    id.NewImportID(),
	}
	p.log = logger.New(cfg.Log.Level, cfg.Log.Format).With().Str("run_id", p.runID).Logger()

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := ledger.OpenSQLite(p.path(cfg.Storage.Path), cats)
		if err != nil {
			return nil, err
		}
		p.store, p.rules, p.patterns = db, db, db
	case config.DriverCSV:
		p.store = ledger.NewFileStore(root, cats)
		p.rules = rules.NewFileStore(root)
		p.patterns = recurring.NewFileStore(root)
	}

	for _, a := range cfg.Accounts {
		if _, err := p.parser(a.ID); err != nil {
			p.store.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.root, rel)
}

func (p *project) Close() error {
	return p.store.Close()
}

func (p *project) context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, p.log)
}

// parser resolves the parser for an account's exports.
func (p *project) parser(accountID string) (importer.Parser, error) {
	key, err := p.cfg.ParserKey(accountID)
	if err != nil {
		return nil, err
	}
	parser, err := p.registry.Create(key)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", accountID, err)
	}
	return parser, nil
}

func (p *project) coordinator() *ingest.Coordinator {
	return ingest.NewCoordinator(p.store, p.cfg)
}

func (p *project) engine() *categorize.Engine {
	return categorize.NewEngine(p.store, p.rules, p.cats, categorize.Options{
		LearnFromCorrections: p.cfg.Categorization.LearnFromCorrections,
		LearnedRulePriority:  p.cfg.Categorization.LearnedRulePriority,
	})
}

func (p *project) detector() *recurring.Detector {
	return recurring.NewDetector(p.store, p.patterns, recurring.Options{
		TolerancePercent: decimal.NewFromFloat(p.cfg.Recurring.TolerancePercent),
		MinOccurrences:   p.cfg.Recurring.MinOccurrences,
	})
}

// accounts returns the single requested account, or every configured account.
func (p *project) accounts(accountID string) ([]string, error) {
	if accountID == "" {
		return p.cfg.AccountIDs(), nil
	}
	if _, err := p.cfg.Account(accountID); err != nil {
		return nil, err
	}
	return []string{accountID}, nil
}

// record appends a run log row. Failing to write the log is reported but
// never hides the command's own error.
func (p *project) record(command, accountID, details string, runErr error) {
	e := runlog.Entry{
		Timestamp: time.Now(),
		RunID:     p.runID,
		Command:   command,
		AccountID: accountID,
		Details:   details,
		Failed:    runErr != nil,
	}
	if runErr != nil {
		e.Details = runErr.Error()
	}
	if err := runlog.Append(p.root, []runlog.Entry{e}); err != nil {
		p.log.Warn().Err(err).Msg("writing run log")
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// isMalformed reports whether err means the export had nothing importable.
func isMalformed(err error) bool {
	return errors.Is(err, importer.ErrMalformedFile)
}
