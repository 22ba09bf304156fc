package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// FileName is the project configuration file at the project root.
const FileName = "ledgerkit.yaml"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverCSV    = "csv"
)

var (
	// ErrUnknownAccount means an account ID is not configured.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrUnknownInstitution means an account refers to an institution that is
	// not configured.
	ErrUnknownInstitution = errors.New("unknown institution")
)

// Config represents the top-level ledgerkit.yaml configuration.
type Config struct {
	Ledger         LedgerConfig         `yaml:"ledger"`
	Storage        StorageConfig        `yaml:"storage"`
	Institutions   []Institution        `yaml:"institutions"`
	Accounts       []Account            `yaml:"accounts,omitempty"`
	Import         ImportConfig         `yaml:"import"`
	Categorization CategorizationConfig `yaml:"categorization"`
	Recurring      RecurringConfig      `yaml:"recurring"`
	Log            LogConfig            `yaml:"log"`
}

// LedgerConfig names the ledger.
type LedgerConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// StorageConfig selects where transactions are kept.
type StorageConfig struct {
	Driver string `yaml:"driver"`         // sqlite or csv
	Path   string `yaml:"path,omitempty"` // sqlite database file, relative to the project root
}

// Institution maps an institution to the parser for its exports.
type Institution struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Parser string `yaml:"parser"`
}

// Account is one bank, brokerage or business account.
type Account struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Institution string `yaml:"institution"`
	Currency    string `yaml:"currency,omitempty"`
}

// ImportConfig controls the import command.
type ImportConfig struct {
	AutoCategorize bool `yaml:"auto_categorize"`
}

// CategorizationConfig controls rule learning.
type CategorizationConfig struct {
	LearnFromCorrections bool `yaml:"learn_from_corrections"`
	LearnedRulePriority  int  `yaml:"learned_rule_priority"`
}

// RecurringConfig controls recurring pattern detection.
type RecurringConfig struct {
	TolerancePercent float64 `yaml:"tolerance_percent"`
	MinOccurrences   int     `yaml:"min_occurrences"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads a ledgerkit.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project. Every
// built-in institution is configured; accounts are left to the user.
func Default(ledgerName string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Name:     ledgerName,
			Currency: "EUR",
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "ledger/ledger.db",
		},
		Institutions: []Institution{
			{Key: "creditmutuel", Name: "Crédit Mutuel", Parser: "creditmutuel"},
			{Key: "boursorama", Name: "Boursorama", Parser: "boursorama"},
			{Key: "ca", Name: "Crédit Agricole", Parser: "ca"},
			{Key: "boursedirect", Name: "Bourse Direct", Parser: "boursedirect"},
			{Key: "sci", Name: "SCI business account", Parser: "sci"},
		},
		Import: ImportConfig{
			AutoCategorize: true,
		},
		Categorization: CategorizationConfig{
			LearnFromCorrections: false,
			LearnedRulePriority:  200,
		},
		Recurring: RecurringConfig{
			TolerancePercent: 5,
			MinOccurrences:   3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks references between sections.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for the sqlite driver")
		}
	case DriverCSV:
	default:
		return fmt.Errorf("storage driver %q: want %s or %s", c.Storage.Driver, DriverSQLite, DriverCSV)
	}

	institutions := make(map[string]bool, len(c.Institutions))
	for _, inst := range c.Institutions {
		if inst.Key == "" || inst.Parser == "" {
			return fmt.Errorf("institution %q: key and parser are required", inst.Name)
		}
		institutions[strings.ToLower(inst.Key)] = true
	}

	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("account %q: missing id", a.Name)
		}
		if strings.ContainsAny(a.ID, `/\ `) {
			return fmt.Errorf("account id %q: must not contain spaces or path separators", a.ID)
		}
		if seen[a.ID] {
			return fmt.Errorf("account %q defined twice", a.ID)
		}
		seen[a.ID] = true
		if !institutions[strings.ToLower(a.Institution)] {
			return fmt.Errorf("account %q: %w %q", a.ID, ErrUnknownInstitution, a.Institution)
		}
	}
	return nil
}

// Account returns the configured account with the given ID.
func (c *Config) Account(id string) (model.Account, error) {
	for _, a := range c.Accounts {
		if a.ID == id {
			currency := a.Currency
			if currency == "" {
				currency = c.Ledger.Currency
			}
			inst, err := c.Institution(a.Institution)
			if err != nil {
				return model.Account{}, fmt.Errorf("account %q: %w", id, err)
			}
			return model.Account{ID: a.ID, Name: a.Name, Institution: inst, Currency: currency}, nil
		}
	}
	return model.Account{}, fmt.Errorf("%w: %q", ErrUnknownAccount, id)
}

// Institution returns the configured institution with the given key.
func (c *Config) Institution(key string) (model.Institution, error) {
	for _, inst := range c.Institutions {
		if strings.EqualFold(inst.Key, key) {
			return model.Institution{Key: inst.Key, Name: inst.Name, Parser: inst.Parser}, nil
		}
	}
	return model.Institution{}, fmt.Errorf("%w: %q", ErrUnknownInstitution, key)
}

// ParserKey returns the parser key for an account's exports.
func (c *Config) ParserKey(accountID string) (string, error) {
	a, err := c.Account(accountID)
	if err != nil {
		return "", err
	}
	return strings.ToLower(a.Institution.Parser), nil
}

// AccountIDs returns the configured account IDs in file order.
func (c *Config) AccountIDs() []string {
	ids := make([]string, len(c.Accounts))
	for i, a := range c.Accounts {
		ids[i] = a.ID
	}
	return ids
}
