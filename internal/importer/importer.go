// Package importer turns institution export files into canonical parsed
// transactions. Each institution family has its own Parser; the Registry
// resolves an institution key to one.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

var (
	// ErrUnknownInstitution is a configuration error: no parser is
	// registered for the key. It is never retried.
	ErrUnknownInstitution = errors.New("unknown institution")

	// ErrMalformedFile means the bytes are not a workbook at all. Delimited
	// exports with the wrong shape are not errors: every row is skipped.
	ErrMalformedFile = errors.New("malformed export file")
)

// Parser converts one institution's export into ParsedTransactions.
// Malformed rows are skipped and counted, never returned as errors.
type Parser interface {
	Parse(r io.Reader) (model.ParseResult, error)
	Key() string
}

// Registry holds parsers by institution key.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate key.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Key())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser key: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for key, or nil.
func (r *Registry) Get(key string) Parser {
	return r.parsers[strings.ToLower(strings.TrimSpace(key))]
}

// Create returns the parser for key or ErrUnknownInstitution.
func (r *Registry) Create(key string) (Parser, error) {
	p := r.Get(key)
	if p == nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownInstitution, key, strings.Join(r.Keys(), ", "))
	}
	return p, nil
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CreditMutuelParser{})
	r.Register(&BoursoramaParser{})
	r.Register(NewCreditAgricoleParser())
	r.Register(NewBourseDirectParser())
	r.Register(&EnterpriseParser{})
	return r
}

// importDir is the subdirectory holding one folder of exports per account.
const importDir = "import"

// processedDir is where imported exports are moved.
const processedDir = "import/processed"

// FileInfo describes an export waiting in the import directory.
type FileInfo struct {
	AccountID string
	Name      string
	Path      string
	Size      int64
}

// Scan returns export files in <root>/import/<account-id>/.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	accounts, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, a := range accounts {
		if !a.IsDir() || a.Name() == filepath.Base(processedDir) {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(dir, a.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading import dir %s: %w", a.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() || !isExport(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
			}
			files = append(files, FileInfo{
				AccountID: a.Name(),
				Name:      e.Name(),
				Path:      filepath.Join(dir, a.Name(), e.Name()),
				Size:      info.Size(),
			})
		}
	}
	return files, nil
}

func isExport(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".xlsx":
		return true
	}
	return false
}

// MarkProcessed moves an export from import/<account>/ to
// import/processed/<account>/.
func MarkProcessed(root, accountID, fileName string) error {
	src := filepath.Join(root, importDir, accountID, fileName)
	dstDir := filepath.Join(root, processedDir, accountID)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
