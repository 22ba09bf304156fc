package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerkit/internal/config"
	"github.com/cleared-dev/ledgerkit/internal/ledger"
	"github.com/cleared-dev/ledgerkit/internal/runlog"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "ledgerkit-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "ledgerkit")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/ledgerkit")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runLedgerkit(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// newProject initializes a project with one Crédit Mutuel checking account.
func newProject(t *testing.T, storage string) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runLedgerkit(t, "init", dir, "--name", "Famille", "--storage", storage)
	require.NoError(t, err, out)

	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Log.Level = "warn"
	cfg.Accounts = append(cfg.Accounts,
		config.Account{ID: "checking", Name: "Compte courant", Institution: "creditmutuel"},
		config.Account{ID: "sci", Name: "SCI Les Tilleuls", Institution: "sci"},
	)
	require.NoError(t, config.Save(path, cfg))
	return dir
}

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerkit(t, "init", dir, "--name", "Famille")
	require.NoError(t, err)

	for _, d := range []string{"categories", "rules", "ledger", "logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
	for _, f := range []string{config.FileName, "categories/categories.csv", "rules/categorization-rules.yaml", ".gitignore"} {
		_, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, "%s should exist", f)
	}

	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Famille")
	assert.Contains(t, string(data), "driver: sqlite")
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runLedgerkit(t, "init", t.TempDir())
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingProject(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedgerkit(t, "init", dir, "--name", "Famille")
	require.NoError(t, err)
	out, err := runLedgerkit(t, "init", dir, "--name", "Autre")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}

func TestImport_Idempotent(t *testing.T) {
	for _, storage := range []string{config.DriverSQLite, config.DriverCSV} {
		t.Run(storage, func(t *testing.T) {
			dir := newProject(t, storage)

			out, err := runLedgerkit(t, "import", testdata("creditmutuel_personal.csv"), "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)
			assert.Contains(t, out, "5 parsed, 5 inserted")
			assert.Contains(t, out, "2 rows skipped")
			assert.Contains(t, out, "balance 2772.81")
			assert.Contains(t, out, "categorized 4 of 5")
			assert.Contains(t, out, "1 unmatched")

			out, err = runLedgerkit(t, "import", testdata("creditmutuel_personal.csv"), "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)
			assert.Contains(t, out, "0 inserted, 5 already imported")

			out, err = runLedgerkit(t, "balance", "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)
			assert.Contains(t, out, "2772.81 EUR")
		})
	}
}

func TestImport_UnknownAccount(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)
	out, err := runLedgerkit(t, "import", testdata("sci.csv"), "--account", "savings", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "unknown account")
}

func TestImport_NothingImportable(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)
	bad := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Date;Libellé\n01/01/2025\n02/01/2025\n"), 0o644))

	out, err := runLedgerkit(t, "import", bad, "--account", "checking", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "nothing importable (2 rows skipped)")

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Failed)
	assert.Contains(t, entries[0].Details, "parsed=0")
}

func TestImport_NotAWorkbook(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)
	cfgPath := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Accounts = append(cfg.Accounts, config.Account{ID: "pea", Institution: "boursedirect"})
	require.NoError(t, config.Save(cfgPath, cfg))

	bad := filepath.Join(t.TempDir(), "releve.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a workbook"), 0o644))

	out, err := runLedgerkit(t, "import", bad, "--account", "pea", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "nothing importable")

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.True(t, entries[len(entries)-1].Failed)
}

func TestImportScan_MovesProcessedFiles(t *testing.T) {
	dir := newProject(t, config.DriverCSV)
	data, err := os.ReadFile(testdata("sci.csv"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "import", "sci"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "sci", "releve.csv"), data, 0o644))

	out, err := runLedgerkit(t, "import", "scan", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "balance 2250.00")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "sci", "releve.csv"))
	require.NoError(t, err, "export should be moved to processed/")
	_, err = os.Stat(filepath.Join(dir, "import", "sci", "releve.csv"))
	assert.True(t, os.IsNotExist(err))

	out, err = runLedgerkit(t, "import", "scan", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No exports to import.")
}

func TestRules_AddListAndApply(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)

	out, err := runLedgerkit(t, "rules", "add", "--pattern", "BOUTIQUE", "--category", "shopping", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "CONTAINS \"BOUTIQUE\" → shopping")

	_, err = runLedgerkit(t, "rules", "add", "--pattern", "(", "--match", "regex", "--category", "shopping", "--repo", dir)
	require.Error(t, err, "invalid regular expressions are rejected")

	out, err = runLedgerkit(t, "rules", "list", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "\"BOUTIQUE\"")

	out, err = runLedgerkit(t, "import", testdata("creditmutuel_personal.csv"), "--account", "checking", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "categorized 5 of 5 (1 rule")
}

func TestCategorizeSet_Learn(t *testing.T) {
	dir := newProject(t, config.DriverCSV)
	out, err := runLedgerkit(t, "import", testdata("creditmutuel_personal.csv"), "--account", "checking", "--repo", dir)
	require.NoError(t, err, out)

	f, err := os.Open(filepath.Join(dir, "ledger", "checking.csv"))
	require.NoError(t, err)
	txns, err := ledger.ReadTransactions(f)
	f.Close()
	require.NoError(t, err)

	var target string
	for _, tx := range txns {
		if strings.Contains(tx.Description, "BOUTIQUE") {
			target = tx.ID
		}
	}
	require.NotEmpty(t, target)

	out, err = runLedgerkit(t, "categorize", "set", target, "shopping", "--learn", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "learned rule")

	rulesData, err := os.ReadFile(filepath.Join(dir, "rules", "categorization-rules.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(rulesData), "match_type: EXACT")
	assert.Contains(t, string(rulesData), "priority: 200")

	out, err = runLedgerkit(t, "categorize", "set", target, "no-such-category", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "unknown category")
}

func TestCategorize_AllAccounts(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)
	cfgPath := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Import.AutoCategorize = false
	require.NoError(t, config.Save(cfgPath, cfg))

	_, err = runLedgerkit(t, "import", testdata("creditmutuel_personal.csv"), "--account", "checking", "--repo", dir)
	require.NoError(t, err)
	_, err = runLedgerkit(t, "import", testdata("sci.csv"), "--account", "sci", "--repo", dir)
	require.NoError(t, err)

	out, err := runLedgerkit(t, "categorize", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: categorized 4 of 5")
	assert.Contains(t, out, "sci: categorized 0 of 2")

	out, err = runLedgerkit(t, "categorize", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: categorized 0 of 1")
}

func TestRecurring_DetectAndList(t *testing.T) {
	for _, storage := range []string{config.DriverSQLite, config.DriverCSV} {
		t.Run(storage, func(t *testing.T) {
			dir := newProject(t, storage)
			var b strings.Builder
			b.WriteString("Date;Date de valeur;Libellé;Débit;Crédit;Catégorie;Sous-catégorie;Solde\n")
			for _, d := range []string{"08/01/2025", "08/02/2025", "08/03/2025", "08/04/2025"} {
				b.WriteString(d + ";" + d + ";PRLV FREE MOBILE;-19,99;;Télécommunications;Téléphone;\n")
			}
			export := filepath.Join(t.TempDir(), "free.csv")
			require.NoError(t, os.WriteFile(export, []byte(b.String()), 0o644))

			out, err := runLedgerkit(t, "import", export, "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)

			out, err = runLedgerkit(t, "recurring", "detect", "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)
			assert.Contains(t, out, "checking: 1 recurring, 1 new")

			out, err = runLedgerkit(t, "recurring", "list", "--all", "--repo", dir)
			require.NoError(t, err, out)
			assert.Contains(t, out, "MONTHLY")
			assert.Contains(t, out, "prlv free mobile")
		})
	}
}

func TestAccounts_PurgeDropsRecurringPatterns(t *testing.T) {
	for _, storage := range []string{config.DriverSQLite, config.DriverCSV} {
		t.Run(storage, func(t *testing.T) {
			dir := newProject(t, storage)
			var b strings.Builder
			b.WriteString("Date;Date de valeur;Libellé;Débit;Crédit;Catégorie;Sous-catégorie;Solde\n")
			for _, d := range []string{"08/01/2025", "08/02/2025", "08/03/2025"} {
				b.WriteString(d + ";" + d + ";PRLV FREE MOBILE;-19,99;;Télécommunications;Téléphone;\n")
			}
			export := filepath.Join(t.TempDir(), "free.csv")
			require.NoError(t, os.WriteFile(export, []byte(b.String()), 0o644))

			out, err := runLedgerkit(t, "import", export, "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)
			out, err = runLedgerkit(t, "recurring", "detect", "--account", "checking", "--repo", dir)
			require.NoError(t, err, out)

			out, err = runLedgerkit(t, "accounts", "purge", "checking", "--yes", "--repo", dir)
			require.NoError(t, err, out)

			out, err = runLedgerkit(t, "recurring", "list", "--all", "--repo", dir)
			require.NoError(t, err, out)
			assert.NotContains(t, out, "prlv free mobile")
		})
	}
}

func TestAccounts_ListAndPurge(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)
	out, err := runLedgerkit(t, "accounts", "list", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking")
	assert.Contains(t, out, "creditmutuel")

	_, err = runLedgerkit(t, "import", testdata("creditmutuel_personal.csv"), "--account", "checking", "--repo", dir)
	require.NoError(t, err)

	_, err = runLedgerkit(t, "accounts", "purge", "checking", "--repo", dir)
	require.Error(t, err, "purge requires --yes")

	out, err = runLedgerkit(t, "accounts", "purge", "checking", "--yes", "--repo", dir)
	require.NoError(t, err, out)

	out, err = runLedgerkit(t, "balance", "--account", "checking", "--recompute", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0.00 EUR")
}

func TestRunLog_RecordsImports(t *testing.T) {
	dir := newProject(t, config.DriverSQLite)
	_, err := runLedgerkit(t, "import", testdata("creditmutuel_pro.csv"), "--account", "checking", "--repo", dir)
	require.NoError(t, err)

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "import", entries[0].Command)
	assert.Equal(t, "checking", entries[0].AccountID)
	assert.Contains(t, entries[0].Details, "inserted=2")
	assert.False(t, entries[0].Failed)
}

func TestVersion(t *testing.T) {
	out, err := runLedgerkit(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledgerkit version dev")
}
