package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/fingerprint"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/tagstore"
)

func fingerprintOf(txn model.Transaction) uint64 {
	return fingerprint.Transaction(txn)
}

func newInitialized(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", dir})
	require.NoError(t, cmd.Execute())

	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	return dir, cfg
}

func TestInitCreatesLayout(t *testing.T) {
	dir, cfg := newInitialized(t)

	assert.FileExists(t, filepath.Join(dir, config.FileName))
	assert.FileExists(t, cfg.TagsPath(), "header-only tag store created up front")
	assert.DirExists(t, cfg.SourceDir())

	data, err := os.ReadFile(cfg.TagsPath())
	require.NoError(t, err)
	assert.Equal(t, "tag,subtag,hash\n", string(data))
}

func TestInitRefusesExistingConfig(t *testing.T) {
	dir, _ := newInitialized(t)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", dir})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestIngest(t *testing.T) {
	dir, cfg := newInitialized(t)

	export := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(export, []byte(
		"date,amount,description\n2024-01-05,-42.50,Coffee Shop\n2024-01-07,\"1,500.00\",Salary\n",
	), 0o644))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ingest", export, "--dir", dir, "--account", "chk", "--source", "debit"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Ingested 2 new transactions")

	txns, err := ledger.NewService(cfg.SourceDir()).LoadAll()
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "1500.00", txns[1].Amount.StringFixed(2))

	// Re-ingesting the same export adds nothing.
	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ingest", export, "--dir", dir, "--account", "chk", "--source", "debit"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Ingested 0 new transactions")

	txns, err = ledger.NewService(cfg.SourceDir()).LoadAll()
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func seedLedgerAndTags(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir(), "chk.csv"), []byte(strings.Join([]string{
		"account,source,date,amount,description",
		"chk,debit,2024-01-05,-42.50,Coffee Shop",
		"chk,debit,2024-01-07,1500.00,Salary",
		"",
	}, "\n")), 0o644))

	store := tagstore.New(cfg.TagsPath())
	txns, err := ledger.NewService(cfg.SourceDir()).LoadAll()
	require.NoError(t, err)
	require.Len(t, txns, 2)

	_, err = store.Upsert([]tagstore.Entry{
		{Tag: "Food", Subtag: "Coffee", Hash: fingerprintOf(txns[0])},
		{Tag: "Income", Hash: fingerprintOf(txns[1])},
	})
	require.NoError(t, err)
}

func TestTagDeleteWithFilter(t *testing.T) {
	dir, cfg := newInitialized(t)
	seedLedgerAndTags(t, cfg)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("y\n"))
	cmd.SetArgs([]string{"tag", "--delete", "--dir", dir, "--tags", "Food"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Deleted 1 tag entries")

	// The doomed entries are listed before the prompt asks for consent.
	tableAt := strings.Index(out.String(), "Tag entries to delete")
	promptAt := strings.Index(out.String(), "Delete 1 tag entries? [y/N]")
	require.GreaterOrEqual(t, tableAt, 0)
	require.GreaterOrEqual(t, promptAt, 0)
	assert.Less(t, tableAt, promptAt)
	assert.Contains(t, out.String(), "Food")

	entries, err := tagstore.New(cfg.TagsPath()).Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Income", entries[0].Tag)

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.TagsPath()), "tags-*.csv.bak"))
	require.NoError(t, err)
	assert.Len(t, backups, 1, "previous store backed up before the destructive write")
}

func TestTagDeleteDeclined(t *testing.T) {
	dir, cfg := newInitialized(t)
	seedLedgerAndTags(t, cfg)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetArgs([]string{"tag", "--delete", "--dir", dir, "--tags", "Food"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Tag entries to delete",
		"declining still sees what would have been removed")
	assert.Contains(t, out.String(), "Aborted")

	entries, err := tagstore.New(cfg.TagsPath()).Load()
	require.NoError(t, err)
	assert.Len(t, entries, 2, "declined deletion leaves the store untouched")
}

func TestTagDeleteUnused(t *testing.T) {
	dir, cfg := newInitialized(t)
	seedLedgerAndTags(t, cfg)

	store := tagstore.New(cfg.TagsPath())
	_, err := store.Upsert([]tagstore.Entry{{Tag: "Stale", Hash: 12345}})
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"tag", "--unused", "--dir", dir, "--yes"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Deleted 1 tag entries")

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, "Stale", e.Tag)
	}
}

func TestReportRendersAndExports(t *testing.T) {
	dir, cfg := newInitialized(t)
	seedLedgerAndTags(t, cfg)

	exportPath := filepath.Join(t.TempDir(), "enriched.csv")
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"report", "--dir", dir, "--export", exportPath})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Expenses")
	assert.Contains(t, out.String(), "Cash flow")
	assert.Contains(t, out.String(), "Balances")
	assert.Contains(t, out.String(), "Food - Coffee")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "account,source,date,amount,description,tag,subtag,hash,month"))
}

func TestReportFailsOnUntagged(t *testing.T) {
	dir, cfg := newInitialized(t)
	seedLedgerAndTags(t, cfg)

	// Remove one tag entry so a row is left untagged.
	entries, err := tagstore.New(cfg.TagsPath()).Load()
	require.NoError(t, err)
	_, err = tagstore.New(cfg.TagsPath()).Replace(entries[:1])
	require.NoError(t, err)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", "--dir", dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "untagged")
}
