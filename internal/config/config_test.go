package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg := Default(dir)
	cfg.Tagging.DefaultTag = "misc"
	cfg.Tagging.FuzzyGuessDistance = 3
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir, loaded.General.DataDir)
	assert.Equal(t, " - ", loaded.General.LabelDelimiter)
	assert.Equal(t, 10, loaded.General.MaximumBackups)
	assert.Equal(t, "misc", loaded.Tagging.DefaultTag)
	assert.Equal(t, 3, loaded.Tagging.FuzzyGuessDistance)
	require.Len(t, loaded.Ingest.Formats, 1)
	assert.Equal(t, "generic", loaded.Ingest.Formats[0].Name)
}

func TestDefaultFiltersMatchNothing(t *testing.T) {
	cfg := Default(t.TempDir())

	external, err := cfg.Reports.ExternalFilter.Compile()
	require.NoError(t, err)
	exclude, err := cfg.Reports.BreakdownExclude.Compile()
	require.NoError(t, err)

	row := model.TaggedTransaction{}
	assert.False(t, external(row), "nothing external by default")
	assert.False(t, exclude(row), "nothing excluded from breakdowns by default")
}

func TestLoadOmittedFiltersMatchNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("general:\n  data_dir: /tmp/x\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	external, err := cfg.Reports.ExternalFilter.Compile()
	require.NoError(t, err)
	exclude, err := cfg.Reports.BreakdownExclude.Compile()
	require.NoError(t, err)

	row := model.TaggedTransaction{Tags: &model.TagPair{Tag: "Food", Subtag: "Coffee"}}
	assert.False(t, external(row), "a file without a reports section classifies nothing as external")
	assert.False(t, exclude(row), "a file without a reports section excludes nothing from breakdowns")
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("general:\n  data_dir: /tmp/x\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, " - ", cfg.General.LabelDelimiter, "missing delimiter falls back")
}

func TestPaths(t *testing.T) {
	cfg := Default("/data")
	assert.Equal(t, filepath.Join("/data", "sources"), cfg.SourceDir())
	assert.Equal(t, filepath.Join("/data", "tags.csv"), cfg.TagsPath())
	assert.Equal(t, filepath.Join("/data", "logs", "tag-log.csv"), cfg.AuditLogPath())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
}
