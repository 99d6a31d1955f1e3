// Package config loads the ledgerline.yaml configuration. The Config value is
// constructed once at startup and passed explicitly into every component;
// nothing reads configuration through package state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ledgerline/ledgerline/internal/filter"
)

// FileName is the expected configuration file name in a data directory.
const FileName = "ledgerline.yaml"

// Config represents the top-level ledgerline.yaml configuration.
type Config struct {
	General GeneralConfig  `yaml:"general"`
	Ingest  IngestConfig   `yaml:"ingest"`
	Tagging TaggingConfig  `yaml:"tagging"`
	Reports AnalysisConfig `yaml:"reports"`
}

// GeneralConfig holds paths and display conventions.
type GeneralConfig struct {
	// DataDir is the root for sources/, tags.csv, logs/ and backups.
	DataDir string `yaml:"data_dir"`
	// LabelDelimiter joins combined display columns like "Food - Coffee".
	LabelDelimiter string `yaml:"label_delimiter"`
	// MaximumBackups prunes oldest tag-store backups beyond this count.
	// Negative disables pruning.
	MaximumBackups int `yaml:"maximum_backups"`
}

// IngestConfig describes the bank-export formats accepted by `ingest`.
type IngestConfig struct {
	Formats []CSVFormat `yaml:"formats,omitempty"`
}

// CSVFormat defines how to parse one bank's CSV export into the raw schema.
type CSVFormat struct {
	Name       string `yaml:"name"`
	DateFormat string `yaml:"date_format"` // Go reference layout
	HasHeader  bool   `yaml:"has_header"`
	DateCol    int    `yaml:"date_col"`
	AmountCol  int    `yaml:"amount_col"`
	DescCol    int    `yaml:"desc_col"`
	// AmountStrip lists characters removed from the amount before parsing,
	// e.g. thousands separators.
	AmountStrip string `yaml:"amount_strip,omitempty"`
}

// PresetRule assigns a tag pair to every still-untagged transaction matching
// its filter. Earlier rules win when several match the same row.
type PresetRule struct {
	Tag    string        `yaml:"tag"`
	Subtag string        `yaml:"subtag"`
	Filter filter.Filter `yaml:"filter"`
}

// TaggingConfig controls the tagging engine.
type TaggingConfig struct {
	// DefaultTag/DefaultSubtag override the guess when no exact
	// description match exists. Empty means no default.
	DefaultTag    string `yaml:"default_tag,omitempty"`
	DefaultSubtag string `yaml:"default_subtag,omitempty"`
	// FuzzyGuessDistance enables a levenshtein nearest-description guess
	// when no exact match exists. 0 disables fuzzy guessing.
	FuzzyGuessDistance int `yaml:"fuzzy_guess_distance,omitempty"`
	// PresetRules are applied to untagged rows before interactive tagging.
	PresetRules []PresetRule `yaml:"preset_rules,omitempty"`
}

// EdgeTickConfig controls one edge of synthetic tick injection.
type EdgeTickConfig struct {
	Enable       bool `yaml:"enable"`
	PadDays      int  `yaml:"pad_days"`
	CapSameMonth bool `yaml:"cap_same_month"`
}

// AnalysisConfig controls enrichment classification and report shape.
type AnalysisConfig struct {
	// ExternalFilter marks transactions crossing out of the tracked set.
	ExternalFilter filter.Filter `yaml:"external_filter"`
	// BreakdownExclude marks transactions to omit from breakdowns and
	// cash flows (e.g. transfers). Stored as the exclusion; the pipeline
	// applies its inverse.
	BreakdownExclude filter.Filter `yaml:"breakdown_exclude"`
	// EdgeTickMin/EdgeTickMax anchor chart axes outside the data range.
	EdgeTickMin EdgeTickConfig `yaml:"edge_tick_min"`
	EdgeTickMax EdgeTickConfig `yaml:"edge_tick_max"`
	// SentinelTicks fills sparse months for every tag/account combination.
	SentinelTicks bool `yaml:"sentinel_ticks"`
	// AllowUntagged bypasses the strict no-null-tag check before reports.
	AllowUntagged bool `yaml:"allow_untagged"`
	// RollingAverages maps a label to monthly weights, oldest first.
	RollingAverages map[string][]float64 `yaml:"rolling_averages,omitempty"`
}

// Load reads a ledgerline.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
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

// Default returns a Config with sensible defaults rooted at dataDir.
func Default(dataDir string) *Config {
	cfg := &Config{
		General: GeneralConfig{
			DataDir:        dataDir,
			LabelDelimiter: " - ",
			MaximumBackups: 10,
		},
		Ingest: IngestConfig{
			Formats: []CSVFormat{
				{
					Name:        "generic",
					DateFormat:  "2006-01-02",
					HasHeader:   true,
					DateCol:     0,
					AmountCol:   1,
					DescCol:     2,
					AmountStrip: ",",
				},
			},
		},
		Reports: AnalysisConfig{
			// An inverted empty filter matches nothing: by default no
			// transaction is external and none is excluded from breakdowns.
			ExternalFilter:   filter.Filter{Invert: true},
			BreakdownExclude: filter.Filter{Invert: true},
			EdgeTickMin:      EdgeTickConfig{PadDays: 31, CapSameMonth: true},
			EdgeTickMax:      EdgeTickConfig{PadDays: 31, CapSameMonth: true},
			RollingAverages: map[string][]float64{
				"quarter": {4, 5, 6},
				"semi":    {7, 8, 9, 10, 11, 12},
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.General.LabelDelimiter == "" {
		c.General.LabelDelimiter = " - "
	}
	// An omitted classification filter unmarshals to the zero Filter, which
	// would match every row; classification defaults to matching none.
	if c.Reports.ExternalFilter.IsZero() {
		c.Reports.ExternalFilter = filter.Filter{Invert: true}
	}
	if c.Reports.BreakdownExclude.IsZero() {
		c.Reports.BreakdownExclude = filter.Filter{Invert: true}
	}
}

// SourceDir returns the directory of per-account raw CSVs.
func (c *Config) SourceDir() string {
	return filepath.Join(c.General.DataDir, "sources")
}

// TagsPath returns the tag store file path.
func (c *Config) TagsPath() string {
	return filepath.Join(c.General.DataDir, "tags.csv")
}

// AuditLogPath returns the tagging audit log path.
func (c *Config) AuditLogPath() string {
	return filepath.Join(c.General.DataDir, "logs", "tag-log.csv")
}
