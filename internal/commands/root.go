// Package commands wires the CLI: init, ingest, tag, and report. Every
// command loads ledgerline.yaml from the data directory and passes the
// Config down explicitly.
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/buildinfo"
	"github.com/ledgerline/ledgerline/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:     "ledgerline",
		Short:   "Personal finance ledger with content-addressed tagging",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", ".", "data directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newIngestCommand(&dataDir))
	rootCmd.AddCommand(newTagCommand(&dataDir))
	rootCmd.AddCommand(newReportCommand(&dataDir))
	rootCmd.AddCommand(newVersionCommand(rootCmd))

	return rootCmd
}

func newVersionCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", root.Use, root.Version)
		},
	}
}

// loadConfig reads ledgerline.yaml from the data directory and anchors the
// configured paths there.
func loadConfig(dataDir string) (*config.Config, error) {
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(absDir, config.FileName))
	if err != nil {
		return nil, err
	}
	if cfg.General.DataDir == "" || !filepath.IsAbs(cfg.General.DataDir) {
		cfg.General.DataDir = absDir
	}
	return cfg, nil
}
