package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/fingerprint"
	"github.com/ledgerline/ledgerline/internal/importer"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/model"
)

func newIngestCommand(dataDir *string) *cobra.Command {
	var account string
	var source string
	var format string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Parse bank exports into the account's source CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dataDir)
			if err != nil {
				return err
			}
			return runIngest(cmd, cfg, args, account, source, format)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&source, "source", "", "source within the account, e.g. debit/card (required)")
	_ = cmd.MarkFlagRequired("source")
	cmd.Flags().StringVar(&format, "format", "generic", "configured export format")

	return cmd
}

func runIngest(cmd *cobra.Command, cfg *config.Config, files []string, account, source, format string) error {
	registry := importer.DefaultRegistry(cfg)
	parser, err := registry.Get(format)
	if err != nil {
		return err
	}

	var parsed []model.Transaction
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("opening export %s: %w", file, err)
		}
		txns, err := parser.Parse(f, account, source)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}
		parsed = append(parsed, txns...)
	}

	service := ledger.NewService(cfg.SourceDir())
	existing, err := service.LoadAccount(account)
	if err != nil {
		return err
	}

	// Merge by fingerprint so re-ingesting the same export is a no-op.
	seen := make(map[uint64]bool, len(existing))
	for _, txn := range existing {
		seen[fingerprint.Transaction(txn)] = true
	}
	merged := existing
	added := 0
	for _, txn := range parsed {
		hash := fingerprint.Transaction(txn)
		if seen[hash] {
			continue
		}
		seen[hash] = true
		merged = append(merged, txn)
		added++
	}

	if err := service.WriteAccount(account, merged); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d new transactions into %s (%d already present) from %s\n",
		added, account, len(parsed)-added, strings.Join(files, ", "))
	return nil
}
