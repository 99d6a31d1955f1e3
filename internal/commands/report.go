package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/enrich"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/report"
	"github.com/ledgerline/ledgerline/internal/tagging"
	"github.com/ledgerline/ledgerline/internal/tagstore"
)

var reportNames = []string{"expenses", "incomes", "cashflow", "rolling", "balances"}

func newReportCommand(dataDir *string) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:       "report [expenses|incomes|cashflow|rolling|balances]",
		Short:     "Render analysis tables from the enriched ledger",
		Args:      cobra.OnlyValidArgs,
		ValidArgs: reportNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dataDir)
			if err != nil {
				return err
			}
			return runReport(cmd, cfg, args, export)
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "also write the enriched table as CSV to this path")

	return cmd
}

func buildDataset(cfg *config.Config) (*enrich.Dataset, error) {
	txns, err := ledger.NewService(cfg.SourceDir()).LoadAll()
	if err != nil {
		return nil, err
	}
	entries, err := tagstore.New(cfg.TagsPath()).Load()
	if err != nil {
		return nil, err
	}
	rows := tagging.Join(txns, entries)
	return enrich.New(cfg).Run(rows)
}

func runReport(cmd *cobra.Command, cfg *config.Config, names []string, export string) error {
	ds, err := buildDataset(cfg)
	if err != nil {
		return err
	}

	if export != "" {
		f, err := os.Create(export)
		if err != nil {
			return fmt.Errorf("creating export %s: %w", export, err)
		}
		defer f.Close()
		if err := enrich.Write(f, ds.All()); err != nil {
			return fmt.Errorf("exporting enriched table: %w", err)
		}
	}

	if len(names) == 0 {
		names = reportNames
	}

	builder := report.New(cfg)
	out := cmd.OutOrStdout()
	for _, name := range names {
		var table report.Table
		switch name {
		case "expenses":
			table = builder.ExpensesBreakdown(ds)
		case "incomes":
			table = builder.IncomesBreakdown(ds)
		case "cashflow":
			table = builder.CashFlow(ds)
		case "rolling":
			table = builder.RollingAverages(ds)
		case "balances":
			table = builder.Balances(ds)
		}
		fmt.Fprintln(out, report.Render(table))
	}
	return nil
}
