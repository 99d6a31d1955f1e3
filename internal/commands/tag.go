package commands

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/filter"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/report"
	"github.com/ledgerline/ledgerline/internal/tagging"
	"github.com/ledgerline/ledgerline/internal/tagstore"
)

func newTagCommand(dataDir *string) *cobra.Command {
	var del bool
	var unused bool
	var yes bool
	var flt filter.Filter

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag transactions interactively, or delete tag entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dataDir)
			if err != nil {
				return err
			}
			switch {
			case del:
				return runTagDelete(cmd, cfg, flt, yes)
			case unused:
				return runTagDeleteUnused(cmd, cfg, yes)
			default:
				return runTag(cmd, cfg)
			}
		},
	}

	cmd.Flags().BoolVar(&del, "delete", false, "delete tag entries matching the filter flags")
	cmd.Flags().BoolVar(&unused, "unused", false, "delete tag entries with no matching transaction")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the deletion confirmation")
	cmd.Flags().StringSliceVar(&flt.Tags, "tags", nil, "filter: tag names")
	cmd.Flags().StringSliceVar(&flt.Subtags, "subtags", nil, "filter: subtag names")
	cmd.Flags().StringVar(&flt.Description, "description", "", "filter: description regex")
	cmd.Flags().StringVar(&flt.Account, "account", "", "filter: exact account")
	cmd.Flags().StringVar(&flt.Source, "source", "", "filter: source regex")
	cmd.Flags().StringVar(&flt.StartDate, "start-date", "", "filter: inclusive start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flt.EndDate, "end-date", "", "filter: exclusive end date (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("delete", "unused")

	return cmd
}

func newEngine(cfg *config.Config) (*tagging.Engine, *tagstore.Store, error) {
	txns, err := ledger.NewService(cfg.SourceDir()).LoadAll()
	if err != nil {
		return nil, nil, err
	}
	store := tagstore.New(cfg.TagsPath())
	engine, err := tagging.NewEngine(store, txns, cfg.Tagging, cfg.AuditLogPath())
	if err != nil {
		return nil, nil, err
	}
	return engine, store, nil
}

func runTag(cmd *cobra.Command, cfg *config.Config) error {
	engine, _, err := newEngine(cfg)
	if err != nil {
		return err
	}

	preset, err := engine.ApplyPresets()
	if err != nil {
		return err
	}
	if preset > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Preset rules tagged %d transactions\n", preset)
	}

	tagged, err := tagging.Run(engine)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Tagged %d transactions this session\n", tagged)

	printSummary(cmd, engine)
	return nil
}

func printSummary(cmd *cobra.Command, engine *tagging.Engine) {
	counts, untagged := engine.Summary()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Existing tags:")
	for _, c := range counts {
		fmt.Fprintf(out, "  %4d  %s\n", c.Count, c.Pair)
	}
	if untagged > 0 {
		fmt.Fprintf(out, "  %4d  (untagged)\n", untagged)
	}
}

// runTagDelete removes tag entries whose joined transactions match the
// filter. The previous store is backed up before the destructive write.
func runTagDelete(cmd *cobra.Command, cfg *config.Config, flt filter.Filter, yes bool) error {
	engine, store, err := newEngine(cfg)
	if err != nil {
		return err
	}

	matched, _, err := flt.Apply(engine.Rows())
	if err != nil {
		return err
	}

	doomed := make(map[uint64]bool)
	for _, row := range matched {
		if row.Tagged() {
			doomed[row.Fingerprint] = true
		}
	}
	if len(doomed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tag entries match")
		return nil
	}

	return deleteEntries(cmd, cfg, store, doomed, yes)
}

// runTagDeleteUnused removes entries whose fingerprint matches no current
// transaction, e.g. after a source CSV was rewritten.
func runTagDeleteUnused(cmd *cobra.Command, cfg *config.Config, yes bool) error {
	engine, store, err := newEngine(cfg)
	if err != nil {
		return err
	}

	present := make(map[uint64]bool)
	for _, row := range engine.Rows() {
		present[row.Fingerprint] = true
	}

	entries, err := store.Load()
	if err != nil {
		return err
	}
	doomed := make(map[uint64]bool)
	for _, e := range entries {
		if !present[e.Hash] {
			doomed[e.Hash] = true
		}
	}
	if len(doomed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No unused tag entries")
		return nil
	}

	return deleteEntries(cmd, cfg, store, doomed, yes)
}

func deleteEntries(cmd *cobra.Command, cfg *config.Config, store *tagstore.Store, doomed map[uint64]bool, yes bool) error {
	entries, err := store.Load()
	if err != nil {
		return err
	}
	var remaining []tagstore.Entry
	var removed []tagstore.Entry
	for _, e := range entries {
		if doomed[e.Hash] {
			removed = append(removed, e)
			continue
		}
		remaining = append(remaining, e)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render(doomedTable(removed)))
	if !yes && !confirm(cmd, fmt.Sprintf("Delete %d tag entries? [y/N] ", len(removed))) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
	}

	backupPath, err := store.Replace(remaining)
	if err != nil {
		return err
	}
	if err := store.PruneBackups(cfg.General.MaximumBackups); err != nil {
		return err
	}

	now := time.Now()
	logEntries := make([]audit.Entry, len(removed))
	for i, e := range removed {
		logEntries[i] = audit.Entry{
			Timestamp: now,
			Action:    "delete",
			Hash:      e.Hash,
			Tag:       e.Tag,
			Subtag:    e.Subtag,
		}
	}
	if err := audit.Append(cfg.AuditLogPath(), logEntries); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d tag entries (backup: %s)\n", len(removed), backupPath)
	return nil
}

// doomedTable lists the entries about to be deleted, grouped per tag pair,
// so the confirmation prompt shows what is at stake.
func doomedTable(removed []tagstore.Entry) report.Table {
	counts := make(map[model.TagPair]int)
	var pairs []model.TagPair
	for _, e := range removed {
		pair := e.Pair()
		if _, ok := counts[pair]; !ok {
			pairs = append(pairs, pair)
		}
		counts[pair]++
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Tag != pairs[j].Tag {
			return pairs[i].Tag < pairs[j].Tag
		}
		return pairs[i].Subtag < pairs[j].Subtag
	})

	table := report.Table{
		Title:   "Tag entries to delete",
		Headers: []string{"tag", "subtag", "entries"},
	}
	for _, pair := range pairs {
		table.Rows = append(table.Rows, []string{pair.Tag, pair.Subtag, strconv.Itoa(counts[pair])})
	}
	table.Rows = append(table.Rows, []string{"total", "", strconv.Itoa(len(removed))})
	return table
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
