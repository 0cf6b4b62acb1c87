package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/observability"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the opportunity database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Drop and recreate all tables",
	Long:  `Deletes every run, opportunity and batch record, then creates an empty schema. Asks for confirmation unless --yes is given.`,
	Args:  cobra.NoArgs,
	RunE:  runDBInit,
}

var dbListRunsCmd = &cobra.Command{
	Use:   "list-runs",
	Short: "List previous runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDBListRuns,
}

var dbShowRunCmd = &cobra.Command{
	Use:   "show-run RUN_ID",
	Short: "Show a run and its batch history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBShowRun,
}

var dbShowOpportunityCmd = &cobra.Command{
	Use:   "show-opportunity URL",
	Short: "Show the stored judgement for a post URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBShowOpportunity,
}

var (
	dbInitYes       bool
	dbRunsAfter     string
	dbRunsBefore    string
	dbListRunsLimit int
)

func init() {
	dbInitCmd.Flags().BoolVarP(&dbInitYes, "yes", "y", false, "Skip the confirmation prompt")

	dbListRunsCmd.Flags().StringVar(&dbRunsAfter, "runs-after", "", "Only runs created on or after this day (YYYY-MM-DD)")
	dbListRunsCmd.Flags().StringVar(&dbRunsBefore, "runs-before", "", "Only runs created on or before this day (YYYY-MM-DD)")
	dbListRunsCmd.Flags().IntVar(&dbListRunsLimit, "limit", 0, "Maximum runs to list (0 for all)")

	dbCmd.AddCommand(dbInitCmd, dbListRunsCmd, dbShowRunCmd, dbShowOpportunityCmd)
	rootCmd.AddCommand(dbCmd)
}

// confirm asks a yes/no question on in; only "y" or "yes" confirm.
func confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runDBInit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCommandConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}

	if !dbInitYes && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("This deletes all data in %s. Continue?", cfg.DatabaseURL)) {
		_, _ = fmt.Fprintln(os.Stdout, "Aborted.")
		return nil
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Reset(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Database %s initialized.\n", cfg.DatabaseURL)
	return nil
}

func runDBListRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCommandConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, db.RunFilter{After: dbRunsAfter, Before: dbRunsBefore, Limit: dbListRunsLimit})
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout, cfg.Verbose).PrintRuns(runs)
	return nil
}

func runDBShowRun(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || runID <= 0 {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	cfg, err := loadCommandConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return showRun(ctx, os.Stdout, store, runID)
}

func showRun(ctx context.Context, out io.Writer, store db.Store, runID int64) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", runID)
	}
	batches, err := store.ListBatches(ctx, runID)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(out, false)
	printer.PrintRuns([]db.Run{*run})
	printer.PrintBatches(batches)
	return nil
}

func runDBShowOpportunity(cmd *cobra.Command, args []string) error {
	cfg, err := loadCommandConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	o, err := store.GetOpportunityByURL(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("no opportunity stored for %s", args[0])
	}
	observability.NewPrinter(os.Stdout, false).PrintOpportunity(o)
	return nil
}
