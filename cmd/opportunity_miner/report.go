package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report {category|subcategory|subreddit_bias}",
	Short: "Summarize stored opportunities",
	Long: `Counts distinct opportunities linked to the selected runs, grouped by category, by
sub-category within --category, or by subreddit and category. Day filters are YYYY-MM-DD and inclusive.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(report.KindCategory), string(report.KindSubCategory), string(report.KindSubredditBias)},
	RunE:      runReport,
}

var (
	reportRunIDs      []string
	reportRunsAfter   string
	reportRunsBefore  string
	reportPostsAfter  string
	reportPostsBefore string
	reportCategory    string
)

func init() {
	reportCmd.Flags().StringSliceVar(&reportRunIDs, "run-ids", nil, "Only count these runs (comma separated)")
	reportCmd.Flags().StringVar(&reportRunsAfter, "runs-after", "", "Only runs created on or after this day")
	reportCmd.Flags().StringVar(&reportRunsBefore, "runs-before", "", "Only runs created on or before this day")
	reportCmd.Flags().StringVar(&reportPostsAfter, "posts-after", "", "Only posts created on or after this day")
	reportCmd.Flags().StringVar(&reportPostsBefore, "posts-before", "", "Only posts created on or before this day")
	reportCmd.Flags().StringVar(&reportCategory, "category", "", "Restrict to one category (required for subcategory)")

	rootCmd.AddCommand(reportCmd)
}

func buildReportFilter(kindArg string) (report.Filter, error) {
	kind, err := report.ParseKind(kindArg)
	if err != nil {
		return report.Filter{}, err
	}
	runIDs, err := parseRunIDs(reportRunIDs)
	if err != nil {
		return report.Filter{}, err
	}
	filter := report.Filter{
		Kind:        kind,
		RunIDs:      runIDs,
		RunsAfter:   reportRunsAfter,
		RunsBefore:  reportRunsBefore,
		PostsAfter:  reportPostsAfter,
		PostsBefore: reportPostsBefore,
		Category:    reportCategory,
	}
	if err := filter.Validate(); err != nil {
		return report.Filter{}, err
	}
	return filter, nil
}

// parseRunIDs accepts the --run-ids values; each may itself be comma separated.
func parseRunIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, &report.FilterError{Field: "run_ids", Message: fmt.Sprintf("invalid run id %q", part)}
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	filter, err := buildReportFilter(args[0])
	if err != nil {
		return err
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

	return printReport(ctx, os.Stdout, store, filter)
}

func printReport(ctx context.Context, out io.Writer, store db.Store, filter report.Filter) error {
	rep, err := store.Report(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return rep.Render(out)
}
