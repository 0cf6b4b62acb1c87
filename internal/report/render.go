package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// Render writes the report as an aligned table.
//
//nolint:errcheck // tabwriter buffers rows; Flush reports the write error
func (r *Report) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "\n--- Report: %s ---\n", r.Title); err != nil {
		return err
	}
	if len(r.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No data found for the specified criteria.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.header(), "\t"))
	for _, row := range r.Rows {
		fmt.Fprintln(tw, strings.Join(r.cells(row), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	_, err := fmt.Fprintf(w, "total: %s\n%s\n", humanize.Comma(r.Total), strings.Repeat("-", 32))
	return err
}

func (r *Report) header() []string {
	switch r.Kind {
	case KindSubCategory:
		return []string{"category", "sub_category", "count", "percentage"}
	case KindSubredditBias:
		return []string{"subreddit", "category", "count", "percentage"}
	default:
		return []string{"category", "count", "percentage"}
	}
}

func (r *Report) cells(row Row) []string {
	count := humanize.Comma(row.Count)
	pct := fmt.Sprintf("%.2f%%", row.Percentage)
	switch r.Kind {
	case KindSubCategory:
		return []string{row.Category, row.SubCategory, count, pct}
	case KindSubredditBias:
		return []string{row.Subreddit, row.Category, count, pct}
	default:
		return []string{row.Category, count, pct}
	}
}
