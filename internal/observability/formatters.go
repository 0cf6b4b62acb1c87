// Package observability provides formatted CLI output for runs, batches and opportunities.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/pipeline"
	"github.com/jonathan/opportunity-miner/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out     io.Writer
	verbose bool
	now     func() time.Time
}

// NewPrinter creates a new Printer that writes to the given writer.
// Verbose printers also show per-batch counters and waits.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose, now: time.Now}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Progress is a pipeline.ProgressCallback that prints one line per batch.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) Progress(ev pipeline.ProgressEvent) {
	if ev.Final {
		return
	}
	fmt.Fprintf(p.out, "Batch %d: found %d/%d new opportunities (+%d this batch)\n",
		ev.Batch, ev.Accumulated, ev.Target, ev.NewCount)
	if !p.verbose {
		return
	}
	fmt.Fprintf(p.out, "  mode=%s fetched=%d filtered=%d analyzed=%d\n", ev.Mode, ev.Fetched, ev.Filtered, ev.Analyzed)
	if ev.Wait > 0 {
		fmt.Fprintf(p.out, "  waiting %s before next batch\n", ev.Wait)
	}
	if ev.Message != "" {
		fmt.Fprintf(p.out, "  %s\n", ev.Message)
	}
}

// PrintRunSummary outputs the end-of-run outcome.
func (p *Printer) PrintRunSummary(run *db.Run, result *pipeline.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	if run != nil {
		sb.WriteString(fmt.Sprintf("Run:        #%d\n", run.ID))
		sb.WriteString(fmt.Sprintf("Subreddit:  r/%s\n", run.Subreddit))
		if run.Keywords != "" {
			sb.WriteString(fmt.Sprintf("Keywords:   %s\n", run.Keywords))
		}
	}
	sb.WriteString(fmt.Sprintf("Outcome:    %s\n", result.Outcome))
	sb.WriteString(fmt.Sprintf("Batches:    %d\n", result.Batches))
	sb.WriteString(fmt.Sprintf("Found:      %d/%d new opportunities", result.Accumulated, result.Target))
	if result.Err != nil {
		sb.WriteString(fmt.Sprintf("\nError:      %v", result.Err))
	}

	p.printBox("RUN SUMMARY", sb.String())
}

// PrintRuns outputs a table of previous runs.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRuns(runs []db.Run) {
	fmt.Fprintln(p.out, "\n--- Previous Runs ---")
	if len(runs) == 0 {
		fmt.Fprintln(p.out, "No runs found for the specified criteria.")
	}
	for _, r := range runs {
		fmt.Fprintf(p.out, "#%-5d %s  (%s)  r/%s  %s\n",
			r.ID,
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			humanize.RelTime(r.CreatedAt, p.now(), "ago", "from now"),
			r.Subreddit,
			r.Keywords,
		)
	}
	fmt.Fprintln(p.out, "---------------------")
}

// PrintBatches outputs the batch audit trail of a run.
func (p *Printer) PrintBatches(batches []types.BatchRecord) {
	if len(batches) == 0 {
		return
	}

	var sb strings.Builder
	for i, b := range batches {
		sb.WriteString(fmt.Sprintf("#%d %-10s %-9s new=%d\n", b.BatchNumber, b.Mode, b.Status, b.NewCount))
		sb.WriteString(fmt.Sprintf("   fetched=%d filtered=%d analyzed=%d", b.Fetched, b.Filtered, b.Analyzed))
		if b.ErrorMessage != "" {
			sb.WriteString("\n   error: " + b.ErrorMessage)
		}
		if i < len(batches)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("BATCHES (%d)", len(batches)), sb.String())
}

// PrintOpportunity outputs the stored judgement for one post.
func (p *Printer) PrintOpportunity(o *db.Opportunity) {
	if o == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(o.Title + "\n")
	sb.WriteString(fmt.Sprintf("Category:   %s / %s\n", o.Category, o.SubCategory))
	sb.WriteString(fmt.Sprintf("Confidence: %d/10\n", o.ConfidenceScore))
	if o.Summary != "" {
		sb.WriteString("\n" + o.Summary + "\n")
	}
	writeList(&sb, "Pain points", o.PainPoints)
	writeList(&sb, "Business opportunities", o.BusinessOpportunities)
	writeList(&sb, "Automation ideas", o.AutomationIdeas)

	p.printBox("OPPORTUNITY", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n" + label + ":\n")
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}
