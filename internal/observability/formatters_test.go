package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/pipeline"
	"github.com/jonathan/opportunity-miner/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Progress(pipeline.ProgressEvent{Batch: 2, NewCount: 1, Accumulated: 3, Target: 10, Fetched: 100})
	output := buf.String()

	assert.Contains(t, output, "Batch 2: found 3/10 new opportunities (+1 this batch)")
	assert.NotContains(t, output, "fetched=")
}

func TestProgress_Verbose(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Progress(pipeline.ProgressEvent{
		Batch: 1, Mode: pipeline.ModeRecent, Fetched: 100, Filtered: 8, Analyzed: 7,
		Target: 5, Wait: 62 * time.Second, Message: "no new opportunities; cooling down",
	})
	output := buf.String()

	assert.Contains(t, output, "mode=recent fetched=100 filtered=8 analyzed=7")
	assert.Contains(t, output, "waiting 1m2s")
	assert.Contains(t, output, "cooling down")
}

func TestProgress_FinalIgnored(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Progress(pipeline.ProgressEvent{Final: true, Message: "done"})

	assert.Empty(t, buf.String())
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.PrintRunSummary(
		&db.Run{ID: 42, Subreddit: "freelance", Keywords: "invoice,client"},
		&pipeline.Result{Outcome: pipeline.StateFatalError, Accumulated: 2, Target: 10, Batches: 3, Err: errors.New("reddit unavailable")},
	)
	output := buf.String()

	assert.Contains(t, output, "RUN SUMMARY")
	assert.Contains(t, output, "#42")
	assert.Contains(t, output, "r/freelance")
	assert.Contains(t, output, "fatal_error")
	assert.Contains(t, output, "2/10")
	assert.Contains(t, output, "reddit unavailable")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).PrintRunSummary(nil, nil)
	assert.Empty(t, buf.String())
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.PrintRuns([]db.Run{
		{ID: 7, CreatedAt: now.Add(-3 * time.Hour), Subreddit: "smallbusiness", Keywords: "crm"},
	})
	output := buf.String()

	assert.Contains(t, output, "#7")
	assert.Contains(t, output, "2024-06-01 09:00:00")
	assert.Contains(t, output, "3 hours ago")
	assert.Contains(t, output, "r/smallbusiness")
}

func TestPrintRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).PrintRuns(nil)
	assert.Contains(t, buf.String(), "No runs found")
}

func TestPrintBatches(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.PrintBatches([]types.BatchRecord{
		{BatchNumber: 1, Mode: "recent", Status: types.BatchStatusCompleted, NewCount: 2, Fetched: 100},
		{BatchNumber: 2, Mode: "recent", Status: types.BatchStatusFailed, ErrorMessage: "status 503"},
	})
	output := buf.String()

	assert.Contains(t, output, "BATCHES (2)")
	assert.Contains(t, output, "new=2")
	assert.Contains(t, output, "error: status 503")
}

func TestPrintOpportunity(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.PrintOpportunity(&db.Opportunity{
		Title:           "Anyone else drowning in invoices?",
		Category:        "FinTech",
		SubCategory:     "Expense Tracking",
		ConfidenceScore: 8,
		PainPoints:      []string{"a", "b", "c", "d", "e", "f", "g"},
	})
	output := buf.String()

	assert.Contains(t, output, "OPPORTUNITY")
	assert.Contains(t, output, "FinTech / Expense Tracking")
	assert.Contains(t, output, "8/10")
	assert.Contains(t, output, "... and 2 more")
	assert.NotContains(t, output, "Automation ideas")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
