// Package report aggregates persisted opportunities into category summaries.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/opportunity-miner/internal/types"
)

// Kind selects how opportunities are grouped.
type Kind string

// Report kinds
const (
	KindCategory      Kind = "category"
	KindSubCategory   Kind = "subcategory"
	KindSubredditBias Kind = "subreddit_bias"
)

// Kinds lists every supported report kind.
var Kinds = []Kind{KindCategory, KindSubCategory, KindSubredditBias}

// ParseKind converts a CLI or URL value into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &FilterError{Field: "kind", Message: fmt.Sprintf("unknown report kind %q", s)}
}

// Title returns the heading printed above the table.
func (k Kind) Title(category string) string {
	switch k {
	case KindSubCategory:
		if category == "" {
			category = "All"
		}
		return fmt.Sprintf("Sub-Category Summary for '%s'", category)
	case KindSubredditBias:
		return "Subreddit-Category Bias"
	default:
		return "Category Summary"
	}
}

// Filter narrows the opportunities counted by a report.
// Day bounds are YYYY-MM-DD and inclusive on both ends.
type Filter struct {
	Kind        Kind    `json:"kind"`
	RunIDs      []int64 `json:"run_ids,omitempty"`
	RunsAfter   string  `json:"runs_after,omitempty"`
	RunsBefore  string  `json:"runs_before,omitempty"`
	PostsAfter  string  `json:"posts_after,omitempty"`
	PostsBefore string  `json:"posts_before,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// FilterError is returned for a filter that cannot be turned into a query.
type FilterError struct {
	Field   string
	Message string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid report filter %s: %s", e.Field, e.Message)
}

// Validate checks the kind, the day formats and the category.
func (f Filter) Validate() error {
	if _, err := ParseKind(string(f.Kind)); err != nil {
		return err
	}
	if f.Kind == KindSubCategory && f.Category == "" {
		return &FilterError{Field: "category", Message: "the subcategory report requires a category"}
	}
	if f.Category != "" && !types.IsValidCategory(f.Category) {
		return &FilterError{Field: "category", Message: fmt.Sprintf("unknown category %q", f.Category)}
	}
	days := []struct{ field, value string }{
		{"runs_after", f.RunsAfter},
		{"runs_before", f.RunsBefore},
		{"posts_after", f.PostsAfter},
		{"posts_before", f.PostsBefore},
	}
	for _, d := range days {
		if d.value == "" {
			continue
		}
		if _, err := ParseDay(d.value); err != nil {
			return &FilterError{Field: d.field, Message: err.Error()}
		}
	}
	return nil
}

// ParseDay parses a YYYY-MM-DD day in UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// Row is one group of a report.
type Row struct {
	Subreddit   string  `json:"subreddit,omitempty"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category,omitempty"`
	Count       int64   `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// Report is a computed summary ready for rendering.
type Report struct {
	Kind   Kind   `json:"kind"`
	Title  string `json:"title"`
	Filter Filter `json:"filter"`
	Total  int64  `json:"total"`
	Rows   []Row  `json:"rows"`
}

// New computes each row's share of the total, rounded to two decimals.
func New(filter Filter, rows []Row) *Report {
	r := &Report{
		Kind:   filter.Kind,
		Title:  filter.Kind.Title(filter.Category),
		Filter: filter,
		Rows:   make([]Row, len(rows)),
	}
	for _, row := range rows {
		r.Total += row.Count
	}
	for i, row := range rows {
		if r.Total > 0 {
			row.Percentage = roundTo2(float64(row.Count) / float64(r.Total) * 100)
		}
		r.Rows[i] = row
	}
	return r
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
