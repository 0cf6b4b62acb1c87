package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/jonathan/opportunity-miner/internal/types"
)

// EncodeList serializes an ordered list field as a JSON array string.
// A nil slice encodes as "[]".
func EncodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

// DecodeList parses a column written by EncodeList. Empty and "null" decode as an empty list.
func DecodeList(s string) ([]string, error) {
	items := []string{}
	if s == "" || s == "null" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func toOpportunityRow(j *types.Judgement) (*opportunityRow, error) {
	if j == nil {
		return nil, fmt.Errorf("judgement is nil")
	}
	if j.URL == "" {
		return nil, fmt.Errorf("judgement has no url")
	}
	row := &opportunityRow{
		URL:             j.URL,
		Title:           j.Title,
		ConfidenceScore: j.ConfidenceScore,
		Summary:         j.Summary,
		Category:        j.Category,
		SubCategory:     j.SubCategory,
	}
	if !j.PostCreatedAt.IsZero() {
		t := j.PostCreatedAt.UTC()
		row.PostCreatedAt = &t
	}

	var err error
	if row.PainPoints, err = EncodeList(j.PainPoints); err != nil {
		return nil, err
	}
	if row.BusinessOpportunities, err = EncodeList(j.BusinessOpportunities); err != nil {
		return nil, err
	}
	if row.AutomationIdeas, err = EncodeList(j.AutomationIdeas); err != nil {
		return nil, err
	}
	return row, nil
}

func decodeOpportunityLists(o *Opportunity, pain, business, automation string) error {
	var err error
	if o.PainPoints, err = DecodeList(pain); err != nil {
		return err
	}
	if o.BusinessOpportunities, err = DecodeList(business); err != nil {
		return err
	}
	if o.AutomationIdeas, err = DecodeList(automation); err != nil {
		return err
	}
	return nil
}

// dayBounds resolves an inclusive YYYY-MM-DD range to [start, end+1day).
func dayBounds(after, before string) (*time.Time, *time.Time, error) {
	var lo, hi *time.Time
	if after != "" {
		t, err := report.ParseDay(after)
		if err != nil {
			return nil, nil, err
		}
		lo = &t
	}
	if before != "" {
		t, err := report.ParseDay(before)
		if err != nil {
			return nil, nil, err
		}
		t = t.AddDate(0, 0, 1)
		hi = &t
	}
	return lo, hi, nil
}
