// Package types provides type definitions for structured data used throughout the opportunity miner.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
)

// RawPost is a submission as returned by the data source. It only lives for the duration of a batch.
type RawPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"selftext"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	URL         string    `json:"url"` // canonical permalink, the deduplication key
	CreatedAt   time.Time `json:"created_at"`
}

// DateWindow is an inclusive range of calendar days, both ends formatted YYYY-MM-DD.
// It is not validated on construction; consumers parse it.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DateLayout is the day format used by DateWindow and report filters.
const DateLayout = "2006-01-02"

// Parse returns the window bounds as UTC times: the start of Start and the start of the day after End.
func (w DateWindow) Parse() (start, endExclusive time.Time, err error) {
	start, err = time.ParseInLocation(DateLayout, w.Start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window start %q: %w", w.Start, err)
	}
	end, err := time.ParseInLocation(DateLayout, w.End, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window end %q: %w", w.End, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s is before start %s", w.End, w.Start)
	}
	return start, end.AddDate(0, 0, 1), nil
}
