// Package pipeline runs the batch loop that fetches posts, filters them, classifies them and persists new opportunities.
package pipeline

import (
	"strings"
	"unicode"

	"github.com/jonathan/opportunity-miner/internal/types"
)

// Mode selects the fetch strategy for a batch.
type Mode string

const (
	// ModeRecent pages through the live "new" listing with a cursor.
	ModeRecent Mode = "recent"
	// ModeHistorical searches an archive for one calendar-year window.
	ModeHistorical Mode = "historical"
)

// Routing is the outcome of Route. Window is set only in historical mode.
type Routing struct {
	Mode   Mode
	Window *types.DateWindow
}

// Route picks the fetch strategy for a time period. Any digit selects historical mode:
// all digits, concatenated, are the year. The window is not validated here.
func Route(timePeriod string) Routing {
	var year strings.Builder
	for _, r := range timePeriod {
		if unicode.IsDigit(r) {
			year.WriteRune(r)
		}
	}
	if year.Len() == 0 {
		return Routing{Mode: ModeRecent}
	}

	y := year.String()
	return Routing{
		Mode: ModeHistorical,
		Window: &types.DateWindow{
			Start: y + "-01-01",
			End:   y + "-12-31",
		},
	}
}
