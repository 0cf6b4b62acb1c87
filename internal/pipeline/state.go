package pipeline

import (
	"time"

	"github.com/jonathan/opportunity-miner/internal/types"
)

// State is a step of the batch loop.
type State int

const (
	StateRouting State = iota
	StateFetching
	StateFiltering
	StateAnalyzing
	StatePersisting
	// Terminal states
	StateTargetReached
	StateSourceExhausted
	StateFatalError
	StateInterrupted
)

var stateNames = map[State]string{
	StateRouting:         "routing",
	StateFetching:        "fetching",
	StateFiltering:       "filtering",
	StateAnalyzing:       "analyzing",
	StatePersisting:      "persisting",
	StateTargetReached:   "target_reached",
	StateSourceExhausted: "source_exhausted",
	StateFatalError:      "fatal_error",
	StateInterrupted:     "interrupted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	return s >= StateTargetReached
}

// BatchState is threaded through the stages of one batch.
// Fields are grouped by the first stage that sets them; later fields are zero before that stage runs.
type BatchState struct {
	// Set when the run starts
	RunID      int64
	Subreddit  string
	Keywords   []string
	TimePeriod string
	Target     int

	// Carried across batches
	Number      int
	Cursor      string // position this batch fetches from; empty is the top of the listing
	Accumulated int
	IdlePolls   int // consecutive zero-new recent batches at the same cursor
	StartedAt   time.Time

	// Routing
	Mode   Mode
	Window *types.DateWindow

	// Fetching
	Posts      []types.RawPost
	NextCursor string

	// Filtering
	Filtered []types.RawPost

	// Analyzing
	Judgements []*types.Judgement

	// Persisting
	NewCount int

	// Set when the batch fails
	Err error
}

// reset clears the per-batch fields before the next batch.
func (b *BatchState) reset() {
	b.Mode = ""
	b.Window = nil
	b.Posts = nil
	b.NextCursor = ""
	b.Filtered = nil
	b.Judgements = nil
	b.NewCount = 0
	b.Err = nil
}
