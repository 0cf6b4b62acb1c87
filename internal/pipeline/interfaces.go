package pipeline

import (
	"context"

	"github.com/jonathan/opportunity-miner/internal/types"
)

// Fetcher reads posts and comments from the data source.
type Fetcher interface {
	// FetchRecent returns one page from cursor; an empty next cursor means the source is exhausted.
	FetchRecent(ctx context.Context, subreddit string, pageSize int, cursor string) (posts []types.RawPost, nextCursor string, err error)
	// FetchHistorical returns keyword matches inside the inclusive window. It has no pagination.
	FetchHistorical(ctx context.Context, subreddit string, keywords []string, window types.DateWindow, limit int) ([]types.RawPost, error)
	FetchTopComments(ctx context.Context, postID string, limit int) ([]string, error)
}

// Classifier turns a post into a judgement.
type Classifier interface {
	Classify(ctx context.Context, title, body string, comments []string) (*types.Judgement, error)
}

// Persister upserts a judgement by URL and links it to the run.
// isNew is true only when the run had not been linked to this URL before.
type Persister interface {
	PersistOpportunity(ctx context.Context, runID int64, judgement *types.Judgement) (isNew bool, err error)
}

// BatchRecorder stores the audit record of a finished batch.
type BatchRecorder interface {
	RecordBatch(ctx context.Context, batch *types.BatchRecord) error
}
