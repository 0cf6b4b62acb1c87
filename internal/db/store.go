// Package db provides persistence for runs, opportunities and batch audit records,
// backed by PostgreSQL or a local SQLite file.
package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/jonathan/opportunity-miner/internal/types"
)

// Store is the storage surface used by the CLI, the pipeline and the API server.
type Store interface {
	// CreateRun inserts a run row and returns its id.
	CreateRun(ctx context.Context, subreddit, keywords string) (int64, error)
	// GetRun returns nil, nil when the run does not exist.
	GetRun(ctx context.Context, id int64) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// PersistOpportunity upserts the judgement by URL and links it to the run.
	// isNew reports whether the link was created by this call.
	PersistOpportunity(ctx context.Context, runID int64, judgement *types.Judgement) (isNew bool, err error)
	// GetOpportunityByURL returns nil, nil when the URL is unknown.
	GetOpportunityByURL(ctx context.Context, url string) (*Opportunity, error)
	Report(ctx context.Context, filter report.Filter) (*report.Report, error)

	RecordBatch(ctx context.Context, batch *types.BatchRecord) error
	ListBatches(ctx context.Context, runID int64) ([]types.BatchRecord, error)

	// Reset drops every table and recreates an empty schema.
	Reset(ctx context.Context) error
	Close() error
}

// ErrEmptyURL is returned by Open for an empty database URL.
var ErrEmptyURL = errors.New("database url is empty")

// IsPostgresURL reports whether url selects the PostgreSQL backend.
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Open connects to the database named by url and ensures the schema exists.
// postgres:// and postgresql:// URLs use PostgreSQL; anything else is a SQLite
// path, optionally prefixed with sqlite://.
func Open(ctx context.Context, url string) (Store, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}
	if IsPostgresURL(url) {
		return OpenPostgres(ctx, url)
	}
	return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
}
