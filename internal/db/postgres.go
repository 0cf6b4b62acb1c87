package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/jonathan/opportunity-miner/internal/types"
)

// PostgresStore wraps a PostgreSQL connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres establishes a connection pool and ensures the schema exists
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Reset drops and recreates every table
func (s *PostgresStore) Reset(ctx context.Context) error {
	for _, stmt := range dropStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}
	return s.migrate(ctx)
}

// ---------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------

// CreateRun creates a new run record and returns its ID
func (s *PostgresStore) CreateRun(ctx context.Context, subreddit, keywords string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO runs (subreddit, keywords)
		 VALUES ($1, $2)
		 RETURNING id`,
		subreddit, keywords,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// GetRun retrieves a run by ID
func (s *PostgresStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	var run Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at, subreddit, keywords FROM runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.CreatedAt, &run.Subreddit, &run.Keywords)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves runs, newest first, optionally bounded by creation day
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	lo, hi, err := dayBounds(filter.After, filter.Before)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, created_at, subreddit, keywords FROM runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if lo != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, *lo)
		argNum++
	}
	if hi != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argNum)
		args = append(args, *hi)
		argNum++
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Subreddit, &run.Keywords); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ---------------------------------------------------------------------
// Opportunities
// ---------------------------------------------------------------------

// PersistOpportunity upserts the opportunity and links it to the run in one transaction
func (s *PostgresStore) PersistOpportunity(ctx context.Context, runID int64, judgement *types.Judgement) (bool, error) {
	row, err := toOpportunityRow(judgement)
	if err != nil {
		return false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var opportunityID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO opportunities (url, title, post_created_at, pain_points, business_opportunities,
		     automation_ideas, confidence_score, summary, category, sub_category, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		 ON CONFLICT (url) DO UPDATE SET
		     title = EXCLUDED.title,
		     post_created_at = EXCLUDED.post_created_at,
		     pain_points = EXCLUDED.pain_points,
		     business_opportunities = EXCLUDED.business_opportunities,
		     automation_ideas = EXCLUDED.automation_ideas,
		     confidence_score = EXCLUDED.confidence_score,
		     summary = EXCLUDED.summary,
		     category = EXCLUDED.category,
		     sub_category = EXCLUDED.sub_category,
		     updated_at = NOW()
		 RETURNING id`,
		row.URL, row.Title, row.PostCreatedAt, row.PainPoints, row.BusinessOpportunities,
		row.AutomationIdeas, row.ConfidenceScore, row.Summary, row.Category, row.SubCategory,
	).Scan(&opportunityID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert opportunity: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO run_opportunities (run_id, opportunity_id)
		 VALUES ($1, $2)
		 ON CONFLICT (run_id, opportunity_id) DO NOTHING`,
		runID, opportunityID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to link opportunity to run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetOpportunityByURL retrieves an opportunity by its canonical URL
func (s *PostgresStore) GetOpportunityByURL(ctx context.Context, url string) (*Opportunity, error) {
	var o Opportunity
	var pain, business, automation string
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, title, post_created_at, pain_points, business_opportunities, automation_ideas,
		        confidence_score, summary, category, sub_category, updated_at
		 FROM opportunities WHERE url = $1`,
		url,
	).Scan(&o.ID, &o.URL, &o.Title, &o.PostCreatedAt, &pain, &business, &automation,
		&o.ConfidenceScore, &o.Summary, &o.Category, &o.SubCategory, &o.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	if err := decodeOpportunityLists(&o, pain, business, automation); err != nil {
		return nil, err
	}
	return &o, nil
}

// Report aggregates linked opportunities according to filter
func (s *PostgresStore) Report(ctx context.Context, filter report.Filter) (*report.Report, error) {
	query, args, err := report.BuildQuery(filter, report.PostgresDialect)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run report: %w", err)
	}
	defer rows.Close()

	var result []report.Row
	for rows.Next() {
		row, err := report.ScanRow(filter.Kind, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to run report: %w", err)
	}
	return report.New(filter, result), nil
}

// ---------------------------------------------------------------------
// Batches
// ---------------------------------------------------------------------

// RecordBatch stores the audit row of a finished batch
func (s *PostgresStore) RecordBatch(ctx context.Context, batch *types.BatchRecord) error {
	id, err := batchUUID(batch)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_batches (id, run_id, batch_number, mode, cursor_in, cursor_out, fetched,
		     filtered, analyzed, new_count, status, error_message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, batch.RunID, batch.BatchNumber, batch.Mode, batch.CursorIn, batch.CursorOut, batch.Fetched,
		batch.Filtered, batch.Analyzed, batch.NewCount, batch.Status, batch.ErrorMessage,
		batch.StartedAt.UTC(), utcPtr(batch.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

// ListBatches retrieves the batches of a run in execution order
func (s *PostgresStore) ListBatches(ctx context.Context, runID int64) ([]types.BatchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, batch_number, mode, cursor_in, cursor_out, fetched, filtered, analyzed,
		        new_count, status, error_message, started_at, completed_at
		 FROM run_batches WHERE run_id = $1 ORDER BY batch_number`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := []types.BatchRecord{}
	for rows.Next() {
		var b types.BatchRecord
		var id uuid.UUID
		if err := rows.Scan(&id, &b.RunID, &b.BatchNumber, &b.Mode, &b.CursorIn, &b.CursorOut,
			&b.Fetched, &b.Filtered, &b.Analyzed, &b.NewCount, &b.Status, &b.ErrorMessage,
			&b.StartedAt, &b.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.ID = id.String()
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// batchUUID parses the batch id, assigning a fresh one when it is empty.
func batchUUID(batch *types.BatchRecord) (uuid.UUID, error) {
	if batch == nil {
		return uuid.Nil, fmt.Errorf("batch is nil")
	}
	if batch.ID == "" {
		id := uuid.New()
		batch.ID = id.String()
		return id, nil
	}
	id, err := uuid.Parse(batch.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid batch id %q: %w", batch.ID, err)
	}
	return id, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
