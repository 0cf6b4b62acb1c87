package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/jonathan/opportunity-miner/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore provides file-backed persistence for local runs
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database file at path. ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer; also keeps a :memory: database alive across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Reset drops and recreates every table
func (s *SQLiteStore) Reset(ctx context.Context) error {
	for _, stmt := range dropStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}
	return s.migrate(ctx)
}

func (s *SQLiteStore) timestamp() string {
	return formatSQLiteTime(s.now())
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(report.SQLiteTimeLayout)
}

func parseSQLiteTime(v string) (time.Time, error) {
	t, err := time.ParseInLocation(report.SQLiteTimeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", v, err)
	}
	return t, nil
}

func parseSQLiteTimePtr(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := parseSQLiteTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func sqliteTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatSQLiteTime(*t)
}

// ---------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------

// CreateRun creates a new run record and returns its ID
func (s *SQLiteStore) CreateRun(ctx context.Context, subreddit, keywords string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (created_at, subreddit, keywords) VALUES (?, ?, ?)`,
		s.timestamp(), subreddit, keywords,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

func scanSQLiteRun(scan func(dest ...any) error) (Run, error) {
	var run Run
	var created string
	if err := scan(&run.ID, &created, &run.Subreddit, &run.Keywords); err != nil {
		return Run{}, err
	}
	t, err := parseSQLiteTime(created)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = t
	return run, nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, subreddit, keywords FROM runs WHERE id = ?`, id)
	run, err := scanSQLiteRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves runs, newest first, optionally bounded by creation day
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	lo, hi, err := dayBounds(filter.After, filter.Before)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, created_at, subreddit, keywords FROM runs WHERE 1=1`
	args := []any{}
	if lo != nil {
		query += " AND created_at >= ?"
		args = append(args, formatSQLiteTime(*lo))
	}
	if hi != nil {
		query += " AND created_at < ?"
		args = append(args, formatSQLiteTime(*hi))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanSQLiteRun(rows.Scan)
		if err != nil {
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
func (s *SQLiteStore) PersistOpportunity(ctx context.Context, runID int64, judgement *types.Judgement) (bool, error) {
	row, err := toOpportunityRow(judgement)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()
	var opportunityID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO opportunities (url, title, post_created_at, pain_points, business_opportunities,
		     automation_ideas, confidence_score, summary, category, sub_category, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET
		     title = excluded.title,
		     post_created_at = excluded.post_created_at,
		     pain_points = excluded.pain_points,
		     business_opportunities = excluded.business_opportunities,
		     automation_ideas = excluded.automation_ideas,
		     confidence_score = excluded.confidence_score,
		     summary = excluded.summary,
		     category = excluded.category,
		     sub_category = excluded.sub_category,
		     updated_at = excluded.updated_at
		 RETURNING id`,
		row.URL, row.Title, sqliteTimeArg(row.PostCreatedAt), row.PainPoints, row.BusinessOpportunities,
		row.AutomationIdeas, row.ConfidenceScore, row.Summary, row.Category, row.SubCategory, now,
	).Scan(&opportunityID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert opportunity: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO run_opportunities (run_id, opportunity_id, created_at) VALUES (?, ?, ?)`,
		runID, opportunityID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to link opportunity to run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to link opportunity to run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return affected > 0, nil
}

// GetOpportunityByURL retrieves an opportunity by its canonical URL
func (s *SQLiteStore) GetOpportunityByURL(ctx context.Context, url string) (*Opportunity, error) {
	var o Opportunity
	var pain, business, automation, updated string
	var postCreated sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, post_created_at, pain_points, business_opportunities, automation_ideas,
		        confidence_score, summary, category, sub_category, updated_at
		 FROM opportunities WHERE url = ?`,
		url,
	).Scan(&o.ID, &o.URL, &o.Title, &postCreated, &pain, &business, &automation,
		&o.ConfidenceScore, &o.Summary, &o.Category, &o.SubCategory, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	if o.PostCreatedAt, err = parseSQLiteTimePtr(postCreated); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return nil, err
	}
	if err := decodeOpportunityLists(&o, pain, business, automation); err != nil {
		return nil, err
	}
	return &o, nil
}

// Report aggregates linked opportunities according to filter
func (s *SQLiteStore) Report(ctx context.Context, filter report.Filter) (*report.Report, error) {
	query, args, err := report.BuildQuery(filter, report.SQLiteDialect)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) RecordBatch(ctx context.Context, batch *types.BatchRecord) error {
	id, err := batchUUID(batch)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_batches (id, run_id, batch_number, mode, cursor_in, cursor_out, fetched,
		     filtered, analyzed, new_count, status, error_message, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), batch.RunID, batch.BatchNumber, batch.Mode, batch.CursorIn, batch.CursorOut, batch.Fetched,
		batch.Filtered, batch.Analyzed, batch.NewCount, batch.Status, batch.ErrorMessage,
		formatSQLiteTime(batch.StartedAt), sqliteTimeArg(batch.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

// ListBatches retrieves the batches of a run in execution order
func (s *SQLiteStore) ListBatches(ctx context.Context, runID int64) ([]types.BatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, batch_number, mode, cursor_in, cursor_out, fetched, filtered, analyzed,
		        new_count, status, error_message, started_at, completed_at
		 FROM run_batches WHERE run_id = ? ORDER BY batch_number`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := []types.BatchRecord{}
	for rows.Next() {
		var b types.BatchRecord
		var started string
		var completed sql.NullString
		if err := rows.Scan(&b.ID, &b.RunID, &b.BatchNumber, &b.Mode, &b.CursorIn, &b.CursorOut,
			&b.Fetched, &b.Filtered, &b.Analyzed, &b.NewCount, &b.Status, &b.ErrorMessage,
			&started, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		if b.StartedAt, err = parseSQLiteTime(started); err != nil {
			return nil, err
		}
		if b.CompletedAt, err = parseSQLiteTimePtr(completed); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
