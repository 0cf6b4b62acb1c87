package db

// Schema statements per engine. Each statement is executed on its own.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		subreddit TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		post_created_at TIMESTAMPTZ,
		pain_points TEXT NOT NULL DEFAULT '[]',
		business_opportunities TEXT NOT NULL DEFAULT '[]',
		automation_ideas TEXT NOT NULL DEFAULT '[]',
		confidence_score INTEGER NOT NULL DEFAULT 0,
		summary TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		sub_category TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS run_opportunities (
		run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		opportunity_id BIGINT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, opportunity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS run_batches (
		id UUID PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		batch_number INTEGER NOT NULL,
		mode TEXT NOT NULL,
		cursor_in TEXT NOT NULL DEFAULT '',
		cursor_out TEXT NOT NULL DEFAULT '',
		fetched INTEGER NOT NULL DEFAULT 0,
		filtered INTEGER NOT NULL DEFAULT 0,
		analyzed INTEGER NOT NULL DEFAULT 0,
		new_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		UNIQUE (run_id, batch_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_category ON opportunities(category, sub_category)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_post_created_at ON opportunities(post_created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// Timestamps are UTC text in report.SQLiteTimeLayout so they compare lexically.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		subreddit TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		post_created_at TEXT,
		pain_points TEXT NOT NULL DEFAULT '[]',
		business_opportunities TEXT NOT NULL DEFAULT '[]',
		automation_ideas TEXT NOT NULL DEFAULT '[]',
		confidence_score INTEGER NOT NULL DEFAULT 0,
		summary TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		sub_category TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS run_opportunities (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		opportunity_id INTEGER NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, opportunity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS run_batches (
		id TEXT PRIMARY KEY,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		batch_number INTEGER NOT NULL,
		mode TEXT NOT NULL,
		cursor_in TEXT NOT NULL DEFAULT '',
		cursor_out TEXT NOT NULL DEFAULT '',
		fetched INTEGER NOT NULL DEFAULT 0,
		filtered INTEGER NOT NULL DEFAULT 0,
		analyzed INTEGER NOT NULL DEFAULT 0,
		new_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT,
		UNIQUE (run_id, batch_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_category ON opportunities(category, sub_category)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_post_created_at ON opportunities(post_created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// dropStatements removes every table, children first.
var dropStatements = []string{
	`DROP TABLE IF EXISTS run_batches`,
	`DROP TABLE IF EXISTS run_opportunities`,
	`DROP TABLE IF EXISTS opportunities`,
	`DROP TABLE IF EXISTS runs`,
}
