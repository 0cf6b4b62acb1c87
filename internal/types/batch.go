// Package types provides type definitions for structured data used throughout the opportunity miner.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Batch statuses.
const (
	BatchStatusCompleted = "completed"
	BatchStatusFailed    = "failed"
)

// BatchRecord is the audit row written after each batch of a run.
type BatchRecord struct {
	ID           string     `json:"id"`
	RunID        int64      `json:"run_id"`
	BatchNumber  int        `json:"batch_number"`
	Mode         string     `json:"mode"`
	CursorIn     string     `json:"cursor_in,omitempty"`
	CursorOut    string     `json:"cursor_out,omitempty"`
	Fetched      int        `json:"fetched"`
	Filtered     int        `json:"filtered"`
	Analyzed     int        `json:"analyzed"`
	NewCount     int        `json:"new_count"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
