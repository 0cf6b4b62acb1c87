package db

import (
	"time"
)

// Run represents one invocation of the pipeline. Rows are immutable once created.
type Run struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Subreddit string    `json:"subreddit"`
	Keywords  string    `json:"keywords"`
}

// RunFilter narrows ListRuns by creation day (YYYY-MM-DD, inclusive).
type RunFilter struct {
	After  string
	Before string
	Limit  int
}

// Opportunity is the latest judgement stored for a post URL.
type Opportunity struct {
	ID                    int64      `json:"id"`
	URL                   string     `json:"url"`
	Title                 string     `json:"title"`
	PostCreatedAt         *time.Time `json:"post_created_at,omitempty"`
	PainPoints            []string   `json:"pain_points"`
	BusinessOpportunities []string   `json:"business_opportunities"`
	AutomationIdeas       []string   `json:"automation_ideas"`
	ConfidenceScore       int        `json:"confidence_score"`
	Summary               string     `json:"summary"`
	Category              string     `json:"category"`
	SubCategory           string     `json:"sub_category"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// opportunityRow is the column form of a judgement, list fields already encoded.
type opportunityRow struct {
	URL                   string
	Title                 string
	PostCreatedAt         *time.Time
	PainPoints            string
	BusinessOpportunities string
	AutomationIdeas       string
	ConfidenceScore       int
	Summary               string
	Category              string
	SubCategory           string
}
