package report

import (
	"fmt"
	"strings"
	"time"
)

// Dialect adapts generated SQL to a storage engine.
type Dialect struct {
	// Placeholder returns the bind marker for the n-th argument, starting at 1.
	Placeholder func(n int) string
	// TimeArg converts a bound timestamp into the engine's comparable form.
	TimeArg func(t time.Time) any
}

// PostgresDialect binds $n markers and native timestamps.
var PostgresDialect = Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	TimeArg:     func(t time.Time) any { return t.UTC() },
}

// SQLiteTimeLayout is how timestamps are stored in SQLite text columns.
const SQLiteTimeLayout = "2006-01-02 15:04:05"

// SQLiteDialect binds ? markers and timestamps as sortable UTC text.
var SQLiteDialect = Dialect{
	Placeholder: func(int) string { return "?" },
	TimeArg:     func(t time.Time) any { return t.UTC().Format(SQLiteTimeLayout) },
}

type queryBuilder struct {
	dialect    Dialect
	conditions []string
	args       []any
}

func (b *queryBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *queryBuilder) where(format string, v any) {
	b.conditions = append(b.conditions, fmt.Sprintf(format, b.bind(v)))
}

// dayRange adds an inclusive day range on column: column >= after and column < before+1 day.
func (b *queryBuilder) dayRange(column, after, before string) error {
	if after != "" {
		t, err := ParseDay(after)
		if err != nil {
			return err
		}
		b.where(column+" >= %s", b.dialect.TimeArg(t))
	}
	if before != "" {
		t, err := ParseDay(before)
		if err != nil {
			return err
		}
		b.where(column+" < %s", b.dialect.TimeArg(t.AddDate(0, 0, 1)))
	}
	return nil
}

// BuildQuery renders the aggregate query for filter. The result columns match
// the kind: category (and sub_category, or subreddit first) followed by count.
func BuildQuery(filter Filter, dialect Dialect) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}

	b := &queryBuilder{dialect: dialect}
	if len(filter.RunIDs) > 0 {
		marks := make([]string, len(filter.RunIDs))
		for i, id := range filter.RunIDs {
			marks[i] = b.bind(id)
		}
		b.conditions = append(b.conditions, "r.id IN ("+strings.Join(marks, ", ")+")")
	}
	if err := b.dayRange("r.created_at", filter.RunsAfter, filter.RunsBefore); err != nil {
		return "", nil, err
	}
	if err := b.dayRange("o.post_created_at", filter.PostsAfter, filter.PostsBefore); err != nil {
		return "", nil, err
	}
	if filter.Category != "" {
		b.where("o.category = %s", filter.Category)
	}

	var groupCols string
	switch filter.Kind {
	case KindSubCategory:
		groupCols = "o.category, o.sub_category"
	case KindSubredditBias:
		groupCols = "r.subreddit, o.category"
	default:
		groupCols = "o.category"
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + groupCols + ", COUNT(DISTINCT o.id) AS count\n")
	sb.WriteString("FROM opportunities o\n")
	sb.WriteString("JOIN run_opportunities ro ON o.id = ro.opportunity_id\n")
	sb.WriteString("JOIN runs r ON ro.run_id = r.id\n")
	if len(b.conditions) > 0 {
		sb.WriteString("WHERE " + strings.Join(b.conditions, " AND ") + "\n")
	}
	sb.WriteString("GROUP BY " + groupCols + "\n")
	sb.WriteString("ORDER BY count DESC, " + groupCols)

	return sb.String(), b.args, nil
}

// Scanner is satisfied by both pgx.Rows and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanRow reads one result row of a query built for kind.
func ScanRow(kind Kind, s Scanner) (Row, error) {
	var row Row
	var err error
	switch kind {
	case KindSubCategory:
		err = s.Scan(&row.Category, &row.SubCategory, &row.Count)
	case KindSubredditBias:
		err = s.Scan(&row.Subreddit, &row.Category, &row.Count)
	default:
		err = s.Scan(&row.Category, &row.Count)
	}
	if err != nil {
		return Row{}, fmt.Errorf("failed to scan report row: %w", err)
	}
	return row, nil
}
