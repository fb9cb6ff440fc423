package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultTable is the table read when none is configured.
const DefaultTable = "tenders"

var (
	// ErrPathRequired is returned when New is called without a path.
	ErrPathRequired = errors.New("sqlite path required")

	// ErrInvalidTable is returned for a table name that is not a plain identifier.
	ErrInvalidTable = errors.New("invalid table name")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Source reads every row of one table of a SQLite database. The column names
// are returned as the first row.
type Source struct {
	path  string
	table string
}

// Option configures a Source.
type Option func(*Source) error

// WithTable sets the table to read. Empty selects DefaultTable.
func WithTable(table string) Option {
	return func(s *Source) error {
		if table == "" {
			table = DefaultTable
		}
		if !identifier.MatchString(table) {
			return fmt.Errorf("%w: %q", ErrInvalidTable, table)
		}
		s.table = table
		return nil
	}
}

// New creates a source for the database file at path.
func New(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	s := &Source{path: path, table: DefaultTable}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Fetch returns the header row followed by the table's rows in rowid order.
// NULL becomes the empty string.
func (s *Source) Fetch(ctx context.Context) ([][]string, error) {
	// Opening a missing file would create an empty database.
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+s.table+`" ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := [][]string{columns}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = format(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
