package index

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ReadSQLite builds a Store from a table of a SQLite database file.
// The table's column names play the role of the header row.
func ReadSQLite(ctx context.Context, path, table string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("index: opening sqlite %s: %w", path, err)
	}
	defer db.Close()

	return ReadSQL(ctx, db, table)
}

// ReadSQL builds a Store from a table reachable through db.
func ReadSQL(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("index: invalid table name %q", table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return nil, fmt.Errorf("index: querying %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("index: reading columns of %s: %w", table, err)
	}
	header, err := ParseHeader(columns)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(header)
	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	fields := make([]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, &MalformedRowError{Row: b.rows + 1, cause: err}
		}
		for i, c := range cells {
			// NULL keeps the empty string; in a vector column that fails to parse.
			fields[i] = c.String
		}
		if err := b.Add(fields); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterating %s: %w", table, err)
	}
	return b.Build(), nil
}
