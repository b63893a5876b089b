package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// QueryText runs a compiled query and returns its single text column.
// A NULL result (no matching rows) is returned as "".
//
// The store never builds queries itself; sql and params come from the
// compiler.
func (s *Store) QueryText(ctx context.Context, query string, params []any) (string, error) {
	var text sql.NullString
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("execute query: %w", err)
	}
	return text.String, nil
}

// Stats counts the rows of both tables.
type Stats struct {
	Facts  int64 `json:"facts"`
	Labels int64 `json:"labels"`
}

// Stats returns the current row counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT (SELECT COUNT(*) FROM %s), (SELECT COUNT(*) FROM %s)",
		s.tables.Meme, s.tables.Name)).Scan(&st.Facts, &st.Labels)
	if err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}
	return st, nil
}
