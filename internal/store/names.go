package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/memelang/internal/ir"
)

// lookupBatch bounds the number of ? parameters in one IN list.
const lookupBatch = 500

// LookupBySymbol returns the key bindings for the given symbols, ordered by
// symbol. Symbols with no binding are absent from the result.
//
// Implements resolve.NameStore.
func (s *Store) LookupBySymbol(ctx context.Context, symbols []string) ([]ir.Name, error) {
	var out []ir.Name
	for start := 0; start < len(symbols); start += lookupBatch {
		batch := symbols[start:min(start+lookupBatch, len(symbols))]
		args := make([]any, 0, len(batch)+1)
		args = append(args, int64(ir.KeyID))
		for _, sym := range batch {
			args = append(args, sym)
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT aid, str FROM %s
			WHERE bid = ? AND str IN (%s)
			ORDER BY str COLLATE BINARY ASC
		`, s.tables.Name, placeholders(len(batch))), args...)
		if err != nil {
			return nil, fmt.Errorf("query names by symbol: %w", err)
		}
		names, err := scanNames(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

// LookupByID returns the key bindings for the given ids, ordered by id.
//
// Implements resolve.NameStore.
func (s *Store) LookupByID(ctx context.Context, ids []int64) ([]ir.Name, error) {
	var out []ir.Name
	for start := 0; start < len(ids); start += lookupBatch {
		batch := ids[start:min(start+lookupBatch, len(ids))]
		args := make([]any, 0, len(batch)+1)
		args = append(args, int64(ir.KeyID))
		for _, id := range batch {
			args = append(args, id)
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT aid, str FROM %s
			WHERE bid = ? AND aid IN (%s)
			ORDER BY aid ASC
		`, s.tables.Name, placeholders(len(batch))), args...)
		if err != nil {
			return nil, fmt.Errorf("query names by id: %w", err)
		}
		names, err := scanNames(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

// WriteNames stores key bindings in one transaction. Writing an existing
// binding again is a no-op. A binding whose id or symbol is already bound to
// something else fails with DUPLICATE_SYMBOL and nothing is written.
//
// Implements resolve.NameStore.
func (s *Store) WriteNames(ctx context.Context, names []ir.Name) error {
	labels := make([]Label, len(names))
	for i, n := range names {
		labels[i] = Label{A: n.ID, B: ir.KeyID, Str: n.Symbol}
	}
	if err := s.Write(ctx, nil, labels); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return &ir.Error{
				Code:    ir.ErrCodeDuplicateSymbol,
				Message: fmt.Sprintf("conflicting symbol binding: %v", err),
				Pos:     -1,
				Index:   -1,
			}
		}
		return fmt.Errorf("write names: %w", err)
	}
	return nil
}

// MaxID returns the largest id bound to a symbol, or 0.
//
// Implements resolve.NameStore.
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COALESCE(MAX(aid), 0) FROM %s WHERE bid = ?", s.tables.Name), int64(ir.KeyID)).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("query max id: %w", err)
	}
	return maxID, nil
}

// Install writes the reserved symbol bindings.
// This function is idempotent.
func (s *Store) Install(ctx context.Context) error {
	if err := s.WriteNames(ctx, ir.Reserved); err != nil {
		return fmt.Errorf("install reserved names: %w", err)
	}
	s.logger.Debug("reserved names installed", "count", len(ir.Reserved))
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanNames(rows rowScanner) ([]ir.Name, error) {
	defer rows.Close()

	var names []ir.Name
	for rows.Next() {
		var n ir.Name
		if err := rows.Scan(&n.ID, &n.Symbol); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
