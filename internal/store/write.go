package store

import (
	"context"
	"fmt"

	"github.com/roach88/memelang/internal/ir"
)

// Fact is one row of the meme table: A[R]B with a stored qualifier.
type Fact struct {
	A, R, B int64
	Cpr     ir.Op
	Qnt     float64
}

// Flag builds the fact A[R]B=t or A[R]B=f.
func Flag(a, r, b int64, set bool) Fact {
	f := Fact{A: a, R: r, B: b, Cpr: ir.OpIs}
	if set {
		f.Qnt = 1
	}
	return f
}

// Value builds the fact A[R]B=q.
func Value(a, r, b int64, q float64) Fact {
	return Fact{A: a, R: r, B: b, Cpr: ir.OpEqual, Qnt: q}
}

// Label is one row of the name table: A[nam]B="Str".
type Label struct {
	A, B int64
	Str  string
}

// Write stores facts and labels in one transaction.
//
// Facts upsert on (aid, rid, bid): writing A[R]B again replaces its
// qualifier. Writing an existing label again is a no-op, but a key row that
// rebinds an id or a symbol violates a unique index and fails the write.
// Nothing is written if any row fails.
func (s *Store) Write(ctx context.Context, facts []Fact, labels []Label) error {
	if len(facts) == 0 && len(labels) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	if len(facts) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (aid, rid, bid, cpr, qnt)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(aid, rid, bid) DO UPDATE SET cpr = excluded.cpr, qnt = excluded.qnt
		`, s.tables.Meme))
		if err != nil {
			return fmt.Errorf("prepare fact insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range facts {
			if _, err := stmt.ExecContext(ctx, f.A, f.R, f.B, int64(f.Cpr), f.Qnt); err != nil {
				return fmt.Errorf("write fact %d[%d]%d: %w", f.A, f.R, f.B, err)
			}
		}
	}

	if len(labels) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (aid, bid, str)
			VALUES (?, ?, ?)
			ON CONFLICT(aid, bid, str) DO NOTHING
		`, s.tables.Name))
		if err != nil {
			return fmt.Errorf("prepare label insert: %w", err)
		}
		defer stmt.Close()

		for _, l := range labels {
			if _, err := stmt.ExecContext(ctx, l.A, l.B, l.Str); err != nil {
				return fmt.Errorf("write label %d[nam]%d: %w", l.A, l.B, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	s.logger.Debug("rows written", "facts", len(facts), "labels", len(labels))
	return nil
}
