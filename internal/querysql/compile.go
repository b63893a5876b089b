// Package querysql renders a queryir.Plan as one SQLite query.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/queryir"
)

// Default table names.
const (
	DefaultMemeTable = "meme"
	DefaultNameTable = "name"
)

// SQLCompiler compiles a plan to parameterized SQL for SQLite.
//
// CRITICAL: All ids, decimals and strings are parameterized (never
// interpolated). Only table names, aliases and the reserved op codes used to
// render rows appear in the text.
//
// The query returns one row with one column, memes: every matching fact
// rendered as memelang source and joined with ';', ordered by anchor and
// text. It is NULL when nothing matches.
type SQLCompiler struct {
	MemeTable string
	NameTable string
}

// NewSQLCompiler creates a compiler for the default table names.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		MemeTable: DefaultMemeTable,
		NameTable: DefaultNameTable,
	}
}

// Compile converts a plan to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(plan queryir.Plan) (string, []any, error) {
	if result := queryir.Validate(plan); !result.Valid {
		return "", nil, result.Err()
	}
	if len(plan.Outputs) == 0 {
		return "SELECT NULL AS memes", nil, nil
	}

	var (
		b      strings.Builder
		params []any
	)

	if len(plan.CTEs) > 0 {
		b.WriteString("WITH ")
		for i, cte := range plan.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			sql, p, err := c.compileUnion(cte.Branches)
			if err != nil {
				return "", nil, fmt.Errorf("compile %s: %w", cte.Name, err)
			}
			fmt.Fprintf(&b, "%s AS (%s)", cte.Name, sql)
			params = append(params, p...)
		}
		b.WriteString(" ")
	}

	outputs := make([]string, 0, len(plan.Outputs))
	for i, out := range plan.Outputs {
		sql, p, err := c.compileQuery(out)
		if err != nil {
			return "", nil, fmt.Errorf("compile output %d: %w", i, err)
		}
		outputs = append(outputs, sql)
		params = append(params, p...)
	}

	// MANDATORY: deterministic row order inside the aggregate.
	fmt.Fprintf(&b, "SELECT group_concat(meme, ';') AS memes FROM (%s ORDER BY a0, meme)",
		strings.Join(outputs, " UNION "))

	return b.String(), params, nil
}

func (c *SQLCompiler) compileUnion(branches []queryir.Select) (string, []any, error) {
	parts := make([]string, 0, len(branches))
	var params []any
	for _, sel := range branches {
		sql, p, err := c.compileSelect(sel)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " UNION "), params, nil
}

func (c *SQLCompiler) compileQuery(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.FromCTE:
		return compileFromCTE(query), nil, nil
	case *queryir.FromCTE:
		return compileFromCTE(*query), nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileFromCTE(q queryir.FromCTE) string {
	if q.Within == "" {
		return fmt.Sprintf("SELECT a0, meme FROM %s", q.Name)
	}
	return fmt.Sprintf("SELECT a0, meme FROM %s WHERE a0 IN (SELECT a0 FROM %s)", q.Name, q.Within)
}

// compileSelect renders one row source:
//
//	SELECT <A0> AS a0, <row> AS meme FROM meme m0 JOIN meme m1 ON <A1> = <B0> WHERE ...
func (c *SQLCompiler) compileSelect(sel queryir.Select) (string, []any, error) {
	cols := columns{sel: sel}
	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(cols.ref(queryir.Anchor))
	if !sel.AnchorOnly {
		fmt.Fprintf(&b, " AS a0, %s AS meme", cols.row())
	}

	if sel.Table == queryir.TableName {
		fmt.Fprintf(&b, " FROM %s n0", c.NameTable)
	} else {
		fmt.Fprintf(&b, " FROM %s m0", c.MemeTable)
		for i := 1; i < len(sel.Hops); i++ {
			fmt.Fprintf(&b, " JOIN %s m%d ON %s = %s", c.MemeTable, i,
				cols.ref(queryir.Ref{Hop: i, Field: queryir.FieldA}),
				cols.ref(queryir.Ref{Hop: i - 1, Field: queryir.FieldB}))
		}
	}

	var params []any
	if len(sel.Filter) > 0 {
		conds := make([]string, 0, len(sel.Filter))
		for _, pred := range sel.Filter {
			sql, p, err := c.compilePredicate(cols, pred)
			if err != nil {
				return "", nil, err
			}
			conds = append(conds, sql)
			params = append(params, p...)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	return b.String(), params, nil
}

// compilePredicate compiles one filter condition.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(cols columns, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case *queryir.Equals:
		return cols.filterRef(pred.Ref) + " = ?", []any{pred.Value}, nil
	case *queryir.Compare:
		op, err := comparator(pred.Op)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", cols.ref(queryir.Ref{Hop: pred.Hop, Field: queryir.FieldQnt}), op),
			[]any{pred.Value}, nil
	case *queryir.Flag:
		op := "="
		if pred.Set {
			op = "<>"
		}
		return fmt.Sprintf("%s %s 0", cols.ref(queryir.Ref{Hop: pred.Hop, Field: queryir.FieldQnt}), op), nil, nil
	case *queryir.InCTE:
		return fmt.Sprintf("%s IN (SELECT a0 FROM %s)", cols.ref(pred.Ref), pred.CTE), nil, nil
	case *queryir.NotIn:
		sub, params, err := c.compileSelect(pred.Query)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s NOT IN (%s)", cols.ref(pred.Ref), sub), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// comparator returns the SQL operator for a comparator op.
func comparator(op ir.Op) (string, error) {
	info := op.Info()
	if info.Class != ir.ClassComparator || info.SQL == "" {
		return "", fmt.Errorf("%s is not a comparator", op)
	}
	return info.SQL, nil
}
