package compiler

import (
	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/queryir"
)

// statementSelect builds the row source for statements that share one
// condition. Every qualifier narrows the same select. An anchor-only select
// tests for the condition being present, whatever the statements' values.
func statementSelect(stmts []ir.Statement, anchorOnly bool) (queryir.Select, error) {
	base := stmts[0]
	isName := nameStatement(base)
	for _, stmt := range stmts[1:] {
		if nameStatement(stmt) != isName {
			return queryir.Select{}, ir.NewError(ir.ErrCodeStructural,
				"string and numeric values cannot share a condition")
		}
	}
	if isName {
		return nameSelect(stmts, anchorOnly)
	}

	hops := base.Hops()
	last := len(hops) - 1
	sel := queryir.Select{
		Table:      queryir.TableMeme,
		Hops:       make([]queryir.Hop, len(hops)),
		AnchorOnly: anchorOnly,
	}

	if id, ok := base.Entity().ID(); ok {
		sel.Filter = append(sel.Filter, &queryir.Equals{Ref: queryir.Anchor, Value: id})
	}
	for i, hop := range hops {
		id, ok := hop.ID()
		if !ok {
			continue
		}
		if id < 0 {
			sel.Hops[i].Inverted = true
			id = -id
		}
		sel.Filter = append(sel.Filter, &queryir.Equals{Ref: queryir.Ref{Hop: i, Field: queryir.FieldR}, Value: id})
	}
	if id, ok := base.Target().ID(); ok {
		sel.Filter = append(sel.Filter, &queryir.Equals{Ref: queryir.Ref{Hop: last, Field: queryir.FieldB}, Value: id})
	}

	if anchorOnly {
		sel.Filter = append(sel.Filter, &queryir.Flag{Hop: last, Set: true})
		return sel, nil
	}
	for _, stmt := range stmts {
		if pred := valuePredicate(stmt.Qualifier(), last); pred != nil {
			sel.Filter = append(sel.Filter, pred)
		}
	}
	return sel, nil
}

// valuePredicate maps a qualifier onto the value column of hop. =g selects
// without a value test.
func valuePredicate(q ir.Token, hop int) queryir.Predicate {
	switch v := q.Val.(type) {
	case ir.Dec:
		return &queryir.Compare{Hop: hop, Op: q.Op, Value: float64(v)}
	case ir.Int:
		switch int64(v) {
		case ir.TrueID:
			return &queryir.Flag{Hop: hop, Set: true}
		case ir.FalseID:
			return &queryir.Flag{Hop: hop, Set: false}
		}
	}
	return nil
}

// nameStatement reports whether stmt reads the name table: it carries a
// quoted string, or its only relation is nam.
func nameStatement(stmt ir.Statement) bool {
	if stmt.Qualifier().Op == ir.OpString {
		return true
	}
	hops := stmt.Hops()
	if len(hops) != 1 {
		return false
	}
	id, ok := hops[0].ID()
	return ok && id == ir.NamID
}

func nameSelect(stmts []ir.Statement, anchorOnly bool) (queryir.Select, error) {
	base := stmts[0]
	hops := base.Hops()
	if len(hops) != 1 {
		return queryir.Select{}, ir.NewError(ir.ErrCodeStructural, "a string value needs a single nam relation")
	}
	if id, ok := hops[0].ID(); ok && id != ir.NamID {
		return queryir.Select{}, ir.NewError(ir.ErrCodeStructural, "a string value needs the nam relation, not %d", id)
	}

	sel := queryir.Select{
		Table:      queryir.TableName,
		Hops:       []queryir.Hop{{}},
		AnchorOnly: anchorOnly,
	}
	if id, ok := base.Entity().ID(); ok {
		sel.Filter = append(sel.Filter, &queryir.Equals{Ref: queryir.Anchor, Value: id})
	}
	if id, ok := base.Target().ID(); ok {
		sel.Filter = append(sel.Filter, &queryir.Equals{Ref: queryir.Ref{Hop: 0, Field: queryir.FieldB}, Value: id})
	}
	if anchorOnly {
		return sel, nil
	}
	for _, stmt := range stmts {
		q := stmt.Qualifier()
		switch q.Op {
		case ir.OpString:
			s, _ := q.Val.(ir.Str)
			sel.Filter = append(sel.Filter, &queryir.Equals{Ref: queryir.Ref{Hop: 0, Field: queryir.FieldStr}, Value: string(s)})
		case ir.OpIs:
		default:
			return queryir.Select{}, ir.NewError(ir.ErrCodeStructural, "names cannot be compared with %s", q.Op)
		}
	}
	return sel, nil
}
