package compiler

import (
	"fmt"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/queryir"
	"github.com/roach88/memelang/internal/syntax"
)

// Compile builds the plan for a resolved program.
//
// Identifier operands must already be ids: a remaining symbol is an
// UNKNOWN_SYMBOL error. A clause with NOT groups but no positive group is an
// ALL_NEGATIVE_QUERY error.
func Compile(prog ir.Program) (queryir.Plan, error) {
	c := &compiler{}
	offset := 0
	for _, clause := range prog {
		if err := c.clause(clause, offset); err != nil {
			return queryir.Plan{}, err
		}
		offset += len(clause.Tokens()) + 1
	}
	plan := queryir.Plan{CTEs: c.ctes, Outputs: c.outputs}
	if result := queryir.Validate(plan); !result.Valid {
		return queryir.Plan{}, result.Err()
	}
	return plan, nil
}

type compiler struct {
	ctes    []queryir.CTE
	outputs []queryir.Query
}

// group is a positive group: an AND condition or an OR tag.
type group struct {
	stmts []ir.Statement
	or    bool
}

// partition is one clause split into groups.
type partition struct {
	all      bool
	nots     []ir.Statement
	gets     []ir.Statement
	positive []*group
}

func (c *compiler) clause(clause ir.Clause, offset int) error {
	p, err := split(clause, offset)
	if err != nil {
		return err
	}

	if len(p.positive) == 0 {
		if len(p.nots) > 0 {
			return ir.NewError(ir.ErrCodeAllNegative,
				"a clause with a false statement needs at least one true statement")
		}
		if p.all {
			c.outputs = append(c.outputs, scans("")...)
			return nil
		}
		for _, stmt := range p.gets {
			sel, err := statementSelect([]ir.Statement{stmt}, false)
			if err != nil {
				return err
			}
			c.outputs = append(c.outputs, &sel)
		}
		return nil
	}

	var excluded []queryir.Predicate
	for _, stmt := range p.nots {
		sub, err := statementSelect([]ir.Statement{stmt}, true)
		if err != nil {
			return err
		}
		excluded = append(excluded, &queryir.NotIn{Ref: queryir.Anchor, Query: sub})
	}

	first := len(c.ctes)
	prev := ""
	for i, g := range p.positive {
		name := fmt.Sprintf("z%d", len(c.ctes)+1)
		cte := queryir.CTE{Name: name}

		var members [][]ir.Statement
		if g.or {
			for _, stmt := range g.stmts {
				members = append(members, []ir.Statement{stmt})
			}
		} else {
			members = [][]ir.Statement{g.stmts}
		}
		for _, m := range members {
			sel, err := statementSelect(m, false)
			if err != nil {
				return err
			}
			if i == 0 {
				sel.Filter = append(sel.Filter, excluded...)
			} else {
				sel.Filter = append(sel.Filter, &queryir.InCTE{Ref: queryir.Anchor, CTE: prev})
			}
			cte.Branches = append(cte.Branches, sel)
		}
		c.ctes = append(c.ctes, cte)
		prev = name
	}

	last := prev
	for _, cte := range c.ctes[first:] {
		out := &queryir.FromCTE{Name: cte.Name}
		if cte.Name != last {
			out.Within = last
		}
		c.outputs = append(c.outputs, out)
	}

	if p.all {
		c.outputs = append(c.outputs, scans(last)...)
		return nil
	}
	for _, stmt := range p.gets {
		sel, err := statementSelect([]ir.Statement{stmt}, false)
		if err != nil {
			return err
		}
		sel.Filter = append(sel.Filter, &queryir.InCTE{Ref: queryir.Anchor, CTE: last})
		c.outputs = append(c.outputs, &sel)
	}
	return nil
}

// split partitions a clause. Statement indexes in errors are token offsets
// into the program.
func split(clause ir.Clause, offset int) (*partition, error) {
	p := &partition{}
	ors := make(map[int64]*group)
	ands := make(map[string]*group)

	pos := offset
	for _, stmt := range clause {
		if err := resolved(stmt, pos); err != nil {
			return nil, err
		}
		if _, ok := stmt.Join(); ok {
			return nil, ir.NewStructuralError(pos+len(stmt.Hops())+3, "join statements can only be put")
		}
		pos += len(stmt) + 1

		if isMeta(stmt) {
			p.all = p.all || mentions(stmt, ir.AllID)
			continue
		}

		if n, ok := stmt.Group(); ok {
			g, seen := ors[n]
			if !seen {
				g = &group{or: true}
				ors[n] = g
				p.positive = append(p.positive, g)
			}
			g.stmts = append(g.stmts, stmt)
			continue
		}

		switch {
		case stmt.IsKeyword(ir.FalseID):
			p.nots = append(p.nots, stmt)
		case stmt.IsKeyword(ir.GetID):
			p.gets = append(p.gets, stmt)
		default:
			key := syntax.Encode(stmt.Condition())
			g, seen := ands[key]
			if !seen {
				g = &group{}
				ands[key] = g
				p.positive = append(p.positive, g)
			}
			g.stmts = append(g.stmts, stmt)
		}
	}
	return p, nil
}

// resolved fails on the first identifier still holding a symbol.
func resolved(stmt ir.Statement, offset int) error {
	for i, tok := range stmt {
		if s, ok := tok.Val.(ir.Str); ok && tok.Op.Kind() == ir.KindIdentifier {
			return &ir.Error{
				Code:    ir.ErrCodeUnknownSymbol,
				Message: "unresolved symbol",
				Pos:     -1,
				Index:   offset + i,
				Span:    string(s),
				Symbols: []string{string(s)},
			}
		}
	}
	return nil
}

func isMeta(stmt ir.Statement) bool {
	id, ok := stmt.Entity().ID()
	return ok && id == ir.QryID
}

// mentions reports whether any hop or the target carries id.
func mentions(stmt ir.Statement, id int64) bool {
	nodes := append(append([]ir.Token(nil), stmt.Hops()...), stmt.Target())
	for _, tok := range nodes {
		if v, ok := tok.ID(); ok && v == id {
			return true
		}
	}
	return false
}

// scans selects every fact and name row, restricted to the anchors of cte
// when it is set.
func scans(cte string) []queryir.Query {
	memes := &queryir.Select{Table: queryir.TableMeme, Hops: []queryir.Hop{{}}}
	names := &queryir.Select{Table: queryir.TableName, Hops: []queryir.Hop{{}}}
	if cte != "" {
		memes.Filter = []queryir.Predicate{&queryir.InCTE{Ref: queryir.Anchor, CTE: cte}}
		names.Filter = []queryir.Predicate{&queryir.InCTE{Ref: queryir.Anchor, CTE: cte}}
	}
	return []queryir.Query{memes, names}
}
