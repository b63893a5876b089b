package engine

import (
	"context"
	"strings"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/store"
	"github.com/roach88/memelang/internal/syntax"
)

// Put writes memelang text to the store and returns it resolved.
//
// Accepted statements:
//
//	A[R]B=t, A[R]B=f, A[R]B=<decimal>   facts; B[-R]A is stored as A[R]B
//	A[nam]B="text"                      names
//	<id>[nam]key="symbol"               symbol declarations
//	[Ry]By=q >> [Rz]Bz=q                joins
//
// Declarations are bound first, then every other unknown symbol is given a
// new id. A join binds a fresh variable X to the symbol VAR<X> and stores
// the two facts -By[-Ry]X and -X[Rz]Bz, each with its half's qualifier.
// Wildcards, chained relations, comparisons other than =, =g and OR tags are
// STRUCTURAL errors, raised before anything is written. Facts and names are
// written in one transaction.
func (e *Engine) Put(ctx context.Context, text string) ([]ir.Token, error) {
	log := e.run("put")

	prog, err := syntax.Parse(text)
	if err != nil {
		return nil, err
	}
	stmts := prog.Statements()
	offsets := statementOffsets(stmts)

	var (
		decls []ir.Name
		joins int
	)
	for i, stmt := range stmts {
		if err := checkPut(stmt, offsets[i]); err != nil {
			return nil, err
		}
		if name, ok := declaration(stmt); ok {
			decls = append(decls, name)
		}
		if _, ok := stmt.Join(); ok {
			joins++
		}
	}
	if len(decls) > 0 {
		if err := e.cache.Define(ctx, decls...); err != nil {
			log.Debug("declare failed", "error", err)
			return nil, err
		}
	}

	tokens, created, err := e.cache.Intern(ctx, prog.Tokens())
	if err != nil {
		return nil, err
	}
	resolved, err := ir.Split(tokens)
	if err != nil {
		return nil, err
	}
	vars := make([]int64, joins)
	for i := range vars {
		v, err := e.cache.Variable(ctx)
		if err != nil {
			return nil, err
		}
		vars[i] = v.ID
	}
	facts, labels, err := putRows(resolved.Statements(), offsets, vars)
	if err != nil {
		return nil, err
	}
	if err := e.store.Write(ctx, facts, labels); err != nil {
		log.Error("write failed", "error", err)
		return nil, err
	}

	e.metrics.put(len(stmts))
	log.Info("put",
		"statements", len(stmts),
		"facts", len(facts),
		"labels", len(labels),
		"declared", len(decls),
		"interned", len(created),
		"joins", joins,
	)
	return tokens, nil
}

// statementOffsets returns the token index of each statement's entity. Every
// statement is followed by exactly one separator.
func statementOffsets(stmts []ir.Statement) []int {
	offsets := make([]int, len(stmts))
	pos := 0
	for i, stmt := range stmts {
		offsets[i] = pos
		pos += len(stmt) + 1
	}
	return offsets
}

// checkPut rejects statements that do not describe exactly one row, or two
// rows for a join.
func checkPut(stmt ir.Statement, offset int) error {
	if join, ok := stmt.Join(); ok {
		return checkJoin(stmt, join, offset)
	}
	hops := stmt.Hops()
	qualifierAt := offset + len(hops) + 2

	switch {
	case stmt.Entity().Absent():
		return ir.NewStructuralError(offset, "put needs an entity")
	case inverse(stmt.Entity()):
		return ir.NewStructuralError(offset, "an entity cannot be inverted")
	case len(hops) != 1:
		return ir.NewStructuralError(offset+1, "put takes exactly one relation, found %d", len(hops))
	case hops[0].Absent():
		return ir.NewStructuralError(offset+1, "put needs a relation")
	case stmt.Target().Absent():
		return ir.NewStructuralError(offset+2, "put needs a target")
	case inverse(stmt.Target()):
		return ir.NewStructuralError(offset+2, "a target cannot be inverted")
	}
	if _, ok := stmt.Group(); ok {
		return ir.NewStructuralError(offset+len(stmt)-1, "put cannot store an or group")
	}

	q := stmt.Qualifier()
	isName := is(hops[0], "nam", ir.NamID)
	switch {
	case q.Op == ir.OpString && !isName:
		return ir.NewStructuralError(qualifierAt, "a quoted string needs the nam relation")
	case q.Op != ir.OpString && isName:
		return ir.NewStructuralError(qualifierAt, "a nam statement needs a quoted string")
	case q.Op == ir.OpIs && stmt.IsKeyword(ir.GetID):
		return ir.NewStructuralError(qualifierAt, "put cannot store =g")
	case q.Op.Class() == ir.ClassComparator && q.Op != ir.OpEqual:
		return ir.NewStructuralError(qualifierAt, "put stores values with =, not %s", q.Op.Info().Prefix)
	}

	if isName && is(stmt.Target(), "key", ir.KeyID) {
		if _, ok := stmt.Entity().ID(); !ok {
			return ir.NewStructuralError(offset, "a symbol declaration needs a numeric id")
		}
		sym, _ := q.Val.(ir.Str)
		if !bareSymbol(string(sym)) {
			return &ir.Error{
				Code:    ir.ErrCodeStructural,
				Message: "not a valid symbol",
				Pos:     -1,
				Index:   qualifierAt,
				Span:    string(sym),
			}
		}
	}
	return nil
}

// checkJoin validates [Ry]By=q >> [Rz]Bz=q. Both halves take one relation,
// a target and a stored qualifier; the first half has no entity.
func checkJoin(stmt, join ir.Statement, offset int) error {
	if !stmt.Entity().Absent() {
		return ir.NewStructuralError(offset, "a join starts with a relation, not an entity")
	}
	if _, ok := stmt.Group(); ok {
		return ir.NewStructuralError(offset+len(stmt)-1, "put cannot store an or group")
	}
	if err := checkJoinHalf(stmt, offset); err != nil {
		return err
	}
	return checkJoinHalf(join, offset+len(stmt.Hops())+3)
}

func checkJoinHalf(half ir.Statement, offset int) error {
	hops := half.Hops()
	switch {
	case len(hops) != 1:
		return ir.NewStructuralError(offset+1, "a join takes exactly one relation per side, found %d", len(hops))
	case hops[0].Absent():
		return ir.NewStructuralError(offset+1, "a join needs a relation")
	case is(hops[0], "nam", ir.NamID):
		return ir.NewStructuralError(offset+1, "a join cannot store names")
	case half.Target().Absent():
		return ir.NewStructuralError(offset+2, "a join needs a target")
	case inverse(half.Target()):
		return ir.NewStructuralError(offset+2, "a target cannot be inverted")
	}

	q := half.Qualifier()
	switch {
	case q.Op == ir.OpString:
		return ir.NewStructuralError(offset+3, "a join cannot store a string")
	case q.Op == ir.OpIs && half.IsKeyword(ir.GetID):
		return ir.NewStructuralError(offset+3, "put cannot store =g")
	case q.Op.Class() == ir.ClassComparator && q.Op != ir.OpEqual:
		return ir.NewStructuralError(offset+3, "put stores values with =, not %s", q.Op.Info().Prefix)
	}
	return nil
}

// declaration returns the binding an <id>[nam]key="symbol" statement makes.
func declaration(stmt ir.Statement) (ir.Name, bool) {
	hops := stmt.Hops()
	if len(hops) != 1 || !is(hops[0], "nam", ir.NamID) || !is(stmt.Target(), "key", ir.KeyID) {
		return ir.Name{}, false
	}
	id, ok := stmt.Entity().ID()
	if !ok {
		return ir.Name{}, false
	}
	sym, ok := stmt.Qualifier().Val.(ir.Str)
	if !ok {
		return ir.Name{}, false
	}
	return ir.Name{ID: id, Symbol: string(sym)}, true
}

// putRows converts resolved statements to store rows. Declarations were
// written when they were bound and produce no row here. vars holds one
// variable id per join statement, in order.
func putRows(stmts []ir.Statement, offsets []int, vars []int64) ([]store.Fact, []store.Label, error) {
	var (
		facts  []store.Fact
		labels []store.Label
	)
	for i, stmt := range stmts {
		if _, ok := declaration(stmt); ok {
			continue
		}
		if join, ok := stmt.Join(); ok {
			x := vars[0]
			vars = vars[1:]
			ry, _ := stmt.Hops()[0].ID()
			by, _ := stmt.Target().ID()
			rz, _ := join.Hops()[0].ID()
			bz, _ := join.Target().ID()
			facts = append(facts,
				qualified(-by, -ry, x, stmt.Qualifier()),
				qualified(-x, rz, bz, join.Qualifier()),
			)
			continue
		}
		a, _ := stmt.Entity().ID()
		r, _ := stmt.Hops()[0].ID()
		b, _ := stmt.Target().ID()
		if a <= 0 || b <= 0 {
			return nil, nil, ir.NewStructuralError(offsets[i], "entity and target ids must be positive")
		}

		q := stmt.Qualifier()
		if v, ok := q.Val.(ir.Str); ok {
			labels = append(labels, store.Label{A: a, B: b, Str: string(v)})
			continue
		}
		if r < 0 {
			a, b, r = b, a, -r
		}
		facts = append(facts, qualified(a, r, b, q))
	}
	return facts, labels, nil
}

// qualified builds the fact A[R]B carrying a t, f or decimal qualifier.
func qualified(a, r, b int64, q ir.Token) store.Fact {
	if v, ok := q.Val.(ir.Dec); ok {
		return store.Value(a, r, b, float64(v))
	}
	return store.Flag(a, r, b, q.Val == ir.Int(ir.TrueID))
}

// is reports whether tok holds sym or its id.
func is(tok ir.Token, sym string, id int64) bool {
	switch v := tok.Val.(type) {
	case ir.Str:
		return string(v) == sym
	case ir.Int:
		return int64(v) == id
	}
	return false
}

func inverse(tok ir.Token) bool {
	switch v := tok.Val.(type) {
	case ir.Str:
		return strings.HasPrefix(string(v), "-")
	case ir.Int:
		return v < 0
	}
	return false
}

// bareSymbol reports whether s lexes back to itself as one symbol.
func bareSymbol(s string) bool {
	tokens, err := syntax.Lex(s)
	if err != nil || len(tokens) != 1 {
		return false
	}
	v, ok := tokens[0].Val.(ir.Str)
	return ok && tokens[0].Op == ir.OpEntity && string(v) == s && !strings.HasPrefix(s, "-")
}
