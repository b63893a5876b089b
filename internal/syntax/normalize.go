package syntax

import "github.com/roach88/memelang/internal/ir"

// match tests one operator slot of a rule. ir.OpNone stands for the end of
// the token stream.
type match func(op ir.Op) bool

func is(want ir.Op) match { return func(op ir.Op) bool { return op == want } }

func relation(op ir.Op) bool { return op.Class() == ir.ClassRelation }

func qualifier(op ir.Op) bool { return op.IsQualifier() }

// boundary matches whatever may follow a complete statement body, including
// the >> that opens the second half of a join.
func boundary(op ir.Op) bool {
	return op == ir.OpNone || op == ir.OpOr || op == ir.OpJoin || op.IsSeparator()
}

// rule rewrites a run of consecutive tokens whose operators match lhs.
// Only the last slot of lhs may match the end of the stream.
type rule struct {
	name    string
	lhs     []match
	rewrite func(matched []ir.Token) []ir.Token
}

// insertAfter returns a rewrite that inserts default tokens after slot k.
func insertAfter(k int, ops ...ir.Op) func([]ir.Token) []ir.Token {
	return func(matched []ir.Token) []ir.Token {
		out := make([]ir.Token, 0, len(matched)+len(ops))
		out = append(out, matched[:k+1]...)
		for _, op := range ops {
			out = append(out, ir.Token{Op: op, Val: op.Info().Default})
		}
		return append(out, matched[k+1:]...)
	}
}

// retag returns a rewrite that changes the operator of slot k.
func retag(k int, op ir.Op) func([]ir.Token) []ir.Token {
	return func(matched []ir.Token) []ir.Token {
		out := append([]ir.Token(nil), matched...)
		out[k].Op = op
		return out
	}
}

// rules is ordered, and no two left-hand sides describe the same shape, so
// the fixpoint does not depend on the order in which positions are visited.
var rules = []rule{
	{
		// =5 and a=5: a statement that opens straight into a value.
		name:    "leading-value",
		lhs:     []match{is(ir.OpEntity), qualifier},
		rewrite: insertAfter(0, ir.OpRelation, ir.OpTarget),
	},
	{
		name:    "chained-relation",
		lhs:     []match{is(ir.OpRelation), is(ir.OpRelation)},
		rewrite: retag(1, ir.OpRelation2),
	},
	{
		// a[b means a[ ]b: the dangling relation operand is the target.
		name:    "trailing-relation",
		lhs:     []match{relation, boundary},
		rewrite: retag(0, ir.OpTarget),
	},
	{
		name:    "implicit-qualifier",
		lhs:     []match{is(ir.OpTarget), boundary},
		rewrite: insertAfter(0, ir.OpIs),
	},
	{
		name:    "missing-relation",
		lhs:     []match{is(ir.OpEntity), is(ir.OpTarget)},
		rewrite: insertAfter(0, ir.OpRelation),
	},
	{
		name:    "bare-entity",
		lhs:     []match{is(ir.OpEntity), boundary},
		rewrite: insertAfter(0, ir.OpRelation, ir.OpTarget),
	},
	{
		name:    "missing-target",
		lhs:     []match{relation, qualifier},
		rewrite: insertAfter(0, ir.OpTarget),
	},
}

// apply reports whether r matches at position i and returns the replacement
// together with the number of tokens it replaces.
func (r rule) apply(tokens []ir.Token, i int) ([]ir.Token, int, bool) {
	n := 0
	for k, m := range r.lhs {
		op := ir.OpNone
		if i+k < len(tokens) {
			op = tokens[i+k].Op
			n++
		} else if k != len(r.lhs)-1 {
			return nil, 0, false
		}
		if !m(op) {
			return nil, 0, false
		}
	}
	return r.rewrite(tokens[i : i+n]), n, true
}

// Normalize rewrites a lexed token stream into canonical statements.
//
// The input slice is not modified. The result satisfies ir.Split, and
// Normalize(Normalize(t)) equals Normalize(t). Shapes that no rule repairs
// are reported as structural errors carrying the token index.
func Normalize(tokens []ir.Token) ([]ir.Token, error) {
	out := append([]ir.Token(nil), tokens...)

	limit := 4*len(out) + 8
	for pass := 0; ; pass++ {
		if pass > limit {
			return nil, ir.NewStructuralError(-1, "normalization did not converge")
		}
		changed := false
		for i := 0; i < len(out); i++ {
			for _, r := range rules {
				repl, n, ok := r.apply(out, i)
				if !ok {
					continue
				}
				out = splice(out, i, n, repl)
				changed = true
				break
			}
		}
		if !changed {
			break
		}
	}

	if _, err := ir.Split(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Parse lexes and normalizes source text and splits it into clauses.
func Parse(src string) (ir.Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	tokens, err = Normalize(tokens)
	if err != nil {
		return nil, err
	}
	return ir.Split(tokens)
}

func splice(tokens []ir.Token, i, n int, repl []ir.Token) []ir.Token {
	out := make([]ir.Token, 0, len(tokens)-n+len(repl))
	out = append(out, tokens[:i]...)
	out = append(out, repl...)
	return append(out, tokens[i+n:]...)
}
