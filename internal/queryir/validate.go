package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/memelang/internal/ir"
)

// MaxHops is the deepest relation chain a meme Select may walk.
const MaxHops = 2

// ValidationResult lists the problems found in a plan.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes every violated rule, in traversal order.
	Problems []string
}

// Err returns the problems as one error, or nil.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New("invalid plan: " + strings.Join(r.Problems, "; "))
}

// Validate checks the structural rules every backend relies on:
//  1. CTE names are unique and non-empty, and every CTE has a branch
//  2. a CTE is only referenced after it is defined
//  3. meme selects walk 1..MaxHops hops; name selects exactly one, uninverted
//  4. predicates reference existing hops and fields the table has
//  5. NotIn subqueries are anchor-only; CTE branches and outputs are not
//
// Validate is a pure function with no side effects.
func Validate(p Plan) ValidationResult {
	v := &validator{
		problems: []string{},
		defined:  make(map[string]bool),
	}
	for i, cte := range p.CTEs {
		where := fmt.Sprintf("cte %d", i)
		if cte.Name == "" {
			v.addProblem("%s: empty name", where)
		} else if v.defined[cte.Name] {
			v.addProblem("%s: duplicate name %q", where, cte.Name)
		}
		if len(cte.Branches) == 0 {
			v.addProblem("%s: no branches", where)
		}
		for j, sel := range cte.Branches {
			v.validateSelect(fmt.Sprintf("%s branch %d", cte.Name, j), sel, false)
		}
		v.defined[cte.Name] = true
	}
	for i, out := range p.Outputs {
		v.validateQuery(fmt.Sprintf("output %d", i), out)
	}

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
	defined  map[string]bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(where string, q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(where, query, false)
	case *Select:
		v.validateSelect(where, *query, false)
	case FromCTE:
		v.validateFromCTE(where, query)
	case *FromCTE:
		v.validateFromCTE(where, *query)
	case nil:
		v.addProblem("%s: nil query", where)
	default:
		v.addProblem("%s: unknown query type %T", where, q)
	}
}

func (v *validator) validateFromCTE(where string, q FromCTE) {
	v.requireCTE(where, q.Name)
	if q.Within != "" {
		v.requireCTE(where, q.Within)
	}
}

func (v *validator) requireCTE(where, name string) {
	if !v.defined[name] {
		v.addProblem("%s: cte %q referenced before definition", where, name)
	}
}

func (v *validator) validateSelect(where string, sel Select, subquery bool) {
	switch {
	case len(sel.Hops) == 0:
		v.addProblem("%s: no hops", where)
		return
	case sel.Table == TableMeme && len(sel.Hops) > MaxHops:
		v.addProblem("%s: %d hops exceeds %d", where, len(sel.Hops), MaxHops)
	case sel.Table == TableName && len(sel.Hops) != 1:
		v.addProblem("%s: name select must have one hop", where)
	case sel.Table == TableName && sel.Hops[0].Inverted:
		v.addProblem("%s: name select cannot be inverted", where)
	}
	if sel.AnchorOnly != subquery {
		if subquery {
			v.addProblem("%s: subquery must be anchor-only", where)
		} else {
			v.addProblem("%s: anchor-only select outside a subquery", where)
		}
	}
	for _, pred := range sel.Filter {
		v.validatePredicate(where, sel, pred)
	}
}

func (v *validator) validatePredicate(where string, sel Select, p Predicate) {
	switch pred := p.(type) {
	case *Equals:
		v.validateEquals(where, sel, *pred)
	case Equals:
		v.validateEquals(where, sel, pred)
	case *Compare:
		v.validateValueHop(where, sel, pred.Hop)
		if pred.Op.Class() != ir.ClassComparator {
			v.addProblem("%s: %s is not a comparator", where, pred.Op)
		}
	case *Flag:
		v.validateValueHop(where, sel, pred.Hop)
	case *InCTE:
		v.validateRef(where, sel, pred.Ref)
		v.requireCTE(where, pred.CTE)
	case *NotIn:
		v.validateRef(where, sel, pred.Ref)
		v.validateSelect(where+" subquery", pred.Query, true)
	case nil:
		v.addProblem("%s: nil predicate", where)
	default:
		v.addProblem("%s: unknown predicate type %T", where, p)
	}
}

func (v *validator) validateEquals(where string, sel Select, eq Equals) {
	v.validateRef(where, sel, eq.Ref)
	switch eq.Ref.Field {
	case FieldStr:
		if _, ok := eq.Value.(string); !ok {
			v.addProblem("%s: %s compared to %T, want string", where, eq.Ref.Field, eq.Value)
		}
	case FieldQnt:
		v.addProblem("%s: use Compare or Flag for values", where)
	default:
		if _, ok := eq.Value.(int64); !ok {
			v.addProblem("%s: %s compared to %T, want int64", where, eq.Ref.Field, eq.Value)
		}
	}
}

func (v *validator) validateValueHop(where string, sel Select, hop int) {
	if sel.Table != TableMeme {
		v.addProblem("%s: name rows have no value", where)
	}
	v.validateRef(where, sel, Ref{Hop: hop, Field: FieldQnt})
}

func (v *validator) validateRef(where string, sel Select, ref Ref) {
	if ref.Hop < 0 || ref.Hop >= len(sel.Hops) {
		v.addProblem("%s: hop %d out of range", where, ref.Hop)
	}
	switch sel.Table {
	case TableName:
		if ref.Field == FieldR || ref.Field == FieldQnt {
			v.addProblem("%s: name table has no %s", where, ref.Field)
		}
	case TableMeme:
		if ref.Field == FieldStr {
			v.addProblem("%s: meme table has no str", where)
		}
	}
}
