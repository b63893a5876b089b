package ir

// Statement is one canonical fact pattern:
//
//	Entity Relation [Relation2] Target Qualifier [Join Relation [Relation2] Target Qualifier] [Or]
//
// The optional Join half only appears in join statements, which are written
// by put and never queried.
//
// Accessors assume the statement passed Validate.
type Statement []Token

// Clause is a run of statements joined by OpAnd. The statements of a clause
// narrow each other and compile to one result set.
type Clause []Statement

// Program is a list of clauses separated by OpEnd.
type Program []Clause

// Entity returns the anchor token.
func (s Statement) Entity() Token { return s[0] }

// Hops returns the relation tokens in order.
func (s Statement) Hops() []Token {
	end := 1
	for end < len(s) && s[end].Op.Class() == ClassRelation {
		end++
	}
	return s[1:end]
}

// Target returns the target token.
func (s Statement) Target() Token { return s[len(s.Hops())+1] }

// Qualifier returns the value or comparator token.
func (s Statement) Qualifier() Token { return s[len(s.Hops())+2] }

// Group returns the OR group number, if the statement is tagged.
func (s Statement) Group() (int64, bool) {
	last := s[len(s)-1]
	if last.Op != OpOr {
		return 0, false
	}
	n, ok := last.Val.(Int)
	return int64(n), ok
}

// Join returns the second half of a join statement, starting at its OpJoin
// token. Hops, Target and Qualifier work on the returned half.
func (s Statement) Join() (Statement, bool) {
	i := len(s.Hops()) + 3
	if i >= len(s) || s[i].Op != OpJoin {
		return nil, false
	}
	end := len(s)
	if s[end-1].Op == OpOr {
		end--
	}
	return s[i:end], true
}

// Condition returns the statement without its qualifier and group tag.
func (s Statement) Condition() Statement {
	return s[:len(s.Hops())+2]
}

// IsKeyword reports whether the qualifier is OpIs with the given reserved id.
func (s Statement) IsKeyword(id int64) bool {
	q := s.Qualifier()
	if q.Op != OpIs {
		return false
	}
	v, ok := q.Val.(Int)
	return ok && int64(v) == id
}

// Validate checks that s has canonical shape and that every operand matches
// its operator. offset is the index of s[0] in the enclosing token stream and
// is used for error locations.
func (s Statement) Validate(offset int) error {
	if len(s) == 0 {
		return NewStructuralError(offset, "empty statement")
	}
	for i, tok := range s {
		if err := tok.Check(); err != nil {
			return NewStructuralError(offset+i, "%v", err)
		}
	}
	i := 0
	expect := func(ok bool, what string) error {
		if i >= len(s) {
			return NewStructuralError(offset+i, "statement ends before %s", what)
		}
		if !ok {
			return NewStructuralError(offset+i, "expected %s, found %s", what, s[i].Op)
		}
		i++
		return nil
	}
	if err := expect(s[i].Op == OpEntity, "entity"); err != nil {
		return err
	}
	body := func() error {
		if err := expect(i < len(s) && s[i].Op == OpRelation, "relation"); err != nil {
			return err
		}
		if i < len(s) && s[i].Op == OpRelation2 {
			i++
		}
		if err := expect(i < len(s) && s[i].Op == OpTarget, "target"); err != nil {
			return err
		}
		if err := expect(i < len(s) && s[i].Op.IsQualifier(), "value"); err != nil {
			return err
		}
		q := s[i-1]
		if q.Val == nil {
			return NewStructuralError(offset+i-1, "%s has no value", q.Op)
		}
		if q.Op == OpIs {
			if id, ok := q.Val.(Int); !ok || !isKeywordID(int64(id)) {
				return NewStructuralError(offset+i-1, "value must be t, f or g")
			}
		}
		return nil
	}
	if err := body(); err != nil {
		return err
	}
	if i < len(s) && s[i].Op == OpJoin {
		i++
		if err := body(); err != nil {
			return err
		}
	}
	if i < len(s) && s[i].Op == OpOr {
		if s[i].Val == nil {
			return NewStructuralError(offset+i, "or group has no number")
		}
		i++
	}
	if i != len(s) {
		return NewStructuralError(offset+i, "unexpected %s after value", s[i].Op)
	}
	return nil
}

func isKeywordID(id int64) bool {
	_, ok := Keyword(id)
	return ok
}

// Split cuts a normalized token stream into clauses and statements and
// validates every statement.
func Split(tokens []Token) (Program, error) {
	var (
		prog   Program
		clause Clause
		start  int
	)
	flush := func(end int) error {
		stmt := Statement(tokens[start:end])
		if err := stmt.Validate(start); err != nil {
			return err
		}
		clause = append(clause, stmt)
		start = end + 1
		return nil
	}
	for i, tok := range tokens {
		switch tok.Op {
		case OpAnd:
			if err := flush(i); err != nil {
				return nil, err
			}
		case OpEnd:
			if err := flush(i); err != nil {
				return nil, err
			}
			prog = append(prog, clause)
			clause = nil
		}
	}
	if start < len(tokens) {
		if err := flush(len(tokens)); err != nil {
			return nil, err
		}
	} else if len(tokens) > 0 {
		return nil, NewStructuralError(len(tokens)-1, "trailing separator")
	}
	if len(clause) > 0 {
		prog = append(prog, clause)
	}
	return prog, nil
}

// Tokens flattens the clause back into a token stream.
func (c Clause) Tokens() []Token {
	var out []Token
	for i, stmt := range c {
		if i > 0 {
			out = append(out, Token{Op: OpAnd})
		}
		out = append(out, stmt...)
	}
	return out
}

// Tokens flattens the program back into a token stream.
func (p Program) Tokens() []Token {
	var out []Token
	for i, clause := range p {
		if i > 0 {
			out = append(out, Token{Op: OpEnd})
		}
		out = append(out, clause.Tokens()...)
	}
	return out
}

// Statements returns every statement in source order.
func (p Program) Statements() []Statement {
	var out []Statement
	for _, clause := range p {
		out = append(out, clause...)
	}
	return out
}
