package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stmt(entity, rel, target Operand, q Token) []Token {
	return []Token{T(OpEntity, entity), T(OpRelation, rel), T(OpTarget, target), q}
}

func TestSplit(t *testing.T) {
	var tokens []Token
	tokens = append(tokens, stmt(Str("a"), Str("r"), Str("b"), T(OpEqual, Dec(5)))...)
	tokens = append(tokens, T(OpAnd, nil))
	tokens = append(tokens, stmt(Str("a"), Str("s"), nil, T(OpIs, Int(TrueID)))...)
	tokens = append(tokens, T(OpEnd, nil))
	tokens = append(tokens, stmt(nil, Str("r"), nil, T(OpIs, Int(GetID)))...)

	prog, err := Split(tokens)
	require.NoError(t, err)
	require.Len(t, prog, 2)
	assert.Len(t, prog[0], 2)
	assert.Len(t, prog[1], 1)
	assert.Equal(t, tokens, prog.Tokens())
	assert.Len(t, prog.Statements(), 3)
}

func TestStatementAccessors(t *testing.T) {
	s := Statement{
		T(OpEntity, Int(1)),
		T(OpRelation, Int(2)),
		T(OpRelation2, Int(-3)),
		T(OpTarget, Int(4)),
		T(OpGreater, Dec(7)),
		T(OpOr, Int(2)),
	}
	require.NoError(t, s.Validate(0))

	assert.Equal(t, T(OpEntity, Int(1)), s.Entity())
	assert.Len(t, s.Hops(), 2)
	assert.Equal(t, T(OpTarget, Int(4)), s.Target())
	assert.Equal(t, T(OpGreater, Dec(7)), s.Qualifier())
	assert.Len(t, s.Condition(), 4)

	group, ok := s.Group()
	assert.True(t, ok)
	assert.Equal(t, int64(2), group)
}

func TestStatementJoin(t *testing.T) {
	s := Statement{
		T(OpEntity, nil),
		T(OpRelation, Int(2)),
		T(OpTarget, Int(3)),
		T(OpIs, Int(TrueID)),
		T(OpJoin, nil),
		T(OpRelation, Int(4)),
		T(OpTarget, Int(5)),
		T(OpEqual, Dec(1.5)),
	}
	require.NoError(t, s.Validate(0))

	assert.Equal(t, T(OpTarget, Int(3)), s.Target())
	assert.Equal(t, T(OpIs, Int(TrueID)), s.Qualifier())

	join, ok := s.Join()
	require.True(t, ok)
	assert.Equal(t, T(OpJoin, nil), join[0])
	require.Len(t, join.Hops(), 1)
	assert.Equal(t, T(OpRelation, Int(4)), join.Hops()[0])
	assert.Equal(t, T(OpTarget, Int(5)), join.Target())
	assert.Equal(t, T(OpEqual, Dec(1.5)), join.Qualifier())

	_, ok = Statement(stmt(Str("a"), nil, nil, T(OpIs, Int(TrueID)))).Join()
	assert.False(t, ok)
}

func TestStatementIsKeyword(t *testing.T) {
	s := Statement(stmt(Str("a"), nil, nil, T(OpIs, Int(FalseID))))
	assert.True(t, s.IsKeyword(FalseID))
	assert.False(t, s.IsKeyword(TrueID))
}

func TestStatementValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		stmt  Statement
		index int
	}{
		{
			name:  "missing target",
			stmt:  Statement{T(OpEntity, nil), T(OpRelation, nil), T(OpEqual, Dec(1))},
			index: 2,
		},
		{
			name:  "comparator without value",
			stmt:  Statement{T(OpEntity, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpGreater, nil)},
			index: 3,
		},
		{
			name:  "two qualifiers",
			stmt:  Statement{T(OpEntity, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpEqual, Dec(1)), T(OpEqual, Dec(2))},
			index: 4,
		},
		{
			name:  "is with non keyword",
			stmt:  Statement{T(OpEntity, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpIs, Int(12345))},
			index: 3,
		},
		{
			name: "join without value",
			stmt: Statement{T(OpEntity, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpIs, Int(TrueID)),
				T(OpJoin, nil), T(OpRelation, nil), T(OpTarget, nil)},
			index: 7,
		},
		{
			name: "two joins",
			stmt: Statement{T(OpEntity, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpIs, Int(TrueID)),
				T(OpJoin, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpIs, Int(TrueID)),
				T(OpJoin, nil), T(OpRelation, nil), T(OpTarget, nil), T(OpIs, Int(TrueID))},
			index: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stmt.Validate(10)
			require.Error(t, err)
			assert.True(t, IsStructuralError(err))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, 10+tt.index, e.Index)
		})
	}
}

func TestSplitRejectsEmptyStatement(t *testing.T) {
	tokens := stmt(Str("a"), nil, nil, T(OpIs, Int(TrueID)))
	tokens = append(tokens, T(OpAnd, nil), T(OpEnd, nil))
	tokens = append(tokens, stmt(Str("b"), nil, nil, T(OpIs, Int(TrueID)))...)

	_, err := Split(tokens)
	require.Error(t, err)
	assert.True(t, IsStructuralError(err))
}

func TestErrorHelpers(t *testing.T) {
	err := NewLexError(ErrCodeIncompleteOperator, 7, "!", "operator needs a continuation")
	assert.True(t, IsLexError(err))
	assert.False(t, IsStructuralError(err))
	assert.Equal(t, ErrCodeIncompleteOperator, CodeOf(err))
	assert.Contains(t, err.Error(), "(at 7)")

	wrapped := NewError(ErrCodeUnknownSymbol, "unknown symbols: %s", "x")
	assert.True(t, IsUnknownSymbolError(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}
