package codec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memelang/internal/ir"
)

// e1RE2 is the resolved canonical form of E1[R]E2=5.
var e1RE2 = []ir.Token{
	ir.T(ir.OpEntity, ir.Int(1000000)),
	ir.T(ir.OpRelation, ir.Int(1000001)),
	ir.T(ir.OpTarget, ir.Int(1000002)),
	ir.T(ir.OpEqual, ir.Dec(5)),
}

func TestPackUnpackRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		tokens []ir.Token
	}{
		{"single statement", e1RE2},
		{
			name: "wildcards negatives and groups",
			tokens: []ir.Token{
				ir.T(ir.OpEntity, nil),
				ir.T(ir.OpRelation, ir.Int(-1000001)),
				ir.T(ir.OpRelation2, ir.Int(1000003)),
				ir.T(ir.OpTarget, nil),
				ir.T(ir.OpLess, ir.Dec(-12.345678)),
				ir.T(ir.OpOr, ir.Int(2)),
				ir.T(ir.OpAnd, nil),
				ir.T(ir.OpEntity, ir.Int(ir.QryID)),
				ir.T(ir.OpRelation, nil),
				ir.T(ir.OpTarget, ir.Int(ir.AllID)),
				ir.T(ir.OpIs, ir.Int(ir.TrueID)),
				ir.T(ir.OpEnd, nil),
				ir.T(ir.OpEntity, ir.Int(1000000)),
				ir.T(ir.OpRelation, nil),
				ir.T(ir.OpTarget, nil),
				ir.T(ir.OpEqual, ir.Dec(0)),
			},
		},
		{
			name: "operand extremes",
			tokens: []ir.Token{
				ir.T(ir.OpEntity, ir.Int(operandLimit-1)),
				ir.T(ir.OpRelation, ir.Int(-operandLimit)),
				ir.T(ir.OpTarget, ir.Int(1)),
				ir.T(ir.OpGreater, ir.Dec(0.000001)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Pack(tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, ChunkBits*(len(tt.tokens)+1), packed.BitLen())

			got, err := Unpack(packed)
			require.NoError(t, err)
			assert.Equal(t, tt.tokens, got)
		})
	}
}

func TestPackLayout(t *testing.T) {
	packed, err := Pack(e1RE2[:1])
	require.NoError(t, err)

	want := new(big.Int).Lsh(big.NewInt(1), 127)
	want.Or(want, new(big.Int).SetUint64(uint64(ir.OpEntity)<<OperandBits|1000000))
	assert.Equal(t, 0, want.Cmp(packed))
}

func TestPackEmpty(t *testing.T) {
	packed, err := Pack(nil)
	require.NoError(t, err)

	got, err := Unpack(packed)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPackErrors(t *testing.T) {
	tests := []struct {
		name string
		tok  ir.Token
	}{
		{"unresolved symbol", ir.T(ir.OpEntity, ir.Str("george"))},
		{"string operand", ir.T(ir.OpString, ir.Str("text"))},
		{"identifier too large", ir.T(ir.OpEntity, ir.Int(operandLimit))},
		{"decimal too large", ir.T(ir.OpEqual, ir.Dec(1e12))},
		{"zero identifier", ir.T(ir.OpTarget, ir.Int(0))},
		{"unknown operator", ir.T(ir.Op(99), nil)},
		{"kind mismatch", ir.T(ir.OpEqual, ir.Int(5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pack([]ir.Token{e1RE2[0], tt.tok})
			require.Error(t, err)
			assert.True(t, ir.HasCode(err, ir.ErrCodeEncodingRange))

			var e *ir.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, 1, e.Index)
		})
	}
}

func TestUnpackErrors(t *testing.T) {
	valid, err := Pack(e1RE2)
	require.NoError(t, err)

	noSentinel := new(big.Int).Set(valid)
	noSentinel.SetBit(noSentinel, valid.BitLen()-2, 1)

	badOp := new(big.Int).Lsh(big.NewInt(1), 127)
	badOp.Or(badOp, new(big.Int).SetUint64(uint64(99)<<OperandBits))

	tests := []struct {
		name string
		v    *big.Int
	}{
		{"nil", nil},
		{"zero", big.NewInt(0)},
		{"negative", big.NewInt(-5)},
		{"short", big.NewInt(12345)},
		{"sentinel corrupted", noSentinel},
		{"unknown operator", badOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(tt.v)
			require.Error(t, err)
			assert.True(t, ir.HasCode(err, ir.ErrCodeVersionMismatch))
		})
	}
}

func TestParse(t *testing.T) {
	packed, err := Pack(e1RE2)
	require.NoError(t, err)

	fromDecimal, err := Parse(packed.String())
	require.NoError(t, err)
	assert.Equal(t, 0, packed.Cmp(fromDecimal))

	fromHex, err := Parse("0x" + packed.Text(16))
	require.NoError(t, err)
	assert.Equal(t, 0, packed.Cmp(fromHex))

	_, err = Parse("not-a-number")
	assert.True(t, ir.HasCode(err, ir.ErrCodeVersionMismatch))
}
