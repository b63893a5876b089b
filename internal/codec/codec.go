// Package codec packs canonical token streams into a single arbitrary
// precision integer and back.
//
// Layout, most significant chunk first:
//
//	[sentinel 1<<63][token 0][token 1]...[token n-1]
//
// Every chunk is 64 bits: the operator in the top 7 bits and the operand as a
// 57-bit two's-complement integer below it. Decimal operands are scaled by
// DecimalScale and rounded. A zero operand on an identifier token means the
// operand is absent.
package codec

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/roach88/memelang/internal/ir"
)

const (
	// ChunkBits is the width of one packed token.
	ChunkBits = 64

	// OperandBits is the width of the packed operand.
	OperandBits = ChunkBits - ir.OpBits

	// DecimalScale is the fixed-point factor for decimal operands.
	DecimalScale = 1e6

	sentinel     uint64 = 1 << 63
	operandMask  uint64 = 1<<OperandBits - 1
	operandSign  uint64 = 1 << (OperandBits - 1)
	operandLimit int64  = 1 << (OperandBits - 1)
)

// Pack encodes a canonical, fully resolved token stream.
func Pack(tokens []ir.Token) (*big.Int, error) {
	buf := make([]byte, ChunkBits/8*(len(tokens)+1))
	binary.BigEndian.PutUint64(buf, sentinel)

	for i, tok := range tokens {
		chunk, err := packToken(tok)
		if err != nil {
			err.Index = i
			return nil, err
		}
		binary.BigEndian.PutUint64(buf[(i+1)*8:], chunk)
	}
	return new(big.Int).SetBytes(buf), nil
}

func packToken(tok ir.Token) (uint64, *ir.Error) {
	if !tok.Op.Valid() || uint64(tok.Op) >= 1<<ir.OpBits {
		return 0, ir.NewError(ir.ErrCodeEncodingRange, "operator %d cannot be packed", uint8(tok.Op))
	}
	if err := tok.Check(); err != nil {
		return 0, ir.NewError(ir.ErrCodeEncodingRange, "%v", err)
	}

	var n int64
	switch v := tok.Val.(type) {
	case nil:
	case ir.Int:
		if tok.Op.Kind() == ir.KindIdentifier && v == 0 {
			return 0, ir.NewError(ir.ErrCodeEncodingRange, "identifier 0 is reserved for an absent operand")
		}
		n = int64(v)
	case ir.Dec:
		scaled := math.Round(float64(v) * DecimalScale)
		if scaled < -float64(operandLimit) || scaled >= float64(operandLimit) {
			return 0, ir.NewError(ir.ErrCodeEncodingRange, "decimal %v out of range", float64(v))
		}
		n = int64(scaled)
	case ir.Str:
		if tok.Op.Kind() == ir.KindIdentifier {
			return 0, &ir.Error{Code: ir.ErrCodeEncodingRange, Message: "unresolved symbol",
				Pos: -1, Span: string(v), Symbols: []string{string(v)}}
		}
		return 0, ir.NewError(ir.ErrCodeEncodingRange, "%s operands cannot be packed", tok.Op)
	}
	if tok.Val != nil && tok.Op.Kind() == ir.KindNone {
		return 0, ir.NewError(ir.ErrCodeEncodingRange, "%s takes no operand", tok.Op)
	}
	if n < -operandLimit || n >= operandLimit {
		return 0, ir.NewError(ir.ErrCodeEncodingRange, "operand %d exceeds %d bits", n, OperandBits)
	}

	return uint64(tok.Op)<<OperandBits | uint64(n)&operandMask, nil
}

// Unpack decodes an integer produced by Pack.
func Unpack(v *big.Int) ([]ir.Token, error) {
	if v == nil || v.Sign() <= 0 {
		return nil, ir.NewError(ir.ErrCodeVersionMismatch, "packed value must be positive")
	}
	bits := v.BitLen()
	if bits%ChunkBits != 0 {
		return nil, ir.NewError(ir.ErrCodeVersionMismatch, "packed value has %d bits, want a multiple of %d", bits, ChunkBits)
	}

	buf := v.FillBytes(make([]byte, bits/8))
	if binary.BigEndian.Uint64(buf) != sentinel {
		return nil, ir.NewError(ir.ErrCodeVersionMismatch, "missing encoding sentinel")
	}

	tokens := make([]ir.Token, 0, len(buf)/8-1)
	for off := 8; off < len(buf); off += 8 {
		tok, err := unpackChunk(binary.BigEndian.Uint64(buf[off:]))
		if err != nil {
			err.Index = len(tokens)
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func unpackChunk(chunk uint64) (ir.Token, *ir.Error) {
	op := ir.Op(chunk >> OperandBits)
	if !op.Valid() {
		return ir.Token{}, ir.NewError(ir.ErrCodeVersionMismatch, "unknown operator %d", uint8(op))
	}

	raw := chunk & operandMask
	n := int64(raw)
	if raw&operandSign != 0 {
		n -= 1 << OperandBits
	}

	tok := ir.Token{Op: op}
	switch op.Kind() {
	case ir.KindIdentifier:
		if n != 0 {
			tok.Val = ir.Int(n)
		}
	case ir.KindInteger:
		tok.Val = ir.Int(n)
	case ir.KindDecimal:
		tok.Val = ir.Dec(float64(n) / DecimalScale)
	case ir.KindNone:
		if n != 0 {
			return ir.Token{}, ir.NewError(ir.ErrCodeVersionMismatch, "%s carries an operand", op)
		}
	default:
		return ir.Token{}, ir.NewError(ir.ErrCodeVersionMismatch, "%s cannot appear in a packed stream", op)
	}
	return tok, nil
}

// Parse reads a packed value written in decimal or 0x-prefixed hex.
func Parse(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, ir.NewError(ir.ErrCodeVersionMismatch, "not an integer: %q", s)
	}
	return v, nil
}
