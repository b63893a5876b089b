package engine

import (
	"context"
	"math/big"

	"github.com/roach88/memelang/internal/codec"
	"github.com/roach88/memelang/internal/syntax"
)

// Pack resolves text and packs its canonical tokens into one integer.
func (e *Engine) Pack(ctx context.Context, text string) (*big.Int, error) {
	log := e.run("pack")
	prog, err := e.resolve(ctx, text)
	if err != nil {
		return nil, err
	}
	packed, err := codec.Pack(prog.Tokens())
	if err != nil {
		return nil, err
	}
	log.Debug("packed", "statements", len(prog.Statements()), "bits", packed.BitLen())
	return packed, nil
}

// Unpack decodes an integer written by Pack back to memelang source. With
// symbols set, ids are rendered as the symbols bound to them.
func (e *Engine) Unpack(ctx context.Context, v *big.Int, symbols bool) (string, error) {
	tokens, err := codec.Unpack(v)
	if err != nil {
		return "", err
	}
	if symbols {
		if tokens, err = e.cache.ToSymbols(ctx, tokens); err != nil {
			return "", err
		}
	}
	return syntax.Encode(tokens), nil
}
