package syntax

import (
	"strings"

	"github.com/roach88/memelang/internal/ir"
)

// EncodeOption configures Encode.
type EncodeOption func(*encoder)

// WithNewlines renders OpEnd as a line break instead of ';'.
func WithNewlines() EncodeOption {
	return func(e *encoder) { e.end = "\n" }
}

type encoder struct {
	end string
}

// Encode renders tokens back to surface syntax. Lex followed by Normalize
// on the result reproduces a canonical input.
func Encode(tokens []ir.Token, opts ...EncodeOption) string {
	e := &encoder{end: ";"}
	for _, opt := range opts {
		opt(e)
	}

	var b strings.Builder
	for _, tok := range tokens {
		info := tok.Op.Info()
		if tok.Op == ir.OpEnd {
			b.WriteString(e.end)
			continue
		}
		b.WriteString(info.Prefix)
		b.WriteString(operandText(tok))
		b.WriteString(info.Suffix)
	}
	return b.String()
}

func operandText(tok ir.Token) string {
	switch v := tok.Val.(type) {
	case nil:
		return ""
	case ir.Int:
		if tok.Op == ir.OpIs {
			if word, ok := ir.Keyword(int64(v)); ok {
				return word
			}
		}
		return v.String()
	case ir.Str:
		if tok.Op == ir.OpString {
			return Escape(string(v))
		}
		return string(v)
	default:
		return v.String()
	}
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Escape backslash-escapes quotes and backslashes for a quoted string.
func Escape(s string) string { return escaper.Replace(s) }
