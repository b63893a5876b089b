package syntax

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/memelang/internal/ir"
)

const (
	// operatorRunes start an operator.
	operatorRunes = "[]=!<>|"

	// reservedRunes are punctuation with no meaning in the language.
	reservedRunes = "#$&`{}(),"

	// tightRunes make adjacent whitespace insignificant.
	tightRunes = "=!<>;|"
)

var integerPattern = regexp.MustCompile(`^-?[0-9]+$`)

// operatorText maps surface text to the operator the lexer emits for it,
// longest text first so that "<=" wins over "<".
type operatorText struct {
	text string
	op   ir.Op
}

var operators = buildOperators()

func buildOperators() []operatorText {
	var out []operatorText
	for _, op := range ir.Ops() {
		info := op.Info()
		switch {
		case op == ir.OpRelation2, op == ir.OpIs, op == ir.OpString:
			// produced by rewriting OpRelation and OpEqual
			continue
		case info.Class == ir.ClassEntity, info.Class == ir.ClassAnd, info.Class == ir.ClassTerminator:
			continue
		}
		out = append(out, operatorText{text: info.Prefix, op: op})
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].text) > len(out[j].text) })
	return out
}

// Lex tokenizes memelang source text.
//
// The source is NFC-normalized first; error positions are byte offsets into
// the normalized text. Every statement opens with an OpEntity token, so the
// result of a successful Lex always starts with one. Newlines and ';' become
// OpEnd, other whitespace between statements becomes OpAnd, and runs of
// separators collapse into one (OpEnd wins).
func Lex(src string) ([]ir.Token, error) {
	l := &lexer{input: norm.NFC.String(src)}
	return l.run()
}

type lexer struct {
	input  string
	pos    int
	tokens []ir.Token
	last   rune // last significant rune consumed, 0 before any
}

func (l *lexer) run() ([]ir.Token, error) {
	l.tokens = append(l.tokens, ir.Token{Op: ir.OpEntity})

	for l.pos < len(l.input) {
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		var err error
		switch {
		case strings.HasPrefix(l.input[l.pos:], "//"):
			l.comment()
		case unicode.IsSpace(r):
			l.space()
		case r == ';':
			l.pos += w
			l.separate(ir.OpEnd)
			l.last = r
		case r == '"':
			err = l.quoted()
		case strings.ContainsRune(operatorRunes, r):
			err = l.operator()
		case strings.ContainsRune(reservedRunes, r):
			err = ir.NewLexError(ir.ErrCodeUnknownOperator, l.pos, string(r), "reserved character")
		default:
			err = l.bare()
		}
		if err != nil {
			return nil, err
		}
	}

	return l.finish()
}

// comment skips to the end of the line, leaving the newline in place.
func (l *lexer) comment() {
	if i := strings.IndexByte(l.input[l.pos:], '\n'); i >= 0 {
		l.pos += i
		return
	}
	l.pos = len(l.input)
}

func (l *lexer) space() {
	newline := false
	for l.pos < len(l.input) {
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		if r == '\n' {
			newline = true
		}
		l.pos += w
	}

	if newline {
		l.separate(ir.OpEnd)
		l.last = ';'
		return
	}
	if l.pos >= len(l.input) || l.last == 0 || strings.HasPrefix(l.input[l.pos:], "//") {
		return
	}
	next, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	if strings.ContainsRune(tightRunes, l.last) || strings.ContainsRune(tightRunes, next) {
		return
	}
	l.separate(ir.OpAnd)
	l.last = ' '
}

// separate closes the current statement and opens the next one.
func (l *lexer) separate(op ir.Op) {
	n := len(l.tokens)
	cur := l.tokens[n-1]
	if cur.Op != ir.OpEntity || cur.Val != nil {
		l.tokens = append(l.tokens, ir.Token{Op: op}, ir.Token{Op: ir.OpEntity})
		return
	}
	// Nothing written since the last separator: merge.
	if n >= 2 && op == ir.OpEnd {
		l.tokens[n-2].Op = ir.OpEnd
	}
}

func (l *lexer) operator() error {
	rest := l.input[l.pos:]
	for _, cand := range operators {
		if strings.HasPrefix(rest, cand.text) {
			l.tokens = append(l.tokens, ir.Token{Op: cand.op})
			l.pos += len(cand.text)
			l.last = rune(cand.text[len(cand.text)-1])
			return nil
		}
	}
	for _, cand := range operators {
		if cand.text[0] == rest[0] {
			return ir.NewLexError(ir.ErrCodeIncompleteOperator, l.pos, rest[:1],
				"operator needs a continuation")
		}
	}
	return ir.NewLexError(ir.ErrCodeUnknownOperator, l.pos, rest[:1], "unrecognized operator")
}

func (l *lexer) quoted() error {
	start := l.pos
	cur := &l.tokens[len(l.tokens)-1]
	if cur.Op != ir.OpEqual || cur.Val != nil {
		return ir.NewLexError(ir.ErrCodeDanglingQuote, start, `"`, "quote outside value position")
	}

	var b strings.Builder
	l.pos++
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '\\':
			if l.pos+1 >= len(l.input) {
				l.pos++
				continue
			}
			b.WriteByte(l.input[l.pos+1])
			l.pos += 2
		case '"':
			l.pos++
			cur.Op = ir.OpString
			cur.Val = ir.Str(b.String())
			l.last = '"'
			return nil
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return ir.NewLexError(ir.ErrCodeDanglingQuote, start, l.input[start:], "unterminated string")
}

func (l *lexer) bare() error {
	start := l.pos
	for l.pos < len(l.input) {
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		if unicode.IsSpace(r) || strings.ContainsRune(operatorRunes+reservedRunes+`;"`, r) ||
			strings.HasPrefix(l.input[l.pos:], "//") {
			break
		}
		l.pos += w
	}
	run := l.input[start:l.pos]
	if !hasAlnum(run) {
		return ir.NewLexError(ir.ErrCodeUnexpectedCharacter, start, run, "operand needs a letter or digit")
	}

	cur := &l.tokens[len(l.tokens)-1]
	if cur.Val != nil || cur.Op.Kind() == ir.KindNone {
		return ir.NewLexError(ir.ErrCodeUnexpectedCharacter, start, run, "operand follows a complete token")
	}

	val, err := classify(cur, run)
	if err != nil {
		return ir.NewLexError(ir.ErrCodeUnexpectedCharacter, start, run, err.Error())
	}
	cur.Val = val
	l.last, _ = utf8.DecodeLastRuneInString(run)
	return nil
}

// classify turns a bare run into the operand its token expects. The value
// keywords rewrite a bare '=' into OpIs.
func classify(cur *ir.Token, run string) (ir.Operand, error) {
	switch cur.Op.Kind() {
	case ir.KindDecimal:
		if cur.Op == ir.OpEqual {
			if id, ok := ir.KeywordID(run); ok {
				cur.Op = ir.OpIs
				return ir.Int(id), nil
			}
		}
		f, err := strconv.ParseFloat(run, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, errors.New("not a number")
		}
		return ir.Dec(f), nil

	case ir.KindInteger:
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			return nil, errors.New("not an integer")
		}
		return ir.Int(n), nil

	case ir.KindIdentifier:
		if integerPattern.MatchString(run) {
			n, err := strconv.ParseInt(run, 10, 64)
			if err != nil {
				return nil, errors.New("identifier out of range")
			}
			return ir.Int(n), nil
		}
		return ir.Str(run), nil
	}
	return nil, errors.New("token takes no operand")
}

func (l *lexer) finish() ([]ir.Token, error) {
	n := len(l.tokens)
	if n >= 2 && l.tokens[n-1].Op == ir.OpEntity && l.tokens[n-1].Val == nil {
		l.tokens = l.tokens[:n-2]
	}
	if len(l.tokens) == 1 && l.tokens[0].Val == nil {
		return nil, ir.NewLexError(ir.ErrCodeEmptyInput, 0, "", "no statements")
	}
	return l.tokens, nil
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
