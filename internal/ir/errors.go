package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes memelang errors.
type ErrorCode string

const (
	// ErrCodeIncompleteOperator indicates an operator prefix with no valid
	// completion, such as a lone '!'.
	ErrCodeIncompleteOperator ErrorCode = "INCOMPLETE_OPERATOR"

	// ErrCodeUnknownOperator indicates a reserved punctuation character.
	ErrCodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeDanglingQuote indicates an unterminated or misplaced quote.
	ErrCodeDanglingQuote ErrorCode = "DANGLING_QUOTE"

	// ErrCodeUnexpectedCharacter indicates a bare run that is not a valid operand.
	ErrCodeUnexpectedCharacter ErrorCode = "UNEXPECTED_CHARACTER"

	// ErrCodeEmptyInput indicates source text with no statements.
	ErrCodeEmptyInput ErrorCode = "EMPTY_INPUT"

	// ErrCodeStructural indicates a token sequence that cannot be normalized
	// into a canonical statement.
	ErrCodeStructural ErrorCode = "STRUCTURAL"

	// ErrCodeUnknownSymbol indicates symbols with no interned id.
	ErrCodeUnknownSymbol ErrorCode = "UNKNOWN_SYMBOL"

	// ErrCodeEncodingRange indicates a token that cannot be packed.
	ErrCodeEncodingRange ErrorCode = "ENCODING_RANGE"

	// ErrCodeVersionMismatch indicates a packed integer that is not a valid
	// encoding.
	ErrCodeVersionMismatch ErrorCode = "VERSION_MISMATCH"

	// ErrCodeAllNegative indicates a query made only of negated statements.
	ErrCodeAllNegative ErrorCode = "ALL_NEGATIVE_QUERY"

	// ErrCodeDuplicateSymbol indicates a symbol bound to two different ids.
	ErrCodeDuplicateSymbol ErrorCode = "DUPLICATE_SYMBOL"
)

// Error is the single error type produced by the lexer, normalizer, resolver,
// codec and compiler.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Pos is the byte offset in the source text, or -1.
	Pos int

	// Index is the token index, or -1.
	Index int

	// Span is the offending source text, if known.
	Span string

	// Symbols lists unresolved or conflicting symbols.
	Symbols []string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Span != "" {
		fmt.Fprintf(&b, " %q", e.Span)
	}
	switch {
	case e.Pos >= 0:
		fmt.Fprintf(&b, " (at %d)", e.Pos)
	case e.Index >= 0:
		fmt.Fprintf(&b, " (token %d)", e.Index)
	}
	return b.String()
}

// NewLexError creates an Error located at a byte offset.
func NewLexError(code ErrorCode, pos int, span, message string) *Error {
	return &Error{Code: code, Message: message, Pos: pos, Index: -1, Span: span}
}

// NewStructuralError creates an Error located at a token index.
func NewStructuralError(index int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeStructural, Message: fmt.Sprintf(format, args...), Pos: -1, Index: index}
}

// NewError creates an Error with no location.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Pos: -1, Index: -1}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsLexError reports whether err was raised while tokenizing source text.
func IsLexError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeIncompleteOperator, ErrCodeUnknownOperator, ErrCodeDanglingQuote,
		ErrCodeUnexpectedCharacter, ErrCodeEmptyInput:
		return true
	}
	return false
}

// IsStructuralError reports whether err is a normalization failure.
func IsStructuralError(err error) bool {
	return HasCode(err, ErrCodeStructural)
}

// IsUnknownSymbolError reports whether err names unresolved symbols.
func IsUnknownSymbolError(err error) bool {
	return HasCode(err, ErrCodeUnknownSymbol)
}
