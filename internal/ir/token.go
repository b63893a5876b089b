package ir

import (
	"fmt"
	"strconv"
)

// Operand is the value carried by a token.
//
// This is a sealed interface: only Int, Dec and Str implement it. A nil
// Operand means the operand is absent (a wildcard in identifier position).
//
// Identifier-kind tokens hold either an Int (a resolved id whose sign is the
// direction of a relation) or a Str (a symbol not yet resolved, a leading '-'
// marking the inverse direction).
type Operand interface {
	operand()
	String() string
}

// Int is an integer operand: a resolved identifier or an OR group number.
type Int int64

// Dec is a decimal operand compared by comparators.
type Dec float64

// Str is a symbol or quoted-string operand.
type Str string

func (Int) operand() {}
func (Dec) operand() {}
func (Str) operand() {}

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }
func (v Dec) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v Str) String() string { return string(v) }

// Token is one lexical unit of a memelang program.
type Token struct {
	Op  Op
	Val Operand
}

// T is shorthand for building a token.
func T(op Op, val Operand) Token { return Token{Op: op, Val: val} }

// Absent reports whether the token carries no operand.
func (t Token) Absent() bool { return t.Val == nil }

// Resolved reports whether an identifier token no longer holds a symbol.
func (t Token) Resolved() bool {
	_, isSym := t.Val.(Str)
	return t.Op.Kind() != KindIdentifier || !isSym
}

// ID returns the integer operand, if any.
func (t Token) ID() (int64, bool) {
	v, ok := t.Val.(Int)
	return int64(v), ok
}

// Check verifies the operand matches the operator's declared kind.
func (t Token) Check() error {
	if !t.Op.Valid() {
		return fmt.Errorf("unknown operator %d", uint8(t.Op))
	}
	if t.Val == nil {
		return nil
	}
	ok := false
	switch t.Op.Kind() {
	case KindIdentifier:
		switch t.Val.(type) {
		case Int, Str:
			ok = true
		}
	case KindInteger:
		_, ok = t.Val.(Int)
	case KindDecimal:
		_, ok = t.Val.(Dec)
	case KindString:
		_, ok = t.Val.(Str)
	}
	if !ok {
		return fmt.Errorf("%s token cannot carry %T operand", t.Op, t.Val)
	}
	return nil
}

func (t Token) String() string {
	if t.Val == nil {
		return t.Op.String()
	}
	return fmt.Sprintf("%s(%s)", t.Op, t.Val)
}

// Name is one interned symbol binding.
type Name struct {
	ID     int64
	Symbol string
}
