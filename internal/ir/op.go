package ir

import "fmt"

// Op identifies the kind of a token. Every Op fits in OpBits bits so that a
// token can be packed into a single 64-bit chunk by the codec.
type Op uint8

// OpBits is the width of an operator code in the packed encoding.
const OpBits = 7

// Operator codes. The numeric values are part of the packed wire format and
// of the stored cpr column; never renumber them.
const (
	OpNone Op = 0

	OpEntity    Op = 1
	OpRelation  Op = 2
	OpRelation2 Op = 3
	OpTarget    Op = 4

	OpEqual        Op = 10
	OpNotEqual     Op = 11
	OpLess         Op = 12
	OpGreaterEqual Op = 13
	OpLessEqual    Op = 14
	OpGreater      Op = 15
	OpIs           Op = 16
	OpString       Op = 17

	OpOr  Op = 20
	OpAnd Op = 21
	OpEnd Op = 22

	// OpJoin opens the second half of a join statement: [Ry]By >> [Rz]Bz.
	OpJoin Op = 23
)

// Class groups operators by their structural role in a statement.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassEntity
	ClassRelation
	ClassTarget
	ClassComparator
	ClassValue
	ClassOr
	ClassAnd
	ClassTerminator
	ClassJoin
)

// Kind declares which operand an operator carries.
type Kind uint8

const (
	// KindNone operators never carry an operand.
	KindNone Kind = iota
	// KindIdentifier operands are symbols or signed integer ids.
	KindIdentifier
	// KindInteger operands are plain integers (OR group numbers).
	KindInteger
	// KindDecimal operands are quantities compared by comparators.
	KindDecimal
	// KindString operands are quoted text.
	KindString
)

// Info is the static description of one operator.
type Info struct {
	Name   string
	Class  Class
	Kind   Kind
	Depth  int    // relation hop depth, 0 for non-relations
	Prefix string // surface text written before the operand
	Suffix string // surface text written after the operand
	SQL    string // comparison operator for comparators
	// Default is the operand the normalizer gives an inserted token.
	Default Operand
}

var table = [1 << OpBits]Info{
	OpEntity:    {Name: "entity", Class: ClassEntity, Kind: KindIdentifier},
	OpRelation:  {Name: "relation", Class: ClassRelation, Kind: KindIdentifier, Depth: 1, Prefix: "["},
	OpRelation2: {Name: "relation2", Class: ClassRelation, Kind: KindIdentifier, Depth: 2, Prefix: "["},
	OpTarget:    {Name: "target", Class: ClassTarget, Kind: KindIdentifier, Prefix: "]"},

	OpEqual:        {Name: "eq", Class: ClassComparator, Kind: KindDecimal, Prefix: "=", SQL: "="},
	OpNotEqual:     {Name: "ne", Class: ClassComparator, Kind: KindDecimal, Prefix: "!=", SQL: "!="},
	OpLess:         {Name: "lt", Class: ClassComparator, Kind: KindDecimal, Prefix: "<", SQL: "<"},
	OpGreaterEqual: {Name: "ge", Class: ClassComparator, Kind: KindDecimal, Prefix: ">=", SQL: ">="},
	OpLessEqual:    {Name: "le", Class: ClassComparator, Kind: KindDecimal, Prefix: "<=", SQL: "<="},
	OpGreater:      {Name: "gt", Class: ClassComparator, Kind: KindDecimal, Prefix: ">", SQL: ">"},
	OpIs:           {Name: "is", Class: ClassValue, Kind: KindIdentifier, Prefix: "=", Default: Int(TrueID)},
	OpString:       {Name: "str", Class: ClassValue, Kind: KindString, Prefix: `="`, Suffix: `"`},

	OpOr:  {Name: "or", Class: ClassOr, Kind: KindInteger, Prefix: "|"},
	OpAnd: {Name: "and", Class: ClassAnd, Kind: KindNone, Prefix: " "},
	OpEnd: {Name: "end", Class: ClassTerminator, Kind: KindNone, Prefix: ";"},

	OpJoin: {Name: "join", Class: ClassJoin, Kind: KindNone, Prefix: ">>"},
}

// Info returns the static description of o. Unknown operators return an Info
// with ClassInvalid.
func (o Op) Info() Info {
	if int(o) >= len(table) {
		return Info{}
	}
	return table[o]
}

// Valid reports whether o is a defined operator.
func (o Op) Valid() bool { return o.Info().Class != ClassInvalid }

// Class returns the structural class of o.
func (o Op) Class() Class { return o.Info().Class }

// Kind returns the operand kind o carries.
func (o Op) Kind() Kind { return o.Info().Kind }

// IsQualifier reports whether o can close a statement's value slot.
func (o Op) IsQualifier() bool {
	c := o.Class()
	return c == ClassComparator || c == ClassValue
}

// IsSeparator reports whether o separates statements.
func (o Op) IsSeparator() bool {
	c := o.Class()
	return c == ClassAnd || c == ClassTerminator
}

func (o Op) String() string {
	if name := o.Info().Name; name != "" {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Ops returns every defined operator in code order.
func Ops() []Op {
	var ops []Op
	for i := range table {
		if table[i].Class != ClassInvalid {
			ops = append(ops, Op(i))
		}
	}
	return ops
}
