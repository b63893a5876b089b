package queryir

import "github.com/roach88/memelang/internal/ir"

// Table identifies one of the two fixed tables.
type Table uint8

const (
	// TableMeme holds facts: aid, rid, bid, cpr, qnt.
	TableMeme Table = iota
	// TableName holds strings: aid, bid, str.
	TableName
)

func (t Table) String() string {
	if t == TableName {
		return "name"
	}
	return "meme"
}

// Field is a logical column of a hop.
type Field uint8

const (
	FieldA Field = iota
	FieldR
	FieldB
	FieldQnt
	FieldStr
)

var fieldNames = [...]string{"A", "R", "B", "qnt", "str"}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "field?"
}

// Ref names a field of one hop of the enclosing Select.
type Ref struct {
	Hop   int
	Field Field
}

// Anchor is the source entity of the first hop. Every Select yields it as a0.
var Anchor = Ref{Hop: 0, Field: FieldA}

// Plan is a compiled memelang program.
//
// Semantics:
//
//	WITH <CTEs...> SELECT <concatenated rows> FROM (<Outputs UNIONed>)
//
// A Plan with no outputs selects nothing.
type Plan struct {
	CTEs    []CTE
	Outputs []Query
}

// CTE is a named result set of (a0, meme) rows. Branches are UNIONed.
type CTE struct {
	Name     string
	Branches []Select
}

// Query represents a row source in the final UNION.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: rows read from a table
//   - FromCTE: rows of a CTE, optionally restricted to another CTE's anchors
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Hop is one alias of the table in a Select.
type Hop struct {
	// Inverted swaps the roles of aid and bid for this hop.
	Inverted bool
}

// Select reads rows from one table.
//
// Semantics:
//
//	SELECT A0 AS a0, <row text> AS meme
//	FROM t m0 [JOIN t m1 ON A1 = B0]
//	WHERE <Filter...>
//
// AnchorOnly drops the row text and selects A0 alone, for use inside
// NotIn.
//
// Example (conceptual, for george[spouse]martha):
//
//	Select{
//	  Table: TableMeme,
//	  Hops:  []Hop{{}},
//	  Filter: []Predicate{
//	    &Equals{Ref: Anchor, Value: int64(1000000)},
//	    &Equals{Ref: Ref{0, FieldR}, Value: int64(1000001)},
//	    &Equals{Ref: Ref{0, FieldB}, Value: int64(1000002)},
//	    &Flag{Hop: 0, Set: true},
//	  },
//	}
type Select struct {
	Table      Table
	Hops       []Hop
	Filter     []Predicate // conjunction; empty = no filter
	AnchorOnly bool
}

func (Select) queryNode() {}

// Last returns the index of the final hop.
func (s Select) Last() int { return len(s.Hops) - 1 }

// FromCTE re-reads the rows of a CTE.
//
// Semantics:
//
//	SELECT a0, meme FROM <Name> [WHERE a0 IN (SELECT a0 FROM <Within>)]
type FromCTE struct {
	Name   string
	Within string // empty = unrestricted
}

func (FromCTE) queryNode() {}

// Predicate represents a filter condition of a Select.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = id or string
//   - Compare: value <op> decimal
//   - Flag: value <> 0 or value = 0
//   - InCTE: anchor is in a CTE
//   - NotIn: anchor is not produced by a subquery
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals represents a field-equals-literal predicate.
//
// Value is int64 for entity and relation fields and string for FieldStr.
// Relation ids are stored unsigned; direction lives in Hop.Inverted.
type Equals struct {
	Ref   Ref
	Value any
}

func (Equals) predicateNode() {}

// Compare represents a comparison of a hop's value.
//
// Op is one of the comparator operators (ir.OpEqual ... ir.OpGreater).
type Compare struct {
	Hop   int
	Op    ir.Op
	Value float64
}

func (Compare) predicateNode() {}

// Flag tests a hop's value against zero: Set means "<> 0".
type Flag struct {
	Hop int
	Set bool
}

func (Flag) predicateNode() {}

// InCTE restricts a field to the anchors of a named CTE.
//
//	<ref> IN (SELECT a0 FROM <CTE>)
type InCTE struct {
	Ref Ref
	CTE string
}

func (InCTE) predicateNode() {}

// NotIn excludes anchors produced by an anchor-only subquery.
//
//	<ref> NOT IN (<Query>)
type NotIn struct {
	Ref   Ref
	Query Select
}

func (NotIn) predicateNode() {}
