// Package queryir provides the compiled plan of a memelang program.
//
// The plan sits between statement grouping and SQL rendering:
//
//	[ir.Program] → [compiler] → [queryir.Plan] → [querysql] → (SQL, params)
//
// A Plan is a list of named common table expressions followed by the outputs
// whose rows are unioned into the final result. Every row source is a Select
// over one of the two fixed tables: the meme table (aid, rid, bid, cpr, qnt)
// or the name table (aid, bid, str).
//
// HOPS AND COLUMNS:
//
// A meme Select walks one or two relation hops. Hop i is the table alias m<i>
// and hop i+1 joins on A(i+1) = B(i). Predicates never name physical columns;
// they reference a logical field of a hop:
//
//	FieldA    the hop's source entity (aid, or bid when inverted)
//	FieldR    the hop's relation id (rid)
//	FieldB    the hop's target entity (bid, or aid when inverted)
//	FieldQnt  the hop's value (qnt)
//	FieldStr  the name string (name table only)
//
// An inverted hop swaps which physical column plays A and B. The backend owns
// that mapping, so the compiler only records Hop.Inverted.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	    // row source
//	case *FromCTE:
//	    // re-read of a CTE
//	}
package queryir
