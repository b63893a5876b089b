// Package syntax converts between memelang source text and token streams.
//
// The pipeline is Lex → Normalize, with Encode as the inverse:
//
//	"george_washington[spouse"            (source)
//	Lex        → Entity(george_washington) Relation(spouse)
//	Normalize  → Entity(george_washington) Relation() Target(spouse) Is(t)
//	Encode     → "george_washington[]spouse=t"
//
// Normalize is a fixed table of local rewrite rules keyed on consecutive
// operator tags, applied to a fixpoint. Its output always splits into
// canonical statements (see ir.Split).
package syntax
