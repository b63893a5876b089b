// Package testutil provides fakes and fixtures shared by package tests.
package testutil

// Fixture is a small fact base in memelang source form. Symbols are interned
// in order of first appearance, so E1 is the first user id.
const Fixture = `// entities
E1[R]E2=5
E1[R]E3=5
E1[R]E4=20
E2[R]E5=t
E3[S]E5=f
E4[R]E2=7
george_washington[birth]year=1732
george_washington[spouse]martha_washington=t
martha_washington[birth]year=1731
martha_washington[child]patsy_custis=t
patsy_custis[birth]year=1756
`

// FixtureSymbols lists the fixture's symbols in order of first appearance.
var FixtureSymbols = []string{
	"E1", "R", "E2", "E3", "E4", "E5", "S",
	"george_washington", "birth", "year", "spouse", "martha_washington",
	"child", "patsy_custis",
}
