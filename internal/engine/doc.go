// Package engine runs memelang text against a store.
//
// The engine is the one place where the pipeline stages meet:
//
//	text -> syntax.Parse -> resolve.Cache -> compiler.Compile -> querysql -> store
//
// Query, QueryText and Count compile text to one SQL statement, execute it
// and lex the returned rows back into tokens. Put interns new symbols and
// writes facts and names.
//
// Every call draws a run id from a RunIDGenerator and attaches it to its log
// records, so a single CLI invocation can be followed through the logs.
//
// Thread-safety: an Engine is safe for concurrent use. The symbol cache
// serializes id allocation; the store serializes writes.
package engine
