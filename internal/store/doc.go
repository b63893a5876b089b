// Package store provides SQLite-backed storage for memelang facts and names.
//
// Two tables, with configurable names:
//   - meme(aid, rid, bid, cpr, qnt): facts A[R]B=q, unique on (aid, rid, bid)
//   - name(aid, bid, str): strings A[nam]B="str", unique on all columns
//
// Symbol bindings live in the name table as key rows: id[nam]key="symbol".
// Store implements resolve.NameStore over those rows and executes compiled
// queries through QueryText. It never builds a query from memelang itself.
//
// # Critical Patterns
//
// Idempotent writes:
//   - facts upsert on (aid, rid, bid); labels insert with ON CONFLICT DO NOTHING
//   - every Write is one transaction, so a retried call is safe
//
// Deterministic reads:
//   - lookups order by symbol or id; compiled queries order by anchor and text
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
