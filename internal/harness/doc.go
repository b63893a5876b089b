// Package harness runs memelang query scenarios.
//
// A scenario loads facts into a fresh in-memory store, runs query, put and
// pack steps through the engine and asserts on the results. Every run is
// recorded as a trace that can be compared with a golden snapshot.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	facts: |
//	  E1[R]E2=5
//	files:
//	  - facts/washington.meme
//	steps:
//	  - query: "E1[R]E2=5"
//	    expect:
//	      result: "E1[R]E2=5"
//	      count: 1
//	  - put: "E1[R]E5=2"
//	  - pack: "E1[R]E2=5"
//	  - query: "E1[R]E2!"
//	    expect:
//	      error: INCOMPLETE_OPERATOR
//	assertions:
//	  - type: contains
//	    query: "E1[R]"
//	    statement: "E1[R]E5=2"
//
// Unknown fields are rejected, so a misspelled key fails loudly.
//
// # Assertion Types
//
//   - contains: the query returns the statement
//   - absent: the query returns nothing
//   - count: the query returns exactly count statements
//   - order: the query returns the statements in the given order
//
// # Deterministic Testing
//
// Symbols are interned in order of first appearance and results are sorted
// by the compiled query, so a scenario produces the same trace on every run.
// Run ids come from testutil.FixedRunIDGenerator.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/or_union.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
