package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/memelang/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Query    string   // Query the assertion ran
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Results  []string // Full query result for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Query: %s\n", e.Query)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full result for context
	fmt.Fprintf(&buf, "\nResults:\n")
	for i, stmt := range e.Results {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, stmt)
	}

	return buf.String()
}

// AssertionContext carries what assertions need to run queries.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions runs all assertions and returns error messages for
// failures, in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	text, err := actx.Engine.QueryText(actx.Ctx, a.Query, true)
	if err != nil {
		return fmt.Errorf("query %q: %w", a.Query, err)
	}
	results, err := splitStatements(text)
	if err != nil {
		return fmt.Errorf("query %q returned unparseable text: %w", a.Query, err)
	}

	switch a.Type {
	case AssertContains:
		return assertContains(a, results)
	case AssertAbsent:
		return assertAbsent(a, results)
	case AssertCount:
		return assertCount(a, results)
	case AssertOrder:
		return assertOrder(a, results)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// canonical renders a single expected statement the way results are rendered.
func canonical(statement string) (string, error) {
	stmts, err := splitStatements(statement)
	if err != nil {
		return "", fmt.Errorf("statement %q: %w", statement, err)
	}
	if len(stmts) != 1 {
		return "", fmt.Errorf("statement %q: want exactly one statement, got %d", statement, len(stmts))
	}
	return stmts[0], nil
}

// assertContains checks that the result includes the statement.
func assertContains(a Assertion, results []string) error {
	want, err := canonical(a.Statement)
	if err != nil {
		return err
	}
	if indexOf(results, want) >= 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertContains,
		Query:    a.Query,
		Expected: want,
		Actual:   "not found in result",
		Results:  results,
	}
}

// assertAbsent checks that the query matches nothing.
func assertAbsent(a Assertion, results []string) error {
	if len(results) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Query:    a.Query,
		Expected: "no statements",
		Actual:   fmt.Sprintf("%d statements", len(results)),
		Results:  results,
	}
}

// assertCount checks the exact number of matching statements.
func assertCount(a Assertion, results []string) error {
	if len(results) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Query:    a.Query,
		Expected: fmt.Sprintf("%d statements", a.Count),
		Actual:   fmt.Sprintf("%d statements", len(results)),
		Results:  results,
	}
}

// assertOrder checks that statements appear in the specified order.
// Statements don't need to be consecutive.
func assertOrder(a Assertion, results []string) error {
	// Step 1: Find the position of each expected statement
	positions := make([]int, len(a.Statements))
	for i, stmt := range a.Statements {
		want, err := canonical(stmt)
		if err != nil {
			return err
		}
		positions[i] = indexOf(results, want)
		if positions[i] < 0 {
			return &AssertionError{
				Type:     AssertOrder,
				Query:    a.Query,
				Expected: fmt.Sprintf("all statements present: %v", a.Statements),
				Actual:   fmt.Sprintf("missing statement: %s", want),
				Results:  results,
			}
		}
	}

	// Step 2: Verify order
	for i := 1; i < len(positions); i++ {
		if positions[i-1] >= positions[i] {
			return &AssertionError{
				Type:     AssertOrder,
				Query:    a.Query,
				Expected: fmt.Sprintf("statements in order: %v", a.Statements),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					a.Statements[i-1], positions[i-1]+1, a.Statements[i], positions[i]+1),
				Results: results,
			}
		}
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
