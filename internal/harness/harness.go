package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"

	"github.com/roach88/memelang/internal/engine"
	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/store"
	"github.com/roach88/memelang/internal/syntax"
	"github.com/roach88/memelang/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a fresh store with a fixed run id.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and install reserved names
// 2. Put the scenario's facts and fact files
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
//
// An error is returned only when the scenario cannot be set up; failed
// expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	eng := engine.New(st,
		engine.WithRunIDs(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(logger),
	)

	h := &Harness{
		store:  st,
		engine: eng,
		logger: logger,
	}

	ctx := context.Background()
	if err := eng.Install(ctx); err != nil {
		return nil, fmt.Errorf("failed to install: %w", err)
	}
	if err := h.loadFacts(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, i, step)
		result.AddTrace(event)
		for _, msg := range checkExpect(i, step.Expect, event, err) {
			result.AddError(msg)
		}
	}

	// Evaluate assertions against the final store
	actx := &AssertionContext{
		Engine: eng,
		Ctx:    ctx,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// loadFacts puts the inline facts, then every fact file in order.
func (h *Harness) loadFacts(ctx context.Context, scenario *Scenario) error {
	if scenario.Facts != "" {
		if _, err := h.engine.Put(ctx, scenario.Facts); err != nil {
			return fmt.Errorf("facts: %w", err)
		}
	}
	for _, file := range scenario.Files {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := h.engine.Put(ctx, string(src)); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// executeStep runs one step and records it. The returned error is the
// engine's; the event carries its code.
func (h *Harness) executeStep(ctx context.Context, i int, step Step) (TraceEvent, error) {
	kind, input := step.Kind()
	event := TraceEvent{Step: i, Kind: kind, Input: input}

	var (
		output string
		err    error
	)
	switch kind {
	case KindQuery:
		output, err = h.engine.QueryText(ctx, input, true)
	case KindPut:
		output, err = h.put(ctx, input)
	case KindPack:
		var packed *big.Int
		packed, err = h.engine.Pack(ctx, input)
		if err == nil {
			event.Packed = packed.String()
			output, err = h.engine.Unpack(ctx, packed, true)
		}
	}
	if err != nil {
		event.Error = errorCode(err)
		h.logger.Info("step failed", "step", i, "kind", kind, "error", err)
		return event, err
	}

	event.Output = output
	event.Count = countStatements(output)
	h.logger.Info("step completed", "step", i, "kind", kind, "count", event.Count)
	return event, nil
}

// put writes input and returns what was stored, rendered with symbols.
func (h *Harness) put(ctx context.Context, input string) (string, error) {
	tokens, err := h.engine.Put(ctx, input)
	if err != nil {
		return "", err
	}
	tokens, err = h.engine.Cache().ToSymbols(ctx, tokens)
	if err != nil {
		return "", err
	}
	return syntax.Encode(tokens), nil
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(i int, expect *Expect, event TraceEvent, err error) []string {
	var errs []string
	if expect == nil || expect.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("steps[%d]: unexpected error: %v", i, err)}
		}
	}
	if expect == nil {
		return nil
	}

	if expect.Error != "" {
		switch {
		case err == nil:
			errs = append(errs, fmt.Sprintf("steps[%d]: expected error %s, got success", i, expect.Error))
		case event.Error != expect.Error:
			errs = append(errs, fmt.Sprintf("steps[%d]: expected error %s, got %s", i, expect.Error, event.Error))
		}
		return errs
	}

	if expect.Result != nil && *expect.Result != event.Output {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected result %q, got %q", i, *expect.Result, event.Output))
	}
	if expect.Count != nil && *expect.Count != event.Count {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected %d statements, got %d", i, *expect.Count, event.Count))
	}
	return errs
}

// errorCode returns the memelang error code of err, or its message.
func errorCode(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

// splitStatements cuts memelang text into canonical statements.
func splitStatements(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	prog, err := syntax.Parse(text)
	if err != nil {
		return nil, err
	}
	stmts := prog.Statements()
	out := make([]string, len(stmts))
	for i, stmt := range stmts {
		out[i] = syntax.Encode(stmt)
	}
	return out, nil
}

func countStatements(text string) int {
	stmts, err := splitStatements(text)
	if err != nil {
		return 0
	}
	return len(stmts)
}
