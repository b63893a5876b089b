package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/memelang/internal/testutil"
)

// Snapshot captures the complete trace for a scenario execution.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	RunID    string       `json:"run_id"`
	Pass     bool         `json:"pass"`
	Trace    []TraceEvent `json:"trace"`
}

// NewSnapshot captures a scenario result. An empty run id is reported as the
// default fixed id.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	return Snapshot{
		Scenario: scenario.Name,
		RunID:    testutil.NewFixedRunIDGenerator(scenario.RunID).Generate(),
		Pass:     result.Pass,
		Trace:    result.Trace,
	}
}

// Marshal renders the snapshot as indented JSON with one trailing newline.
// Comparison operators are written literally, not HTML-escaped.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenario, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	// Compare with golden file using goldie
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
