package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Scenario defines a query test scenario.
// Scenarios load facts into a fresh store, run steps against it and assert
// on the results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Facts is memelang source put before the steps run.
	Facts string `yaml:"facts,omitempty"`

	// Files lists .meme files put after Facts.
	// Paths are relative to the scenario file location.
	Files []string `yaml:"files,omitempty"`

	// Steps run in order. Each step names exactly one of query, put or pack.
	Steps []Step `yaml:"steps"`

	// Assertions validate the store after all steps ran.
	// Supported types: contains, absent, count, order
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed run id for deterministic logs.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Step is one engine call.
type Step struct {
	// Query is memelang query text, answered with symbols.
	Query string `yaml:"query,omitempty"`

	// Put is memelang source written to the store.
	Put string `yaml:"put,omitempty"`

	// Pack is memelang text packed to an integer and unpacked again.
	Pack string `yaml:"pack,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step only has to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Kind returns the step kind and its input text.
func (s Step) Kind() (string, string) {
	switch {
	case s.Query != "":
		return KindQuery, s.Query
	case s.Put != "":
		return KindPut, s.Put
	default:
		return KindPack, s.Pack
	}
}

// Expect specifies expected step behavior.
type Expect struct {
	// Result is the exact expected output text.
	Result *string `yaml:"result,omitempty"`

	// Count is the expected number of statements in the output.
	Count *int `yaml:"count,omitempty"`

	// Error is the expected error code (e.g., "UNKNOWN_SYMBOL").
	// The step must fail with exactly this code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates query results after the steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "contains": Query returns Statement
	// - "absent": Query returns nothing
	// - "count": Query returns exactly Count statements
	// - "order": Query returns Statements in this order
	Type string `yaml:"type"`

	// Query is the memelang query to run.
	Query string `yaml:"query"`

	// Statement is the expected statement (used by contains).
	Statement string `yaml:"statement,omitempty"`

	// Statements is the expected statement order (used by order).
	Statements []string `yaml:"statements,omitempty"`

	// Count is the expected number of statements (used by count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertContains = "contains"
	AssertAbsent   = "absent"
	AssertCount    = "count"
	AssertOrder    = "order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// File paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve file paths relative to the scenario BEFORE validation
	base := filepath.Dir(path)
	for i, file := range scenario.Files {
		if !filepath.IsAbs(file) {
			scenario.Files[i] = filepath.Join(base, file)
		}
	}

	// Validate required fields (now with resolved paths)
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file under dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	names := make(map[string]string)
	for _, match := range matches {
		path := filepath.Join(dir, filepath.FromSlash(match))
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := names[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", path, s.Name, prev)
		}
		names[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	// Validate file paths exist
	for _, file := range s.Files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return fmt.Errorf("fact file not found: %s", file)
		}
	}

	// Validate steps
	for i, step := range s.Steps {
		set := 0
		for _, text := range []string{step.Query, step.Put, step.Pack} {
			if text != "" {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of query, put or pack is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" && (step.Expect.Result != nil || step.Expect.Count != nil) {
			return fmt.Errorf("steps[%d].expect: error cannot be combined with result or count", i)
		}
	}

	// Validate assertions
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Query == "" {
		return fmt.Errorf("assertions[%d]: query is required", index)
	}

	switch a.Type {
	case AssertContains:
		if a.Statement == "" {
			return fmt.Errorf("assertions[%d]: contains requires 'statement' field", index)
		}
	case AssertAbsent:
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertOrder:
		if len(a.Statements) < 2 {
			return fmt.Errorf("assertions[%d]: order requires at least 2 statements", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q (must be one of: contains, absent, count, order)", index, a.Type)
	}

	return nil
}
