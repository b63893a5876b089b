package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/washington.yaml")
	require.NoError(t, err)

	assert.Equal(t, "washington", s.Name)
	require.Len(t, s.Files, 1)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "facts", "washington.meme"), s.Files[0])
	require.Len(t, s.Steps, 4)

	kind, input := s.Steps[1].Kind()
	assert.Equal(t, KindPut, kind)
	assert.Equal(t, "patsy_custis[spouse]john_custis", input)

	require.NotNil(t, s.Steps[0].Expect)
	require.NotNil(t, s.Steps[0].Expect.Count)
	assert.Equal(t, 1, *s.Steps[0].Expect.Count)
	assert.Nil(t, s.Steps[2].Expect.Result)

	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertOrder, s.Assertions[2].Type)
	assert.Len(t, s.Assertions[2].Statements, 2)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"unknown field", "testdata/invalid/unknown_field.yaml", "expcet"},
		{"two kinds", "testdata/invalid/two_kinds.yaml", "exactly one of query, put or pack"},
		{"missing file", "testdata/invalid/does_not_exist.yaml", "failed to read scenario file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateScenario(t *testing.T) {
	count := 1
	result := "E1[R]E2=5"

	tests := []struct {
		name     string
		scenario Scenario
		wantErr  string
	}{
		{
			name:     "missing name",
			scenario: Scenario{Description: "d", Steps: []Step{{Query: "E1"}}},
			wantErr:  "name is required",
		},
		{
			name:     "missing description",
			scenario: Scenario{Name: "n", Steps: []Step{{Query: "E1"}}},
			wantErr:  "description is required",
		},
		{
			name:     "no steps",
			scenario: Scenario{Name: "n", Description: "d"},
			wantErr:  "steps list is required",
		},
		{
			name:     "empty step",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{}}},
			wantErr:  "steps[0]: exactly one of",
		},
		{
			name: "error with count",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{
				{Query: "E1", Expect: &Expect{Error: "STRUCTURAL", Count: &count}},
			}},
			wantErr: "error cannot be combined",
		},
		{
			name: "error with result",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{
				{Query: "E1", Expect: &Expect{Error: "STRUCTURAL", Result: &result}},
			}},
			wantErr: "error cannot be combined",
		},
		{
			name: "missing fact file",
			scenario: Scenario{Name: "n", Description: "d", Files: []string{"testdata/nope.meme"},
				Steps: []Step{{Query: "E1"}}},
			wantErr: "fact file not found",
		},
		{
			name: "assertion without query",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{Query: "E1"}},
				Assertions: []Assertion{{Type: AssertAbsent}}},
			wantErr: "assertions[0]: query is required",
		},
		{
			name: "contains without statement",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{Query: "E1"}},
				Assertions: []Assertion{{Type: AssertContains, Query: "E1"}}},
			wantErr: "requires 'statement'",
		},
		{
			name: "order with one statement",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{Query: "E1"}},
				Assertions: []Assertion{{Type: AssertOrder, Query: "E1", Statements: []string{"E1"}}}},
			wantErr: "at least 2 statements",
		},
		{
			name: "negative count",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{Query: "E1"}},
				Assertions: []Assertion{{Type: AssertCount, Query: "E1", Count: -1}}},
			wantErr: "non-negative",
		},
		{
			name: "unknown type",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{Query: "E1"}},
				Assertions: []Assertion{{Type: "matches", Query: "E1"}}},
			wantErr: `unknown type "matches"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateScenario(&tt.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"errors", "exact_value", "or_union", "pack_roundtrip", "washington"}, names)
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	src := "name: same\ndescription: d\nsteps:\n  - query: \"E1\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(src), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.yml"), []byte(src), 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used`)
}

func TestLoadScenarios_Empty(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
}
