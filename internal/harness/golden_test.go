package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	snap := Snapshot{
		Scenario: "s",
		RunID:    "r",
		Pass:     false,
		Trace: []TraceEvent{
			{Step: 0, Kind: KindQuery, Input: "E1[R]E2>10", Count: 0},
			{Step: 1, Kind: KindPut, Input: "a", Error: "STRUCTURAL"},
		},
	}

	data, err := snap.Marshal()
	require.NoError(t, err)

	want := `{
  "scenario": "s",
  "run_id": "r",
  "pass": false,
  "trace": [
    {
      "step": 0,
      "kind": "query",
      "input": "E1[R]E2>10",
      "count": 0
    },
    {
      "step": 1,
      "kind": "put",
      "input": "a",
      "count": 0,
      "error": "STRUCTURAL"
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}
