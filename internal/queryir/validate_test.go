package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memelang/internal/ir"
)

func memeSelect(filter ...Predicate) Select {
	return Select{Table: TableMeme, Hops: []Hop{{}}, Filter: filter}
}

func TestValidate_ValidPlan(t *testing.T) {
	plan := Plan{
		CTEs: []CTE{
			{Name: "z1", Branches: []Select{
				memeSelect(
					&Equals{Ref: Anchor, Value: int64(1000000)},
					&Compare{Hop: 0, Op: ir.OpGreater, Value: 3},
					&NotIn{Ref: Anchor, Query: Select{
						Table: TableMeme, Hops: []Hop{{}}, AnchorOnly: true,
						Filter: []Predicate{&Flag{Hop: 0, Set: true}},
					}},
				),
			}},
			{Name: "z2", Branches: []Select{
				{
					Table:  TableMeme,
					Hops:   []Hop{{Inverted: true}, {}},
					Filter: []Predicate{&Equals{Ref: Ref{1, FieldR}, Value: int64(5)}, &InCTE{Ref: Anchor, CTE: "z1"}},
				},
				{
					Table:  TableName,
					Hops:   []Hop{{}},
					Filter: []Predicate{&Equals{Ref: Ref{0, FieldStr}, Value: "Martha"}},
				},
			}},
		},
		Outputs: []Query{
			&FromCTE{Name: "z1", Within: "z2"},
			&FromCTE{Name: "z2"},
			&Select{Table: TableMeme, Hops: []Hop{{}}, Filter: []Predicate{&InCTE{Ref: Anchor, CTE: "z2"}}},
		},
	}

	result := Validate(plan)
	assert.True(t, result.Valid, "problems: %v", result.Problems)
	assert.Empty(t, result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidate_EmptyPlan(t *testing.T) {
	result := Validate(Plan{})
	assert.True(t, result.Valid)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{
			name: "duplicate cte",
			plan: Plan{CTEs: []CTE{
				{Name: "z1", Branches: []Select{memeSelect()}},
				{Name: "z1", Branches: []Select{memeSelect()}},
			}},
			want: "duplicate name",
		},
		{
			name: "cte without branches",
			plan: Plan{CTEs: []CTE{{Name: "z1"}}},
			want: "no branches",
		},
		{
			name: "forward reference",
			plan: Plan{CTEs: []CTE{
				{Name: "z1", Branches: []Select{memeSelect(&InCTE{Ref: Anchor, CTE: "z2"})}},
				{Name: "z2", Branches: []Select{memeSelect()}},
			}},
			want: "referenced before definition",
		},
		{
			name: "unknown output cte",
			plan: Plan{Outputs: []Query{&FromCTE{Name: "z9"}}},
			want: "referenced before definition",
		},
		{
			name: "too many hops",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: make([]Hop, 3)}}},
			want: "exceeds",
		},
		{
			name: "no hops",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme}}},
			want: "no hops",
		},
		{
			name: "inverted name select",
			plan: Plan{Outputs: []Query{&Select{Table: TableName, Hops: []Hop{{Inverted: true}}}}},
			want: "cannot be inverted",
		},
		{
			name: "hop out of range",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: []Hop{{}},
				Filter: []Predicate{&Equals{Ref: Ref{1, FieldB}, Value: int64(1)}}}}},
			want: "hop 1 out of range",
		},
		{
			name: "string on meme table",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: []Hop{{}},
				Filter: []Predicate{&Equals{Ref: Ref{0, FieldStr}, Value: "x"}}}}},
			want: "meme table has no str",
		},
		{
			name: "value on name table",
			plan: Plan{Outputs: []Query{&Select{Table: TableName, Hops: []Hop{{}},
				Filter: []Predicate{&Flag{Hop: 0, Set: true}}}}},
			want: "name rows have no value",
		},
		{
			name: "wrong literal type",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: []Hop{{}},
				Filter: []Predicate{&Equals{Ref: Anchor, Value: "george"}}}}},
			want: "want int64",
		},
		{
			name: "non-comparator",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: []Hop{{}},
				Filter: []Predicate{&Compare{Hop: 0, Op: ir.OpIs, Value: 1}}}}},
			want: "is not a comparator",
		},
		{
			name: "subquery not anchor-only",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: []Hop{{}},
				Filter: []Predicate{&NotIn{Ref: Anchor, Query: memeSelect()}}}}},
			want: "subquery must be anchor-only",
		},
		{
			name: "anchor-only output",
			plan: Plan{Outputs: []Query{&Select{Table: TableMeme, Hops: []Hop{{}}, AnchorOnly: true}}},
			want: "anchor-only select outside a subquery",
		},
		{
			name: "nil output",
			plan: Plan{Outputs: []Query{nil}},
			want: "nil query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.plan)
			require.False(t, result.Valid)
			require.Error(t, result.Err())
			assert.Contains(t, result.Err().Error(), tt.want)
		})
	}
}
