package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/testutil"
)

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(setupTestStore(t), WithRunIDs(testutil.NewFixedRunIDGenerator("")))
	require.NoError(t, e.Install(context.Background()))
	return e
}

func TestPut_ReturnsResolvedTokens(t *testing.T) {
	e := setupEngine(t)

	tokens, err := e.Put(context.Background(), "a[r]b=5")
	require.NoError(t, err)
	assert.Equal(t, []ir.Token{
		ir.T(ir.OpEntity, ir.Int(1000000)),
		ir.T(ir.OpRelation, ir.Int(1000001)),
		ir.T(ir.OpTarget, ir.Int(1000002)),
		ir.T(ir.OpEqual, ir.Dec(5)),
	}, tokens)

	st, err := e.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Facts)
	assert.Equal(t, int64(len(ir.Reserved)+3), st.Labels)
}

func TestPut_Values(t *testing.T) {
	tests := []struct {
		name  string
		puts  []string
		query string
		want  string
	}{
		{
			name:  "implicit true",
			puts:  []string{"a[r]b"},
			query: "a[r]",
			want:  "a[r]b=t",
		},
		{
			name:  "inverse stored forward",
			puts:  []string{"b[-r]a=t"},
			query: "a[r]",
			want:  "a[r]b=t",
		},
		{
			name:  "upsert replaces value",
			puts:  []string{"a[r]b=5", "a[r]b=6.5"},
			query: "a[r]",
			want:  "a[r]b=6.5",
		},
		{
			name:  "flag replaces value",
			puts:  []string{"a[r]b=5", "a[r]b=f"},
			query: "a[r]=f|1",
			want:  "a[r]b=f",
		},
		{
			name:  "negative decimal",
			puts:  []string{"a[r]b=-0.25"},
			query: "a[r]<0",
			want:  "a[r]b=-0.25",
		},
		{
			name:  "quoted name",
			puts:  []string{`a[nam]first="Alice \"A\" ; \\"`},
			query: "a[nam]first",
			want:  `a[nam]first="Alice \"A\" ; \\"`,
		},
		{
			name:  "name by value",
			puts:  []string{`a[nam]first="Alice" b[nam]first="Bob"`},
			query: `[nam]first="Bob"`,
			want:  `b[nam]first="Bob"`,
		},
		{
			name:  "several clauses",
			puts:  []string{"a[r]b=1;a[s]c=2\nb[r]c"},
			query: "a[]",
			want:  "a[r]b=1;a[s]c=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setupEngine(t)
			ctx := context.Background()
			for _, text := range tt.puts {
				_, err := e.Put(ctx, text)
				require.NoError(t, err)
			}

			got, err := e.QueryText(ctx, tt.query, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPut_Declarations(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()

	_, err := e.Put(ctx, `1234567[nam]key="zed" zed[r]b`)
	require.NoError(t, err)

	for sym, want := range map[string]int64{"zed": 1234567, "r": 1234568, "b": 1234569} {
		id, ok := e.Cache().Lookup(sym)
		require.True(t, ok, sym)
		assert.Equal(t, want, id, sym)
	}

	// Declaring the same binding again is a no-op.
	_, err = e.Put(ctx, `1234567[nam]key="zed"`)
	require.NoError(t, err)

	_, err = e.Put(ctx, `7654321[nam]key="zed"`)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateSymbol))

	_, err = e.Put(ctx, `1234567[nam]key="other"`)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateSymbol))

	_, err = e.Put(ctx, `1234570[nam]key="t"`)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateSymbol))
}

func TestPut_DeclarationsAcrossEngines(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()

	_, err := e.Put(ctx, `1000500[nam]key="bar"`)
	require.NoError(t, err)

	// A fresh engine has an empty cache; the store still knows 1000500.
	fresh := New(e.store, WithRunIDs(testutil.NewFixedRunIDGenerator("")))
	_, err = fresh.Put(ctx, `1000500[nam]key="foo"`)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateSymbol))

	got, err := e.store.LookupByID(ctx, []int64{1000500})
	require.NoError(t, err)
	assert.Equal(t, []ir.Name{{ID: 1000500, Symbol: "bar"}}, got)

	_, err = fresh.Put(ctx, "foo[x]bar")
	require.NoError(t, err)
	text, err := fresh.QueryText(ctx, "foo[x]bar", true)
	require.NoError(t, err)
	assert.Equal(t, "foo[x]bar=t", text)
}

func TestPut_InternsAcrossCalls(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()

	_, err := e.Put(ctx, "a[r]b")
	require.NoError(t, err)
	_, err = e.Put(ctx, "c[r]a")
	require.NoError(t, err)

	// A fresh engine on the same store sees the same ids.
	fresh := New(e.store, WithRunIDs(testutil.NewFixedRunIDGenerator("")))
	for _, sym := range []string{"a", "r", "b", "c"} {
		want, _ := e.Cache().Lookup(sym)
		tokens, err := fresh.Cache().ToIDs(ctx, []ir.Token{ir.T(ir.OpEntity, ir.Str(sym))})
		require.NoError(t, err)
		got, ok := tokens[0].ID()
		require.True(t, ok, sym)
		assert.Equal(t, want, got, sym)
	}
	id, _ := e.Cache().Lookup("c")
	assert.Equal(t, int64(1000003), id)
}

func TestPut_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		index int
	}{
		{"missing entity", "[r]b=t", 0},
		{"missing relation", "a]b=t", 1},
		{"missing target", "a[r]=5", 2},
		{"chained relation", "a[r[s]b=t", 1},
		{"comparison", "a[r]b>5", 3},
		{"get", "a[r]b=g", 3},
		{"or group", "a[r]b=5|1", 4},
		{"string without nam", `a[r]b="x"`, 3},
		{"nam without string", "a[nam]b=t", 3},
		{"symbol declaration", `a[nam]key="b"`, 0},
		{"invalid declared symbol", `5[nam]key="two words"`, 3},
		{"inverted entity", "-a[r]b", 0},
		{"second statement", "a[r]b x[r]y<2", 8},
		{"join with entity", "a[r]b>>[s]c", 0},
		{"join comparison", "[r]b>>[s]c>2", 7},
		{"join name relation", "[nam]b>>[s]c", 1},
		{"join without target", "[r]b>>[s]=t", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setupEngine(t)
			ctx := context.Background()

			_, err := e.Put(ctx, tt.text)
			require.Error(t, err)
			assert.True(t, ir.IsStructuralError(err), "got %v", err)

			var ie *ir.Error
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.index, ie.Index)

			// Nothing was interned or written.
			_, ok := e.Cache().Lookup("a")
			assert.False(t, ok)
			st, err := e.store.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), st.Facts)
			assert.Equal(t, int64(len(ir.Reserved)), st.Labels)
		})
	}
}

func TestPut_Join(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()

	_, err := e.Put(ctx, "[ry]by >> [rz]bz=2")
	require.NoError(t, err)

	ids := map[string]int64{}
	for _, sym := range []string{"ry", "by", "rz", "bz", "VAR1000004"} {
		id, ok := e.Cache().Lookup(sym)
		require.True(t, ok, sym)
		ids[sym] = id
	}
	x := ids["VAR1000004"]
	assert.Equal(t, int64(1000004), x)

	got, err := e.store.LookupByID(ctx, []int64{x})
	require.NoError(t, err)
	assert.Equal(t, []ir.Name{{ID: x, Symbol: "VAR1000004"}}, got)

	type row struct {
		A, R, B int64
		Cpr     int
		Qnt     float64
	}
	rows, err := e.store.DB().QueryContext(ctx, "SELECT aid, rid, bid, cpr, qnt FROM meme ORDER BY aid")
	require.NoError(t, err)
	defer rows.Close()
	var facts []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.A, &r.R, &r.B, &r.Cpr, &r.Qnt))
		facts = append(facts, r)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []row{
		{A: -x, R: ids["rz"], B: ids["bz"], Cpr: int(ir.OpEqual), Qnt: 2},
		{A: -ids["by"], R: -ids["ry"], B: x, Cpr: int(ir.OpIs), Qnt: 1},
	}, facts)

	// a second join gets its own variable
	_, err = e.Put(ctx, "[ry]by=f>>[rz]bz")
	require.NoError(t, err)
	_, ok := e.Cache().Lookup("VAR1000005")
	assert.True(t, ok)
}

func TestPut_LexErrors(t *testing.T) {
	e := setupEngine(t)

	_, err := e.Put(context.Background(), `a[r]b="open`)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDanglingQuote))
}
