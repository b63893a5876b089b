package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/store"
	"github.com/roach88/memelang/internal/testutil"
)

func setupTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// setupFixture returns an installed engine loaded with testutil.Fixture.
func setupFixture(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRunIDs(testutil.NewFixedRunIDGenerator(""))}, opts...)
	e := New(setupTestStore(t), opts...)
	ctx := context.Background()
	require.NoError(t, e.Install(ctx))
	_, err := e.Put(ctx, testutil.Fixture)
	require.NoError(t, err)
	return e
}

func TestEngine_FixtureIDs(t *testing.T) {
	e := setupFixture(t)

	for i, sym := range testutil.FixtureSymbols {
		id, ok := e.Cache().Lookup(sym)
		require.True(t, ok, sym)
		assert.Equal(t, int64(ir.FirstUserID+1+i), id, sym)
	}
}

func TestEngine_QueryText(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "exact value",
			query: "E1[R]E2=5",
			want:  "E1[R]E2=5",
		},
		{
			name:  "comparison excludes",
			query: "E1[R]E2>10",
			want:  "",
		},
		{
			name:  "or group",
			query: "E1[R]E2=5|1 E1[R]E3=5|1",
			want:  "E1[R]E2=5;E1[R]E3=5",
		},
		{
			name:  "wildcard target",
			query: "george_washington[spouse]",
			want:  "george_washington[spouse]martha_washington=t",
		},
		{
			name:  "chained relation",
			query: "george_washington[spouse[child]=t",
			want:  "george_washington[spouse[child]patsy_custis=t",
		},
		{
			name:  "inverted relation",
			query: "patsy_custis[-child]",
			want:  "patsy_custis[-child]martha_washington=t",
		},
		{
			name:  "comparison over anchors",
			query: "[birth]year>1731",
			want:  "george_washington[birth]year=1732;patsy_custis[birth]year=1756",
		},
		{
			name:  "and narrows",
			query: "[birth]year>1730 [spouse]",
			want:  "george_washington[birth]year=1732;george_washington[spouse]martha_washington=t",
		},
		{
			name:  "not excludes",
			query: "[birth]year>1730 [spouse]=f",
			want:  "martha_washington[birth]year=1731;patsy_custis[birth]year=1756",
		},
		{
			name:  "get adds rows",
			query: "george_washington[spouse] [birth]=g",
			want:  "george_washington[birth]year=1732;george_washington[spouse]martha_washington=t",
		},
		{
			name:  "false flag",
			query: "E3[S]E5=f|1 E2[R]E5=f|1",
			want:  "E3[S]E5=f",
		},
		{
			name:  "all",
			query: "george_washington[spouse] qry[all]",
			want: "george_washington[birth]year=1732;george_washington[spouse]martha_washington=t;" +
				`george_washington[nam]key="george_washington"`,
		},
		{
			name:  "separate clauses",
			query: "E1[R]E2=5;E4[R]E2",
			want:  "E1[R]E2=5;E4[R]E2=7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.QueryText(ctx, tt.query, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_QueryIDs(t *testing.T) {
	e := setupFixture(t)

	got, err := e.QueryText(context.Background(), "E1[R]E2=5", false)
	require.NoError(t, err)
	assert.Equal(t, "1000000[1000001]1000002=5", got)

	tokens, err := e.Query(context.Background(), "E1[R]E2=5")
	require.NoError(t, err)
	assert.Equal(t, []ir.Token{
		ir.T(ir.OpEntity, ir.Int(1000000)),
		ir.T(ir.OpRelation, ir.Int(1000001)),
		ir.T(ir.OpTarget, ir.Int(1000002)),
		ir.T(ir.OpEqual, ir.Dec(5)),
	}, tokens)
}

func TestEngine_ResultsAreQueries(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()

	first, err := e.QueryText(ctx, "[birth]year>1730", true)
	require.NoError(t, err)

	// Every returned statement matches itself.
	again, err := e.QueryText(ctx, first, true)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestEngine_Count(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()

	tests := []struct {
		query string
		want  int
	}{
		{"E1[R]E2=5", 1},
		{"E1[R]E2>10", 0},
		{"E1[R]", 3},
		{"E1[R]>=5", 3},
		{"E1[R]<20", 2},
		{"E1[R]!=5", 1},
		{"[birth]year", 3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := e.Count(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestEngine_CountMatchesTable checks compiled queries against hand-written
// SQL over the fact table.
func TestEngine_CountMatchesTable(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()
	id := func(sym string) int64 {
		v, ok := e.Cache().Lookup(sym)
		require.True(t, ok, sym)
		return v
	}

	tests := []struct {
		query string
		where string
		args  []any
	}{
		{"E1[R]", "aid = ? AND rid = ? AND qnt <> 0", []any{id("E1"), id("R")}},
		{"E1[R]>=5", "aid = ? AND rid = ? AND qnt >= 5", []any{id("E1"), id("R")}},
		{"E1[R]<20", "aid = ? AND rid = ? AND qnt < 20", []any{id("E1"), id("R")}},
		{"E1[R]!=5", "aid = ? AND rid = ? AND qnt != 5", []any{id("E1"), id("R")}},
		{"[R]E2", "rid = ? AND bid = ? AND qnt <> 0", []any{id("R"), id("E2")}},
		{"[birth]year>1730", "rid = ? AND bid = ? AND qnt > 1730", []any{id("birth"), id("year")}},
		{"E1[R]E2=5|1 E1[R]E3=5|1", "aid = ? AND rid = ? AND bid IN (?, ?) AND qnt = 5",
			[]any{id("E1"), id("R"), id("E2"), id("E3")}},
		{"[S]E5=f|1", "rid = ? AND bid = ? AND qnt = 0", []any{id("S"), id("E5")}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var want int
			require.NoError(t, e.store.DB().QueryRowContext(ctx,
				"SELECT COUNT(*) FROM meme WHERE "+tt.where, tt.args...).Scan(&want))

			got, err := e.Count(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEngine_Composition(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()
	count := func(q string) int {
		n, err := e.Count(ctx, q)
		require.NoError(t, err, q)
		return n
	}

	// b never carries a qualifier so that =f can be appended.
	pairs := []struct{ a, b string }{
		{"E1[R]E2=5", "E1[R]E3"},
		{"E1[R]", "E4[R]"},
		{"[R]E2", "[R]E5"},
		{"[birth]year>1730", "[spouse]"},
		{"[birth]year", "[child]"},
	}

	for _, p := range pairs {
		t.Run(p.a+" "+p.b, func(t *testing.T) {
			a, b := count(p.a), count(p.b)

			union := count(p.a + "|1 " + p.b + "|1")
			assert.GreaterOrEqual(t, union, a)
			assert.GreaterOrEqual(t, union, b)

			assert.LessOrEqual(t, count(p.a+" "+p.b+"=f"), a)
		})
	}
}

func TestEngine_CompileErrors(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		code  ir.ErrorCode
	}{
		{"incomplete operator", "E1[R]E2!", ir.ErrCodeIncompleteOperator},
		{"empty", "  ", ir.ErrCodeEmptyInput},
		{"unknown symbol", "E1[nobody]E2", ir.ErrCodeUnknownSymbol},
		{"all negative", "[spouse]=f", ir.ErrCodeAllNegative},
		{"structural", "a[b[c[d]e", ir.ErrCodeStructural},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Compile(ctx, tt.query)
			require.Error(t, err)
			assert.Equal(t, tt.code, ir.CodeOf(err))
		})
	}
}

func TestEngine_UnknownSymbolsListed(t *testing.T) {
	e := setupFixture(t)

	_, err := e.Count(context.Background(), "nobody[R]E2 E1[nothing]")
	var ie *ir.Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, []string{"nobody", "nothing"}, ie.Symbols)
}

func TestEngine_PackUnpack(t *testing.T) {
	e := setupFixture(t)
	ctx := context.Background()

	packed, err := e.Pack(ctx, "E1[R]E2=5")
	require.NoError(t, err)

	text, err := e.Unpack(ctx, packed, true)
	require.NoError(t, err)
	assert.Equal(t, "E1[R]E2=5", text)

	text, err = e.Unpack(ctx, packed, false)
	require.NoError(t, err)
	assert.Equal(t, "1000000[1000001]1000002=5", text)
}

func TestEngine_CustomTables(t *testing.T) {
	s := setupTestStore(t, store.WithTables(store.Tables{Meme: "facts", Name: "labels"}))
	e := New(s, WithRunIDs(testutil.NewFixedRunIDGenerator("")))
	ctx := context.Background()
	require.NoError(t, e.Install(ctx))

	_, err := e.Put(ctx, "a[r]b=2")
	require.NoError(t, err)

	got, err := e.QueryText(ctx, "a[r]", true)
	require.NoError(t, err)
	assert.Equal(t, "a[r]b=2", got)
}

func TestEngine_Metrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	e := setupFixture(t, WithMetrics(m))
	ctx := context.Background()

	_, err := e.Count(ctx, "E1[R]")
	require.NoError(t, err)
	_, err = e.Count(ctx, "E1[nobody]")
	require.Error(t, err)

	assert.Equal(t, float64(1), promtest.ToFloat64(m.Compiles.WithLabelValues("ok")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.Compiles.WithLabelValues("unknown_symbol")))
	assert.Equal(t, float64(3), promtest.ToFloat64(m.Rows))
	assert.Equal(t, float64(11), promtest.ToFloat64(m.Puts))
	assert.Positive(t, promtest.ToFloat64(m.Lookups.WithLabelValues("hit")))
}

type countingRunIDs struct{ n int }

func (g *countingRunIDs) Generate() string {
	g.n++
	return fmt.Sprintf("run-%d", g.n)
}

func TestEngine_RunIDs(t *testing.T) {
	gen := &countingRunIDs{}
	e := New(setupTestStore(t), WithRunIDs(gen))

	require.NoError(t, e.Install(context.Background()))
	_, err := e.Put(context.Background(), "a[r]b")
	require.NoError(t, err)

	// one id per operation
	assert.Equal(t, 2, gen.n)
}
