package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memelang/internal/ir"
)

func TestMemoryNameStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNameStore(ir.Name{ID: 1000000, Symbol: "a"}, ir.Name{ID: 1000001, Symbol: "b"})

	got, err := s.LookupBySymbol(ctx, []string{"b", "zzz", "a"})
	require.NoError(t, err)
	assert.Equal(t, []ir.Name{{ID: 1000001, Symbol: "b"}, {ID: 1000000, Symbol: "a"}}, got)

	got, err = s.LookupByID(ctx, []int64{1000000, 5})
	require.NoError(t, err)
	assert.Equal(t, []ir.Name{{ID: 1000000, Symbol: "a"}}, got)

	maxID, err := s.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000001), maxID)

	assert.Equal(t, 1, s.Calls("LookupBySymbol"))
	assert.Equal(t, 1, s.Calls("LookupByID"))
}

func TestMemoryNameStore_WriteKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNameStore(ir.Name{ID: 1000000, Symbol: "a"})

	require.NoError(t, s.WriteNames(ctx, []ir.Name{
		{ID: 7, Symbol: "a"},
		{ID: 1000000, Symbol: "b"},
		{ID: 1000002, Symbol: "c"},
	}))
	assert.Equal(t, []ir.Name{{ID: 1000000, Symbol: "a"}, {ID: 1000002, Symbol: "c"}}, s.Names())

	got, err := s.LookupBySymbol(ctx, []string{"b"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryNameStore_Err(t *testing.T) {
	s := NewMemoryNameStore()
	s.Err = errors.New("down")

	_, err := s.LookupBySymbol(context.Background(), []string{"a"})
	assert.EqualError(t, err, "down")
}

func TestMemoryNameStore_ThreadSafe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNameStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.WriteNames(ctx, []ir.Name{{ID: int64(1000000 + i), Symbol: string(rune('a' + i))}})
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Names(), 10)
	assert.Equal(t, 10, s.Calls("WriteNames"))
}

func TestFixedRunIDGenerator(t *testing.T) {
	assert.Equal(t, "run-1", NewFixedRunIDGenerator("run-1").Generate())
	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}
