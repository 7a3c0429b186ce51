package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gozero/engine/eval"
)

func TestInsertThenLookupHits(t *testing.T) {
	c := New(4)
	c.Insert(1, eval.Evaluation{Value: 0.5})

	got, ok := c.Lookup(1)
	require.True(t, ok)
	require.Equal(t, float32(0.5), got.Value)
}

func TestLookupMissOnUnknownKey(t *testing.T) {
	c := New(4)
	_, ok := c.Lookup(42)
	require.False(t, ok)
}

func TestReinsertingExistingKeyIsNoOp(t *testing.T) {
	c := New(4)
	c.Insert(1, eval.Evaluation{Value: 0.1})
	c.Insert(1, eval.Evaluation{Value: 0.9})

	got, ok := c.Lookup(1)
	require.True(t, ok)
	require.Equal(t, float32(0.1), got.Value, "first insert wins")
}

func TestEvictsOldestWhenOverCapacity(t *testing.T) {
	c := New(2)
	c.Insert(1, eval.Evaluation{Value: 1})
	c.Insert(2, eval.Evaluation{Value: 2})
	c.Insert(3, eval.Evaluation{Value: 3})

	_, ok := c.Lookup(1)
	require.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Lookup(2)
	require.True(t, ok)
	_, ok = c.Lookup(3)
	require.True(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestResizeEvictsDownToNewCapacity(t *testing.T) {
	c := New(4)
	c.Insert(1, eval.Evaluation{})
	c.Insert(2, eval.Evaluation{})
	c.Insert(3, eval.Evaluation{})

	c.Resize(1)
	require.Equal(t, 1, c.Len())
	_, ok := c.Lookup(3)
	require.True(t, ok, "most recently inserted entry should survive a shrink")
}

func TestSetSizeFromPlayoutsClampsToBounds(t *testing.T) {
	c := New(1)

	c.SetSizeFromPlayouts(1) // 3 x 1 entries, clamped up to the minimum
	require.Equal(t, MinCacheCount, c.size)

	c.SetSizeFromPlayouts(1_000_000_000)
	require.Equal(t, MaxCacheCount, c.size)
}

func TestHitRateTracksLookupsAndHits(t *testing.T) {
	c := New(4)
	c.Insert(1, eval.Evaluation{})
	c.Lookup(1)
	c.Lookup(2)

	hits, lookups := c.HitRate()
	require.Equal(t, 1, hits)
	require.Equal(t, 2, lookups)
}
