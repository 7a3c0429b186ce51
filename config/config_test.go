package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesLeelaZeroStockValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, float32(0.8), cfg.PUCT)
	require.Equal(t, float32(0.25), cfg.FPUReduction)
	require.Equal(t, float32(0.10), cfg.LCBMinVisitRatio)
	require.Equal(t, 2, cfg.NumSearchThreads)
	require.Equal(t, -1, cfg.ResignPercent)
	require.Equal(t, TimeOn, cfg.TimeManage)
}

func TestHandleLoadReturnsIndependentSnapshot(t *testing.T) {
	h := NewHandle(Default())
	snap := h.Load()
	snap.PUCT = 99

	require.Equal(t, float32(0.8), h.Load().PUCT, "mutating a loaded snapshot must not affect the stored Config")
}

func TestHandleStoreIsVisibleToConcurrentReaders(t *testing.T) {
	h := NewHandle(Default())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Load()
		}()
	}
	updated := Default()
	updated.PUCT = 1.5
	h.Store(updated)
	wg.Wait()

	require.Equal(t, float32(1.5), h.Load().PUCT)
}
