package dedup

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAndMark(t *testing.T) {
	g := NewGuard(0)

	require.False(t, g.CheckAndMark("wamid.1"))
	require.True(t, g.CheckAndMark("wamid.1"))
	require.False(t, g.CheckAndMark("wamid.2"))
	require.Equal(t, 2, g.Len())
}

func TestWindowEviction(t *testing.T) {
	g := NewGuard(10 * time.Minute)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	require.False(t, g.CheckAndMark("wamid.1"))
	require.True(t, g.CheckAndMark("wamid.1"))

	now = now.Add(11 * time.Minute)
	// Outside the window the id is forgotten and may be processed again.
	require.False(t, g.CheckAndMark("wamid.1"))
	require.Equal(t, 1, g.Len())
}

func TestZeroWindowNeverEvicts(t *testing.T) {
	g := NewGuard(0)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	require.False(t, g.CheckAndMark("wamid.1"))
	now = now.Add(1000 * time.Hour)
	require.True(t, g.CheckAndMark("wamid.1"))
}

func TestConcurrentSameID(t *testing.T) {
	g := NewGuard(0)

	const workers = 32
	var wg sync.WaitGroup
	passed := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !g.CheckAndMark("wamid.race") {
				passed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(passed)

	require.Len(t, passed, 1)
}
