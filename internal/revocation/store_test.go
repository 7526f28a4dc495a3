package revocation

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestRevokeIsIdempotent(t *testing.T) {
	s := NewStore(nil)
	require.False(t, s.IsRevoked("tok"))

	require.True(t, s.Revoke("tok"))
	require.False(t, s.Revoke("tok"))

	require.True(t, s.IsRevoked("tok"))
	require.Equal(t, 1, s.Len())
}

func TestConcurrentRevokeInsertsOnce(t *testing.T) {
	const n = 64
	s := NewStore(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	first := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Revoke("shared") {
				mu.Lock()
				first++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, first)
}

func TestClear(t *testing.T) {
	s := NewStore(nil)
	s.Revoke("a")
	s.Revoke("b")

	s.Clear()

	require.False(t, s.IsRevoked("a"))
	require.False(t, s.IsRevoked("b"))
	require.Zero(t, s.Len())
}

func TestConcurrentRevokeLosesNothing(t *testing.T) {
	const n = 500
	s := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("token-%d", i)
			s.Revoke(tok)
			s.Revoke(tok)
			_ = s.IsRevoked(tok)
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, s.Len())
	for i := 0; i < n; i++ {
		require.True(t, s.IsRevoked(fmt.Sprintf("token-%d", i)))
	}
}

func TestRevokeVisibleToLaterCheck(t *testing.T) {
	s := NewStore(nil)
	done := make(chan struct{})
	go func() {
		s.Revoke("tok")
		close(done)
	}()
	<-done
	require.True(t, s.IsRevoked("tok"))
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	expiries := map[string]time.Time{
		"old":  now.Add(-time.Minute),
		"edge": now,
		"live": now.Add(time.Minute),
	}
	s := NewStore(func(tok string) (time.Time, bool) {
		exp, ok := expiries[tok]
		return exp, ok
	})
	for tok := range expiries {
		s.Revoke(tok)
	}
	s.Revoke("unknown")

	require.Equal(t, 2, s.Sweep(now))
	require.False(t, s.IsRevoked("old"))
	require.False(t, s.IsRevoked("edge"))
	require.True(t, s.IsRevoked("live"))
	require.True(t, s.IsRevoked("unknown"))
}

func TestSweeperRunOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(func(string) (time.Time, bool) { return now.Add(-time.Second), true })
	s.Revoke("a")
	s.Revoke("b")

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	sw, err := NewSweeper(s, "@every 1h", logger)
	require.NoError(t, err)
	sw.now = func() time.Time { return now }

	sw.RunOnce()
	require.Zero(t, s.Len())

	sw.Start()
	sw.Stop()
}

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	_, err := NewSweeper(NewStore(nil), "not a schedule", logrus.New())
	require.Error(t, err)
}
