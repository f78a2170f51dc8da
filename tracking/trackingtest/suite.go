// Package trackingtest is a conformance suite for tracking.Store backends.
package trackingtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/jwtpair/tracking"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) tracking.Store

// Record builds an outstanding record for jti that expires in an hour.
func Record(jti string) tracking.Record {
	now := time.Now().Truncate(time.Second)
	return tracking.Record{
		JTI:       jti,
		Subject:   "42",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// Run exercises the Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("UnknownIsNotFound", func(t *testing.T) {
		s := newStore(t)
		status, err := s.Status(context.Background(), "missing")
		require.NoError(t, err)
		require.Equal(t, tracking.StatusNotFound, status)
	})

	t.Run("InsertThenOutstanding", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOutstanding(ctx, Record("a")))

		status, err := s.Status(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, tracking.StatusOutstanding, status)
	})

	t.Run("InsertRejectsEmptyJTI", func(t *testing.T) {
		s := newStore(t)
		err := s.InsertOutstanding(context.Background(), Record(""))
		require.ErrorIs(t, err, tracking.ErrInvalidRecord)
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOutstanding(ctx, Record("dup")))
		require.ErrorIs(t, s.InsertOutstanding(ctx, Record("dup")), tracking.ErrDuplicate)

		status, err := s.Status(ctx, "dup")
		require.NoError(t, err)
		require.Equal(t, tracking.StatusOutstanding, status)
	})

	t.Run("DuplicateInsertKeepsBlacklisted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOutstanding(ctx, Record("used")))
		require.NoError(t, s.Blacklist(ctx, "used"))
		require.ErrorIs(t, s.InsertOutstanding(ctx, Record("used")), tracking.ErrDuplicate)

		status, err := s.Status(ctx, "used")
		require.NoError(t, err)
		require.Equal(t, tracking.StatusBlacklisted, status)
	})

	t.Run("BlacklistOnce", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOutstanding(ctx, Record("b")))
		require.NoError(t, s.Blacklist(ctx, "b"))

		status, err := s.Status(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, tracking.StatusBlacklisted, status)

		require.ErrorIs(t, s.Blacklist(ctx, "b"), tracking.ErrAlreadyBlacklisted)
	})

	t.Run("BlacklistUnknown", func(t *testing.T) {
		s := newStore(t)
		require.ErrorIs(t, s.Blacklist(context.Background(), "ghost"), tracking.ErrNotFound)
	})

	t.Run("ConcurrentBlacklistSingleWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOutstanding(ctx, Record("race")))

		const workers = 16
		start := make(chan struct{})
		results := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				results <- s.Blacklist(ctx, "race")
			}()
		}
		close(start)
		wg.Wait()
		close(results)

		wins := 0
		for err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, tracking.ErrAlreadyBlacklisted):
			default:
				t.Fatalf("unexpected blacklist error: %v", err)
			}
		}
		require.Equal(t, 1, wins)
	})
}
