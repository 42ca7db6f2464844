package baseworker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDailySchedule(t *testing.T) {
	t.Run("parse check", func(t *testing.T) {
		hour, minute, err := ParseDailyTime("00:05")
		require.NoError(t, err)
		require.Equal(t, 0, hour)
		require.Equal(t, 5, minute)

		_, _, err = ParseDailyTime("25:00")
		require.Error(t, err)
		_, err = NewDailyInstance("worker", "9h")
		require.Error(t, err)
	})

	t.Run("next run check", func(t *testing.T) {
		now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
		require.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), NextDailyRun(now, 9, 0))
		require.Equal(t, time.Date(2025, 1, 11, 0, 5, 0, 0, time.UTC), NextDailyRun(now, 0, 5))
		require.Equal(t, time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC), NextDailyRun(now, 8, 0))
	})
}

func TestRun(t *testing.T) {
	t.Run("job panic does not stop worker check", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var calls atomic.Int32
		done := make(chan struct{})
		go func() {
			defer close(done)
			NewInstance("test-worker", time.Millisecond, time.Millisecond).Run(ctx, func(ctx context.Context) {
				if calls.Add(1) == 1 {
					panic("boom")
				}
			})
		}()
		require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done
	})
}
