package reservation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/slotsale/internal/clock"
	"github.com/kirinyoku/slotsale/internal/domain"
	postgresrepo "github.com/kirinyoku/slotsale/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
	"github.com/kirinyoku/slotsale/internal/testutil"
)

var start = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, size int) (*Service, *clock.Manual, *postgresrepo.Store) {
	t.Helper()

	pool := testutil.NewTestPool(t)
	testutil.ResetPool(t, pool, size)

	store := postgresrepo.NewStore(pool)
	clk := clock.NewManual(start)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := New(store, nil, nil, nil, clk, log, Config{Lease: 5 * time.Minute})

	return svc, clk, store
}

func mustReserve(t *testing.T, svc *Service, slots []int) domain.Hold {
	t.Helper()

	hold, err := svc.Reserve(context.Background(), slots, "")
	require.NoError(t, err)

	return hold
}

func TestReserve(t *testing.T) {
	t.Run("holds a free slot", func(t *testing.T) {
		svc, _, store := newService(t, 250)
		ctx := context.Background()

		hold := mustReserve(t, svc, []int{7})
		assert.NotEqual(t, uuid.Nil, hold.ID)
		assert.Equal(t, []int{7}, hold.SlotNumbers)
		assert.True(t, hold.ExpiresAt.Equal(start.Add(5*time.Minute)))

		s, err := store.Slots().Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotReserved, s.Status)
		require.NotNil(t, s.ReservedAt)
		assert.True(t, s.ReservedAt.Equal(start))
	})

	t.Run("second attempt on a held slot is unavailable", func(t *testing.T) {
		svc, _, _ := newService(t, 250)
		ctx := context.Background()

		mustReserve(t, svc, []int{7})
		_, err := svc.Reserve(ctx, []int{7}, "")
		require.ErrorIs(t, err, ErrSlotsUnavailable)
	})

	t.Run("partial overlap changes nothing", func(t *testing.T) {
		svc, _, store := newService(t, 250)
		ctx := context.Background()

		mustReserve(t, svc, []int{5})
		_, err := svc.Reserve(ctx, []int{4, 5}, "")
		require.ErrorIs(t, err, ErrSlotsUnavailable)

		s, err := store.Slots().Get(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotAvailable, s.Status)
	})

	t.Run("rejects bad input before touching the store", func(t *testing.T) {
		svc, _, store := newService(t, 10)
		ctx := context.Background()

		for _, in := range [][]int{nil, {}, {0}, {-3}, {2, 2}} {
			_, err := svc.Reserve(ctx, in, "")
			require.ErrorIs(t, err, ErrInvalidSlotNumbers, "input %v", in)
		}

		counts, err := store.Slots().CountsByStatus(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 10, counts.Available)
	})

	t.Run("slots outside the pool are unavailable", func(t *testing.T) {
		svc, _, _ := newService(t, 10)

		_, err := svc.Reserve(context.Background(), []int{11}, "")
		require.ErrorIs(t, err, ErrSlotsUnavailable)
	})

	t.Run("concurrent attempts on one slot have a single winner", func(t *testing.T) {
		svc, _, store := newService(t, 250)
		ctx := context.Background()

		const workers = 10
		var wg sync.WaitGroup
		errs := make([]error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Reserve(ctx, []int{42}, "")
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, ErrSlotsUnavailable)
		}
		assert.Equal(t, 1, wins)

		counts, err := store.Slots().CountsByStatus(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, counts.Reserved)
	})
}

func TestReserve_DisjointSlotsUnderLoad(t *testing.T) {
	svc, _, store := newService(t, 250)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(ctx, []int{i + 1}, "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "slot %d", i+1)
	}

	counts, err := store.Slots().CountsByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, workers, counts.Reserved)
}

func TestReserve_RateLimit(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ResetPool(t, pool, 20)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "reserve", 1, time.Minute)
	svc := New(postgresrepo.NewStore(pool), nil, nil, limiter, clock.NewManual(start),
		slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
	ctx := context.Background()

	_, err := svc.Reserve(ctx, []int{1}, "ip:1")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, []int{2}, "ip:1")
	require.ErrorIs(t, err, domain.ErrRateLimited)

	mr.Close()

	_, err = svc.Reserve(ctx, []int{3}, "ip:1")
	require.NoError(t, err)
}

func TestSweep(t *testing.T) {
	t.Run("releases holds older than the lease", func(t *testing.T) {
		svc, clk, store := newService(t, 250)
		ctx := context.Background()

		mustReserve(t, svc, []int{7})
		clk.Advance(6 * time.Minute)
		mustReserve(t, svc, []int{8})

		released, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{7}, released)

		s, err := store.Slots().Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotAvailable, s.Status)
		assert.Nil(t, s.ReservedAt)

		s, err = store.Slots().Get(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotReserved, s.Status)

		// released slot can be held again
		mustReserve(t, svc, []int{7})
	})

	t.Run("keeps holds within the lease", func(t *testing.T) {
		svc, clk, _ := newService(t, 250)
		ctx := context.Background()

		mustReserve(t, svc, []int{7})
		clk.Advance(4 * time.Minute)

		released, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Empty(t, released)
	})

	t.Run("never releases booked slots", func(t *testing.T) {
		svc, clk, store := newService(t, 250)
		ctx := context.Background()

		mustReserve(t, svc, []int{3})
		require.NoError(t, store.Slots().Book(ctx, []int{3}, clk.Now(), uuid.Nil))
		clk.Advance(time.Hour)

		released, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Empty(t, released)

		s, err := store.Slots().Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.SlotBooked, s.Status)
	})
}

func TestSweeper_Run(t *testing.T) {
	svc, clk, store := newService(t, 20)
	svc.cfg.SweepInterval = 20 * time.Millisecond
	ctx := context.Background()

	mustReserve(t, svc, []int{1, 2})
	clk.Advance(10 * time.Minute)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- NewSweeper(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Run(runCtx)
	}()

	require.Eventually(t, func() bool {
		counts, err := store.Slots().CountsByStatus(ctx)
		return err == nil && counts.Reserved == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
