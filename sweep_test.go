package keystone_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagecraft-ai/keystone"
	"github.com/pagecraft-ai/keystone/cache"
)

type countingCleaner struct {
	sweeps atomic.Int32
}

func (c *countingCleaner) Cleanup(_ context.Context) int {
	c.sweeps.Add(1)
	return 0
}

func TestSweeperRunsPeriodically(t *testing.T) {
	cl := &countingCleaner{}
	s := keystone.NewSweeper(cl, 10*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for cl.sweeps.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if cl.sweeps.Load() < 2 {
		t.Fatalf("expected at least 2 sweeps, got %d", cl.sweeps.Load())
	}
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	s := keystone.NewSweeper(&countingCleaner{}, 10*time.Millisecond)
	s.Start(context.Background())
	s.Stop()
	s.Stop() // second Stop must not panic or block

	// Stop on a never-started Sweeper is fine too.
	keystone.NewSweeper(&countingCleaner{}, time.Second).Stop()
}

func TestSweeperDoubleStartIsNoOp(t *testing.T) {
	cl := &countingCleaner{}
	s := keystone.NewSweeper(cl, 10*time.Millisecond)
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
}

func TestSweeperEvictsExpiredEntries(t *testing.T) {
	store := cache.New(10, time.Minute)
	ctx := context.Background()
	store.Set(ctx, "short", "v", 10*time.Millisecond)
	store.Set(ctx, "long", "v", time.Hour)

	s := keystone.NewSweeper(store, 20*time.Millisecond)
	s.Start(ctx)
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for store.Stats().Size > 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if size := store.Stats().Size; size != 1 {
		t.Fatalf("expected the expired entry swept, size=%d", size)
	}
}
