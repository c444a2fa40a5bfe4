package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPrefetchPopulatesRelatedKeys(t *testing.T) {
	c := New(10, time.Minute)
	p := NewPrefetcher(c, time.Minute, func(_ string, _ []string) []string {
		return []string{"industry:fintech"}
	})
	p.Register("industry:fintech", func(_ context.Context) (any, error) {
		return "fintech features", nil
	})

	p.Prefetch(context.Background(), "industry:saas", nil)

	waitFor(t, func() bool { return c.peek("industry:fintech") })
	v, ok := c.Get(context.Background(), "industry:fintech")
	if !ok || v != "fintech features" {
		t.Fatalf("got %v/%v", v, ok)
	}
}

func TestPrefetchNeverOverwritesLiveEntry(t *testing.T) {
	c := New(10, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "industry:fintech", "caller data", time.Hour)

	loaded := make(chan struct{})
	p := NewPrefetcher(c, time.Minute, nil)
	p.Register("industry:fintech", func(_ context.Context) (any, error) {
		close(loaded)
		return "prefetched", nil
	})

	p.Prefetch(ctx, "industry:saas", []string{"industry:fintech"})

	// Give the background goroutine a moment either way; the loader must
	// not even run because the entry is live.
	select {
	case <-loaded:
		t.Fatal("loader ran for a live entry")
	case <-time.After(50 * time.Millisecond):
	}

	v, _ := c.Get(ctx, "industry:fintech")
	if v != "caller data" {
		t.Fatalf("live entry corrupted: got %v", v)
	}
}

func TestPrefetchFailuresAreSilent(t *testing.T) {
	c := New(10, time.Minute)
	done := make(chan struct{})
	p := NewPrefetcher(c, time.Minute, nil)
	p.Register("industry:broken", func(_ context.Context) (any, error) {
		defer close(done)
		return nil, errors.New("loader exploded")
	})

	p.Prefetch(context.Background(), "industry:saas", []string{"industry:broken"})

	<-done
	if c.peek("industry:broken") {
		t.Fatal("expected failed prefetch to store nothing")
	}
}

func TestPrefetchSkipsUnregisteredAndCurrent(t *testing.T) {
	c := New(10, time.Minute)
	p := NewPrefetcher(c, time.Minute, nil)

	calls := 0
	p.Register("industry:saas", func(_ context.Context) (any, error) {
		calls++
		return "x", nil
	})

	// "industry:saas" is current, "industry:unknown" has no loader.
	p.Prefetch(context.Background(), "industry:saas", []string{"industry:saas", "industry:unknown"})

	time.Sleep(50 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected no loader calls, got %d", calls)
	}
	if c.Stats().Size != 0 {
		t.Fatal("expected nothing cached")
	}
}
