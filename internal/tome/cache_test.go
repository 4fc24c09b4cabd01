package tome

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitResult(t *testing.T, c *Cache) Result {
	t.Helper()
	select {
	case r := <-c.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
		return Result{}
	}
}

func TestEnsureCoalescesInflight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	resolver := ResolverFunc(func(ctx context.Context, id string) (Action, error) {
		calls.Add(1)
		<-release
		return Action{Name: "Adloquium", Recast: 2500 * time.Millisecond}, nil
	})
	c := NewCache(resolver)
	ctx := context.Background()

	if !c.Ensure(ctx, "B9") {
		t.Fatal("first Ensure should start a fetch")
	}
	for i := 0; i < 5; i++ {
		if c.Ensure(ctx, "B9") {
			t.Fatal("Ensure while in flight should not start another fetch")
		}
	}
	if _, ok := c.Lookup("B9"); ok {
		t.Fatal("action should be absent before the fetch completes")
	}

	close(release)
	r := waitResult(t, c)
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.ID != "B9" || r.Action.ID != "B9" {
		t.Errorf("result id = %q/%q, want B9", r.ID, r.Action.ID)
	}

	got, ok := c.Lookup("B9")
	if !ok || got.Name != "Adloquium" {
		t.Errorf("Lookup = %+v, %v", got, ok)
	}
	if c.Ensure(ctx, "B9") {
		t.Error("Ensure on a cached id should not fetch")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("resolver called %d times, want 1", n)
	}
}

func TestEnsureFailureQuietPeriod(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	fail := errors.New("upstream down")
	var calls atomic.Int32
	resolver := ResolverFunc(func(ctx context.Context, id string) (Action, error) {
		if calls.Add(1) == 1 {
			return Action{}, fail
		}
		return Action{Name: "Sacred Soil"}, nil
	})
	c := NewCache(resolver, WithClock(clock), WithRetryAfter(30*time.Second))
	ctx := context.Background()

	c.Ensure(ctx, "BC")
	if r := waitResult(t, c); !errors.Is(r.Err, fail) {
		t.Fatalf("expected failure result, got %v", r.Err)
	}
	if _, ok := c.Lookup("BC"); ok {
		t.Fatal("failed id must stay absent")
	}
	if c.Ensure(ctx, "BC") {
		t.Fatal("Ensure inside quiet period should not fetch")
	}

	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()

	if !c.Ensure(ctx, "BC") {
		t.Fatal("Ensure after quiet period should retry")
	}
	if r := waitResult(t, c); r.Err != nil {
		t.Fatalf("retry failed: %v", r.Err)
	}
	if a, ok := c.Lookup("BC"); !ok || a.Name != "Sacred Soil" {
		t.Errorf("Lookup after retry = %+v, %v", a, ok)
	}
}

func TestSeedAndSnapshot(t *testing.T) {
	c := NewCache(ResolverFunc(func(ctx context.Context, id string) (Action, error) {
		t.Fatalf("resolver should not be called for seeded id %s", id)
		return Action{}, nil
	}))
	c.Seed(map[string]Action{"B9": {ID: "B9", Name: "Adloquium"}})

	if c.Ensure(context.Background(), "B9") {
		t.Error("seeded id should not be fetched")
	}
	snap := c.Snapshot()
	snap["XX"] = Action{}
	if c.Len() != 1 {
		t.Errorf("Snapshot must be a copy; Len = %d", c.Len())
	}
}

func TestFetchTimeout(t *testing.T) {
	resolver := ResolverFunc(func(ctx context.Context, id string) (Action, error) {
		<-ctx.Done()
		return Action{}, ctx.Err()
	})
	c := NewCache(resolver, WithTimeout(20*time.Millisecond))
	c.Ensure(context.Background(), "1")

	if r := waitResult(t, c); !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", r.Err)
	}
	c.Wait()
}
