package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) add(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func withClock[T any](c *LRUCache[T], clk *fakeClock) *LRUCache[T] {
	c.now = clk.now
	return c
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 || c.Evictions() != 1 {
		t.Errorf("Size() = %d, Evictions() = %d", c.Size(), c.Evictions())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	clk := newClock()
	c := withClock(NewLRUCache[string](10, time.Minute), clk)
	c.Set("k", "v")

	clk.add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}
	clk.add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestLRUCacheUpdateKeepsExpiry(t *testing.T) {
	clk := newClock()
	c := withClock(NewLRUCache[int](10, time.Minute), clk)
	inc := func(n int, _ bool) int { return n + 1 }

	if got := c.Update("k", inc); got != 1 {
		t.Fatalf("first Update = %d, want 1", got)
	}
	clk.add(40 * time.Second)
	if got := c.Update("k", inc); got != 2 {
		t.Fatalf("second Update = %d, want 2", got)
	}
	// Updating did not push the expiry out.
	clk.add(21 * time.Second)
	if got := c.Update("k", inc); got != 1 {
		t.Fatalf("Update after expiry = %d, want 1", got)
	}
}

func TestCleanExpiredAndManager(t *testing.T) {
	clk := newClock()
	c := withClock(NewLRUCache[int](10, time.Minute), clk)
	c.Set("a", 1)
	clk.add(30 * time.Second)
	c.Set("b", 2)
	clk.add(45 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow() = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestLRUCacheConcurrentUpdate(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update("k", func(n int, _ bool) int { return n + 1 })
		}()
	}
	wg.Wait()
	if v, _ := c.Get("k"); v != 50 {
		t.Errorf("counter = %d, want 50", v)
	}
}
