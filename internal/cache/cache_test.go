package cache

import (
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Set("a", "uno")
	got, ok := c.Get("a")
	if !ok || got != "uno" {
		t.Errorf("Get(a) = %q, %v; want uno, true", got, ok)
	}

	c.Set("a", "dos")
	if got, _ := c.Get("a"); got != "dos" {
		t.Errorf("Get(a) after overwrite = %q, want dos", got)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New[int](10, time.Minute)
	current := time.Date(2024, 5, 5, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("k", 42)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry should hit")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be dropped, Len() = %d", c.Len())
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestCacheClear(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get after Clear should miss")
	}
}
