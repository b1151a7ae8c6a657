package cache

import (
	"context"
	"testing"
	"time"
)

func TestGoCache(t *testing.T) {
	c := NewGoCache(LocalConfig{})
	defer c.Close()
	runCacheSuite(t, c)
}

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(LocalConfig{MaxSize: 100})
	defer c.Close()
	runCacheSuite(t, c)
}

func runCacheSuite(t *testing.T, c Cache) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, ok := c.Get(ctx, "k")
		if !ok || got != "v" {
			t.Errorf("Get = %v, %v; want v, true", got, ok)
		}
	})

	t.Run("Expiration", func(t *testing.T) {
		if err := c.Set(ctx, "short", 1, 10*time.Millisecond); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		time.Sleep(30 * time.Millisecond)
		if _, ok := c.Get(ctx, "short"); ok {
			t.Error("expired entry still present")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "gone", "x", time.Minute)
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if c.Exists(ctx, "gone") {
			t.Error("deleted entry still present")
		}
	})

	t.Run("Increment", func(t *testing.T) {
		n, err := c.Increment(ctx, "counter", 1)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if n != 1 {
			t.Errorf("first Increment = %d; want 1", n)
		}
		n, err = c.Increment(ctx, "counter", 2)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if n != 3 {
			t.Errorf("second Increment = %d; want 3", n)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		_ = c.Set(ctx, "a", 1, time.Minute)
		if err := c.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if c.Exists(ctx, "a") {
			t.Error("entry survived Clear")
		}
	})
}
