// Package cachetest holds the compliance suite every cache adapter must pass,
// plus an in-memory cache for tests of code that depends on the cache port.
package cachetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache"
)

// Settler is implemented by caches whose writes become visible asynchronously.
type Settler interface {
	Wait()
}

// Run runs the standard compliance suite against c.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()
	settle := func() {
		if s, ok := c.(Settler); ok {
			s.Wait()
		}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "theme_club_3", []byte(`{"slug":"club"}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "theme_club_3")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"slug":"club"}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "theme_missing_1")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "session_del", []byte("v"), time.Minute)
		settle()
		if err := c.Delete(ctx, "session_del"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "session_del")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "never_existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "ow_key", []byte("v1"), time.Minute)
		settle()
		_ = c.Set(ctx, "ow_key", []byte("v2"), time.Minute)
		settle()
		val, found, err := c.Get(ctx, "ow_key")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
		}
	})
}

// Memory is a map-backed cache.Cache that counts calls. Safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
	Gets int
	Sets int
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// Raw returns the stored bytes for key.
func (m *Memory) Raw(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}
