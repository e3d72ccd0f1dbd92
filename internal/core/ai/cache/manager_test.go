package cache

import (
	"context"
	"testing"
	"time"

	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

func init() {
	common.Logger = zap.NewNop()
}

func testManager(t *testing.T, maxSize int, ttl time.Duration) *Manager {
	t.Helper()
	cfg := &config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         maxSize,
			TTL:             ttl,
			CleanupInterval: time.Minute,
		},
	}
	return NewManager(cfg)
}

func TestManagerSetGet(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	ctx := context.Background()

	if err := m.Set(ctx, "key-1", "value-1", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := m.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "value-1" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	ctx := context.Background()

	if err := m.Set(ctx, "key-1", "value-1", time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := m.Get(ctx, "key-1"); err == nil {
		t.Fatal("expected miss after ttl expiry")
	}
}

func TestManagerMiss(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	if _, err := m.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected miss for unknown key")
	}
}

func TestManagerLRUEviction(t *testing.T) {
	m := testManager(t, 2, time.Minute)
	ctx := context.Background()

	_ = m.Set(ctx, "a", "1", 0)
	_ = m.Set(ctx, "b", "2", 0)
	// a 變成較常存取的項目
	_, _ = m.Get(ctx, "a")
	_, _ = m.Get(ctx, "a")
	_, _ = m.Get(ctx, "b")

	if err := m.Set(ctx, "c", "3", 0); err != nil {
		t.Fatalf("set after eviction failed: %v", err)
	}
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatal("frequently accessed entry should survive eviction")
	}
}

func TestManagerCloseStopsCleanup(t *testing.T) {
	m := testManager(t, 10, time.Minute)

	if err := m.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	select {
	case <-m.stop:
	default:
		t.Fatal("close should signal the cleanup goroutine")
	}
	// 重複關閉不可 panic
	if err := m.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestNilManagerDegrades(t *testing.T) {
	var m *Manager
	if _, err := m.Get(context.Background(), "k"); err == nil {
		t.Fatal("nil manager should report cache disabled")
	}
	if err := m.Set(context.Background(), "k", "v", 0); err != nil {
		t.Fatal("nil manager set should be a no-op")
	}
}
