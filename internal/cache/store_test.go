package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestMemoryStore_GetSetExpire(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.Set(ctx, "k", &Entry{Status: 200, Body: []byte("hello")}, 20*time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	e, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v; want hit", ok, err)
	}
	if string(e.Body) != "hello" {
		t.Errorf("Body = %q, want %q", e.Body, "hello")
	}

	now = now.Add(19 * time.Second)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Error("entry expired before TTL")
	}

	now = now.Add(time.Second)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("entry still present after TTL")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 after expiry", s.Len())
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "a", &Entry{Status: 200}, time.Minute)
	_ = s.Set(ctx, "b", &Entry{Status: 200}, time.Minute)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("entry present after Clear")
	}
}

func TestMemoryStore_SetCopiesBody(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	body := []byte("original")
	_ = s.Set(ctx, "k", &Entry{Status: 200, Body: body}, time.Minute)
	body[0] = 'X'

	e, _, _ := s.Get(ctx, "k")
	if string(e.Body) != "original" {
		t.Errorf("stored body aliased caller buffer: %q", e.Body)
	}
}

func TestMemoryStore_Sweep_RemovesOnlyExpired(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "short", &Entry{Status: 200}, 20*time.Second)
	_ = s.Set(ctx, "long", &Entry{Status: 200}, time.Hour)

	now = now.Add(30 * time.Second)
	if removed := s.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Error("unexpired entry was swept")
	}
}

func TestMemoryStore_Set_SweepsAfterInterval(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.lastSweep = now
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_ = s.Set(ctx, fmt.Sprintf("k%d", i), &Entry{Status: 200}, 20*time.Second)
	}

	// 掃除間隔に達するまでは期限切れでも残る
	now = now.Add(30 * time.Second)
	_ = s.Set(ctx, "fresh-1", &Entry{Status: 200}, 20*time.Second)
	if s.Len() != 51 {
		t.Errorf("Len = %d before sweep interval, want 51", s.Len())
	}

	now = now.Add(DefaultSweepInterval)
	_ = s.Set(ctx, "fresh-2", &Entry{Status: 200}, 20*time.Second)
	if s.Len() != 1 {
		t.Errorf("Len = %d after sweep, want 1", s.Len())
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR が未設定のためスキップ")
	}
	client := NewRedisClient(addr, "", 0)
	defer client.Close()

	s := NewRedisStore(client, "yatube:test:")
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Skipf("Redisに接続できません（スキップ）: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	if err := s.Set(ctx, "k", &Entry{Status: 200, ContentType: "text/html", Body: []byte("<p>hi</p>")}, time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	e, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v; want hit", ok, err)
	}
	if e.ContentType != "text/html" || string(e.Body) != "<p>hi</p>" {
		t.Errorf("entry = %+v", e)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("entry present after Clear")
	}
}
