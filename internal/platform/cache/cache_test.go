package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := s.Set(ctx, "k1", payload{Name: "slots", Count: 3}, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got payload
	if err := s.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "slots" || got.Count != 3 {
		t.Errorf("unexpected value: %+v", got)
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	s := NewMemoryStore()
	var dest string
	err := s.Get(context.Background(), "absent", &dest)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k1", "v", -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dest string
	err := s.Get(ctx, "k1", &dest)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k1", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dest string
	if err := s.Get(ctx, "k1", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after delete, got %v", err)
	}
}
