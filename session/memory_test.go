package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreExpiresWithClock(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := store.TTL("k"); got != time.Minute {
		t.Fatalf("ttl = %v", got)
	}

	clock.Advance(59 * time.Second)
	if ok, _ := store.Exists(ctx, "k"); !ok {
		t.Fatal("expected key before expiry")
	}

	clock.Advance(time.Second)
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Fatal("expected key to expire at ttl")
	}
	if store.Len() != 0 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	_ = store.Set(ctx, "k", "a", time.Minute)
	if ok, _ := store.CompareAndSwap(ctx, "k", "b", "c", time.Minute); ok {
		t.Fatal("expected mismatch to fail")
	}
	if ok, _ := store.CompareAndSwap(ctx, "k", "a", "c", time.Minute); !ok {
		t.Fatal("expected match to swap")
	}
	if v, _, _ := store.Get(ctx, "k"); v != "c" {
		t.Fatalf("value = %q", v)
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	store.FailWith(errors.New("boom"))

	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	store.FailWith(nil)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping after recovery: %v", err)
	}
}

func TestKeysNamespace(t *testing.T) {
	k := Keys{}
	if got := k.Session("u1"); got != "session:u1" {
		t.Fatalf("session key = %q", got)
	}
	bl := k.Blacklist("token")
	if len(bl) != len("blacklist:")+64 {
		t.Fatalf("blacklist key = %q", bl)
	}
	if bl == "blacklist:token" {
		t.Fatal("raw token must not appear in key")
	}
	if got := (Keys{Prefix: "tk:"}).Session("u1"); got != "tk:session:u1" {
		t.Fatalf("prefixed key = %q", got)
	}
}
