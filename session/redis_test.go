package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb), mr
}

func TestRedisStoreGetSetExpire(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected absent key, found=%v err=%v", found, err)
	}
	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, found, err := store.Get(ctx, "k")
	if err != nil || !found || val != "v" {
		t.Fatalf("get = %q,%v,%v", val, found, err)
	}
	if ttl := mr.TTL("k"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, err := store.Exists(ctx, "k"); err != nil || ok {
		t.Fatalf("expected expired key, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreRejectsMissingTTL(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	if err := store.Set(context.Background(), "k", "v", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRedisStoreCompareAndSwap(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if ok, err := store.CompareAndSwap(ctx, "k", "a", "b", time.Minute); err != nil || ok {
		t.Fatalf("swap on missing key = %v,%v", ok, err)
	}

	if err := store.Set(ctx, "k", "a", time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, err := store.CompareAndSwap(ctx, "k", "x", "b", time.Minute); err != nil || ok {
		t.Fatalf("swap on mismatch = %v,%v", ok, err)
	}
	if ok, err := store.CompareAndSwap(ctx, "k", "a", "b", time.Hour); err != nil || !ok {
		t.Fatalf("swap on match = %v,%v", ok, err)
	}

	val, _ := mr.Get("k")
	if val != "b" {
		t.Fatalf("value = %q, want b", val)
	}
	if ttl := mr.TTL("k"); ttl <= time.Minute {
		t.Fatalf("expected ttl reset to one hour, got %v", ttl)
	}
}

func TestRedisStoreOutageIsNotAbsence(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()
	mr.Close()

	if _, found, err := store.Get(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) || found {
		t.Fatalf("get during outage: found=%v err=%v", found, err)
	}
	if _, err := store.Exists(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("exists during outage: %v", err)
	}
	if _, err := store.CompareAndSwap(ctx, "k", "a", "b", time.Minute); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("swap during outage: %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ping during outage: %v", err)
	}
}
