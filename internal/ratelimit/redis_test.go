package ratelimit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewRedisCounter("redis://" + mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestRedisCounter_IncrWithExpire(t *testing.T) {
	rc, mr := newTestRedisCounter(t)
	ctx := context.Background()

	for want := int64(1); want <= 2; want++ {
		got, err := rc.IncrWithExpire(ctx, "rate_limit:u1:42", 2*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("expected count %d, got %d", want, got)
		}
	}
	if ttl := mr.TTL("rate_limit:u1:42"); ttl != 2*time.Second {
		t.Errorf("expected expiry set with the increment, got %v", ttl)
	}

	mr.FastForward(2 * time.Second)
	if mr.Exists("rate_limit:u1:42") {
		t.Fatal("expected key to expire")
	}
	got, err := rc.IncrWithExpire(ctx, "rate_limit:u1:42", 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("expected a fresh count after expiry, got %d", got)
	}
}

func TestRedisCounter_Ping(t *testing.T) {
	rc, _ := newTestRedisCounter(t)
	if err := rc.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}

func TestCheck_RedisWindowAndFailClosed(t *testing.T) {
	rc, mr := newTestRedisCounter(t)
	rl, _ := newTestLimiter(rc, Options{Production: true}, testStart.Add(10*time.Second))
	cfg := Config{Window: time.Minute, MaxRequests: 3}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := rl.Check(ctx, "analyze-u1", cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed || res.Remaining != 3-i {
			t.Errorf("call %d: unexpected result %+v", i, res)
		}
	}
	res, err := rl.Check(ctx, "analyze-u1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.ResetIn != 50*time.Second {
		t.Errorf("expected rejection with 50s reset, got %+v", res)
	}

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "rate_limit:analyze-u1:") {
		t.Fatalf("unexpected keys %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl != time.Minute {
		t.Errorf("expected window ttl, got %v", ttl)
	}

	mr.Close()
	if _, err := rl.Check(ctx, "analyze-u1", cfg); !errors.Is(err, ErrBackendUnconfigured) {
		t.Errorf("expected fail closed once redis is gone, got %v", err)
	}
}
