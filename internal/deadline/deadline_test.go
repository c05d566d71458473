package deadline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	got, err := Run(context.Background(), time.Second, "slow", func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %s", got)
	}
}

func TestRun_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	_, err := Run(context.Background(), time.Second, "slow", func(context.Context) (int, error) {
		return 0, want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected boom, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("operation error must not look like a timeout")
	}
}

func TestRun_TimeoutWithinDeadline(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Run(context.Background(), 30*time.Millisecond, "AI generation timed out. Please try again.", func(context.Context) (string, error) {
		defer close(finished)
		<-release
		return "late", nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || te.Message != "AI generation timed out. Please try again." {
		t.Errorf("expected timeout message, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("expected return near the deadline, took %v", elapsed)
	}

	select {
	case <-finished:
		t.Error("operation should still be running after the caller stopped waiting")
	default:
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, time.Second, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_NoDeadline(t *testing.T) {
	got, err := Run(context.Background(), 0, "", func(context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Errorf("expected 7, got %d (%v)", got, err)
	}
}
