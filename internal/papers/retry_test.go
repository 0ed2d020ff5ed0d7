package papers

import (
	"context"
	"errors"
	"testing"

	"go-litresearch/internal/domain"
)

func TestWithRetry_SucceedsWithoutRetryingOnFirstSuccess(t *testing.T) {
	attempts := 0
	fn := func() (string, error) {
		attempts++
		return "ok", nil
	}
	got, err := withRetry(context.Background(), fn)
	if err != nil || got != "ok" {
		t.Fatalf("expected immediate success, got %q err=%v", got, err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_PermanentErrorReturnsImmediately(t *testing.T) {
	attempts := 0
	fn := func() (string, error) {
		attempts++
		return "", domain.WrapPermanentRemote("bad request", nil)
	}
	_, err := withRetry(context.Background(), fn)
	if err == nil {
		t.Fatal("expected permanent error to propagate")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a permanent error, got %d", attempts)
	}
}

func TestWithRetry_ContextCancelledDuringBackoffAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	fn := func() (string, error) {
		attempts++
		cancel() // cancel after first transient failure so the backoff wait aborts
		return "", &domain.TransientRemoteError{Err: errors.New("boom")}
	}
	_, err := withRetry(ctx, fn)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt before cancellation aborts backoff, got %d", attempts)
	}
}
