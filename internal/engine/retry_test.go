package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	yterrs "github.com/ytget/ytdlp/v2/errs"

	"github.com/ytget/mediadl/internal/errs"
	"github.com/ytget/mediadl/internal/logger"
)

func testRetrier(retries int) retrier {
	return retrier{retries: retries, backoff: time.Millisecond, log: logger.Discard(logger.ComponentEngine)}
}

func TestRetrierSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := testRetrier(3).do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetrierExhausted(t *testing.T) {
	calls := 0
	cause := errors.New("connection reset")
	err := testRetrier(2).do(context.Background(), "resolve", func(ctx context.Context) error {
		calls++
		return cause
	})
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, errs.ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be wrapped, got %v", err)
	}
}

func TestRetrierPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", yterrs.ErrVideoUnavailable},
		{"private", yterrs.ErrPrivate},
		{"transcode", errs.ErrTranscode},
		{"validation", errs.NewValidationError("url", "x", "bad")},
		{"filesystem", errs.NewFilesystemError("mkdir", "/x", errors.New("denied"))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			calls := 0
			err := testRetrier(5).do(context.Background(), "op", func(ctx context.Context) error {
				calls++
				return test.err
			})
			if calls != 1 {
				t.Errorf("Expected 1 call, got %d", calls)
			}
			if !errors.Is(err, test.err) {
				t.Errorf("Expected %v, got %v", test.err, err)
			}
			if errors.Is(err, errs.ErrNetwork) {
				t.Error("Expected permanent error not to be wrapped as network")
			}
		})
	}
}

func TestRetrierContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := retrier{retries: 5, backoff: time.Hour, log: logger.Discard(logger.ComponentEngine)}

	calls := 0
	err := r.do(ctx, "op", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}
