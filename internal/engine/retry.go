package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	yterrs "github.com/ytget/ytdlp/v2/errs"

	"github.com/ytget/mediadl/internal/errs"
	"github.com/ytget/mediadl/internal/logger"
)

// Backoff bounds between whole-item attempts
const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// permanentErrors are never retried
var permanentErrors = []error{
	yterrs.ErrVideoUnavailable,
	yterrs.ErrPrivate,
	yterrs.ErrAgeRestricted,
	yterrs.ErrGeoBlocked,
}

// retrier runs an operation up to retries+1 times with exponential backoff
type retrier struct {
	retries int
	backoff time.Duration
	log     *logger.ComponentLogger
}

func (r retrier) do(ctx context.Context, what string, op func(ctx context.Context) error) error {
	var lastErr error
	delay := r.backoff

	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
			r.log.Info("retrying", logger.Fields{"op": what, "attempt": attempt + 1})
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		r.log.Warn("attempt failed", logger.Fields{"op": what, "attempt": attempt + 1, "error": err.Error()})

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isPermanent(err) {
			return err
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", what, errs.ErrNetwork, r.retries+1, lastErr)
}

func isPermanent(err error) bool {
	if errors.Is(err, errs.ErrTranscode) {
		return true
	}
	var validation *errs.ValidationError
	if errors.As(err, &validation) {
		return true
	}
	var filesystem *errs.FilesystemError
	if errors.As(err, &filesystem) {
		return true
	}
	for _, p := range permanentErrors {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}
