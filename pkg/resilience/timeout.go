package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// WithTimeout runs fn under a derived deadline. A deadline hit inside fn is
// reported as apperrors.ErrTimeout; cancellation of the parent is passed
// through unchanged. fn must honour its context: WithTimeout waits for it
// to return.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(timeoutCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w (limit %v)", name, apperrors.ErrTimeout, timeout)
	}
	return err
}
