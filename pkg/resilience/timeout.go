package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/errors"
)

// WithTimeout runs fn under a deadline of d; d <= 0 means no deadline. fn
// must honour ctx. When the deadline, not the parent, ended the call the
// error also matches apperrors.ErrTimeout.
func WithTimeout(ctx context.Context, d time.Duration, name string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(bounded)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(bounded.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s exceeded %v: %w: %w", name, d, apperrors.ErrTimeout, err)
	}
	return err
}
