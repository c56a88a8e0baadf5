package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrModelCallLimit is returned once a run has used up its model call budget.
var ErrModelCallLimit = errors.New("model call limit exceeded")

// ModelLimiter caps the number of model calls. One limiter can be shared by
// several runs, which is how a research pipeline applies a single budget to
// its plan, search and report stages.
type ModelLimiter struct {
	mu    sync.Mutex
	max   int
	count int
}

// NewModelLimiter creates a limiter allowing max calls. Zero means unlimited.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Increment records one call. It returns an error wrapping ErrModelCallLimit
// when the call exceeds the budget.
func (ml *ModelLimiter) Increment() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max > 0 && ml.count >= ml.max {
		return fmt.Errorf("%w: %d calls allowed", ErrModelCallLimit, ml.max)
	}
	ml.count++

	return nil
}

// Count returns the number of calls recorded.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.count
}

// Max returns the budget, 0 for unlimited.
func (ml *ModelLimiter) Max() int { return ml.max }

// Remaining returns the calls left, or -1 when unlimited.
func (ml *ModelLimiter) Remaining() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max == 0 {
		return -1
	}
	return ml.max - ml.count
}

type limiterKey struct{}

// WithModelLimiter returns a context carrying l. Runs started with that
// context draw from l instead of a fresh per-run budget.
func WithModelLimiter(ctx context.Context, l *ModelLimiter) context.Context {
	return context.WithValue(ctx, limiterKey{}, l)
}

// ModelLimiterFromContext returns the limiter stored by WithModelLimiter.
func ModelLimiterFromContext(ctx context.Context) (*ModelLimiter, bool) {
	l, ok := ctx.Value(limiterKey{}).(*ModelLimiter)
	return l, ok && l != nil
}
