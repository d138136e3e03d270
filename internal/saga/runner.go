package saga

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-tms/pkg/interfaces"
)

const (
	defaultRetryAttempts = 3
	defaultBaseBackoff   = 250 * time.Millisecond
	defaultMaxBackoff    = 5 * time.Second
)

// RetryPolicy is the shared bounded-backoff policy applied to the saga steps
// that talk to external systems.
type RetryPolicy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy mirrors the defaults applied when a zero policy is used.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    defaultRetryAttempts,
		BaseBackoff: defaultBaseBackoff,
		MaxBackoff:  defaultMaxBackoff,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = defaultRetryAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = defaultBaseBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	return p
}

// Do runs fn under the policy, backing off exponentially between attempts.
// Validation and precondition failures are never retried; everything else is
// treated as transient up to the attempt budget.
func (p RetryPolicy) Do(ctx context.Context, logger interfaces.Logger, step string, fn func(context.Context) error) error {
	policy := p.normalized()
	backoff := policy.BaseBackoff

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}
		if logger != nil {
			logger.Warn("saga.step.retry", "step", step, "attempt", attempt, "backoff", backoff.String(), "error", err)
		}
		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}
	return err
}

func retryable(err error) bool {
	if goerrors.IsCategory(err, goerrors.CategoryValidation) {
		return false
	}
	if goerrors.IsCategory(err, CategoryPrecondition) {
		return false
	}
	if goerrors.IsCategory(err, CategoryTerminal) {
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
