// Package wait implements the blocking readiness poll shared by the drivers:
// evaluate a condition, sleep a fixed interval, repeat until the condition
// holds or the policy's bounds are hit.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"k8s.io/utils/clock"
)

var (
	ErrAttemptsExhausted = fmt.Errorf("condition not met before attempts were exhausted")
	ErrTimeout           = fmt.Errorf("condition not met before the deadline")
)

// Policy describes how often and for how long a condition is polled.
//
// The zero value of 'MaxAttempts' and 'Timeout' means unbounded, so the zero
// Policy polls forever without sleeping; callers should always set Interval.
type Policy struct {
	// Interval is the fixed delay between two attempts.
	Interval time.Duration
	// MaxAttempts caps the number of condition evaluations.
	MaxAttempts int
	// Timeout caps the total time spent polling.
	Timeout time.Duration
	// AttemptTimeout bounds the context handed to each condition evaluation.
	AttemptTimeout time.Duration
}

// Unbounded returns a Policy polling every 'interval' with no attempt cap and
// no deadline.
func Unbounded(interval time.Duration) Policy {
	return Policy{Interval: interval}
}

// Bounded reports whether the Policy will ever give up on its own.
func (p Policy) Bounded() bool {
	return p.MaxAttempts > 0 || p.Timeout > 0
}

// Condition is evaluated on every attempt. Returning a non-nil error aborts
// the poll immediately with that error.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates 'cond' immediately and then once per 'p.Interval' until it
// reports true.
//
// Errors returned are either the error produced by 'cond', 'ctx.Err()', or
// wrap one of 'ErrAttemptsExhausted' and 'ErrTimeout'.
func Until(ctx context.Context, clk clock.Clock, p Policy, cond Condition) error {
	log := clog.FromContext(ctx)
	if clk == nil {
		clk = clock.RealClock{}
	}

	var deadline <-chan time.Time
	if p.Timeout > 0 {
		timer := clk.NewTimer(p.Timeout)
		defer timer.Stop()
		deadline = timer.C()
	}

	start := clk.Now()
	for attempt := 1; ; attempt++ {
		ok, err := evaluate(ctx, p.AttemptTimeout, cond)
		if err != nil {
			return err
		}
		if ok {
			log.Debug("condition met", "attempt", attempt, "elapsed", clk.Since(start))
			return nil
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w: %d attempt(s)", ErrAttemptsExhausted, attempt)
		}

		log.Debug("condition not met, waiting", "attempt", attempt, "interval", p.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s", ErrTimeout, p.Timeout)
		case <-clk.After(p.Interval):
		}
	}
}

func evaluate(ctx context.Context, timeout time.Duration, cond Condition) (bool, error) {
	if timeout <= 0 {
		return cond(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return cond(ctx)
}
