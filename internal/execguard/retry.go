package execguard

import (
	"context"
	"time"

	"github.com/ppiankov/depgate/internal/secerr"
)

// WithRetry runs fn up to maxRetries+1 times with exponential backoff
// (baseDelay * 2^(attempt-1) between attempts). Terminal failures —
// policy violations, timeouts, size caps, validation errors — are never
// retried. The caller's context bounds total elapsed time across attempts.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if secerr.Terminal(err) {
			return err
		}
		if attempt > maxRetries {
			return err
		}
		delay := baseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
}

// Outcome is the settled result of one batch item: exactly one of Result
// and Err is meaningful.
type Outcome struct {
	Result *Result
	Err    error
}

// Batch runs every fn with at most maxConcurrency in flight and returns a
// settled outcome per input in order. One failure never short-circuits the
// rest of the batch.
func Batch(ctx context.Context, fns []func(context.Context) (*Result, error), maxConcurrency int) []Outcome {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	outcomes := make([]Outcome, len(fns))
	sem := make(chan struct{}, maxConcurrency)
	done := make(chan int)

	for i, fn := range fns {
		go func(i int, fn func(context.Context) (*Result, error)) {
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := fn(ctx)
			outcomes[i] = Outcome{Result: res, Err: err}
			done <- i
		}(i, fn)
	}
	for range fns {
		<-done
	}
	return outcomes
}
