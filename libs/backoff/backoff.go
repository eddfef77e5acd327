package backoff

import (
	"context"
	"time"

	"github.com/brave-intl/momo-go/libs/backoff/retrypolicy"
)

// IsRetriable a function to determine if an error caused by the executed operation is retriable
type IsRetriable func(error) bool

// Retry executes the given operation using the provided retrypolicy.Retry policy and IsRetriable conditions.
// Waiting between attempts is interrupted when ctx is done.
func Retry[T any](ctx context.Context, operation func() (T, error), retryPolicy retrypolicy.Retry, isRetriable IsRetriable) (T, error) {
	var zero T

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		response, err := operation()
		if err == nil {
			return response, nil
		}

		if !isRetriable(err) {
			return zero, err
		}

		next := retryPolicy.CalculateNextDelay()
		if next == retrypolicy.Done {
			return zero, err
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
