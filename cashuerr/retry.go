package cashuerr

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry runs fn, retrying with bounded exponential backoff while
// it returns a retriable Error, up to maxAttempts total calls. Used by
// ledger around its store calls, so a store call that returns a
// retriable Error is retried rather than surfaced to the caller on the
// first hiccup.
func WithRetry(ctx context.Context, maxAttempts uint64, fn func() error) error {
	base := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1)
	policy := backoff.WithContext(base, ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		var cashuErr *Error
		if errors.As(err, &cashuErr) && cashuErr.Retriable() {
			return err
		}
		// non-retriable error: stop immediately
		return backoff.Permanent(err)
	}, policy)
}

// DBRetryLimit is the bound on retrying a serializable transaction
// before surfacing DB_CONTENTION, per the error handling design
// ("retried up to N times, typically 3").
const DBRetryLimit = 3
