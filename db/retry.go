package db

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/evalgo/graphcore/common"
	"github.com/evalgo/graphcore/graph"
	"github.com/sirupsen/logrus"
)

// RetryMaxElapsed bounds how long WithRetry keeps retrying a transient column
// store error before giving up and returning it to the caller.
const RetryMaxElapsed = 30 * time.Second

func newColumnStoreBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = RetryMaxElapsed
	return bo
}

// WithRetry runs op, retrying with exponential backoff while op returns an
// error wrapping graph.ErrBackendUnavailable or graph.ErrCounterLag (both
// documented as safe to retry). Any other error, including ctx cancellation,
// stops retrying immediately.
func WithRetry(ctx context.Context, op func() error) error {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, graph.ErrBackendUnavailable) || errors.Is(err, graph.ErrCounterLag) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(newColumnStoreBackoff(), ctx))

	if attempts > 1 {
		common.Logger.WithFields(logrus.Fields{"attempts": attempts}).Debug("db: retried column store operation")
	}
	return err
}
