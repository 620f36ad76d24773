package usecase

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	storeRetryAttempts  = 3
	storeRetryBaseDelay = 50 * time.Millisecond
)

// retryStore runs op up to storeRetryAttempts times, sleeping with
// jittered exponential backoff between attempts. Only errors retry;
// op's own result values carry non-error outcomes like lost version
// races. The last error is returned when every attempt fails.
func retryStore(ctx context.Context, logger *zap.Logger, operation string, op func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == storeRetryAttempts-1 {
			break
		}

		delay := storeRetryBaseDelay<<attempt + time.Duration(rand.Int63n(int64(storeRetryBaseDelay)))
		logger.Warn("Transient store failure, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
	}
	return err
}
