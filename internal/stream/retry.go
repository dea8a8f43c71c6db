package stream

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retryPolicy reapplies a failing event with exponential backoff, logging
// every failed attempt with the caller's fields. Zero values fall back to no
// retries and a 100ms base delay.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error, fields ...zap.Field) error {
	maxRetries := p.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if p.logger != nil {
			p.logger.Warn("event apply failed",
				append([]zap.Field{zap.Int("attempt", attempt+1), zap.Error(err)}, fields...)...)
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
