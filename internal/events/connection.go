// ABOUTME: RabbitMQ dialing with exponential backoff
// ABOUTME: Used by the AMQP publisher at gateway startup

package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// MaxDelay caps the backoff between dial attempts.
const MaxDelay = 60 * time.Second

// ConnectionOptions configures DialWithRetry.
type ConnectionOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
	Logger        *slog.Logger
}

// DialWithRetry tries to connect to RabbitMQ with exponential backoff.
// It respects context cancellation for graceful shutdown.
func DialWithRetry(ctx context.Context, opts ConnectionOptions) (*amqp091.Connection, error) {
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				logger.Info("rabbit connected", "attempt", i)
			}
			return conn, nil
		}
		lastErr = err

		if i == attempts {
			break
		}

		sleep := backoff(opts.Delay, i)
		logger.Warn("rabbit dial failed",
			"attempt", i,
			"sleep", sleep,
			"error", err,
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("connecting to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

// backoff returns delay * 2^(attempt-1), capped at MaxDelay.
func backoff(delay time.Duration, attempt int) time.Duration {
	sleep := delay
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if sleep >= MaxDelay {
			return MaxDelay
		}
	}
	if sleep > MaxDelay {
		return MaxDelay
	}
	return sleep
}
