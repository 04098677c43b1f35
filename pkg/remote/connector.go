package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Connector keeps a Store connected. It retries Connect a bounded number of
// times with a fixed pause between attempts.
type Connector struct {
	store   Store
	backoff time.Duration
	logger  *slog.Logger
}

// NewConnector creates a connector for store pausing interval between attempts.
func NewConnector(store Store, interval time.Duration, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		store:   store,
		backoff: interval,
		logger:  logger.With("component", "remote.connector"),
	}
}

// Store returns the managed store.
func (c *Connector) Store() Store {
	return c.store
}

// Ensure returns nil once the store reports connected. It makes at most
// attempts calls to Connect; attempts below one are treated as one.
func (c *Connector) Ensure(ctx context.Context, attempts int) error {
	if c.store.Connected(ctx) {
		return nil
	}
	if attempts < 1 {
		attempts = 1
	}

	try := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		try++
		if err := c.store.Connect(ctx); err != nil {
			return struct{}{}, err
		}
		if !c.store.Connected(ctx) {
			return struct{}{}, ErrNotConnected
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.backoff)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("remote store not reachable, retrying",
				"attempt", try,
				"max_attempts", attempts,
				"retry_in", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("connect after %d attempts: %w", try, err)
	}

	c.logger.Info("remote store connected", "attempts", try)
	return nil
}
