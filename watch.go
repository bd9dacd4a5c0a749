package demorefresh

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ Watcher = (*client)(nil)

// WatchFunc receives the outcome of every run started by Watch.
type WatchFunc func(result *Result, err error)

// Watcher repeats refreshes on an interval.
type Watcher interface {
	// Watch runs a refresh immediately and then every interval until ctx
	// is done. Failed runs are reported to fn and do not stop the loop,
	// except configuration errors, which are returned. Watch returns nil
	// when ctx is cancelled.
	Watch(ctx context.Context, interval time.Duration, fn WatchFunc) error
}

// Watch implements Watcher.
func (c *client) Watch(ctx context.Context, interval time.Duration, fn WatchFunc) error {
	if interval <= 0 {
		return &errors.ValidationError{
			Field:   "interval",
			Value:   interval,
			Message: "watch interval must be positive",
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := c.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if fn != nil {
			fn(result, err)
		}
		if err != nil {
			if errors.IsConfigError(err) {
				return err
			}
			if !stderrors.Is(err, context.Canceled) {
				logging.FromContext(ctx).Error().Err(err).Msg("Scheduled refresh failed")
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
