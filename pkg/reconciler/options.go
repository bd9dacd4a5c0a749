package reconciler

import (
	"time"

	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
)

// options configures a reconciler.
type options struct {
	concurrency  int
	fetchTimeout time.Duration
	clock        func() time.Time
	progress     ProgressFunc
}

// ProgressFunc receives one event per reconciled item. Calls are
// serialized but arrive in completion order.
type ProgressFunc func(Event)

func defaultOptions() *options {
	return &options{
		concurrency:  constants.DefaultConcurrency,
		fetchTimeout: constants.DefaultFetchTimeout,
		clock:        time.Now,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithConcurrency sets the number of fetch workers. 1 reconciles items
// one at a time.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxConcurrency {
			return &errors.ValidationError{
				Field:   "concurrency",
				Value:   n,
				Message: "must be between 1 and 32",
			}
		}
		o.concurrency = n
		return nil
	}
}

// WithFetchTimeout bounds each fetch. A fetch that exceeds it is absent.
// Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return &errors.ValidationError{
				Field:   "fetch_timeout",
				Value:   d,
				Message: "cannot be negative",
			}
		}
		o.fetchTimeout = d
		return nil
	}
}

// WithClock sets the source of the generation timestamp.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		if clock == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		o.clock = clock
		return nil
	}
}

// WithProgress registers a per-item progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) error {
		o.progress = fn
		return nil
	}
}
