// Package demorefresh refreshes the demo dataset: it fetches the configured
// skills and memories from GitHub, merges them with the previously written
// demo-data.json so that a failed fetch never loses cached content, and
// writes the result back as JSON and as an embeddable script.
//
// Example usage:
//
//	r, err := demorefresh.New(
//	    demorefresh.WithSourcesPath("demo-sources.yaml"),
//	    demorefresh.WithToken(os.Getenv("GH_TOKEN")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r.OnItemMissing(func(ev reconciler.Event) {
//	    log.Printf("dropped %s", ev.Item.Identity)
//	})
//
//	result, err := r.Run(ctx)
//	if errors.IsAllDataMissing(err) {
//	    // nothing was written, the previous files are untouched
//	}
package demorefresh

import (
	"context"

	"github.com/agentstation/demorefresh/internal/sources/github"
	"github.com/agentstation/demorefresh/pkg/fetch"
	"github.com/agentstation/demorefresh/pkg/reconciler"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client runs refreshes.
type Client interface {
	// Run performs one refresh: load sources, load the prior dataset,
	// discover memories, reconcile and save.
	Run(ctx context.Context) (*Result, error)

	// Validate loads and checks the sources file without touching the
	// network or the output files.
	Validate(ctx context.Context) (*sources.Catalog, []string, error)

	// Watcher repeats refreshes on an interval.
	Watcher

	// Hooks provides access to event callback registration.
	Hooks
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	fetcher fetch.Fetcher
	lister  sources.Lister
	hooks   *hooks
}

// New creates a new Client with the given options. Unless WithFetcher and
// WithLister are given, GitHub is used for both.
func New(opts ...Option) (Client, error) {
	o := defaults().apply(opts...)
	if err := o.validate(); err != nil {
		return nil, err
	}

	c := &client{
		options: o,
		fetcher: o.fetcher,
		lister:  o.lister,
		hooks:   newHooks(),
	}

	if c.fetcher == nil || c.lister == nil {
		gh, err := github.NewClient(o.githubOptions()...)
		if err != nil {
			return nil, err
		}
		if c.fetcher == nil {
			c.fetcher = gh
		}
		if c.lister == nil {
			c.lister = gh
		}
	}

	return c, nil
}

// reconciler builds the reconciler for one run.
func (c *client) reconciler() (reconciler.Reconciler, error) {
	opts := []reconciler.Option{
		reconciler.WithConcurrency(c.options.concurrency),
		reconciler.WithFetchTimeout(c.options.fetchTimeout),
	}
	if c.options.clock != nil {
		opts = append(opts, reconciler.WithClock(c.options.clock))
	}
	if c.options.progress != nil {
		opts = append(opts, reconciler.WithProgress(c.options.progress))
	}
	return reconciler.New(opts...)
}
