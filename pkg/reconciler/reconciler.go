// Package reconciler merges freshly fetched items with the previously
// persisted dataset. For every desired item it decides whether to use the
// new content, fall back to the cached copy, or drop the item, and it
// refuses to produce an empty dataset so that a total outage can never
// clobber a populated cache.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/sourcegraph/conc/pool"

	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/fetch"
	"github.com/agentstation/demorefresh/pkg/logging"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// Reconciler computes the output dataset of a run.
type Reconciler interface {
	// Reconcile fetches every item of the catalog and merges the outcomes
	// with prior. prior may be nil or empty (first run). It returns an
	// *errors.AllDataMissingError when nothing survives.
	Reconcile(ctx context.Context, catalog *sources.Catalog, prior *dataset.Dataset, fetcher fetch.Fetcher) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	concurrency  int
	fetchTimeout time.Duration
	clock        func() time.Time
	progress     ProgressFunc
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &reconciler{
		concurrency:  options.concurrency,
		fetchTimeout: options.fetchTimeout,
		clock:        options.clock,
		progress:     options.progress,
	}, nil
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(ctx context.Context, catalog *sources.Catalog, prior *dataset.Dataset, fetcher fetch.Fetcher) (*Result, error) {
	if catalog == nil {
		return nil, &errors.ValidationError{Field: "catalog", Message: "cannot be nil"}
	}
	if fetcher == nil {
		return nil, &errors.ValidationError{Field: "fetcher", Message: "cannot be nil"}
	}
	if prior == nil {
		prior = dataset.New()
	}

	logger := logging.FromContext(ctx)
	start := time.Now()
	items := catalog.All()
	index := prior.Index()

	logger.Info().
		Int("skills", len(catalog.Skills)).
		Int("memories", len(catalog.Memories)).
		Int("cached", prior.Len()).
		Int("workers", r.workers(len(items))).
		Msg("Reconciling items")

	events, merged := r.evaluateAll(ctx, items, index, fetcher)

	// Reduce in catalog order, after every fetch has completed.
	ds := dataset.New()
	var missing []sources.Item
	for i, ev := range events {
		ds.Stats.Add(ev.Item.Category, ev.Decision.counts())
		switch {
		case ev.Decision == DecisionMissing:
			missing = append(missing, ev.Item)
		case ev.Item.Category == sources.CategorySkill:
			ds.Skills = append(ds.Skills, merged[i])
		default:
			ds.Memories = append(ds.Memories, merged[i])
		}
	}
	ds.GeneratedAt = utc.Time{Time: r.clock().UTC().Truncate(time.Second)}

	if ds.IsEmpty() {
		ids := make([]string, len(missing))
		for i, item := range missing {
			ids[i] = item.Identity.String()
		}
		logger.Error().
			Int("desired", len(items)).
			Msg("No skills or memories could be fetched or restored from cache")
		return nil, errors.NewAllDataMissingError(len(items), ids)
	}

	end := time.Now()
	result := &Result{
		Dataset: ds,
		Events:  events,
		Missing: missing,
		Metadata: ResultMetadata{
			StartTime:   start,
			EndTime:     end,
			Duration:    end.Sub(start),
			Desired:     len(items),
			Concurrency: r.workers(len(items)),
		},
	}

	for _, category := range sources.Categories {
		c := ds.Stats.Counts(category)
		logger.Info().
			Str("category", category.Plural()).
			Int("fetched", c.Fetched).
			Int("cached", c.Cached).
			Int("missing", c.Failed).
			Msg("Reconciled")
	}

	return result, nil
}

// evaluateAll runs the merge policy for every item on a bounded pool of
// goroutines. Each task writes only its own slots, so the slices need no lock.
func (r *reconciler) evaluateAll(ctx context.Context, items []sources.Item, index dataset.Index, fetcher fetch.Fetcher) ([]Event, []dataset.Item) {
	events := make([]Event, len(items))
	merged := make([]dataset.Item, len(items))

	var progressMu sync.Mutex
	p := pool.New().WithMaxGoroutines(r.workers(len(items)))
	for i := range items {
		i := i
		p.Go(func() {
			merged[i], events[i] = r.evaluate(ctx, items[i], index, fetcher)
			if r.progress != nil {
				progressMu.Lock()
				r.progress(events[i])
				progressMu.Unlock()
			}
		})
	}
	p.Wait()

	return events, merged
}

// evaluate fetches one item and applies the merge policy.
func (r *reconciler) evaluate(ctx context.Context, item sources.Item, index dataset.Index, fetcher fetch.Fetcher) (dataset.Item, Event) {
	start := time.Now()
	ictx := logging.WithItem(ctx, item.Category.String(), item.Identity.String())

	outcome := r.fetch(ictx, item.Identity, fetcher)
	result, decision := Merge(item, outcome, index)

	ev := Event{
		Item:     item,
		Decision: decision,
		Bytes:    len(result.Content),
		Duration: time.Since(start),
	}

	logger := logging.FromContext(ictx)
	switch decision {
	case DecisionFetched:
		logger.Info().Int("bytes", ev.Bytes).Msg("Fetched")
	case DecisionCached:
		logger.Info().Int("bytes", ev.Bytes).Msg("Fetch failed, using cached copy")
	case DecisionMissing:
		logger.Warn().Msg("Fetch failed and no cached copy, skipping")
	}

	return result, ev
}

// fetch calls the fetcher under the per-fetch timeout. A fetcher that does
// not return before the deadline is treated as absent.
func (r *reconciler) fetch(ctx context.Context, id sources.Identity, fetcher fetch.Fetcher) fetch.Outcome {
	if r.fetchTimeout <= 0 {
		return fetcher.Fetch(ctx, id)
	}

	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	done := make(chan fetch.Outcome, 1)
	go func() {
		done <- fetcher.Fetch(fctx, id)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-fctx.Done():
		logging.FromContext(ctx).Debug().
			Dur("timeout", r.fetchTimeout).
			Msg("Fetch timed out")
		return fetch.Absent()
	}
}

// workers returns the pool size for n items.
func (r *reconciler) workers(n int) int {
	if n < r.concurrency {
		if n == 0 {
			return 1
		}
		return n
	}
	return r.concurrency
}
