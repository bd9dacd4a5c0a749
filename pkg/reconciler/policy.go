package reconciler

import (
	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/fetch"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// Decision is what the merge policy did with one desired item.
type Decision string

// Decisions.
const (
	// DecisionFetched means fresh content was used.
	DecisionFetched Decision = "fetched"
	// DecisionCached means the fetch failed and the prior item was kept.
	DecisionCached Decision = "cached"
	// DecisionMissing means the fetch failed and nothing was cached; the
	// item is dropped from the output.
	DecisionMissing Decision = "missing"
)

// Merge applies the merge policy to one desired item.
//
// Fetched content always wins, even when it is empty or identical to the
// cache. An absent outcome falls back to the prior item with the same
// identity in the same category, returned unchanged. With no prior item the
// decision is DecisionMissing and the returned item must be ignored.
func Merge(item sources.Item, outcome fetch.Outcome, prior dataset.Index) (dataset.Item, Decision) {
	if content, ok := outcome.Content(); ok {
		return dataset.NewItem(item, content, dataset.OriginFetched), DecisionFetched
	}

	if cached, ok := prior.Lookup(item.Category, item.Identity); ok {
		cached.Origin = dataset.OriginCached
		return cached, DecisionCached
	}

	return dataset.Item{}, DecisionMissing
}

// counts converts a decision to a stats increment.
func (d Decision) counts() dataset.Counts {
	switch d {
	case DecisionFetched:
		return dataset.Counts{Fetched: 1}
	case DecisionCached:
		return dataset.Counts{Cached: 1}
	default:
		return dataset.Counts{Failed: 1}
	}
}
