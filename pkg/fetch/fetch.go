// Package fetch defines the contract between the reconciler and whatever
// retrieves item content. A fetch never fails in the Go sense: every
// network, auth, not-found, decode or timeout problem collapses to Absent,
// and the reconciler decides what to do with that.
package fetch

import (
	"context"

	"github.com/agentstation/demorefresh/pkg/sources"
)

// Outcome is the result of fetching one item: either content or absent.
// The zero value is Absent.
type Outcome struct {
	content string
	ok      bool
}

// Content returns a successful outcome. Empty text is still content.
func Content(text string) Outcome {
	return Outcome{content: text, ok: true}
}

// Absent returns the outcome of a failed fetch.
func Absent() Outcome {
	return Outcome{}
}

// Content returns the fetched text and whether the fetch succeeded.
func (o Outcome) Content() (string, bool) {
	return o.content, o.ok
}

// IsAbsent reports whether the fetch failed.
func (o Outcome) IsAbsent() bool {
	return !o.ok
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if !o.ok {
		return "absent"
	}
	return "content"
}

// Fetcher retrieves the current content of an item.
type Fetcher interface {
	Fetch(ctx context.Context, id sources.Identity) Outcome
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id sources.Identity) Outcome

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, id sources.Identity) Outcome {
	return f(ctx, id)
}

// Static returns a Fetcher serving canned outcomes keyed by identity.
// Identities not in the map are Absent.
func Static(outcomes map[sources.Identity]Outcome) Fetcher {
	return FetcherFunc(func(_ context.Context, id sources.Identity) Outcome {
		return outcomes[id]
	})
}
