package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// Event records how one desired item was reconciled.
type Event struct {
	Item     sources.Item
	Decision Decision
	Bytes    int
	Duration time.Duration
}

// Result represents the outcome of a reconciliation.
type Result struct {
	// Dataset is the merged output. It is never empty.
	Dataset *dataset.Dataset

	// Events holds one entry per desired item, in catalog order.
	Events []Event

	// Missing lists the desired items that were dropped.
	Missing []sources.Item

	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Desired     int
	Concurrency int
}

// Stats returns the run statistics.
func (r *Result) Stats() dataset.Stats {
	return r.Dataset.Stats
}

// HasMissing reports whether any desired item was dropped.
func (r *Result) HasMissing() bool {
	return len(r.Missing) > 0
}

// Summary returns a human-readable one-line summary.
func (r *Result) Summary() string {
	s := r.Dataset.Stats
	return fmt.Sprintf("%d skills (%d fetched, %d cached, %d missing), %d memories (%d fetched, %d cached, %d missing)",
		len(r.Dataset.Skills), s.SkillsFetched, s.SkillsCached, s.SkillsFailed,
		len(r.Dataset.Memories), s.MemoriesFetched, s.MemoriesCached, s.MemoriesFailed)
}
