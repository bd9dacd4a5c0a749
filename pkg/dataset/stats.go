package dataset

import "github.com/agentstation/demorefresh/pkg/sources"

// Counts tallies the outcomes of one category.
type Counts struct {
	Fetched int `json:"fetched" yaml:"fetched"`
	Cached  int `json:"cached" yaml:"cached"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Total returns the number of desired items the counts cover.
func (c Counts) Total() int {
	return c.Fetched + c.Cached + c.Failed
}

// Stats are the per-category counts of a run. They are recomputed every
// run and never drive a decision.
type Stats struct {
	SkillsFetched   int `json:"skills_fetched" yaml:"skills_fetched"`
	SkillsCached    int `json:"skills_cached" yaml:"skills_cached"`
	SkillsFailed    int `json:"skills_failed" yaml:"skills_failed"`
	MemoriesFetched int `json:"memories_fetched" yaml:"memories_fetched"`
	MemoriesCached  int `json:"memories_cached" yaml:"memories_cached"`
	MemoriesFailed  int `json:"memories_failed" yaml:"memories_failed"`
}

// Counts returns the counts of a category.
func (s Stats) Counts(category sources.Category) Counts {
	switch category {
	case sources.CategorySkill:
		return Counts{Fetched: s.SkillsFetched, Cached: s.SkillsCached, Failed: s.SkillsFailed}
	case sources.CategoryMemory:
		return Counts{Fetched: s.MemoriesFetched, Cached: s.MemoriesCached, Failed: s.MemoriesFailed}
	}
	return Counts{}
}

// Add adds c to the counts of a category.
func (s *Stats) Add(category sources.Category, c Counts) {
	switch category {
	case sources.CategorySkill:
		s.SkillsFetched += c.Fetched
		s.SkillsCached += c.Cached
		s.SkillsFailed += c.Failed
	case sources.CategoryMemory:
		s.MemoriesFetched += c.Fetched
		s.MemoriesCached += c.Cached
		s.MemoriesFailed += c.Failed
	}
}

// Total sums all categories.
func (s Stats) Total() Counts {
	var total Counts
	for _, category := range sources.Categories {
		c := s.Counts(category)
		total.Fetched += c.Fetched
		total.Cached += c.Cached
		total.Failed += c.Failed
	}
	return total
}
