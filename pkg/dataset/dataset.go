// Package dataset defines the persisted demo dataset: the skills and
// memories written to demo-data.json, the generation timestamp and the
// per-category statistics of the run that produced it.
package dataset

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/demorefresh/pkg/sources"
)

// Origin tells where a result item's content came from in this run. It is
// derived per run and never persisted.
type Origin string

// Origins.
const (
	OriginFetched Origin = "fetched"
	OriginCached  Origin = "cached"
)

// Item is one skill or memory as written to (and read back from) storage.
type Item struct {
	Org     string `json:"org" yaml:"org"`
	Repo    string `json:"repo" yaml:"repo"`
	Tier    *int   `json:"tier,omitempty" yaml:"tier,omitempty"`
	Path    string `json:"path" yaml:"path"`
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`

	Origin Origin `json:"-" yaml:"-"`
}

// NewItem builds a result item for a desired item.
func NewItem(src sources.Item, content string, origin Origin) Item {
	return Item{
		Org:     src.Org,
		Repo:    src.Repo,
		Tier:    src.Tier,
		Path:    src.Path,
		Name:    src.Name,
		Content: content,
		Origin:  origin,
	}
}

// Identity returns the item's identity key.
func (i Item) Identity() sources.Identity {
	return sources.Identity{Org: i.Org, Repo: i.Repo, Path: i.Path}
}

// Dataset is the unit of persistence.
type Dataset struct {
	Skills      []Item   `json:"skills" yaml:"skills"`
	Memories    []Item   `json:"memories" yaml:"memories"`
	GeneratedAt utc.Time `json:"generated_at" yaml:"generated_at"`
	Stats       Stats    `json:"stats" yaml:"stats"`
}

// New returns an empty dataset with non-nil item slices.
func New() *Dataset {
	return &Dataset{
		Skills:   []Item{},
		Memories: []Item{},
	}
}

// Items returns the items of a category.
func (d *Dataset) Items(category sources.Category) []Item {
	switch category {
	case sources.CategorySkill:
		return d.Skills
	case sources.CategoryMemory:
		return d.Memories
	}
	return nil
}

// Len returns the total number of items.
func (d *Dataset) Len() int {
	return len(d.Skills) + len(d.Memories)
}

// IsEmpty reports whether the dataset has neither skills nor memories.
// Empty datasets must never be written.
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// Index maps identities to items, per category.
type Index map[sources.Category]map[sources.Identity]Item

// Index builds a lookup of the dataset's items. Later duplicates win.
func (d *Dataset) Index() Index {
	idx := make(Index, len(sources.Categories))
	for _, category := range sources.Categories {
		items := d.Items(category)
		byID := make(map[sources.Identity]Item, len(items))
		for _, item := range items {
			byID[item.Identity()] = item
		}
		idx[category] = byID
	}
	return idx
}

// Lookup returns the item with the given identity in a category.
func (idx Index) Lookup(category sources.Category, id sources.Identity) (Item, bool) {
	item, ok := idx[category][id]
	return item, ok
}

// MemoryIdentities returns the identities of the org's memories stored in
// repo, in dataset order.
func (d *Dataset) MemoryIdentities(org, repo string) []sources.Identity {
	var ids []sources.Identity
	for _, item := range d.Memories {
		if item.Org == org && item.Repo == repo {
			ids = append(ids, item.Identity())
		}
	}
	return ids
}
