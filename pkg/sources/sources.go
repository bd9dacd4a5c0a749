// Package sources loads the catalog of desired items: the skills and
// memories a refresh run should fetch. Each item is identified by the
// (organization, repository, path) triple that correlates it with the
// previously persisted dataset.
//
// Example usage:
//
//	catalog, warnings, err := sources.Load("demo-sources.yaml")
//	if err != nil {
//	    return err // *errors.ConfigError
//	}
//	for _, w := range warnings {
//	    log.Warn().Msg(w)
//	}
package sources

import (
	"path"
	"strings"
)

// Category partitions desired items.
type Category string

// Categories.
const (
	CategorySkill  Category = "skill"
	CategoryMemory Category = "memory"
)

// Categories lists every category in output order.
var Categories = []Category{CategorySkill, CategoryMemory}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Plural returns the dataset key for the category ("skills", "memories").
func (c Category) Plural() string {
	switch c {
	case CategoryMemory:
		return "memories"
	default:
		return string(c) + "s"
	}
}

// Identity is the composite key of an item. It is stable across runs.
type Identity struct {
	Org  string `json:"org" yaml:"org"`
	Repo string `json:"repo" yaml:"repo"`
	Path string `json:"path" yaml:"path"`
}

// String returns the identity as org/repo/path.
func (id Identity) String() string {
	return id.Org + "/" + id.Repo + "/" + strings.TrimPrefix(id.Path, "/")
}

// Name returns the final path segment.
func (id Identity) Name() string {
	return path.Base(id.Path)
}

// Item is a desired item produced by the loader. It is immutable for the
// duration of a run.
type Item struct {
	Identity
	Category Category
	Tier     *int
	Name     string
}

// NewItem builds an item, deriving its name from the path.
func NewItem(category Category, id Identity, tier *int) Item {
	return Item{
		Identity: id,
		Category: category,
		Tier:     tier,
		Name:     id.Name(),
	}
}

// Catalog is the ordered set of desired items for one run.
type Catalog struct {
	Skills   []Item
	Memories []Item

	// MemoryOrgs are organizations whose session logs are discovered at
	// run time rather than listed explicitly.
	MemoryOrgs []string

	// MemoryRepo is the fixed repository name used for memory items.
	MemoryRepo string
}

// Items returns the items of a category.
func (c *Catalog) Items(category Category) []Item {
	switch category {
	case CategorySkill:
		return c.Skills
	case CategoryMemory:
		return c.Memories
	}
	return nil
}

// All returns skills followed by memories.
func (c *Catalog) All() []Item {
	all := make([]Item, 0, c.Len())
	all = append(all, c.Skills...)
	return append(all, c.Memories...)
}

// Len returns the number of desired items.
func (c *Catalog) Len() int {
	return len(c.Skills) + len(c.Memories)
}
