package sources

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
)

// document is the on-disk layout of the sources file. JSON documents are
// accepted too since JSON is valid YAML.
type document struct {
	MemoryRepo string        `yaml:"memory_repo"`
	Skills     []skillEntry  `yaml:"skills"`
	Memories   []memoryEntry `yaml:"memories"`
	MemoryOrgs []string      `yaml:"memory_orgs"`
}

type skillEntry struct {
	Org  string `yaml:"org"`
	Repo string `yaml:"repo"`
	Tier *int   `yaml:"tier"`
	Path string `yaml:"path"`
}

type memoryEntry struct {
	Org  string `yaml:"org"`
	Path string `yaml:"path"`
}

// Load reads and parses the sources file at path. A missing or malformed
// file yields a *errors.ConfigError. The returned warnings describe
// non-fatal problems such as shadowed duplicate entries.
func Load(path string) (*Catalog, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewConfigError("sources", fmt.Sprintf("sources file %s not found", path), err)
		}
		return nil, nil, errors.NewConfigError("sources", fmt.Sprintf("cannot read sources file %s", path), err)
	}
	return Parse(data, path)
}

// Parse decodes a sources document. name is only used in error messages.
func Parse(data []byte, name string) (*Catalog, []string, error) {
	var doc document
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, errors.NewConfigError("sources", fmt.Sprintf("no skills, memories or memory_orgs configured in %s", name), nil)
	}
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, nil, errors.NewConfigError("sources", fmt.Sprintf("malformed sources file %s", name),
			errors.WrapParse("yaml", name, err))
	}

	if len(doc.Skills) == 0 && len(doc.Memories) == 0 && len(doc.MemoryOrgs) == 0 {
		return nil, nil, errors.NewConfigError("sources", fmt.Sprintf("no skills, memories or memory_orgs configured in %s", name), nil)
	}

	catalog := &Catalog{
		MemoryRepo: strings.TrimSpace(doc.MemoryRepo),
	}
	if catalog.MemoryRepo == "" {
		catalog.MemoryRepo = constants.DefaultMemoryRepo
	}

	skills := make([]Item, 0, len(doc.Skills))
	for i, e := range doc.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		id := Identity{Org: strings.TrimSpace(e.Org), Repo: strings.TrimSpace(e.Repo), Path: cleanPath(e.Path)}
		if err := validate(field, id); err != nil {
			return nil, nil, errors.NewConfigError("sources", name, err)
		}
		if e.Tier != nil && *e.Tier < 0 {
			return nil, nil, errors.NewConfigError("sources", name,
				errors.NewValidationError(field+".tier", *e.Tier, "must not be negative"))
		}
		skills = append(skills, NewItem(CategorySkill, id, e.Tier))
	}

	memories := make([]Item, 0, len(doc.Memories))
	for i, e := range doc.Memories {
		field := fmt.Sprintf("memories[%d]", i)
		id := Identity{Org: strings.TrimSpace(e.Org), Repo: catalog.MemoryRepo, Path: cleanPath(e.Path)}
		if err := validate(field, id); err != nil {
			return nil, nil, errors.NewConfigError("sources", name, err)
		}
		memories = append(memories, NewItem(CategoryMemory, id, nil))
	}

	seenOrgs := make(map[string]bool, len(doc.MemoryOrgs))
	for i, org := range doc.MemoryOrgs {
		org = strings.TrimSpace(org)
		if org == "" {
			return nil, nil, errors.NewConfigError("sources", name,
				errors.NewValidationError(fmt.Sprintf("memory_orgs[%d]", i), org, "must not be empty"))
		}
		if seenOrgs[org] {
			continue
		}
		seenOrgs[org] = true
		catalog.MemoryOrgs = append(catalog.MemoryOrgs, org)
	}

	var warnings []string
	catalog.Skills, warnings = dedupe(skills, warnings)
	catalog.Memories, warnings = dedupe(memories, warnings)

	return catalog, warnings, nil
}

// dedupe keeps the last entry for each identity, at its own position.
func dedupe(items []Item, warnings []string) ([]Item, []string) {
	last := make(map[Identity]int, len(items))
	for i, item := range items {
		last[item.Identity] = i
	}

	out := make([]Item, 0, len(last))
	for i, item := range items {
		if last[item.Identity] != i {
			warnings = append(warnings, fmt.Sprintf("duplicate %s %s: entry %d shadowed by entry %d",
				item.Category, item.Identity, i, last[item.Identity]))
			continue
		}
		out = append(out, item)
	}
	return out, warnings
}

func validate(field string, id Identity) error {
	switch {
	case id.Org == "":
		return errors.NewValidationError(field+".org", id.Org, "is required")
	case id.Repo == "":
		return errors.NewValidationError(field+".repo", id.Repo, "is required")
	case id.Path == "" || id.Path == ".":
		return errors.NewValidationError(field+".path", id.Path, "is required")
	}
	for _, seg := range strings.Split(id.Path, "/") {
		if seg == ".." {
			return errors.NewValidationError(field+".path", id.Path, "must not leave the repository")
		}
	}
	return nil
}

func cleanPath(p string) string {
	return strings.Trim(strings.TrimSpace(p), "/")
}
