package sources

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/logging"
)

// Lister lists the file paths (relative to the repository root) directly
// under dir in a repository.
type Lister interface {
	List(ctx context.Context, org, repo, dir string) ([]string, error)
}

// KnownFunc returns the memory identities of an organization that are
// already known, typically from the previously persisted dataset.
type KnownFunc func(org string) []Identity

// Discover returns a copy of catalog with the session logs of every memory
// organization appended to its memories. Explicitly listed memories win over
// discovered ones. When listing an organization fails, the identities
// reported by known are used instead so that cached content still applies.
func Discover(ctx context.Context, catalog *Catalog, lister Lister, known KnownFunc) (*Catalog, []string) {
	out := &Catalog{
		Skills:     catalog.Skills,
		Memories:   append([]Item(nil), catalog.Memories...),
		MemoryOrgs: catalog.MemoryOrgs,
		MemoryRepo: catalog.MemoryRepo,
	}
	if len(catalog.MemoryOrgs) == 0 {
		return out, nil
	}

	logger := logging.FromContext(ctx)
	seen := make(map[Identity]bool, len(out.Memories))
	for _, item := range out.Memories {
		seen[item.Identity] = true
	}

	var warnings []string
	for _, org := range catalog.MemoryOrgs {
		ids, err := listSessions(ctx, lister, org, catalog.MemoryRepo)
		if err != nil {
			if known != nil {
				ids = known(org)
			}
			warnings = append(warnings, fmt.Sprintf("cannot list %s/%s/%s, using %d previously known memories: %v",
				org, catalog.MemoryRepo, constants.MemorySessionsDir, len(ids), err))
		}

		added := 0
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			out.Memories = append(out.Memories, NewItem(CategoryMemory, id, nil))
			added++
		}
		logger.Debug().
			Str("org", org).
			Int("discovered", added).
			Msg("Discovered memories")
	}

	return out, warnings
}

func listSessions(ctx context.Context, lister Lister, org, repo string) ([]Identity, error) {
	if lister == nil {
		return nil, fmt.Errorf("no lister configured")
	}
	paths, err := lister.List(ctx, org, repo, constants.MemorySessionsDir)
	if err != nil {
		return nil, err
	}

	ids := make([]Identity, 0, len(paths))
	for _, p := range paths {
		if !IsSessionLog(p) {
			continue
		}
		ids = append(ids, Identity{Org: org, Repo: repo, Path: strings.Trim(p, "/")})
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Path < ids[j].Path })
	return ids, nil
}

// IsSessionLog reports whether p names a markdown session log. READMEs are
// not session logs.
func IsSessionLog(p string) bool {
	name := path.Base(p)
	return strings.HasSuffix(name, ".md") && name != "README.md"
}
