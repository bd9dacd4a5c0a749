package sources_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/sources"
)

func TestLoad(t *testing.T) {
	catalog, warnings, err := sources.Load(filepath.Join("testdata", "sources.yaml"))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, catalog.Skills, 3)
	first := catalog.Skills[0]
	assert.Equal(t, sources.Identity{Org: "engram-hq", Repo: ".skills", Path: "org-knowledge/SKILL.md"}, first.Identity)
	assert.Equal(t, sources.CategorySkill, first.Category)
	assert.Equal(t, "SKILL.md", first.Name)
	require.NotNil(t, first.Tier)
	assert.Equal(t, 2, *first.Tier)

	third := catalog.Skills[2]
	assert.Equal(t, "kind-validation.md", third.Name)
	assert.Equal(t, 3, *third.Tier)

	require.Len(t, catalog.Memories, 1)
	mem := catalog.Memories[0]
	assert.Equal(t, ".memory", mem.Repo)
	assert.Equal(t, sources.CategoryMemory, mem.Category)
	assert.Nil(t, mem.Tier)
	assert.Equal(t, "2025-06-01.md", mem.Name)

	assert.Equal(t, []string{"engram-hq", "sreniatnoc"}, catalog.MemoryOrgs)
	assert.Equal(t, ".memory", catalog.MemoryRepo)
	assert.Equal(t, 4, catalog.Len())
	assert.Len(t, catalog.All(), 4)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := sources.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestParseJSON(t *testing.T) {
	doc := `{"skills":[{"org":"o","repo":"r","path":"a/b.md"}],"memories":[]}`
	catalog, _, err := sources.Parse([]byte(doc), "sources.json")
	require.NoError(t, err)
	require.Len(t, catalog.Skills, 1)
	assert.Nil(t, catalog.Skills[0].Tier)
	assert.Equal(t, "b.md", catalog.Skills[0].Name)
}

func TestParseCustomMemoryRepo(t *testing.T) {
	doc := `
memory_repo: .notes
memories:
  - {org: o, path: /sessions/x.md/}
`
	catalog, _, err := sources.Parse([]byte(doc), "s.yaml")
	require.NoError(t, err)
	require.Len(t, catalog.Memories, 1)
	assert.Equal(t, sources.Identity{Org: "o", Repo: ".notes", Path: "sessions/x.md"}, catalog.Memories[0].Identity)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		message string
	}{
		{"malformed yaml", "skills: [", "malformed"},
		{"empty document", "", "no skills"},
		{"empty lists", "skills: []\nmemories: []\n", "no skills"},
		{"unknown field", "skills:\n  - {org: o, repo: r, path: p, owner: x}\n", "malformed"},
		{"tier on memory", "memories:\n  - {org: o, path: p, tier: 1}\n", "malformed"},
		{"missing org", "skills:\n  - {repo: r, path: p}\n", "skills[0].org"},
		{"missing repo", "skills:\n  - {org: o, path: p}\n", "skills[0].repo"},
		{"missing path", "memories:\n  - {org: o}\n", "memories[0].path"},
		{"negative tier", "skills:\n  - {org: o, repo: r, path: p, tier: -1}\n", "tier"},
		{"escaping path", "skills:\n  - {org: o, repo: r, path: ../x}\n", "must not leave"},
		{"blank memory org", "memory_orgs: ['']\n", "memory_orgs[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sources.Parse([]byte(tt.doc), "s.yaml")
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err), "expected ConfigError, got %T", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseDuplicatesLastWins(t *testing.T) {
	doc := `
skills:
  - {org: o, repo: r, path: a.md, tier: 1}
  - {org: o, repo: r, path: b.md, tier: 1}
  - {org: o, repo: r, path: a.md, tier: 5}
memories:
  - {org: o, path: sessions/x.md}
  - {org: o, path: sessions/x.md}
memory_orgs: [o, o]
`
	catalog, warnings, err := sources.Parse([]byte(doc), "s.yaml")
	require.NoError(t, err)

	require.Len(t, catalog.Skills, 2)
	assert.Equal(t, "b.md", catalog.Skills[0].Path)
	assert.Equal(t, "a.md", catalog.Skills[1].Path)
	assert.Equal(t, 5, *catalog.Skills[1].Tier)

	require.Len(t, catalog.Memories, 1)
	assert.Equal(t, []string{"o"}, catalog.MemoryOrgs)

	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "duplicate skill o/r/a.md")
	assert.Contains(t, warnings[1], "duplicate memory")
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "skills", sources.CategorySkill.Plural())
	assert.Equal(t, "memories", sources.CategoryMemory.Plural())
	assert.Equal(t, "skill", sources.CategorySkill.String())

	c := &sources.Catalog{Skills: []sources.Item{{}}, Memories: []sources.Item{{}, {}}}
	assert.Len(t, c.Items(sources.CategorySkill), 1)
	assert.Len(t, c.Items(sources.CategoryMemory), 2)
	assert.Nil(t, c.Items("other"))
}

func TestIdentity(t *testing.T) {
	id := sources.Identity{Org: "o", Repo: ".memory", Path: "sessions/2025-06-01.md"}
	assert.Equal(t, "o/.memory/sessions/2025-06-01.md", id.String())
	assert.Equal(t, "2025-06-01.md", id.Name())
}
