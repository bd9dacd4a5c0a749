package demorefresh

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/demorefresh/internal/persistence"
	"github.com/agentstation/demorefresh/internal/sources/github"
	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/fetch"
	"github.com/agentstation/demorefresh/pkg/logging"
	"github.com/agentstation/demorefresh/pkg/reconciler"
	"github.com/agentstation/demorefresh/pkg/sources"
)

const testSources = `
skills:
  - {org: engram-hq, repo: .skills, tier: 2, path: org-knowledge/SKILL.md}
  - {org: sreniatnoc, repo: rusd, tier: 3, path: .skills/kind-validation.md}
memories:
  - {org: engram-hq, path: sessions/2025-06-01.md}
`

var (
	skillA  = sources.Identity{Org: "engram-hq", Repo: ".skills", Path: "org-knowledge/SKILL.md"}
	skillB  = sources.Identity{Org: "sreniatnoc", Repo: "rusd", Path: ".skills/kind-validation.md"}
	memoryA = sources.Identity{Org: "engram-hq", Repo: ".memory", Path: "sessions/2025-06-01.md"}
)

type fixture struct {
	dir     string
	sources string
	output  string
	js      string
}

func newFixture(t *testing.T, doc string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		sources: filepath.Join(dir, "demo-sources.yaml"),
		output:  filepath.Join(dir, "demo-data.json"),
		js:      filepath.Join(dir, "demo-data.js"),
	}
	require.NoError(t, os.WriteFile(f.sources, []byte(doc), 0o644))
	return f
}

func (f *fixture) client(t *testing.T, fetcher fetch.Fetcher, opts ...Option) Client {
	t.Helper()
	base := []Option{
		WithSourcesPath(f.sources),
		WithOutputPath(f.output),
		WithJSOutputPath(f.js),
		WithFetcher(fetcher),
		WithLister(listerFunc(func(context.Context, string, string, string) ([]string, error) {
			return nil, assert.AnError
		})),
		WithClock(func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

type listerFunc func(ctx context.Context, org, repo, dir string) ([]string, error)

func (f listerFunc) List(ctx context.Context, org, repo, dir string) ([]string, error) {
	return f(ctx, org, repo, dir)
}

func quietContext() context.Context {
	return logging.WithLogger(context.Background(), logging.NewNopLogger())
}

func contents(ds *dataset.Dataset) map[string]string {
	out := map[string]string{}
	for _, item := range append(append([]dataset.Item{}, ds.Skills...), ds.Memories...) {
		out[item.Identity().String()] = item.Content
	}
	return out
}

func TestRunFirstRun(t *testing.T) {
	f := newFixture(t, testSources)
	fetcher := fetch.Static(map[sources.Identity]fetch.Outcome{
		skillA:  fetch.Content("skill a"),
		skillB:  fetch.Content("skill b"),
		memoryA: fetch.Content("memory a"),
	})

	result, err := f.client(t, fetcher).Run(quietContext())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, f.output, result.Output)
	assert.Equal(t, f.js, result.JSOutput)
	assert.Equal(t, dataset.Stats{SkillsFetched: 2, MemoriesFetched: 1}, result.Stats())

	written, err := persistence.Load(f.output)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		skillA.String():  "skill a",
		skillB.String():  "skill b",
		memoryA.String(): "memory a",
	}, contents(written))
	assert.Equal(t, 2, *written.Skills[0].Tier)
	assert.Nil(t, written.Memories[0].Tier)

	js, err := os.ReadFile(f.js)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(js), "window.DEMO_DATA = {"))
}

// A partial outage keeps the cached copies.
func TestRunFallsBackToCache(t *testing.T) {
	f := newFixture(t, testSources)
	first := fetch.Static(map[sources.Identity]fetch.Outcome{
		skillA:  fetch.Content("v1"),
		skillB:  fetch.Content("b1"),
		memoryA: fetch.Content("m1"),
	})
	_, err := f.client(t, first).Run(quietContext())
	require.NoError(t, err)

	second := fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("v2")})
	result, err := f.client(t, second).Run(quietContext())
	require.NoError(t, err)

	assert.Equal(t, dataset.Stats{SkillsFetched: 1, SkillsCached: 1, MemoriesCached: 1}, result.Stats())

	written, err := persistence.Load(f.output)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		skillA.String():  "v2",
		skillB.String():  "b1",
		memoryA.String(): "m1",
	}, contents(written))
}

// A total outage leaves a populated cache byte-for-byte untouched.
func TestRunTotalOutageKeepsFiles(t *testing.T) {
	f := newFixture(t, testSources)
	_, err := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("v1")})).Run(quietContext())
	require.NoError(t, err)

	beforeJSON, err := os.ReadFile(f.output)
	require.NoError(t, err)
	beforeJS, err := os.ReadFile(f.js)
	require.NoError(t, err)

	// Prior content no longer matches the configuration: skillA was removed.
	require.NoError(t, os.WriteFile(f.sources, []byte(`
skills:
  - {org: sreniatnoc, repo: rusd, tier: 3, path: .skills/kind-validation.md}
`), 0o644))

	result, err := f.client(t, fetch.Static(nil)).Run(quietContext())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsAllDataMissing(err))

	afterJSON, err := os.ReadFile(f.output)
	require.NoError(t, err)
	afterJS, err := os.ReadFile(f.js)
	require.NoError(t, err)
	assert.Equal(t, beforeJSON, afterJSON)
	assert.Equal(t, beforeJS, afterJS)
}

// The only item fails on the first run: nothing is created.
func TestRunFirstRunTotalFailure(t *testing.T) {
	f := newFixture(t, `skills: [{org: o, repo: r, tier: 1, path: x.md}]`)

	_, err := f.client(t, fetch.Static(nil)).Run(quietContext())
	assert.True(t, errors.IsAllDataMissing(err))

	for _, p := range []string{f.output, f.js} {
		_, statErr := os.Stat(p)
		assert.True(t, os.IsNotExist(statErr), p)
	}
}

func TestRunRemovedSourcesAreDropped(t *testing.T) {
	f := newFixture(t, testSources)
	all := fetch.Static(map[sources.Identity]fetch.Outcome{
		skillA: fetch.Content("a"), skillB: fetch.Content("b"), memoryA: fetch.Content("m"),
	})
	_, err := f.client(t, all).Run(quietContext())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.sources, []byte(`skills: [{org: engram-hq, repo: .skills, tier: 2, path: org-knowledge/SKILL.md}]`), 0o644))
	_, err = f.client(t, fetch.Static(nil)).Run(quietContext())
	require.NoError(t, err)

	written, err := persistence.Load(f.output)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{skillA.String(): "a"}, contents(written))
}

func TestRunConfigErrorBeforeNetwork(t *testing.T) {
	var calls int32
	counting := fetch.FetcherFunc(func(context.Context, sources.Identity) fetch.Outcome {
		atomic.AddInt32(&calls, 1)
		return fetch.Content("x")
	})

	for name, doc := range map[string]string{
		"empty":     "",
		"malformed": "skills: [",
		"no path":   "skills: [{org: o, repo: r}]",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, doc)
			_, err := f.client(t, counting).Run(quietContext())
			assert.True(t, errors.IsConfigError(err))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t, testSources)
		c := f.client(t, counting, WithSourcesPath(filepath.Join(f.dir, "nope.yaml")))
		_, err := c.Run(quietContext())
		assert.True(t, errors.IsConfigError(err))
	})

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestRunRefusesUnreadablePrior(t *testing.T) {
	f := newFixture(t, testSources)
	require.NoError(t, os.WriteFile(f.output, []byte("{not json"), 0o644))

	_, err := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a")})).Run(quietContext())
	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)

	after, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(after))
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, testSources)
	result, err := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a")}), WithDryRun(true)).
		Run(quietContext())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Empty(t, result.Output)
	assert.Len(t, result.Dataset.Skills, 1)
	_, statErr := os.Stat(f.output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunWithoutJS(t *testing.T) {
	f := newFixture(t, testSources)
	result, err := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a")}), WithJSOutputPath("")).
		Run(quietContext())
	require.NoError(t, err)
	assert.Empty(t, result.JSOutput)

	_, statErr := os.Stat(f.js)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDiscoversMemories(t *testing.T) {
	f := newFixture(t, `
memory_orgs: [engram-hq]
`)
	lister := listerFunc(func(_ context.Context, org, repo, dir string) ([]string, error) {
		assert.Equal(t, "engram-hq", org)
		assert.Equal(t, ".memory", repo)
		assert.Equal(t, "sessions", dir)
		return []string{"sessions/README.md", "sessions/b.md", "sessions/a.md"}, nil
	})
	a := sources.Identity{Org: "engram-hq", Repo: ".memory", Path: "sessions/a.md"}
	b := sources.Identity{Org: "engram-hq", Repo: ".memory", Path: "sessions/b.md"}
	fetcher := fetch.Static(map[sources.Identity]fetch.Outcome{a: fetch.Content("A"), b: fetch.Content("B")})

	result, err := f.client(t, fetcher, WithLister(lister)).Run(quietContext())
	require.NoError(t, err)
	require.Len(t, result.Dataset.Memories, 2)
	assert.Equal(t, "sessions/a.md", result.Dataset.Memories[0].Path)
	assert.Equal(t, "sessions/b.md", result.Dataset.Memories[1].Path)
}

// When an org cannot be listed, its previously known memories stay desired
// and fall back to the cache.
func TestRunDiscoveryFailureUsesKnownMemories(t *testing.T) {
	f := newFixture(t, `memory_orgs: [engram-hq]`)
	a := sources.Identity{Org: "engram-hq", Repo: ".memory", Path: "sessions/a.md"}

	ok := listerFunc(func(context.Context, string, string, string) ([]string, error) {
		return []string{"sessions/a.md"}, nil
	})
	_, err := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{a: fetch.Content("A")}), WithLister(ok)).Run(quietContext())
	require.NoError(t, err)

	// Default fixture lister fails.
	result, err := f.client(t, fetch.Static(nil)).Run(quietContext())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "using 1 previously known memories")
	assert.Equal(t, 1, result.Stats().MemoriesCached)
	assert.Equal(t, "A", result.Dataset.Memories[0].Content)
}

func TestRunHooks(t *testing.T) {
	f := newFixture(t, testSources)
	c := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a"), skillB: fetch.Content("b")}))

	var fetched, cached, missing []string
	c.OnItemFetched(func(ev reconciler.Event) { fetched = append(fetched, ev.Item.Identity.String()) })
	c.OnItemCached(func(ev reconciler.Event) { cached = append(cached, ev.Item.Identity.String()) })
	c.OnItemMissing(func(ev reconciler.Event) { missing = append(missing, ev.Item.Identity.String()) })

	_, err := c.Run(quietContext())
	require.NoError(t, err)

	assert.Equal(t, []string{skillA.String(), skillB.String()}, fetched)
	assert.Empty(t, cached)
	assert.Equal(t, []string{memoryA.String()}, missing)
}

func TestRunHooksSkippedWhenSaveFails(t *testing.T) {
	f := newFixture(t, testSources)

	// The JS destination's parent is a regular file, so saving fails.
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	c := f.client(t,
		fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a"), skillB: fetch.Content("b")}),
		WithJSOutputPath(filepath.Join(blocker, "demo-data.js")),
	)

	var calls int
	c.OnItemFetched(func(reconciler.Event) { calls++ })
	c.OnItemMissing(func(reconciler.Event) { calls++ })

	_, err := c.Run(quietContext())
	require.Error(t, err)
	assert.Zero(t, calls)
	assert.NoFileExists(t, f.output)
}

func TestRunHooksFireOnDryRun(t *testing.T) {
	f := newFixture(t, testSources)
	c := f.client(t,
		fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a"), skillB: fetch.Content("b")}),
		WithDryRun(true),
	)

	var fetched int
	c.OnItemFetched(func(reconciler.Event) { fetched++ })

	_, err := c.Run(quietContext())
	require.NoError(t, err)
	assert.Equal(t, 2, fetched)
	assert.NoFileExists(t, f.output)
}

func TestRunCancelledWritesNothing(t *testing.T) {
	f := newFixture(t, testSources)
	ctx, cancel := context.WithCancel(quietContext())
	fetcher := fetch.FetcherFunc(func(context.Context, sources.Identity) fetch.Outcome {
		cancel()
		return fetch.Content("x")
	})

	_, err := f.client(t, fetcher, WithConcurrency(1)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(f.output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunLogsRunID(t *testing.T) {
	f := newFixture(t, testSources)
	testLogger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), testLogger.Logger)

	result, err := f.client(t, fetch.Static(map[sources.Identity]fetch.Outcome{skillA: fetch.Content("a")})).Run(ctx)
	require.NoError(t, err)

	testLogger.AssertContains(t, `"run_id":"`+result.RunID+`"`)
	testLogger.AssertContains(t, "Refresh completed")
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(WithConcurrency(0))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = New(WithOutputPath(""))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = New(WithFetchTimeout(-time.Second))
	assert.Error(t, err)

	_, err = New(WithAttemptTimeout(-time.Second))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = New(WithAuthScheme("basic"))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = New()
	assert.NoError(t, err)
}

func TestAttemptBudget(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{name: "defaults fit", want: constants.DefaultAttemptTimeout},
		{name: "short fetch bound is shared", opts: []Option{WithFetchTimeout(time.Second)}, want: 500 * time.Millisecond},
		{name: "single method gets it all", opts: []Option{WithFetchTimeout(time.Second), WithMethods(github.MethodRaw)}, want: time.Second},
		{name: "no fetch bound", opts: []Option{WithFetchTimeout(0), WithAttemptTimeout(time.Minute)}, want: time.Minute},
		{name: "no attempt bound", opts: []Option{WithFetchTimeout(4 * time.Second), WithAttemptTimeout(0)}, want: 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaults().apply(tt.opts...).attemptBudget())
		})
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t, testSources+`
  - {org: engram-hq, path: sessions/2025-06-01.md}
`)
	catalog, warnings, err := f.client(t, fetch.Static(nil)).Validate(quietContext())
	require.NoError(t, err)
	assert.Len(t, catalog.Skills, 2)
	assert.Len(t, catalog.Memories, 1)
	assert.Len(t, warnings, 1)
}
