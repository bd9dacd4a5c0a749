package hints

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/reconciler"
	"github.com/agentstation/demorefresh/pkg/sources"
)

func resultWith(stats dataset.Stats, missing ...sources.Item) *reconciler.Result {
	ds := dataset.New()
	ds.Stats = stats
	return &reconciler.Result{Dataset: ds, Missing: missing}
}

func TestForResult(t *testing.T) {
	missing := sources.NewItem(sources.CategorySkill, sources.Identity{Org: "o", Repo: "r", Path: "p.md"}, nil)

	tests := []struct {
		name          string
		result        *reconciler.Result
		authenticated bool
		want          int
	}{
		{name: "clean run", result: resultWith(dataset.Stats{SkillsFetched: 2}), want: 0},
		{name: "cached without token", result: resultWith(dataset.Stats{SkillsCached: 1}), want: 1},
		{name: "cached with token", result: resultWith(dataset.Stats{SkillsCached: 1}), authenticated: true, want: 0},
		{name: "missing without token", result: resultWith(dataset.Stats{SkillsFailed: 1}, missing), want: 2},
		{name: "missing with token", result: resultWith(dataset.Stats{SkillsFailed: 1}, missing), authenticated: true, want: 1},
		{name: "nil result", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ForResult(tt.result, tt.authenticated), tt.want)
		})
	}
}

func TestForError(t *testing.T) {
	assert.Empty(t, ForError(nil, false))
	assert.Empty(t, ForError(assert.AnError, false))

	config := ForError(errors.NewConfigError("sources", "bad", nil), false)
	require.Len(t, config, 1)
	assert.Contains(t, config[0].Command, "validate")

	assert.Len(t, ForError(errors.NewAllDataMissingError(2, nil), false), 2)
	assert.Len(t, ForError(errors.NewAllDataMissingError(2, nil), true), 1)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []Hint{New("first"), NewCommand("second", "demorefresh validate")}))
	assert.Equal(t, "hint: first\nhint: second\n  $ demorefresh validate\n", buf.String())
}
