// Package hints provides actionable guidance printed after a refresh.
package hints

import (
	"fmt"
	"io"

	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/reconciler"
)

// Hint represents actionable user guidance.
type Hint struct {
	Message string // Human-readable guidance message
	Command string // Optional specific command to run
}

// New creates a new hint with the given message.
func New(message string) Hint {
	return Hint{Message: message}
}

// NewCommand creates a new hint with a specific command.
func NewCommand(message, command string) Hint {
	return Hint{Message: message, Command: command}
}

// ForResult suggests fixes for a run that fell back to the cache or
// dropped items. authenticated reports whether a token was configured.
func ForResult(result *reconciler.Result, authenticated bool) []Hint {
	if result == nil || result.Dataset == nil {
		return nil
	}
	s := result.Stats()
	degraded := s.SkillsCached+s.MemoriesCached+s.SkillsFailed+s.MemoriesFailed > 0

	var out []Hint
	if degraded && !authenticated {
		out = append(out, NewCommand(
			"Some items could not be fetched. Unauthenticated requests are rate limited; set a token",
			"GH_TOKEN=<token> demorefresh refresh"))
	}
	if result.HasMissing() {
		out = append(out, NewCommand(
			fmt.Sprintf("%d items have no cached copy and were left out; check their org, repo and path", len(result.Missing)),
			"demorefresh validate"))
	}
	return out
}

// ForError suggests fixes for a failed run.
func ForError(err error, authenticated bool) []Hint {
	switch {
	case err == nil:
		return nil
	case errors.IsConfigError(err):
		return []Hint{NewCommand("Check the sources file", "demorefresh validate --sources <file>")}
	case errors.IsAllDataMissing(err):
		out := []Hint{New("Nothing was written; the previous demo data is unchanged")}
		if !authenticated {
			out = append(out, NewCommand("Retry with a token", "GH_TOKEN=<token> demorefresh refresh"))
		}
		return out
	}
	return nil
}

// Write prints hints, one per line, followed by their commands.
func Write(w io.Writer, hints []Hint) error {
	for _, h := range hints {
		line := "hint: " + h.Message + "\n"
		if h.Command != "" {
			line += "  $ " + h.Command + "\n"
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
