package demorefresh

import (
	"github.com/agentstation/demorefresh/pkg/reconciler"
)

// Result describes a completed refresh.
type Result struct {
	*reconciler.Result

	// RunID identifies the run in logs.
	RunID string

	// Warnings collects non-fatal problems: shadowed duplicate sources and
	// memory organizations that could not be listed.
	Warnings []string

	// DryRun is set when nothing was written.
	DryRun bool

	// Output and JSOutput are the files written. JSOutput is empty when the
	// JS file is disabled.
	Output   string
	JSOutput string
}
