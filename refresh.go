package demorefresh

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentstation/demorefresh/internal/persistence"
	"github.com/agentstation/demorefresh/pkg/logging"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// Validate implements Client.
func (c *client) Validate(ctx context.Context) (*sources.Catalog, []string, error) {
	logger := logging.FromContext(ctx)

	catalog, warnings, err := sources.Load(c.options.sourcesPath)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		logger.Warn().Str("sources", c.options.sourcesPath).Msg(w)
	}

	logger.Debug().
		Int("skills", len(catalog.Skills)).
		Int("memories", len(catalog.Memories)).
		Strs("memory_orgs", catalog.MemoryOrgs).
		Msg("Sources loaded")

	return catalog, warnings, nil
}

// Run implements Client.
func (c *client) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.options.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.runTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	// Sources are validated before any network activity.
	catalog, warnings, err := c.Validate(ctx)
	if err != nil {
		return nil, err
	}

	// A cache we cannot read is fatal rather than silently replaced.
	prior, err := persistence.Load(c.options.outputPath)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("path", c.options.outputPath).
		Int("skills", len(prior.Skills)).
		Int("memories", len(prior.Memories)).
		Msg("Prior dataset loaded")

	memoryRepo := catalog.MemoryRepo
	catalog, discoverWarnings := sources.Discover(ctx, catalog, c.lister, func(org string) []sources.Identity {
		return prior.MemoryIdentities(org, memoryRepo)
	})
	for _, w := range discoverWarnings {
		logger.Warn().Msg(w)
	}
	warnings = append(warnings, discoverWarnings...)

	rec, err := c.reconciler()
	if err != nil {
		return nil, err
	}

	reconciled, err := rec.Reconcile(ctx, catalog, prior, c.fetcher)

	// A cancelled run degrades every fetch to a cache hit; do not persist it.
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Error().Err(ctxErr).Msg("Refresh interrupted, nothing written")
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		Result:   reconciled,
		RunID:    runID,
		Warnings: warnings,
		DryRun:   c.options.dryRun,
	}

	if c.options.dryRun {
		logger.Info().Bool("dry_run", true).Msg("Dry run completed, nothing written")
		c.hooks.trigger(reconciled.Events)
		return result, nil
	}

	if err := persistence.Save(reconciled.Dataset, persistence.Options{
		JSONPath: c.options.outputPath,
		JSPath:   c.options.jsOutputPath,
		Variable: c.options.jsVariable,
	}); err != nil {
		return nil, err
	}
	result.Output = c.options.outputPath
	result.JSOutput = c.options.jsOutputPath

	// Hooks only hear about content that was actually published.
	c.hooks.trigger(reconciled.Events)

	logger.Info().
		Str("output", result.Output).
		Str("js_output", result.JSOutput).
		Int("skills", len(reconciled.Dataset.Skills)).
		Int("memories", len(reconciled.Dataset.Memories)).
		Msg("Refresh completed")

	return result, nil
}
