package app

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/demorefresh"
	"github.com/agentstation/demorefresh/internal/cmd/hints"
	"github.com/agentstation/demorefresh/internal/cmd/output"
	"github.com/agentstation/demorefresh/internal/sources/github"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/logging"
)

// NewRefreshCommand creates the refresh subcommand.
func (a *App) NewRefreshCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch sources and rewrite the demo dataset",
		Long: `Fetch every configured skill and memory, fall back to the cached copy
for items that cannot be fetched, and write demo-data.json and demo-data.js.

With --interval the refresh repeats until interrupted.`,
		Example: `  demorefresh refresh
  demorefresh refresh --sources demo-sources.yaml --output site/demo-data.json
  GH_TOKEN=... demorefresh refresh --methods api
  demorefresh refresh --dry-run --format json
  demorefresh refresh --interval 1h`,
		Args: cobra.NoArgs,
		RunE: a.runRefresh,
	}
	addRefreshFlags(cmd.Flags())
	return cmd
}

// NewValidateCommand creates the validate subcommand.
func (a *App) NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the sources file without fetching anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			catalog, warnings, err := client.Validate(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), output.NewCatalogView(catalog, warnings))
		},
	}
	addSourcesFlag(cmd.Flags())
	return cmd
}

// NewVersionCommand creates the version subcommand.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			_, err := fmt.Fprintf(w, "demorefresh %s\n  commit:   %s\n  built:    %s\n  built by: %s\n  go:       %s\n",
				a.version, a.commit, a.date, a.builtBy, runtime.Version())
			return err
		},
	}
}

// runRefresh performs one refresh, or repeats it when an interval is set.
func (a *App) runRefresh(cmd *cobra.Command, _ []string) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if a.config.Interval > 0 {
		logging.FromContext(ctx).Info().
			Dur("interval", a.config.Interval).
			Msg("Watching sources")
		return client.Watch(ctx, a.config.Interval, func(result *demorefresh.Result, err error) {
			if err != nil {
				return
			}
			if perr := a.printResult(w, result); perr != nil {
				logging.FromContext(ctx).Warn().Err(perr).Msg("Cannot print report")
			}
		})
	}

	result, err := client.Run(ctx)
	if err != nil {
		a.hint(cmd, hints.ForError(err, a.config.Token != ""))
		return err
	}
	if err := a.printResult(w, result); err != nil {
		return err
	}
	a.hint(cmd, hints.ForResult(result.Result, a.config.Token != ""))
	return nil
}

// hint prints guidance to stderr when output is meant for a person.
func (a *App) hint(cmd *cobra.Command, list []hints.Hint) {
	switch output.DetectFormat(a.config.Format) {
	case output.FormatTable, output.FormatWide:
		_ = hints.Write(cmd.ErrOrStderr(), list)
	}
}

// newClient builds a refresh client from the current configuration.
// Invalid settings are configuration errors.
func (a *App) newClient() (demorefresh.Client, error) {
	cfg := a.config

	opts := []demorefresh.Option{
		demorefresh.WithSourcesPath(cfg.Sources),
		demorefresh.WithOutputPath(cfg.Output),
		demorefresh.WithJSOutputPath(cfg.JSOutputPath()),
		demorefresh.WithJSVariable(cfg.JSVariable),
		demorefresh.WithDryRun(cfg.DryRun),
		demorefresh.WithToken(cfg.Token),
		demorefresh.WithAuthScheme(cfg.AuthScheme),
		demorefresh.WithRef(cfg.Ref),
		demorefresh.WithConcurrency(cfg.Concurrency),
		demorefresh.WithAttemptTimeout(cfg.AttemptTimeout),
		demorefresh.WithFetchTimeout(cfg.FetchTimeout),
		demorefresh.WithRunTimeout(cfg.Timeout),
	}
	if cfg.Methods != "" {
		methods, err := github.ParseMethods(cfg.Methods)
		if err != nil {
			return nil, errors.WrapConfig("methods", "invalid --methods", err)
		}
		opts = append(opts, demorefresh.WithMethods(methods...))
	}
	opts = append(opts, a.clientOptions...)

	client, err := demorefresh.New(opts...)
	if err != nil {
		return nil, errors.WrapConfig("app", "invalid refresh settings", err)
	}
	return client, nil
}

func (a *App) printResult(w io.Writer, result *demorefresh.Result) error {
	report := output.NewReport(result.Result)
	report.RunID = result.RunID
	report.Output = result.Output
	report.JSOutput = result.JSOutput
	report.DryRun = result.DryRun
	report.Warnings = result.Warnings
	return a.print(w, report)
}

// print writes data in the configured output format.
func (a *App) print(w io.Writer, data any) error {
	return output.NewFormatter(output.DetectFormat(a.config.Format)).Format(w, data)
}
