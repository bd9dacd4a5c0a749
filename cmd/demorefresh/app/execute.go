package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/demorefresh/internal/cmd/output"
	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/logging"
)

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"verbose":         keyVerbose,
	"quiet":           keyQuiet,
	"no-color":        keyNoColor,
	"format":          keyFormat,
	"log-level":       keyLogLevel,
	"sources":         keySources,
	"output":          keyOutput,
	"js-output":       keyJSOutput,
	"no-js":           keyNoJS,
	"js-variable":     keyJSVariable,
	"auth-scheme":     keyAuthScheme,
	"ref":             keyRef,
	"methods":         keyMethods,
	"concurrency":     keyConcurrency,
	"attempt-timeout": keyAttemptTimeout,
	"fetch-timeout":   keyFetchTimeout,
	"timeout":         keyTimeout,
	"interval":        keyInterval,
	"dry-run":         keyDryRun,
}

// Execute runs the demorefresh CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
// Running the root command without a subcommand performs a refresh.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "demorefresh",
		Short:   "Refresh the demo skills and memories cache",
		Version: a.version,
		Long: `demorefresh fetches the skills and memories listed in a sources file
from GitHub and merges them into demo-data.json and demo-data.js.

Items that cannot be fetched keep their previously cached content, and a run
that would produce an empty dataset writes nothing, so a GitHub outage never
erases the demo.

Exit codes: 0 success, 1 unexpected error, 2 invalid sources configuration,
3 no skills or memories available.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setupCommand,
		RunE:              a.runRefresh,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default is .demorefresh.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("format", "", "output format: table, wide, json, yaml, markdown")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	addRefreshFlags(rootCmd.Flags())

	rootCmd.SetVersionTemplate("demorefresh {{.Version}}\n")
	if a.out != nil {
		rootCmd.SetOut(a.out)
	}

	a.registerCommands(rootCmd)

	return rootCmd
}

// addRefreshFlags defines the flags shared by the root and refresh commands.
func addRefreshFlags(fs *pflag.FlagSet) {
	addSourcesFlag(fs)
	fs.StringP("output", "O", constants.DefaultOutputFile, "dataset file to read and write")
	fs.String("js-output", constants.DefaultJSOutputFile, "script file assigning the dataset to a global")
	fs.Bool("no-js", false, "do not write the script file")
	fs.String("js-variable", constants.DefaultJSVariable, "global assigned by the script file")
	fs.String("auth-scheme", "token", "how the GitHub token is sent: token, bearer or none")
	fs.String("ref", constants.DefaultRef, "branch, tag or commit to read from")
	fs.String("methods", "", "retrieval methods in order, e.g. raw,api (default api,raw with a token, raw,api without)")
	fs.Int("concurrency", constants.DefaultConcurrency, "number of concurrent fetches")
	fs.Duration("attempt-timeout", constants.DefaultAttemptTimeout, "timeout for each retrieval method's attempt at a file")
	fs.Duration("fetch-timeout", constants.DefaultFetchTimeout, "timeout for each fetch across all methods")
	fs.Duration("timeout", constants.RunTimeout, "timeout for the whole run")
	fs.Duration("interval", 0, "repeat the refresh on this interval until interrupted")
	fs.Bool("dry-run", false, "reconcile and report without writing files")
}

func addSourcesFlag(fs *pflag.FlagSet) {
	fs.StringP("sources", "s", constants.DefaultSourcesFile, "sources file listing skills and memories")
}

// setupCommand is called before any command runs. It reloads the
// configuration with the parsed flags bound on top and rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	v := viper.New()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return errors.WrapConfig("app", "cannot bind flags", bindErr)
	}

	config, err := LoadConfig(v, mustGetString(cmd, "config"))
	if err != nil {
		return err
	}
	if _, err := output.ParseFormat(config.Format); err != nil {
		return errors.WrapConfig("app", "invalid --format", err)
	}
	a.config = config

	if !a.loggerFixed() {
		logger := NewLogger(a.config)
		a.logger = &logger
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// loggerFixed reports whether the logger was injected with WithLogger.
func (a *App) loggerFixed() bool {
	return a.injectedLogger
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(a.NewRefreshCommand())
	rootCmd.AddCommand(a.NewValidateCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return constants.ExitOK
	case errors.IsConfigError(err):
		return constants.ExitConfigError
	case errors.IsAllDataMissing(err):
		return constants.ExitAllDataMissing
	default:
		return constants.ExitError
	}
}

// ExitOnError prints err and exits with the code ExitCode assigns to it.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(ExitCode(err))
	}
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
