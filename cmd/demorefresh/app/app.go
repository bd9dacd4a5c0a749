// Package app wires the demorefresh CLI: configuration from flags,
// environment and config files, the logger, and the refresh client.
package app

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/demorefresh"
)

// App represents the demorefresh application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger         *zerolog.Logger
	injectedLogger bool

	// out replaces stdout for command output when set.
	out io.Writer

	// clientOptions are appended to the options derived from config.
	clientOptions []demorefresh.Option
}

// Option configures an App.
type Option func(*App) error

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig(viper.New(), "")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns who built the binary.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.injectedLogger = logger != nil
		return nil
	}
}

// WithClientOptions adds options to every refresh client the app builds.
func WithClientOptions(opts ...demorefresh.Option) Option {
	return func(a *App) error {
		a.clientOptions = append(a.clientOptions, opts...)
		return nil
	}
}

// WithOutput redirects command output, which defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
