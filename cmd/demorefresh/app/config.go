package app

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
)

// envPrefix namespaces environment variables, e.g. DEMOREFRESH_SOURCES.
const envPrefix = "DEMOREFRESH"

// Config holds the application configuration loaded from flags, environment
// variables, .env files and the optional config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Refresh configuration
	Sources        string
	Output         string
	JSOutput       string
	NoJS           bool
	JSVariable     string
	Token          string
	AuthScheme     string
	Ref            string
	Methods        string
	Concurrency    int
	AttemptTimeout time.Duration
	FetchTimeout   time.Duration
	Timeout        time.Duration
	Interval       time.Duration
	DryRun         bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Config keys. Flags are bound to the same names.
const (
	keyVerbose        = "verbose"
	keyQuiet          = "quiet"
	keyNoColor        = "no_color"
	keyFormat         = "format"
	keySources        = "sources"
	keyOutput         = "output"
	keyJSOutput       = "js_output"
	keyNoJS           = "no_js"
	keyJSVariable     = "js_variable"
	keyToken          = "gh_token"
	keyAuthScheme     = "auth_scheme"
	keyRef            = "ref"
	keyMethods        = "methods"
	keyConcurrency    = "concurrency"
	keyAttemptTimeout = "attempt_timeout"
	keyFetchTimeout   = "fetch_timeout"
	keyTimeout        = "timeout"
	keyInterval       = "interval"
	keyDryRun         = "dry_run"
	keyLogLevel       = "log_level"
)

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (bound to v by the commands)
// 2. Environment variables (DEMOREFRESH_*, plus GH_TOKEN / GITHUB_TOKEN)
// 3. .env and .env.local files
// 4. Config file (configFile, or .demorefresh.yaml in . or $HOME)
// 5. Defaults
//
// An explicitly named config file that cannot be read is a ConfigError.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// The token keeps the names the refresh workflow has always used.
	if err := v.BindEnv(keyToken, envPrefix+"_GH_TOKEN", "GH_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, errors.WrapConfig("app", "cannot bind token environment", err)
	}

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapConfig("app", "cannot read config file "+configFile, err)
		}
	} else {
		v.SetConfigName(".demorefresh")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, errors.WrapConfig("app", "cannot read config file", err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool(keyVerbose),
		Quiet:   v.GetBool(keyQuiet),
		NoColor: v.GetBool(keyNoColor) || os.Getenv("NO_COLOR") != "",
		Format:  v.GetString(keyFormat),

		ConfigFile: v.ConfigFileUsed(),

		Sources:        v.GetString(keySources),
		Output:         v.GetString(keyOutput),
		JSOutput:       v.GetString(keyJSOutput),
		NoJS:           v.GetBool(keyNoJS),
		JSVariable:     v.GetString(keyJSVariable),
		Token:          v.GetString(keyToken),
		AuthScheme:     v.GetString(keyAuthScheme),
		Ref:            v.GetString(keyRef),
		Methods:        v.GetString(keyMethods),
		Concurrency:    v.GetInt(keyConcurrency),
		AttemptTimeout: v.GetDuration(keyAttemptTimeout),
		FetchTimeout:   v.GetDuration(keyFetchTimeout),
		Timeout:        v.GetDuration(keyTimeout),
		Interval:       v.GetDuration(keyInterval),
		DryRun:         v.GetBool(keyDryRun),

		LogLevel:  v.GetString(keyLogLevel),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
	if config.LogLevel == "" {
		config.LogLevel = os.Getenv("LOG_LEVEL")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keySources, constants.DefaultSourcesFile)
	v.SetDefault(keyOutput, constants.DefaultOutputFile)
	v.SetDefault(keyJSOutput, constants.DefaultJSOutputFile)
	v.SetDefault(keyJSVariable, constants.DefaultJSVariable)
	v.SetDefault(keyAuthScheme, "token")
	v.SetDefault(keyRef, constants.DefaultRef)
	v.SetDefault(keyConcurrency, constants.DefaultConcurrency)
	v.SetDefault(keyAttemptTimeout, constants.DefaultAttemptTimeout)
	v.SetDefault(keyFetchTimeout, constants.DefaultFetchTimeout)
	v.SetDefault(keyTimeout, constants.RunTimeout)
}

// JSOutputPath returns the JS destination, or "" when it is disabled.
func (c *Config) JSOutputPath() string {
	if c.NoJS {
		return ""
	}
	return c.JSOutput
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set are not overridden.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
