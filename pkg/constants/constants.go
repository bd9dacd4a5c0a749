// Package constants provides shared constants used throughout the demorefresh
// codebase. This includes timeouts, limits, file permissions, default file
// names and the well-known GitHub endpoints the refresher talks to.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultAttemptTimeout bounds one retrieval method's attempt at one file
	DefaultAttemptTimeout = 15 * time.Second

	// DefaultFetchTimeout bounds one item's fetch, including every fallback
	// method. It leaves room for both methods to use their full attempt budget.
	DefaultFetchTimeout = 2*DefaultAttemptTimeout + 5*time.Second

	// RunTimeout bounds a complete refresh run
	RunTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants
const (
	// DefaultConcurrency is the default number of fetch workers
	DefaultConcurrency = 4

	// MaxConcurrency caps the fetch worker pool
	MaxConcurrency = 32

	// MaxContentBytes caps a single fetched artifact (8 MiB)
	MaxContentBytes = 8 << 20
)

// Default file names
const (
	// DefaultSourcesFile is the sources document read by the catalog loader
	DefaultSourcesFile = "demo-sources.yaml"

	// DefaultOutputFile is the structured dataset written by a run
	DefaultOutputFile = "demo-data.json"

	// DefaultJSOutputFile is the embeddable dataset written next to the JSON file
	DefaultJSOutputFile = "demo-data.js"

	// DefaultJSVariable is the global assigned by the embeddable form
	DefaultJSVariable = "window.DEMO_DATA"
)

// GitHub constants
const (
	// GitHubAPIURL is the base URL of the GitHub REST API
	GitHubAPIURL = "https://api.github.com"

	// GitHubRawURL is the base URL of the raw content host
	GitHubRawURL = "https://raw.githubusercontent.com"

	// DefaultRef is the branch content is read from
	DefaultRef = "main"

	// DefaultMemoryRepo is the fixed repository name holding an org's memories
	DefaultMemoryRepo = ".memory"

	// MemorySessionsDir is the directory listed when discovering memories
	MemorySessionsDir = "sessions"

	// GitHubAcceptHeader is the media type requested from the contents API
	GitHubAcceptHeader = "application/vnd.github.v3+json"
)

// Exit codes used by the CLI
const (
	// ExitOK means the dataset was written
	ExitOK = 0

	// ExitError is any unexpected failure
	ExitError = 1

	// ExitConfigError means the sources configuration is missing or invalid
	ExitConfigError = 2

	// ExitAllDataMissing means nothing could be fetched or restored
	ExitAllDataMissing = 3
)
