package demorefresh

import (
	"time"

	"github.com/agentstation/demorefresh/internal/sources/github"
	"github.com/agentstation/demorefresh/internal/transport"
	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/fetch"
	"github.com/agentstation/demorefresh/pkg/reconciler"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// options holds the configuration of a Client.
type options struct {
	sourcesPath  string
	outputPath   string
	jsOutputPath string
	jsVariable   string
	dryRun       bool

	token      string
	authScheme string
	ref        string
	methods    []github.Method
	apiURL     string
	rawURL     string

	concurrency    int
	attemptTimeout time.Duration
	fetchTimeout   time.Duration
	runTimeout   time.Duration
	clock        func() time.Time
	progress     reconciler.ProgressFunc

	fetcher fetch.Fetcher
	lister  sources.Lister
}

// Option configures a Client.
type Option func(*options)

func defaults() *options {
	return &options{
		sourcesPath:    constants.DefaultSourcesFile,
		outputPath:     constants.DefaultOutputFile,
		jsOutputPath:   constants.DefaultJSOutputFile,
		jsVariable:     constants.DefaultJSVariable,
		authScheme:     transport.SchemeToken,
		ref:            constants.DefaultRef,
		concurrency:    constants.DefaultConcurrency,
		attemptTimeout: constants.DefaultAttemptTimeout,
		fetchTimeout:   constants.DefaultFetchTimeout,
		runTimeout:     constants.RunTimeout,
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) validate() error {
	if o.sourcesPath == "" {
		return &errors.ValidationError{Field: "sources", Message: "path is required"}
	}
	if o.outputPath == "" {
		return &errors.ValidationError{Field: "output", Message: "path is required"}
	}
	if o.concurrency < 1 || o.concurrency > constants.MaxConcurrency {
		return &errors.ValidationError{Field: "concurrency", Value: o.concurrency, Message: "must be between 1 and 32"}
	}
	if o.fetchTimeout < 0 {
		return &errors.ValidationError{Field: "fetch_timeout", Value: o.fetchTimeout, Message: "cannot be negative"}
	}
	if o.attemptTimeout < 0 {
		return &errors.ValidationError{Field: "attempt_timeout", Value: o.attemptTimeout, Message: "cannot be negative"}
	}
	if _, err := transport.ForScheme(o.authScheme); err != nil {
		return err
	}
	return nil
}

func (o *options) githubOptions() []github.Option {
	opts := []github.Option{
		github.WithToken(o.token),
		github.WithAuthScheme(o.authScheme),
		github.WithRef(o.ref),
		github.WithAttemptTimeout(o.attemptBudget()),
	}
	if len(o.methods) > 0 {
		opts = append(opts, github.WithMethods(o.methods...))
	}
	if o.apiURL != "" {
		opts = append(opts, github.WithAPIURL(o.apiURL))
	}
	if o.rawURL != "" {
		opts = append(opts, github.WithRawURL(o.rawURL))
	}
	return opts
}

// attemptBudget is the per-method deadline. A fetch bound too short for
// every method to use the full attempt timeout is split evenly between
// them, so a hanging first method cannot starve the fallback.
func (o *options) attemptBudget() time.Duration {
	n := len(o.methods)
	if n == 0 {
		n = 2 // api and raw
	}
	attempt := o.attemptTimeout
	if o.fetchTimeout > 0 && (attempt == 0 || attempt*time.Duration(n) > o.fetchTimeout) {
		attempt = o.fetchTimeout / time.Duration(n)
	}
	return attempt
}

// WithSourcesPath sets the sources document to read.
func WithSourcesPath(path string) Option {
	return func(o *options) { o.sourcesPath = path }
}

// WithOutputPath sets where demo-data.json is read from and written to.
func WithOutputPath(path string) Option {
	return func(o *options) { o.outputPath = path }
}

// WithJSOutputPath sets where demo-data.js is written. Empty disables it.
func WithJSOutputPath(path string) Option {
	return func(o *options) { o.jsOutputPath = path }
}

// WithJSVariable sets the global assigned by demo-data.js.
func WithJSVariable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.jsVariable = name
		}
	}
}

// WithDryRun reconciles without writing any file.
func WithDryRun(enabled bool) Option {
	return func(o *options) { o.dryRun = enabled }
}

// WithToken sets the GitHub access token. The token is only ever read from
// here; nothing below the client looks at the environment.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithAuthScheme sets how the token is sent: "token" (the default),
// "bearer" or "none".
func WithAuthScheme(scheme string) Option {
	return func(o *options) {
		if scheme != "" {
			o.authScheme = scheme
		}
	}
}

// WithRef sets the branch, tag or commit to read from.
func WithRef(ref string) Option {
	return func(o *options) {
		if ref != "" {
			o.ref = ref
		}
	}
}

// WithMethods sets the GitHub retrieval methods in the order they are tried.
func WithMethods(methods ...github.Method) Option {
	return func(o *options) { o.methods = methods }
}

// WithGitHubURLs overrides the API and raw content base URLs.
func WithGitHubURLs(apiURL, rawURL string) Option {
	return func(o *options) {
		o.apiURL = apiURL
		o.rawURL = rawURL
	}
}

// WithConcurrency sets the number of concurrent fetches.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithAttemptTimeout bounds each retrieval method's attempt at a file.
// Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) { o.attemptTimeout = d }
}

// WithFetchTimeout bounds each fetch across all of its methods. When it is
// shorter than the attempt timeout times the number of methods, each
// method gets an equal share instead. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// WithRunTimeout bounds a whole run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) { o.runTimeout = d }
}

// WithClock sets the source of generated_at.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithProgress registers a per-item progress callback, called in
// completion order.
func WithProgress(fn reconciler.ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithFetcher replaces the GitHub fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithLister replaces the GitHub directory lister used for memory discovery.
func WithLister(l sources.Lister) Option {
	return func(o *options) { o.lister = l }
}
