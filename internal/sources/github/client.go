// Package github retrieves skills and memories from GitHub repositories. It
// implements fetch.Fetcher over the contents API and the raw content host,
// and sources.Lister over the contents API for memory discovery.
package github

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/demorefresh/internal/transport"
	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/fetch"
	"github.com/agentstation/demorefresh/pkg/logging"
	"github.com/agentstation/demorefresh/pkg/sources"
)

const serviceName = "github"

// Method is a way of retrieving a file.
type Method string

// Retrieval methods.
const (
	// MethodAPI reads the file through the REST contents API (base64 JSON).
	MethodAPI Method = "api"
	// MethodRaw reads the file from the raw content host.
	MethodRaw Method = "raw"
)

// ParseMethods parses a comma-separated method list such as "raw,api".
func ParseMethods(s string) ([]Method, error) {
	var methods []Method
	for _, part := range strings.Split(s, ",") {
		switch m := Method(strings.TrimSpace(part)); m {
		case MethodAPI, MethodRaw:
			methods = append(methods, m)
		case "":
		default:
			return nil, &errors.ValidationError{Field: "methods", Value: s, Message: fmt.Sprintf("unknown method %q", m)}
		}
	}
	if len(methods) == 0 {
		return nil, &errors.ValidationError{Field: "methods", Value: s, Message: "at least one method is required"}
	}
	return methods, nil
}

var (
	_ fetch.Fetcher  = (*Client)(nil)
	_ sources.Lister = (*Client)(nil)
)

// Client talks to GitHub. It is safe for concurrent use.
type Client struct {
	http           *transport.Client
	scheme         string
	apiURL         string
	rawURL         string
	ref            string
	methods        []Method
	attemptTimeout time.Duration
}

type config struct {
	token   string
	scheme  string
	apiURL  string
	rawURL  string
	ref     string
	methods []Method
	timeout time.Duration
}

// Option configures a Client.
type Option func(*config)

// WithToken sets the access token. Without one requests are anonymous.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithAuthScheme sets how the token is attached to requests: "token"
// (the default), "bearer" or "none".
func WithAuthScheme(scheme string) Option {
	return func(c *config) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// WithAPIURL overrides the REST API base URL.
func WithAPIURL(u string) Option {
	return func(c *config) { c.apiURL = strings.TrimRight(u, "/") }
}

// WithRawURL overrides the raw content base URL.
func WithRawURL(u string) Option {
	return func(c *config) { c.rawURL = strings.TrimRight(u, "/") }
}

// WithRef sets the branch, tag or commit to read from.
func WithRef(ref string) Option {
	return func(c *config) {
		if ref != "" {
			c.ref = ref
		}
	}
}

// WithMethods sets the retrieval methods in the order they are tried.
func WithMethods(methods ...Method) Option {
	return func(c *config) { c.methods = methods }
}

// WithAttemptTimeout bounds each method's attempt at a file, so a hanging
// method still leaves time for the next one. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// NewClient creates a GitHub client. Unless WithMethods is given, the API
// is tried first when a token is configured and the raw host first
// otherwise. An unknown auth scheme is an error.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &config{
		scheme:  transport.SchemeToken,
		apiURL:  constants.GitHubAPIURL,
		rawURL:  constants.GitHubRawURL,
		ref:     constants.DefaultRef,
		timeout: constants.DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	auth, err := transport.ForScheme(cfg.scheme)
	if err != nil {
		return nil, err
	}
	if cfg.timeout < 0 {
		return nil, &errors.ValidationError{Field: "attempt_timeout", Value: cfg.timeout, Message: "cannot be negative"}
	}

	methods := cfg.methods
	if len(methods) == 0 {
		if cfg.token != "" {
			methods = []Method{MethodAPI, MethodRaw}
		} else {
			methods = []Method{MethodRaw, MethodAPI}
		}
	}

	return &Client{
		http:           transport.New(auth, cfg.token, transport.WithTimeout(cfg.timeout)),
		scheme:         cfg.scheme,
		apiURL:         cfg.apiURL,
		rawURL:         cfg.rawURL,
		ref:            cfg.ref,
		methods:        methods,
		attemptTimeout: cfg.timeout,
	}, nil
}

// Methods returns the retrieval order.
func (c *Client) Methods() []Method {
	return append([]Method(nil), c.methods...)
}

// Fetch implements fetch.Fetcher. Each method is attempted once, in order,
// under its own deadline; the first success wins. Failures are logged and
// never returned.
func (c *Client) Fetch(ctx context.Context, id sources.Identity) fetch.Outcome {
	logger := logging.FromContext(ctx)

	for _, method := range c.methods {
		content, err := c.attempt(ctx, method, id)
		if err == nil {
			logger.Debug().Str("method", string(method)).Msg("Fetch succeeded")
			return fetch.Content(content)
		}
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Str("method", string(method)).Msg("Fetch abandoned")
			return fetch.Absent()
		}
		logger.Warn().Err(err).Str("method", string(method)).Msg("Fetch attempt failed")
	}

	return fetch.Absent()
}

// attempt runs one method under the per-attempt deadline. Only ctx itself
// being done abandons the whole fetch; the attempt deadline does not.
func (c *Client) attempt(ctx context.Context, method Method, id sources.Identity) (string, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	var (
		content string
		err     error
	)
	switch method {
	case MethodAPI:
		content, err = c.fetchAPI(ctx, id)
	case MethodRaw:
		content, err = c.fetchRaw(ctx, id)
	default:
		err = fmt.Errorf("unknown method %q", method)
	}
	return content, c.checkAuth(method, err)
}

// checkAuth marks a rejected credential as an authentication failure, so the
// log tells a revoked token apart from a missing file.
func (c *Client) checkAuth(method Method, err error) error {
	if err == nil || !c.http.Authenticated() || !stderrors.Is(err, errors.ErrUnauthorized) {
		return err
	}
	return &errors.AuthenticationError{
		Service: serviceName,
		Method:  c.scheme,
		Message: fmt.Sprintf("credential rejected by the %s method", method),
		Err:     err,
	}
}

// contentsEntry is one element of a contents API response.
type contentsEntry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

func (c *Client) fetchAPI(ctx context.Context, id sources.Identity) (string, error) {
	u := c.contentsURL(id.Org, id.Repo, id.Path)

	resp, err := c.http.Get(ctx, u, constants.GitHubAcceptHeader)
	if err != nil {
		return "", errors.NewFetchError(string(MethodAPI), u, err)
	}

	var entry contentsEntry
	if err := transport.DecodeResponse(serviceName, resp, &entry); err != nil {
		return "", errors.NewFetchError(string(MethodAPI), u, err)
	}

	if entry.Type != "" && entry.Type != "file" {
		return "", errors.NewFetchError(string(MethodAPI), u, fmt.Errorf("%s is a %s, not a file", id.Path, entry.Type))
	}
	if entry.Encoding != "base64" {
		return "", errors.NewFetchError(string(MethodAPI), u, fmt.Errorf("unsupported content encoding %q", entry.Encoding))
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(entry.Content, "\n", ""))
	if err != nil {
		return "", errors.NewFetchError(string(MethodAPI), u, errors.WrapParse("base64", id.Path, err))
	}
	return string(decoded), nil
}

func (c *Client) fetchRaw(ctx context.Context, id sources.Identity) (string, error) {
	u := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, url.PathEscape(id.Org), url.PathEscape(id.Repo),
		escapePath(c.ref), escapePath(id.Path))

	resp, err := c.http.Get(ctx, u, "")
	if err != nil {
		return "", errors.NewFetchError(string(MethodRaw), u, err)
	}

	body, err := transport.ReadBody(serviceName, resp)
	if err != nil {
		return "", errors.NewFetchError(string(MethodRaw), u, err)
	}

	// The raw host has been seen serving its not-found page with a 200.
	if strings.HasPrefix(string(body), "404: Not Found") {
		return "", errors.NewFetchError(string(MethodRaw), u, errors.NewNotFoundError("file", id.String()))
	}
	return string(body), nil
}

// List implements sources.Lister. It returns the paths of the files (not
// directories) directly under dir.
func (c *Client) List(ctx context.Context, org, repo, dir string) ([]string, error) {
	u := c.contentsURL(org, repo, dir)

	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	resp, err := c.http.Get(ctx, u, constants.GitHubAcceptHeader)
	if err != nil {
		return nil, errors.NewFetchError("list", u, err)
	}

	var entries []contentsEntry
	if err := transport.DecodeResponse(serviceName, resp, &entries); err != nil {
		return nil, errors.NewFetchError("list", u, c.checkAuth(MethodAPI, err))
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		p := e.Path
		if p == "" {
			p = strings.TrimSuffix(dir, "/") + "/" + e.Name
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (c *Client) contentsURL(org, repo, p string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", c.apiURL, url.PathEscape(org), url.PathEscape(repo),
		escapePath(p), url.QueryEscape(c.ref))
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
