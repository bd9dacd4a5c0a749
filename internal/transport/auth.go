package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/agentstation/demorefresh/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, credential string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// TokenAuth implements GitHub's classic "token" scheme.
type TokenAuth struct{}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request, credential string) {
	req.Header.Set("Authorization", "token "+credential)
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, credential string) {
	req.Header.Set("Authorization", "Bearer "+credential)
}

// Authentication scheme names accepted by ForScheme.
const (
	SchemeToken  = "token"
	SchemeBearer = "bearer"
	SchemeNone   = "none"
)

// ForScheme returns the authenticator for a scheme name. An empty name
// selects SchemeToken.
func ForScheme(scheme string) (Authenticator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeToken:
		return &TokenAuth{}, nil
	case SchemeBearer:
		return &BearerAuth{}, nil
	case SchemeNone:
		return &NoAuth{}, nil
	default:
		return nil, &errors.ValidationError{
			Field:   "auth_scheme",
			Value:   scheme,
			Message: fmt.Sprintf("must be one of %s, %s or %s", SchemeToken, SchemeBearer, SchemeNone),
		}
	}
}
