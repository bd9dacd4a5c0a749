package errors_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/demorefresh/pkg/errors"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestConfigError(t *testing.T) {
	t.Run("with component and cause", func(t *testing.T) {
		cause := os.ErrNotExist
		err := pkgerrors.NewConfigError("sources", "cannot read demo-sources.yaml", cause)
		assert.Equal(t, "configuration error in sources: cannot read demo-sources.yaml: file does not exist", err.Error())
		assert.True(t, pkgerrors.IsConfigError(err))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("without component", func(t *testing.T) {
		err := &pkgerrors.ConfigError{Message: "no sources configured"}
		assert.Equal(t, "configuration error: no sources configured", err.Error())
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", pkgerrors.NewConfigError("", "bad", nil))
		assert.True(t, pkgerrors.IsConfigError(err))
		assert.False(t, pkgerrors.IsAllDataMissing(err))
	})

	t.Run("WrapConfig nil", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapConfig("sources", "ignored", nil))
	})
}

func TestAllDataMissingError(t *testing.T) {
	t.Run("lists missing identities", func(t *testing.T) {
		err := pkgerrors.NewAllDataMissingError(2, []string{"a/b/c.md", "d/e/f.md"})
		assert.Contains(t, err.Error(), "2 of 2")
		assert.Contains(t, err.Error(), "a/b/c.md, d/e/f.md")
		assert.True(t, pkgerrors.IsAllDataMissing(err))
		assert.False(t, pkgerrors.IsConfigError(err))
	})

	t.Run("empty", func(t *testing.T) {
		err := &pkgerrors.AllDataMissingError{}
		assert.Equal(t, "all data missing: no skills or memories to write", err.Error())
	})
}

func TestFetchError(t *testing.T) {
	cause := errors.New("connection reset")
	err := pkgerrors.NewFetchError("raw", "https://raw.githubusercontent.com/o/r/main/p", cause)
	assert.Contains(t, err.Error(), "fetch via raw")
	assert.ErrorIs(t, err, cause)
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{401, pkgerrors.ErrUnauthorized},
		{403, pkgerrors.ErrRateLimited},
		{429, pkgerrors.ErrRateLimited},
		{404, pkgerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := pkgerrors.NewAPIError("github", tt.status, "boom")
			assert.ErrorIs(t, err, tt.target)
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
		})
	}

	t.Run("server error matches nothing", func(t *testing.T) {
		err := pkgerrors.NewAPIError("github", 502, "bad gateway")
		assert.False(t, pkgerrors.IsNotFound(err))
		assert.False(t, errors.Is(err, pkgerrors.ErrRateLimited))
	})

	t.Run("no status", func(t *testing.T) {
		err := &pkgerrors.APIError{Service: "github", Message: "eof"}
		assert.Equal(t, "API error from github: eof", err.Error())
	})
}

func TestAuthenticationError(t *testing.T) {
	err := &pkgerrors.AuthenticationError{Service: "github", Method: "token", Message: "token rejected"}
	assert.Equal(t, "authentication error for github (token): token rejected", err.Error())
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)
}

func TestNotFoundAndValidation(t *testing.T) {
	nf := pkgerrors.NewNotFoundError("dataset", "demo-data.json")
	assert.Equal(t, "dataset demo-data.json not found", nf.Error())
	assert.True(t, pkgerrors.IsNotFound(nf))

	v := pkgerrors.NewValidationError("tier", -1, "must not be negative")
	assert.Equal(t, "validation failed for field tier: must not be negative", v.Error())
	assert.ErrorIs(t, v, pkgerrors.ErrInvalidInput)
}

func TestWrapHelpers(t *testing.T) {
	require.NoError(t, pkgerrors.WrapIO("read", "x", nil))
	require.NoError(t, pkgerrors.WrapParse("json", "x", nil))

	ioErr := pkgerrors.WrapIO("write", "demo-data.json", os.ErrPermission)
	var typedIO *pkgerrors.IOError
	require.ErrorAs(t, ioErr, &typedIO)
	assert.Equal(t, "write", typedIO.Operation)
	assert.ErrorIs(t, ioErr, os.ErrPermission)

	parseErr := pkgerrors.WrapParse("json", "demo-data.json", errors.New("unexpected EOF"))
	assert.Equal(t, "parse error in json file demo-data.json: unexpected EOF", parseErr.Error())
}
