package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/errors"
	"github.com/agentstation/demorefresh/pkg/logging"
)

// ReadBody reads and closes a response body. Non-200 responses become an
// *errors.APIError for service; bodies larger than constants.MaxContentBytes
// are rejected.
func ReadBody(service string, resp *http.Response) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxContentBytes+1))
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.String()
		}
		return nil, &errors.APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Endpoint:   endpoint,
		}
	}

	if len(body) > constants.MaxContentBytes {
		return nil, &errors.ValidationError{
			Field:   "body",
			Value:   len(body),
			Message: fmt.Sprintf("exceeds %d bytes", constants.MaxContentBytes),
		}
	}

	return body, nil
}

// DecodeResponse decodes a JSON response into the target structure.
func DecodeResponse(service string, resp *http.Response, target any) error {
	body, err := ReadBody(service, resp)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}
