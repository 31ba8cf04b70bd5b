package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Responses larger than this are truncated when captured for diagnostics.
const maxCapturedBody = 8 << 10

// StatusError reports a non-expected upstream status, carrying the status
// code and (truncated) response body for logging and handling. It matches
// errors.Is(err, ErrUnexpectedStatusCode).
type StatusError struct {
	API        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s: %s", e.API, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatusCode
}

// DecodeResponse decodes the HTTP response body into the provided type T.
// A status other than expectedStatus yields a StatusError with the upstream
// body attached.
func DecodeResponse[T any](
	ctx context.Context,
	apiName string,
	resp *http.Response,
	expectedStatus int,
) (*T, error) {
	if resp.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))

		return nil, &StatusError{
			API:        apiName,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var result T

	err := json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", apiName, err)
	}

	return &result, nil
}
