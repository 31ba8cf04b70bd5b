package httpclient_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimbridge/scimbridge/pkg/utils/httpclient"
)

func TestDecodeResponse(t *testing.T) {
	type Response struct {
		Message string `json:"message"`
	}

	tests := []struct {
		name           string
		statusCode     int
		responseBody   string
		expectedStatus int
		expectedResult *Response
		expectError    bool
		errorContains  string
	}{
		{
			name:           "Success",
			statusCode:     http.StatusOK,
			responseBody:   `{"message": "success"}`,
			expectedStatus: http.StatusOK,
			expectedResult: &Response{Message: "success"},
		},
		{
			name:           "Unexpected Status Code",
			statusCode:     http.StatusInternalServerError,
			responseBody:   `{"message": "error"}`,
			expectedStatus: http.StatusOK,
			expectError:    true,
			errorContains:  "500",
		},
		{
			name:           "Invalid JSON",
			statusCode:     http.StatusOK,
			responseBody:   `invalid-json`,
			expectedStatus: http.StatusOK,
			expectError:    true,
			errorContains:  "invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, err := w.Write([]byte(tt.responseBody))
				assert.NoError(t, err)
			}))
			defer server.Close()

			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)

			defer func() {
				assert.NoError(t, resp.Body.Close())
			}()

			result, err := httpclient.DecodeResponse[Response](t.Context(), "TestAPI", resp, tt.expectedStatus)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedResult, result)
			}
		})
	}
}

func TestDecodeResponseStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, err := w.Write([]byte(`{"detail":"tenant down"}`))
		assert.NoError(t, err)
	}))
	defer server.Close()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, resp.Body.Close())
	}()

	_, err = httpclient.DecodeResponse[struct{}](t.Context(), "TestAPI", resp, http.StatusOK)
	require.Error(t, err)

	// Status and body must be available for diagnostics.
	statusErr := &httpclient.StatusError{}
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, `{"detail":"tenant down"}`, statusErr.Body)

	assert.ErrorIs(t, err, httpclient.ErrUnexpectedStatusCode)
}
