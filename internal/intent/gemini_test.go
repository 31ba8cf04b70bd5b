package intent_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimbridge/scimbridge/internal/intent"
	"github.com/scimbridge/scimbridge/pkg/clients/scim"
	"github.com/scimbridge/scimbridge/pkg/config"
	"github.com/scimbridge/scimbridge/pkg/utils/httpclient"
)

// fakeGemini serves every generateContent call with the configured candidate
// text, or a failure status when one is set.
type fakeGemini struct {
	t *testing.T

	candidateText string
	failStatus    int

	gotPath   string
	gotAPIKey string
	gotPrompt string
}

func (f *fakeGemini) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.gotPath = r.URL.Path
		f.gotAPIKey = r.Header.Get("x-goog-api-key")

		request := map[string]any{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&request))
		f.gotPrompt, _ = request["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)

		if f.failStatus != 0 {
			w.WriteHeader(f.failStatus)
			fmt.Fprint(w, `{"error":{"message":"quota exceeded"}}`)

			return
		}

		response := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": f.candidateText}},
				},
			}},
		}
		require.NoError(f.t, json.NewEncoder(w).Encode(response))
	})
}

func newExtractor(t *testing.T, fake *fakeGemini) *intent.GeminiExtractor {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	extractor, err := intent.NewGeminiExtractor(config.Gemini{
		APIKey: commoncfg.SourceRef{
			Source: commoncfg.EmbeddedSourceValue,
			Value:  "test-key",
		},
		Endpoint: server.URL,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return extractor
}

// A missing API key must not fail construction; the service keeps serving
// the endpoints that never reach the model, and only extraction calls fail.
func TestMissingAPIKeyFailsAtCallTime(t *testing.T) {
	extractor, err := intent.NewGeminiExtractor(config.Gemini{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = extractor.ExtractIntent(t.Context(), "add john to developers")
	assert.ErrorIs(t, err, intent.ErrNoAPIKey)

	_, err = extractor.ExtractUserAttributes(t.Context(), "create carol")
	assert.ErrorIs(t, err, intent.ErrNoAPIKey)
}

func TestUnresolvableAPIKeyReference(t *testing.T) {
	_, err := intent.NewGeminiExtractor(config.Gemini{
		APIKey: commoncfg.SourceRef{
			Source: commoncfg.FileSourceValue,
			File: commoncfg.CredentialFile{
				Path:   "no_such_key_file",
				Format: commoncfg.BinaryFileFormat,
			},
		},
	}, slog.New(slog.DiscardHandler))

	assert.ErrorIs(t, err, intent.ErrLoadAPIKey)
}

func TestExtractIntent(t *testing.T) {
	tests := []struct {
		name          string
		candidateText string
		want          *intent.Extraction
	}{
		{
			name:          "Plain JSON",
			candidateText: `{"intent":"assign","email":"john@example.com","groups":["Developers","Admins"]}`,
			want: &intent.Extraction{
				Intent: "assign",
				Email:  "john@example.com",
				Groups: []string{"Developers", "Admins"},
			},
		},
		{
			name: "Fenced JSON",
			candidateText: "```json\n" +
				`{"intent":"revoke","email":"jane@example.com","groups":["Admins"]}` +
				"\n```",
			want: &intent.Extraction{
				Intent: "revoke",
				Email:  "jane@example.com",
				Groups: []string{"Admins"},
			},
		},
		{
			name:          "Unparseable output yields empty extraction",
			candidateText: "Sorry, I cannot help with that.",
			want:          &intent.Extraction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGemini{t: t, candidateText: tt.candidateText}
			extractor := newExtractor(t, fake)

			got, err := extractor.ExtractIntent(t.Context(), "add john to developers and admins")
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, "/models/gemini-2.0-flash:generateContent", fake.gotPath)
			assert.Equal(t, "test-key", fake.gotAPIKey)
			assert.Contains(t, fake.gotPrompt, "add john to developers and admins")
		})
	}
}

func TestExtractIntentUpstreamFailure(t *testing.T) {
	fake := &fakeGemini{t: t, failStatus: http.StatusTooManyRequests}
	extractor := newExtractor(t, fake)

	_, err := extractor.ExtractIntent(t.Context(), "add john to developers")

	assert.ErrorIs(t, err, intent.ErrGenerate)
	assert.ErrorIs(t, err, httpclient.ErrUnexpectedStatusCode)

	statusErr := &httpclient.StatusError{}
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "quota exceeded")
}

func TestExtractUserAttributes(t *testing.T) {
	t.Run("Flat attribute bag", func(t *testing.T) {
		fake := &fakeGemini{
			t:             t,
			candidateText: "```json\n{\"userName\":\"carol\",\"email\":\"carol@example.com\",\"active\":true}\n```",
		}
		extractor := newExtractor(t, fake)

		attrs, err := extractor.ExtractUserAttributes(t.Context(), "create carol with email carol@example.com")
		require.NoError(t, err)

		assert.Equal(t, scim.UserAttributes{
			"userName": "carol",
			"email":    "carol@example.com",
			"active":   true,
		}, attrs)
	})

	t.Run("Unparseable output yields nil bag", func(t *testing.T) {
		fake := &fakeGemini{t: t, candidateText: "no user mentioned"}
		extractor := newExtractor(t, fake)

		attrs, err := extractor.ExtractUserAttributes(t.Context(), "what is the weather")
		require.NoError(t, err)
		assert.Nil(t, attrs)
	})
}

func TestExtractionEmpty(t *testing.T) {
	tests := []struct {
		name       string
		extraction *intent.Extraction
		want       bool
	}{
		{name: "Nil", extraction: nil, want: true},
		{name: "Zero value", extraction: &intent.Extraction{}, want: true},
		{name: "Missing groups", extraction: &intent.Extraction{Intent: "assign", Email: "a@b.com"}, want: true},
		{
			name:       "Complete",
			extraction: &intent.Extraction{Intent: "assign", Email: "a@b.com", Groups: []string{"G"}},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.extraction.Empty())
		})
	}
}
