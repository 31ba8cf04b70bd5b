// Package intent extracts structured provisioning intent from free-form chat
// text via a Gemini generateContent call. Model output that cannot be parsed
// yields an empty extraction, not an error; callers must tolerate empty
// results.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/tidwall/gjson"

	"github.com/scimbridge/scimbridge/pkg/clients/scim"
	"github.com/scimbridge/scimbridge/pkg/config"
	"github.com/scimbridge/scimbridge/pkg/utils/errs"
	"github.com/scimbridge/scimbridge/pkg/utils/httpclient"
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel    = "gemini-2.0-flash"

	headerAPIKey = "x-goog-api-key"

	// Path to the generated text inside a generateContent response.
	candidateTextPath = "candidates.0.content.parts.0.text"
)

var (
	ErrNoAPIKey   = errors.New("gemini API key is not configured")
	ErrLoadAPIKey = errors.New("failed to load the Gemini API key")
	ErrGenerate   = errors.New("error calling Gemini generateContent")
)

const intentPrompt = `Extract the following from this input:
- intent (assign or revoke),
- email
- list of groups

Respond in JSON:
{
  "intent": "assign",
  "email": "john@example.com",
  "groups": ["Developers", "Admins"]
}

Input: "%s"`

const attributesPrompt = `Extract the SCIM user attributes mentioned in this input
(userName, email, name fields, phoneNumbers, displayName, active, ...).

Respond with a single flat JSON object holding only the attributes that are
actually present in the input. Respond with null if the input describes no user.

Input: "%s"`

// Extraction is the structured result of intent extraction. Zero values mean
// the model could not extract enough information.
type Extraction struct {
	Intent string   `json:"intent"`
	Email  string   `json:"email"`
	Groups []string `json:"groups"`
}

// Empty reports whether the extraction carries too little to act on.
func (e *Extraction) Empty() bool {
	return e == nil || e.Intent == "" || e.Email == "" || len(e.Groups) == 0
}

// Extractor turns free-form text into provisioning inputs.
type Extractor interface {
	ExtractIntent(ctx context.Context, text string) (*Extraction, error)
	ExtractUserAttributes(ctx context.Context, text string) (scim.UserAttributes, error)
}

type GeminiExtractor struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	logger     *slog.Logger
}

var _ Extractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor resolves the API key reference when one is configured.
// An absent key is not a construction error; extraction calls fail instead,
// so the service can still serve the endpoints that never reach the model.
func NewGeminiExtractor(cfg config.Gemini, logger *slog.Logger) (*GeminiExtractor, error) {
	var apiKey string

	if cfg.APIKey.Source != "" {
		key, err := commoncfg.LoadValueFromSourceRef(cfg.APIKey)
		if err != nil {
			return nil, errs.Wrap(ErrLoadAPIKey, err)
		}

		apiKey = string(key)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &GeminiExtractor{
		httpClient: &http.Client{},
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		model:      model,
		apiKey:     apiKey,
		logger:     logger,
	}, nil
}

// ExtractIntent extracts {intent, email, groups} from text.
func (g *GeminiExtractor) ExtractIntent(ctx context.Context, text string) (*Extraction, error) {
	raw, err := g.generate(ctx, fmt.Sprintf(intentPrompt, text))
	if err != nil {
		return nil, err
	}

	extraction := Extraction{}

	err = json.Unmarshal([]byte(stripFences(raw)), &extraction)
	if err != nil {
		g.logger.Warn("failed to parse model output as intent", "error", err)
		return &Extraction{}, nil
	}

	return &extraction, nil
}

// ExtractUserAttributes extracts a user attribute bag from text. Returns nil
// when the model found no user.
func (g *GeminiExtractor) ExtractUserAttributes(ctx context.Context, text string) (scim.UserAttributes, error) {
	raw, err := g.generate(ctx, fmt.Sprintf(attributesPrompt, text))
	if err != nil {
		return nil, err
	}

	attrs := scim.UserAttributes{}

	err = json.Unmarshal([]byte(stripFences(raw)), &attrs)
	if err != nil {
		g.logger.Warn("failed to parse model output as user attributes", "error", err)
		return nil, nil
	}

	return attrs, nil
}

// generate posts one prompt and returns the first candidate's text.
func (g *GeminiExtractor) generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: %w", ErrGenerate, ErrNoAPIKey)
	}

	request := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Error("failed to close Gemini response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w", ErrGenerate, &httpclient.StatusError{
			API:        "Gemini",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		})
	}

	return gjson.GetBytes(respBody, candidateTextPath).String(), nil
}

// stripFences removes markdown code fences the model wraps JSON in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}
