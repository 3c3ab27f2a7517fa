// Package classifier provides AI moderation adapters for the decision
// engine. Each adapter satisfies moderation.Classifier; a nil verdict with a
// nil error means the provider had no opinion.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/vouch/testimonials/internal/moderation"
)

// OpenAI defaults.
const (
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/moderations"
	DefaultOpenAIModel    = "omni-moderation-latest"
)

// OpenAI classifies text with the OpenAI moderations endpoint.
type OpenAI struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// OpenAIOption configures an OpenAI classifier.
type OpenAIOption func(*OpenAI)

// WithEndpoint overrides the moderations URL.
func WithEndpoint(url string) OpenAIOption {
	return func(o *OpenAI) { o.endpoint = url }
}

// WithModel overrides the moderation model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// NewOpenAI returns a classifier authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		apiKey:   apiKey,
		endpoint: DefaultOpenAIEndpoint,
		model:    DefaultOpenAIModel,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type openAIRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Classify sends text to the moderations endpoint. Categories are returned
// sorted so verdicts are stable across calls.
func (o *OpenAI) Classify(ctx context.Context, text string) (*moderation.AIVerdict, error) {
	body, err := json.Marshal(openAIRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("classifier: openai: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classifier: openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier: openai: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("classifier: openai: decode: %w", err)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}

	result := decoded.Results[0]
	verdict := &moderation.AIVerdict{Flagged: result.Flagged, Categories: []string{}}
	for name, hit := range result.Categories {
		if hit {
			verdict.Categories = append(verdict.Categories, name)
		}
	}
	sort.Strings(verdict.Categories)
	return verdict, nil
}
