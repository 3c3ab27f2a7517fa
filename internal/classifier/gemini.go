package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vouch/testimonials/internal/moderation"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const geminiPrompt = `You are a content moderator for customer testimonials.
Classify the testimonial below. Respond with JSON only, in the form
{"flagged": <bool>, "categories": [<string>, ...]}.
Use these category names where they apply: hate, hate/threatening,
harassment, harassment/threatening, sexual, sexual/minors, self-harm,
self-harm/intent, self-harm/instructions, violence, violence/graphic,
illicit, illicit/violent, spam.

Testimonial:
%s`

// Gemini classifies text by prompting a Gemini model for a JSON verdict.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini connects to the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("classifier: gemini: new client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Classify asks the model for a verdict on text.
func (g *Gemini) Classify(ctx context.Context, text string) (*moderation.AIVerdict, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(geminiPrompt, text)))
	if err != nil {
		return nil, fmt.Errorf("classifier: gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return parseVerdict(b.String())
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// parseVerdict decodes a model reply, tolerating a markdown code fence
// around the JSON. An empty reply means no opinion.
func parseVerdict(reply string) (*moderation.AIVerdict, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, nil
	}

	var verdict moderation.AIVerdict
	if err := json.Unmarshal([]byte(reply), &verdict); err != nil {
		return nil, fmt.Errorf("classifier: gemini: decode verdict: %w", err)
	}
	cats := verdict.Categories[:0]
	for _, c := range verdict.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cats = append(cats, c)
		}
	}
	verdict.Categories = cats
	return &verdict, nil
}
