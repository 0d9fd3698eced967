package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/glowdesk/concierge/internal/business"
)

// GeminiExtractor classifies messages with Google's Gemini API.
type GeminiExtractor struct {
	client  *genai.Client
	modelID string
	prompt  string
}

// NewGeminiExtractor creates a Gemini-backed extractor. The system prompt is
// rendered once from the business configuration.
func NewGeminiExtractor(ctx context.Context, apiKey, modelID string, biz *business.Config) (*GeminiExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("intent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("intent: create gemini client: %w", err)
	}

	return &GeminiExtractor{
		client:  client,
		modelID: modelID,
		prompt:  buildSystemPrompt(biz),
	}, nil
}

// Extract classifies one user message.
func (g *GeminiExtractor) Extract(ctx context.Context, userText string) (Extraction, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(g.prompt))

	resp, err := model.GenerateContent(ctx, genai.Text(userText))
	if err != nil {
		return Extraction{}, fmt.Errorf("intent: gemini completion: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return Extraction{}, ErrUnparsable
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Extraction{}, ErrUnparsable
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}

	return decodeExtraction(out.String())
}

// Close releases the underlying client.
func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
