package vision

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiExtractPrompt = "Extract all text from this image. If there's no text, say '" + noTextMarker +
	"'. Return only the extracted text, nothing else."

// GeminiExtractor reads text with a Gemini vision model.
type GeminiExtractor struct {
	apiKey string
	model  string
}

// NewGeminiExtractor creates a Gemini text extractor.
func NewGeminiExtractor(apiKey, model string) *GeminiExtractor {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiExtractor{apiKey: strings.TrimSpace(apiKey), model: model}
}

func (g *GeminiExtractor) Name() string { return "gemini" }

// ExtractText implements TextExtractor.
func (g *GeminiExtractor) ExtractText(ctx context.Context, image []byte) Result {
	if g.apiKey == "" {
		return Result{Outcome: OutcomeUnavailable, Err: errors.New("GEMINI_API_KEY is empty")}
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return failure(err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	m.SetTemperature(0)

	resp, err := m.GenerateContent(ctx,
		genai.Text(geminiExtractPrompt),
		genai.Blob{MIMEType: sniffMIME(image), Data: image},
	)
	if err != nil {
		return failure(err)
	}
	return textResult(firstText(resp))
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
