package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

const (
	openAIExtractPrompt = "Extract all visible text from this image. If no text is found, respond with only '" +
		noTextMarker + "'. Return only the extracted text."
	openAIScenePrompt = "Describe this scene for a visually impaired person. Focus on: objects, their locations " +
		"(left/right/center), people if any, and spatial layout. Be concise and clear."
)

// OpenAIVision implements both TextExtractor and SceneProvider against the chat
// completions API.
type OpenAIVision struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// OpenAIVisionConfig holds configuration for the OpenAI vision client.
type OpenAIVisionConfig struct {
	APIKey     string
	Model      string // e.g., "gpt-4o-mini"
	URL        string // Optional, defaults to the public chat completions endpoint
	HTTPClient *http.Client
}

// NewOpenAIVision creates a new OpenAI vision client.
func NewOpenAIVision(cfg OpenAIVisionConfig) *OpenAIVision {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	url := cfg.URL
	if url == "" {
		url = defaultOpenAIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIVision{
		apiKey:     cfg.APIKey,
		model:      model,
		url:        url,
		httpClient: httpClient,
	}
}

func (c *OpenAIVision) Name() string { return "openai" }

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractText implements TextExtractor.
func (c *OpenAIVision) ExtractText(ctx context.Context, image []byte) Result {
	content, err := c.complete(ctx, openAIExtractPrompt, image, 500)
	if err != nil {
		return failure(err)
	}
	return textResult(content)
}

// DescribeScene implements SceneProvider.
func (c *OpenAIVision) DescribeScene(ctx context.Context, image []byte) Result {
	content, err := c.complete(ctx, openAIScenePrompt, image, 300)
	if err != nil {
		return failure(err)
	}
	content = stripCodeFences(content)
	if content == "" {
		return Result{Outcome: OutcomeNoContent}
	}
	return Result{Text: content, Outcome: OutcomeOK}
}

func (c *OpenAIVision) complete(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	dataURL := "data:" + sniffMIME(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	req := visionRequest{
		Model: c.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		MaxTokens: maxTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API error: %s - %s", resp.Status, string(respBody))
	}

	var out visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
