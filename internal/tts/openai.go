package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lukasbauer/samaksh/internal/lang"
)

const openAISpeechURL = "https://api.openai.com/v1/audio/speech"

// OpenAIClient synthesizes speech with OpenAI's audio/speech endpoint. It is the last
// provider in the synthesis chain.
type OpenAIClient struct {
	apiKey     string
	model      string
	voice      string
	url        string
	httpClient *http.Client
}

// OpenAIConfig holds configuration for the OpenAI speech client.
type OpenAIConfig struct {
	APIKey     string
	Model      string // e.g., "tts-1"
	Voice      string // e.g., "alloy"
	URL        string
	HTTPClient *http.Client
}

// NewOpenAIClient creates a new OpenAI speech client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = "tts-1"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}
	url := cfg.URL
	if url == "" {
		url = openAISpeechURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		model:      model,
		voice:      voice,
		url:        url,
		httpClient: httpClient,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize converts text to speech and returns MP3 audio. The model infers the
// language from the input, so language is not sent.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string, _ lang.Tag) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OpenAI speech API error: %s - %s", resp.Status, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("OpenAI speech returned empty audio")
	}
	return audio, nil
}
