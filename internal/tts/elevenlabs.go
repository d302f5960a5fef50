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

const elevenLabsAPIURL = "https://api.elevenlabs.io/v1/text-to-speech"

const (
	defaultEnglishVoice = "pNInz6obpgDQGcFmaJgB" // Adam
	defaultOtherVoice   = "EXAVITQu4vr4xnSDxMaL" // Sarah, multilingual
)

// ElevenLabsClient implements the Client interface using ElevenLabs' API.
type ElevenLabsClient struct {
	apiKey       string
	englishVoice string
	otherVoice   string
	modelID      string
	stability    float64
	similarity   float64
	baseURL      string
	httpClient   *http.Client
}

// ElevenLabsConfig holds configuration for the ElevenLabs client.
type ElevenLabsConfig struct {
	APIKey       string
	EnglishVoice string  // voice used for "en"
	OtherVoice   string  // voice used for every other language
	ModelID      string  // e.g., "eleven_multilingual_v2"
	Stability    float64 // 0.0-1.0, negative means default
	Similarity   float64 // 0.0-1.0, negative means default
	BaseURL      string
	HTTPClient   *http.Client
}

// NewElevenLabsClient creates a new ElevenLabs client.
func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "eleven_multilingual_v2" // Covers Hindi
	}
	englishVoice := cfg.EnglishVoice
	if englishVoice == "" {
		englishVoice = defaultEnglishVoice
	}
	otherVoice := cfg.OtherVoice
	if otherVoice == "" {
		otherVoice = defaultOtherVoice
	}
	stability := cfg.Stability
	if stability < 0 {
		stability = 0.5
	}
	similarity := cfg.Similarity
	if similarity < 0 {
		similarity = 0.75
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ElevenLabsClient{
		apiKey:       cfg.APIKey,
		englishVoice: englishVoice,
		otherVoice:   otherVoice,
		modelID:      modelID,
		stability:    stability,
		similarity:   similarity,
		baseURL:      baseURL,
		httpClient:   httpClient,
	}
}

func (c *ElevenLabsClient) Name() string { return "elevenlabs" }

// ttsRequest represents an ElevenLabs TTS request.
type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (c *ElevenLabsClient) voiceFor(language lang.Tag) string {
	if language == lang.English {
		return c.englishVoice
	}
	return c.otherVoice
}

// Synthesize converts text to speech and returns MP3 audio.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, language lang.Tag) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY not set")
	}
	url := fmt.Sprintf("%s/%s?output_format=mp3_44100_128", c.baseURL, c.voiceFor(language))

	req := ttsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       c.stability,
			SimilarityBoost: c.similarity,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs API error: %s - %s", resp.Status, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}
	return audio, nil
}
