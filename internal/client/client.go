// Package client talks to the relay server on behalf of a capture device.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second

	sessionHeader = "X-Session-Token"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts captures and questions to the server. The session token
// returned by the server is remembered and sent back on later requests.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

type ProcessResponse struct {
	Text        *string `json:"text"`
	Description string  `json:"description,omitempty"`
	Language    string  `json:"language"`
	AudioURL    string  `json:"audio_url"`
}

type QueryResponse struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer"`
	AudioURL string `json:"audio_url"`
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
	}
}

// Token returns the current session token, if any.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// NewSession asks the server for a private session.
func (c *Client) NewSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	var out struct {
		SessionToken string `json:"session_token"`
	}
	if err := c.do(req, &out); err != nil {
		return err
	}
	if out.SessionToken != "" {
		c.setToken(out.SessionToken)
	}
	return nil
}

// Process uploads a captured image. action is informational.
func (c *Client) Process(ctx context.Context, image []byte, action string) (ProcessResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return ProcessResponse{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return ProcessResponse{}, fmt.Errorf("failed to write image: %w", err)
	}
	if action != "" {
		if err := mw.WriteField("action", action); err != nil {
			return ProcessResponse{}, fmt.Errorf("failed to write action: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return ProcessResponse{}, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", &buf)
	if err != nil {
		return ProcessResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out ProcessResponse
	if err := c.do(req, &out); err != nil {
		return ProcessResponse{}, err
	}
	return out, nil
}

func (c *Client) Query(ctx context.Context, question string) (QueryResponse, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return QueryResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return QueryResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out QueryResponse
	if err := c.do(req, &out); err != nil {
		return QueryResponse{}, err
	}
	return out, nil
}

// QueryVoice sends a recorded question for server-side transcription.
func (c *Client) QueryVoice(ctx context.Context, audio []byte, contentType string) (QueryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/voice", bytes.NewReader(audio))
	if err != nil {
		return QueryResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	var out QueryResponse
	if err := c.do(req, &out); err != nil {
		return QueryResponse{}, err
	}
	return out, nil
}

// Download copies the audio at audioURL (as returned in audio_url) to w.
func (c *Client) Download(ctx context.Context, audioURL string, w io.Writer) error {
	url := audioURL
	if strings.HasPrefix(audioURL, "/") {
		url = c.baseURL + audioURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.applyToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	c.applyToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(sessionHeader); token != "" {
		c.setToken(token)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) applyToken(req *http.Request) {
	if token := c.Token(); token != "" {
		req.Header.Set(sessionHeader, token)
	}
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
