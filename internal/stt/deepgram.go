package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const deepgramWSURL = "wss://api.deepgram.com/v1/listen"

// chunkSize is how much recorded audio goes into one websocket frame.
const chunkSize = 8192

// DeepgramClient implements the Client interface using Deepgram's streaming API.
type DeepgramClient struct {
	conn      *websocket.Conn
	results   chan TranscriptResult
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	wg        sync.WaitGroup // Wait for readLoop to finish
}

// DeepgramConfig holds configuration for the Deepgram client.
type DeepgramConfig struct {
	APIKey     string
	URL        string // defaults to the public streaming endpoint
	Language   string // e.g., "en-IN"
	Model      string // e.g., "nova-2"
	SampleRate int    // raw audio only; 0 lets Deepgram read a container header
	Encoding   string // raw audio only, e.g. "linear16"
	Channels   int
	Punctuate  bool
}

// deepgramResponse represents a Deepgram WebSocket response.
type deepgramResponse struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Duration    float64 `json:"duration"`
}

func (cfg DeepgramConfig) endpoint() string {
	base := cfg.URL
	if base == "" {
		base = deepgramWSURL
	}
	q := url.Values{}
	if cfg.Model != "" {
		q.Set("model", cfg.Model)
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	if cfg.Encoding != "" {
		q.Set("encoding", cfg.Encoding)
	}
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}
	q.Set("punctuate", strconv.FormatBool(cfg.Punctuate))
	return base + "?" + q.Encode()
}

// NewDeepgramClient creates a new Deepgram streaming STT client.
func NewDeepgramClient(ctx context.Context, cfg DeepgramConfig) (*DeepgramClient, error) {
	// Set up headers with API key
	headers := http.Header{}
	headers.Set("Authorization", "Token "+cfg.APIKey)

	// Connect to Deepgram
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.endpoint(), headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram: %w", err)
	}

	client := &DeepgramClient{
		conn:    conn,
		results: make(chan TranscriptResult, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}

	// Start reading responses
	client.wg.Add(1)
	go client.readLoop()

	return client, nil
}

// StreamAudio sends audio data to Deepgram.
func (c *DeepgramClient) StreamAudio(ctx context.Context, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return fmt.Errorf("client is closed")
	default:
	}

	return c.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// Finish tells Deepgram no more audio follows. Remaining results and the closing
// metadata are still delivered on Results.
func (c *DeepgramClient) Finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "CloseStream"}`))
}

// Results returns the channel for receiving transcription results.
func (c *DeepgramClient) Results() <-chan TranscriptResult {
	return c.results
}

// Errors returns the channel for receiving errors.
func (c *DeepgramClient) Errors() <-chan error {
	return c.errors
}

// Close closes the Deepgram connection.
func (c *DeepgramClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		// Send close message to Deepgram
		c.mu.Lock()
		closeMsg := []byte(`{"type": "CloseStream"}`)
		_ = c.conn.WriteMessage(websocket.TextMessage, closeMsg)
		c.mu.Unlock()

		err = c.conn.Close()

		// Wait for readLoop to finish before closing channels
		c.wg.Wait()
		close(c.results)
		close(c.errors)
	})
	return err
}

// readLoop reads responses from Deepgram and sends them to the results channel.
func (c *DeepgramClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			case c.errors <- fmt.Errorf("read error: %w", err):
			default:
			}
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			log.Printf("deepgram: failed to parse response: %v", err)
			continue
		}

		var result TranscriptResult
		switch resp.Type {
		case "Results":
			if len(resp.Channel.Alternatives) > 0 {
				alt := resp.Channel.Alternatives[0]
				result.Text = alt.Transcript
				result.Confidence = alt.Confidence
			}
			result.IsFinal = resp.IsFinal
			result.SpeechFinal = resp.SpeechFinal
			if result.Text == "" && !result.IsFinal {
				continue
			}
		case "Metadata":
			result = TranscriptResult{Metadata: true, Duration: resp.Duration}
		default:
			continue
		}

		select {
		case <-c.done:
			return
		case c.results <- result:
		}
	}
}

// DeepgramTranscriber transcribes recorded clips over the streaming API.
type DeepgramTranscriber struct {
	cfg DeepgramConfig
}

// NewDeepgramTranscriber creates a transcriber. Language defaults to en-IN and model
// to nova-2.
func NewDeepgramTranscriber(cfg DeepgramConfig) *DeepgramTranscriber {
	if cfg.Language == "" {
		cfg.Language = "en-IN"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	cfg.Punctuate = true
	return &DeepgramTranscriber{cfg: cfg}
}

// Transcribe streams audio, then waits for the final segments and the closing
// metadata. ctx bounds the whole exchange.
func (t *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte) (Transcript, error) {
	if t.cfg.APIKey == "" {
		return Transcript{}, fmt.Errorf("DEEPGRAM_API_KEY not set")
	}
	if len(audio) == 0 {
		return Transcript{}, fmt.Errorf("empty audio")
	}

	client, err := NewDeepgramClient(ctx, t.cfg)
	if err != nil {
		return Transcript{}, err
	}
	defer client.Close()

	for off := 0; off < len(audio); off += chunkSize {
		end := min(off+chunkSize, len(audio))
		if err := client.StreamAudio(ctx, audio[off:end]); err != nil {
			return Transcript{}, fmt.Errorf("failed to stream audio: %w", err)
		}
	}
	if err := client.Finish(); err != nil {
		return Transcript{}, fmt.Errorf("failed to finish stream: %w", err)
	}

	var (
		parts    []string
		duration float64
	)
	collect := func(r TranscriptResult) bool {
		if r.Metadata {
			duration = r.Duration
			return true
		}
		if r.IsFinal && strings.TrimSpace(r.Text) != "" {
			parts = append(parts, strings.TrimSpace(r.Text))
		}
		return false
	}

loop:
	for {
		select {
		case r := <-client.Results():
			if collect(r) {
				break loop
			}
		case err := <-client.Errors():
			// The server closing the socket ends the stream; keep what was buffered.
			for {
				select {
				case r := <-client.Results():
					if collect(r) {
						break loop
					}
				default:
					var ce *websocket.CloseError
					normal := errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure
					if len(parts) == 0 && !normal {
						return Transcript{}, err
					}
					break loop
				}
			}
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		}
	}

	return Transcript{Text: strings.Join(parts, " "), DurationSeconds: duration}, nil
}
