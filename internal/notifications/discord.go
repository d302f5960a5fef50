package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/lukasbauer/samaksh/internal/lang"
)

// alertInterval is the minimum gap between two synthesis alerts. A provider outage
// fails every request, and one alert per outage window is enough.
const alertInterval = 5 * time.Minute

// maxQuotedText bounds how much of the failed text is quoted in an alert.
const maxQuotedText = 200

// maxErrorText keeps the error field, backticks included, under Discord's 1024
// character limit for embed field values. Longer payloads are rejected outright.
const maxErrorText = 1000

// Discord is a simple Discord webhook notifier.
type Discord struct {
	webhookURL string
	logger     *log.Logger
	client     *http.Client

	mu        sync.Mutex
	lastAlert time.Time
	now       func() time.Time
}

// NewDiscord creates a new Discord notifier. If webhookURL is empty,
// notifications are silently skipped.
func NewDiscord(webhookURL string, logger *log.Logger) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Enabled returns true if the webhook is configured.
func (d *Discord) Enabled() bool {
	return d.webhookURL != ""
}

// discordMessage is the payload for Discord webhook.
type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// send posts a message to Discord webhook asynchronously.
// Errors are logged but don't affect caller.
func (d *Discord) send(ctx context.Context, msg discordMessage) {
	if !d.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	go func() {
		body, err := json.Marshal(msg)
		if err != nil {
			d.logger.Printf("discord: failed to marshal message: %v", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewReader(body))
		if err != nil {
			d.logger.Printf("discord: failed to create request: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			d.logger.Printf("discord: failed to send webhook: %v", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			d.logger.Printf("discord: webhook returned status %d", resp.StatusCode)
		}
	}()
}

// allow reports whether an alert may be sent now and records it.
func (d *Discord) allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if !d.lastAlert.IsZero() && now.Sub(d.lastAlert) < alertInterval {
		return false
	}
	d.lastAlert = now
	return true
}

// NotifySynthesisExhausted sends an alert when every speech provider failed, so the
// user heard nothing. Alerts are rate limited.
func (d *Discord) NotifySynthesisExhausted(ctx context.Context, text string, language lang.Tag, err error) {
	if !d.Enabled() || !d.allow() {
		return
	}

	msg := discordMessage{
		Content: "@here", // Ping everyone
		Embeds: []discordEmbed{{
			Title:       "Speech synthesis unavailable",
			Description: "Every speech provider failed. Users are getting errors instead of audio.",
			Color:       0xFF0000, // Red
			Fields: []embedField{
				{Name: "Language", Value: fmt.Sprintf("`%s`", language), Inline: true},
				{Name: "Error", Value: fmt.Sprintf("`%s`", truncate(fmt.Sprint(err), maxErrorText))},
				{Name: "Text", Value: truncate(text, maxQuotedText)},
			},
			Timestamp: d.now().UTC().Format(time.RFC3339),
		}},
	}
	d.send(ctx, msg)
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(append(r[:n], '…'))
}

// NotifyStarted sends an informational message when the server starts.
func (d *Discord) NotifyStarted(ctx context.Context, addr string) {
	msg := discordMessage{
		Embeds: []discordEmbed{{
			Title:       "Server started",
			Description: fmt.Sprintf("Listening on `%s`", addr),
			Color:       0x00FF00, // Green
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	}
	d.send(ctx, msg)
}
