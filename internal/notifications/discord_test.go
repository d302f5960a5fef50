package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lukasbauer/samaksh/internal/lang"
)

func newWebhook(t *testing.T) (*httptest.Server, <-chan discordMessage) {
	t.Helper()
	got := make(chan discordMessage, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg discordMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		got <- msg
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func receive(t *testing.T, got <-chan discordMessage) discordMessage {
	t.Helper()
	select {
	case msg := <-got:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
		return discordMessage{}
	}
}

func TestDiscord_Disabled(t *testing.T) {
	d := NewDiscord("", log.New(io.Discard, "", 0))
	if d.Enabled() {
		t.Error("Enabled() = true for empty webhook")
	}
	// Should not panic or block
	d.NotifySynthesisExhausted(context.Background(), "text", lang.English, errors.New("boom"))
}

func TestDiscord_NotifySynthesisExhausted(t *testing.T) {
	srv, got := newWebhook(t)
	d := NewDiscord(srv.URL, log.New(io.Discard, "", 0))

	long := strings.Repeat("a", 500)
	d.NotifySynthesisExhausted(context.Background(), long, lang.Hindi, errors.New("quota exceeded"))

	msg := receive(t, got)
	if msg.Content != "@here" {
		t.Errorf("Content = %q", msg.Content)
	}
	if len(msg.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(msg.Embeds))
	}
	fields := msg.Embeds[0].Fields
	if fields[0].Value != "`hi`" {
		t.Errorf("language field = %q", fields[0].Value)
	}
	if !strings.Contains(fields[1].Value, "quota exceeded") {
		t.Errorf("error field = %q", fields[1].Value)
	}
	if n := len([]rune(fields[2].Value)); n != maxQuotedText+1 {
		t.Errorf("quoted text has %d runes, want %d", n, maxQuotedText+1)
	}
}

func TestDiscord_LongProviderErrorFitsEmbedField(t *testing.T) {
	srv, got := newWebhook(t)
	d := NewDiscord(srv.URL, log.New(io.Discard, "", 0))

	body := strings.Repeat(`{"detail":"voice_not_found"}`, 200)
	err := fmt.Errorf("ElevenLabs API error: 400 - %s", body)
	d.NotifySynthesisExhausted(context.Background(), "hello", lang.English, err)

	msg := receive(t, got)
	value := msg.Embeds[0].Fields[1].Value
	if n := len([]rune(value)); n > 1024 {
		t.Errorf("error field has %d runes, Discord accepts at most 1024", n)
	}
	if !strings.HasPrefix(value, "`ElevenLabs API error: 400") || !strings.HasSuffix(value, "…`") {
		t.Errorf("error field = %q, want truncated provider error", value)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"toolong", 3, "too…"},
		{"नमस्ते दुनिया", 6, "नमस्ते…"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestDiscord_AlertsAreRateLimited(t *testing.T) {
	srv, got := newWebhook(t)
	d := NewDiscord(srv.URL, log.New(io.Discard, "", 0))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	d.NotifySynthesisExhausted(context.Background(), "a", lang.English, errors.New("x"))
	receive(t, got)

	now = now.Add(time.Minute)
	d.NotifySynthesisExhausted(context.Background(), "b", lang.English, errors.New("x"))
	select {
	case <-got:
		t.Fatal("second alert inside the interval should be dropped")
	case <-time.After(100 * time.Millisecond):
	}

	now = now.Add(alertInterval)
	d.NotifySynthesisExhausted(context.Background(), "c", lang.English, errors.New("x"))
	receive(t, got)
}

func TestDiscord_NotifyStarted(t *testing.T) {
	srv, got := newWebhook(t)
	d := NewDiscord(srv.URL, log.New(io.Discard, "", 0))

	d.NotifyStarted(context.Background(), ":8080")
	msg := receive(t, got)
	if !strings.Contains(msg.Embeds[0].Description, ":8080") {
		t.Errorf("Description = %q", msg.Embeds[0].Description)
	}
}
