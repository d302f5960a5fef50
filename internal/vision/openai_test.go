package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newVisionServer(t *testing.T, status int, reply string, seen *visionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"rate limited"}}`, status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIVision_ExtractText(t *testing.T) {
	var seen visionRequest
	srv := newVisionServer(t, http.StatusOK, "Platform 4 departs at 10:15", &seen)
	c := NewOpenAIVision(OpenAIVisionConfig{APIKey: "test-key", URL: srv.URL})

	res := c.ExtractText(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0})

	if res.Outcome != OutcomeOK || res.Text != "Platform 4 departs at 10:15" {
		t.Fatalf("ExtractText() = %+v", res)
	}
	if seen.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", seen.Model)
	}
	if seen.MaxTokens != 500 {
		t.Errorf("max_tokens = %d, want 500", seen.MaxTokens)
	}
	if len(seen.Messages) != 1 || len(seen.Messages[0].Content) != 2 {
		t.Fatalf("unexpected message shape: %+v", seen.Messages)
	}
	img := seen.Messages[0].Content[1].ImageURL
	if img == nil || !strings.HasPrefix(img.URL, "data:image/jpeg;base64,") {
		t.Errorf("image_url = %+v, want jpeg data URL", img)
	}
}

func TestOpenAIVision_NoTextMarker(t *testing.T) {
	srv := newVisionServer(t, http.StatusOK, "NO_TEXT_FOUND", nil)
	c := NewOpenAIVision(OpenAIVisionConfig{APIKey: "test-key", URL: srv.URL})

	if res := c.ExtractText(context.Background(), []byte("img")); res.Outcome != OutcomeNoContent {
		t.Errorf("outcome = %s, want no_content", res.Outcome)
	}
}

func TestOpenAIVision_APIErrorIsUnavailable(t *testing.T) {
	srv := newVisionServer(t, http.StatusTooManyRequests, "", nil)
	c := NewOpenAIVision(OpenAIVisionConfig{APIKey: "test-key", URL: srv.URL})

	res := c.ExtractText(context.Background(), []byte("img"))
	if res.Outcome != OutcomeUnavailable || res.Err == nil {
		t.Errorf("ExtractText() = %+v, want unavailable with error", res)
	}
}

func TestOpenAIVision_MissingKey(t *testing.T) {
	c := NewOpenAIVision(OpenAIVisionConfig{})
	if res := c.DescribeScene(context.Background(), []byte("img")); res.Outcome != OutcomeUnavailable {
		t.Errorf("outcome = %s, want unavailable", res.Outcome)
	}
}

func TestOpenAIVision_DescribeScene(t *testing.T) {
	var seen visionRequest
	srv := newVisionServer(t, http.StatusOK, "A chair on the left.", &seen)
	c := NewOpenAIVision(OpenAIVisionConfig{APIKey: "test-key", URL: srv.URL})

	res := c.DescribeScene(context.Background(), []byte("img"))
	if res.Outcome != OutcomeOK || res.Text != "A chair on the left." {
		t.Fatalf("DescribeScene() = %+v", res)
	}
	if seen.MaxTokens != 300 {
		t.Errorf("max_tokens = %d, want 300", seen.MaxTokens)
	}
}
