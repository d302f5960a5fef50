package eventlog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestEventTypeConstants(t *testing.T) {
	expectedEvents := map[EventType]string{
		EventExtractionCompleted: "extraction_completed",
		EventProviderFailed:      "provider_failed",
		EventSceneDescribed:      "scene_described",
		EventTTSCacheHit:         "tts_cache_hit",
		EventTTSGenerated:        "tts_generated",
		EventTTSFallback:         "tts_fallback",
		EventQueryRouted:         "query_routed",
		EventQueryTranscribed:    "query_transcribed",
		EventRequestCosted:       "request_costed",
	}

	for eventType, expectedValue := range expectedEvents {
		if string(eventType) != expectedValue {
			t.Errorf("EventType %q = %q, want %q", expectedValue, string(eventType), expectedValue)
		}
	}
}

func TestLoggerNew(t *testing.T) {
	logger := New(nil)
	if logger == nil {
		t.Error("New(nil) should return a non-nil logger")
	}
}

func TestLoggerWithNilDB(t *testing.T) {
	logger := New(nil)

	// Should not panic
	logger.LogAsync("session-1", EventQueryRouted, map[string]any{"route": "scene"})

	if err := logger.Log(context.Background(), "session-1", EventQueryRouted, nil); err != nil {
		t.Errorf("Log with nil DB should return nil error, got %v", err)
	}
	if err := logger.EnsureSchema(context.Background()); err != nil {
		t.Errorf("EnsureSchema with nil DB should return nil error, got %v", err)
	}
	events, err := logger.Recent(context.Background(), "session-1", 10)
	if err != nil || events != nil {
		t.Errorf("Recent with nil DB = (%v, %v), want (nil, nil)", events, err)
	}
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	logger.LogAsync("session-1", EventTTSCacheHit, nil)
	if err := logger.Log(context.Background(), "session-1", EventTTSCacheHit, nil); err != nil {
		t.Errorf("Log on nil logger = %v", err)
	}
}

func TestLoggerLogWithEmptySessionID(t *testing.T) {
	logger := New(nil)

	err := logger.Log(context.Background(), "", EventExtractionCompleted, map[string]any{
		"provider": "gemini",
	})

	if err != nil {
		t.Errorf("Log with empty session ID should return nil error, got %v", err)
	}
}

func TestLoggerRoundTrip(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	defer pool.Close()

	logger := New(pool)
	if err := logger.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	sessionID := "test-" + time.Now().Format("20060102150405.000000000")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM pipeline_events WHERE session_id = $1`, sessionID)
	})

	if err := logger.Log(ctx, sessionID, EventExtractionCompleted, map[string]any{"provider": "gemini"}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := logger.Log(ctx, sessionID, EventQueryRouted, map[string]any{"route": "context"}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	events, err := logger.Recent(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Recent() returned %d events, want 2", len(events))
	}
	if events[0].Type != EventQueryRouted {
		t.Errorf("newest event = %q, want %q", events[0].Type, EventQueryRouted)
	}
	if events[0].Data["route"] != "context" {
		t.Errorf("event data = %v", events[0].Data)
	}
}
