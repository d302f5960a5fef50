package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of pipeline event
type EventType string

const (
	EventExtractionCompleted EventType = "extraction_completed"
	EventProviderFailed      EventType = "provider_failed"
	EventSceneDescribed      EventType = "scene_described"
	EventTTSCacheHit         EventType = "tts_cache_hit"
	EventTTSGenerated        EventType = "tts_generated"
	EventTTSFallback         EventType = "tts_fallback"
	EventQueryRouted         EventType = "query_routed"
	EventQueryTranscribed    EventType = "query_transcribed"
	EventRequestCosted       EventType = "request_costed"
)

// Schema creates the events table. Safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS pipeline_events (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pipeline_events_session_idx ON pipeline_events (session_id, created_at);
`

// Logger provides async event logging to the database
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// EnsureSchema creates the events table if it does not exist.
func (l *Logger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.db == nil {
		return nil
	}
	_, err := l.db.Exec(ctx, Schema)
	return err
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, sessionID string, eventType EventType, data map[string]any) error {
	if l == nil || l.db == nil || sessionID == "" {
		return nil // Silently skip if no DB or session ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO pipeline_events (session_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, sessionID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(sessionID string, eventType EventType, data map[string]any) {
	if l == nil || l.db == nil || sessionID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, sessionID, eventType, data)
	}()
}

// Event is a stored pipeline event.
type Event struct {
	ID        int64
	SessionID string
	Type      EventType
	Data      map[string]any
	CreatedAt time.Time
}

// Recent returns the newest events of a session, newest first.
func (l *Logger) Recent(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := l.db.Query(ctx, `
		SELECT id, session_id, event_type, event_data, created_at
		FROM pipeline_events
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			evType  string
			rawData []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &evType, &rawData, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(evType)
		if len(rawData) > 0 {
			_ = json.Unmarshal(rawData, &e.Data)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
