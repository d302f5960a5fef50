package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/samaksh/internal/assistant"
	"github.com/lukasbauer/samaksh/internal/eventlog"
	"github.com/lukasbauer/samaksh/internal/metrics"
	"github.com/lukasbauer/samaksh/internal/session"
)

type RouterConfig struct {
	// Upload limits
	MaxImageBytes int64
	MaxAudioBytes int64
}

// Assistant runs the capture and question flows.
type Assistant interface {
	Process(ctx context.Context, sess *session.Context, image []byte) (assistant.ProcessResult, error)
	Query(ctx context.Context, sess *session.Context, question string) (assistant.QueryResult, error)
	QueryAudio(ctx context.Context, sess *session.Context, audio []byte) (assistant.QueryResult, error)
}

// AudioFiles opens cached speech by filename.
type AudioFiles interface {
	Open(filename string) (*os.File, error)
}

// Deps are the collaborators a Router serves from. EventLog may be nil.
type Deps struct {
	Assistant Assistant
	Sessions  *session.Store
	Tokens    *session.TokenIssuer
	Audio     AudioFiles
	EventLog  *eventlog.Logger
	Drainer   *Drainer
}

type Router struct {
	cfg       RouterConfig
	logger    *log.Logger
	assistant Assistant
	sessions  *session.Store
	tokens    *session.TokenIssuer
	audio     AudioFiles
	eventLog  *eventlog.Logger
	drainer   *Drainer
	mux       *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, deps Deps) http.Handler {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 5 << 20
	}
	drainer := deps.Drainer
	if drainer == nil {
		drainer = NewDrainer()
	}

	r := &Router{
		cfg:       cfg,
		logger:    logger,
		assistant: deps.Assistant,
		sessions:  deps.Sessions,
		tokens:    deps.Tokens,
		audio:     deps.Audio,
		eventLog:  deps.EventLog,
		drainer:   drainer,
		mux:       http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health checks
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)
	r.mux.Handle("GET /metrics", metrics.Handler())

	// Capture and questions (provider-backed, rejected while draining)
	r.mux.HandleFunc("POST /process", r.admitted(r.handleProcess))
	r.mux.HandleFunc("POST /query", r.admitted(r.handleQuery))
	r.mux.HandleFunc("POST /query/voice", r.admitted(r.handleQueryVoice))

	// Cached speech
	r.mux.HandleFunc("GET /audio/{filename}", r.handleAudio)

	// Sessions
	r.mux.HandleFunc("POST /session", r.handleNewSession)
	r.mux.HandleFunc("GET /session/events", r.handleSessionEvents)
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,"+sessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", sessionHeader)
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
