package httpapi

import (
	"net/http"
	"strconv"

	"github.com/lukasbauer/samaksh/internal/session"
)

// sessionHeader carries the signed session token in both directions.
const sessionHeader = "X-Session-Token"

// session resolves the request's session. Requests without a valid token share the
// default session. The token is echoed back, re-signed, so active clients never
// see it expire.
func (r *Router) session(w http.ResponseWriter, req *http.Request) *session.Context {
	id := session.DefaultID
	if token := req.Header.Get(sessionHeader); token != "" && r.tokens != nil {
		parsed, err := r.tokens.Parse(token)
		if err != nil {
			r.logger.Printf("session: rejected token: %v", err)
		} else {
			id = parsed
		}
	}

	sess := r.sessions.Get(id)
	if r.tokens != nil {
		if token, err := r.tokens.Issue(id); err == nil {
			w.Header().Set(sessionHeader, token)
		}
	}
	return sess
}

type sessionResponse struct {
	SessionToken string `json:"session_token"`
}

// handleNewSession starts a private session for a client.
func (r *Router) handleNewSession(w http.ResponseWriter, req *http.Request) {
	if r.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions are not configured")
		return
	}
	id := session.NewID()
	token, err := r.tokens.Issue(id)
	if err != nil {
		r.logger.Printf("session: issue token: %v", err)
		captureError(req, err, "issue session token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	r.sessions.Get(id)

	w.Header().Set(sessionHeader, token)
	writeJSON(w, http.StatusCreated, sessionResponse{SessionToken: token})
}

type eventResponse struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// handleSessionEvents lists the newest pipeline events of the caller's session.
func (r *Router) handleSessionEvents(w http.ResponseWriter, req *http.Request) {
	sess := r.session(w, req)

	limit := 50
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := r.eventLog.Recent(req.Context(), sess.ID(), limit)
	if err != nil {
		r.logger.Printf("session: list events: %v", err)
		captureError(req, err, "list session events")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			Type:      string(e.Type),
			Data:      e.Data,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
