package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lukasbauer/samaksh/internal/assistant"
	"github.com/lukasbauer/samaksh/internal/audiocache"
	"github.com/lukasbauer/samaksh/internal/lang"
)

const maxQueryBodyBytes = 64 << 10

type processResponse struct {
	Text        *string  `json:"text"`
	Description string   `json:"description,omitempty"`
	Language    lang.Tag `json:"language"`
	AudioURL    string   `json:"audio_url"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer"`
	AudioURL string `json:"audio_url"`
}

func (r *Router) handleProcess(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxImageBytes)

	file, _, err := req.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read image")
		return
	}

	sess := r.session(w, req)
	res, err := r.assistant.Process(req.Context(), sess, image)
	if err != nil {
		r.fail(w, req, err, "process")
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Text:        res.Text,
		Description: res.Description,
		Language:    res.Language,
		AudioURL:    res.Audio.URL(),
	})
}

func (r *Router) handleQuery(w http.ResponseWriter, req *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(io.LimitReader(req.Body, maxQueryBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "No question provided")
		return
	}

	sess := r.session(w, req)
	res, err := r.assistant.Query(req.Context(), sess, body.Question)
	if err != nil {
		r.fail(w, req, err, "query")
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:   res.Answer,
		AudioURL: res.Audio.URL(),
	})
}

// handleQueryVoice answers a recorded question sent as the raw request body.
func (r *Router) handleQueryVoice(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxAudioBytes)
	audio, err := io.ReadAll(req.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read audio")
		return
	}

	sess := r.session(w, req)
	res, err := r.assistant.QueryAudio(req.Context(), sess, audio)
	if err != nil {
		r.fail(w, req, err, "query voice")
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Question: res.Question,
		Answer:   res.Answer,
		AudioURL: res.Audio.URL(),
	})
}

func (r *Router) handleAudio(w http.ResponseWriter, req *http.Request) {
	filename := req.PathValue("filename")

	f, err := r.audio.Open(filename)
	switch {
	case errors.Is(err, audiocache.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid audio filename")
		return
	case errors.Is(err, audiocache.ErrNotFound):
		writeError(w, http.StatusNotFound, "Audio not found")
		return
	case err != nil:
		r.fail(w, req, err, "audio")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		r.fail(w, req, err, "audio stat")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, req, filename, info.ModTime(), f)
}

// fail maps an assistant error to a response. Input errors are the caller's fault;
// everything else is logged, reported, and hidden behind a generic message.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error, op string) {
	switch {
	case errors.Is(err, assistant.ErrNoImage):
		writeError(w, http.StatusBadRequest, "No image provided")
	case errors.Is(err, assistant.ErrNoQuestion):
		writeError(w, http.StatusBadRequest, "No question provided")
	case errors.Is(err, assistant.ErrVoiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Voice queries are not available")
	case errors.Is(err, audiocache.ErrStorage):
		r.logger.Printf("%s: storage failure: %v", op, err)
		captureError(req, err, op)
		writeError(w, http.StatusInternalServerError, "Audio storage unavailable")
	default:
		r.logger.Printf("%s: %v", op, err)
		captureError(req, err, op)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
