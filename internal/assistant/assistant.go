// Package assistant implements the capture and question flows: text extraction with
// scene fallback, context-aware question routing, and speech synthesis of every reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lukasbauer/samaksh/internal/audiocache"
	"github.com/lukasbauer/samaksh/internal/costs"
	"github.com/lukasbauer/samaksh/internal/eventlog"
	"github.com/lukasbauer/samaksh/internal/lang"
	"github.com/lukasbauer/samaksh/internal/llm"
	"github.com/lukasbauer/samaksh/internal/metrics"
	"github.com/lukasbauer/samaksh/internal/session"
	"github.com/lukasbauer/samaksh/internal/stt"
	"github.com/lukasbauer/samaksh/internal/vision"
)

// Fixed replies.
const (
	NoTextPrefix   = "No text found. Here's what I see: "
	CaptureFirst   = "Please capture an image first"
	AnswerFallback = "Sorry, I couldn't process that question."
)

// Input errors. Everything else returned by Process and Query is a server fault.
var (
	ErrNoImage          = errors.New("no image provided")
	ErrNoQuestion       = errors.New("no question provided")
	ErrVoiceUnavailable = errors.New("voice queries are not configured")
)

// IsInputError reports whether err was caused by the request rather than the server.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoImage) || errors.Is(err, ErrNoQuestion)
}

// Route is the branch a question took.
type Route string

const (
	RouteScene     Route = "scene"
	RouteContext   Route = "context"
	RouteNoContext Route = "no_context"
)

// Extractor reads text from an image.
type Extractor interface {
	Extract(ctx context.Context, image []byte) vision.Extraction
}

// SceneDescriber describes an image. It degrades to a fixed message instead of failing.
type SceneDescriber interface {
	Describe(ctx context.Context, image []byte) string
}

// Synthesizer turns replies into cached speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, language lang.Tag) (audiocache.Artifact, error)
	PrimaryVariant() string
}

// Config holds the collaborators of an Assistant. Answerer may be nil, in which case
// contextual questions degrade to AnswerFallback. Transcriber may be nil when voice
// queries are disabled. Events may be nil.
type Config struct {
	Extractor   Extractor
	Describer   SceneDescriber
	Synthesizer Synthesizer
	Answerer    llm.Client
	Transcriber stt.Transcriber
	Events      *eventlog.Logger

	SceneProvider   string        // name of the scene provider, for cost estimates
	ProviderTimeout time.Duration // bounds answerer and transcriber calls
}

// Assistant runs the capture and question flows against a session.
type Assistant struct {
	extractor       Extractor
	describer       SceneDescriber
	synth           Synthesizer
	answerer        llm.Client
	transcriber     stt.Transcriber
	events          *eventlog.Logger
	sceneProvider   string
	providerTimeout time.Duration
	logger          *log.Logger
}

// New creates an Assistant.
func New(cfg Config, logger *log.Logger) *Assistant {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Assistant{
		extractor:       cfg.Extractor,
		describer:       cfg.Describer,
		synth:           cfg.Synthesizer,
		answerer:        cfg.Answerer,
		transcriber:     cfg.Transcriber,
		events:          cfg.Events,
		sceneProvider:   cfg.SceneProvider,
		providerTimeout: timeout,
		logger:          logger,
	}
}

// ProcessResult is the reply to a capture. Text is nil when no text was found, in
// which case Description holds the scene description that was spoken instead.
type ProcessResult struct {
	Text        *string
	Description string
	Language    lang.Tag
	Audio       audiocache.Artifact
}

// QueryResult is the reply to a question.
type QueryResult struct {
	Question string
	Answer   string
	Route    Route
	Audio    audiocache.Artifact
}

// Process reads the text in image and speaks it. When no provider finds text, the
// scene is described and spoken in English instead. The session always keeps the
// image; its text and language only change when text was found.
//
// Provider calls are detached from ctx cancellation so a client that disconnects
// does not abort work whose result is cached for the next request.
func (a *Assistant) Process(ctx context.Context, sess *session.Context, image []byte) (ProcessResult, error) {
	if len(image) == 0 {
		return ProcessResult{}, ErrNoImage
	}
	ctx = context.WithoutCancel(ctx)

	var usage costs.RequestMetrics
	ex := a.extractor.Extract(ctx, image)
	sess.Update(image, ex)
	for _, p := range ex.Attempted {
		countVision(&usage, p)
	}

	res := ProcessResult{Text: ex.Text, Language: ex.Language}
	spoken := ""
	if ex.Found() {
		spoken = *ex.Text
		a.events.LogAsync(sess.ID(), eventlog.EventExtractionCompleted, map[string]any{
			"provider":  ex.Provider,
			"language":  ex.Language.String(),
			"chars":     utf8.RuneCountInString(spoken),
			"attempted": ex.Attempted,
		})
	} else {
		a.events.LogAsync(sess.ID(), eventlog.EventProviderFailed, map[string]any{
			"task":      "extract",
			"attempted": ex.Attempted,
		})
		res.Description = a.describe(ctx, sess, image, &usage)
		res.Language = lang.English
		spoken = NoTextPrefix + res.Description
	}

	audio, err := a.speak(ctx, sess, spoken, res.Language, &usage)
	if err != nil {
		return ProcessResult{}, err
	}
	res.Audio = audio
	a.logCosts(sess, "process", usage)
	return res, nil
}

// Query answers question from the session. Scene questions are answered by
// describing the last image; other questions, and scene questions with no image yet,
// are answered from the last text read. With no text at all the user is asked to
// capture an image first.
func (a *Assistant) Query(ctx context.Context, sess *session.Context, question string) (QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return QueryResult{}, ErrNoQuestion
	}
	ctx = context.WithoutCancel(ctx)

	var usage costs.RequestMetrics
	res, err := a.query(ctx, sess, question, &usage)
	if err != nil {
		return QueryResult{}, err
	}
	a.logCosts(sess, "query", usage)
	return res, nil
}

// QueryAudio transcribes a recorded question and answers it like Query.
func (a *Assistant) QueryAudio(ctx context.Context, sess *session.Context, audio []byte) (QueryResult, error) {
	if a.transcriber == nil {
		return QueryResult{}, ErrVoiceUnavailable
	}
	if len(audio) == 0 {
		return QueryResult{}, ErrNoQuestion
	}
	ctx = context.WithoutCancel(ctx)

	callCtx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	start := time.Now()
	tx, err := a.transcriber.Transcribe(callCtx, audio)
	cancel()
	metrics.ObserveProvider("deepgram", "transcribe", outcome(err), time.Since(start))
	if err != nil {
		return QueryResult{}, fmt.Errorf("transcribe: %w", err)
	}

	question := strings.TrimSpace(tx.Text)
	a.events.LogAsync(sess.ID(), eventlog.EventQueryTranscribed, map[string]any{
		"chars":            utf8.RuneCountInString(question),
		"duration_seconds": tx.DurationSeconds,
	})
	if question == "" {
		return QueryResult{}, ErrNoQuestion
	}

	usage := costs.RequestMetrics{STTDurationSeconds: tx.DurationSeconds}
	res, err := a.query(ctx, sess, question, &usage)
	if err != nil {
		return QueryResult{}, err
	}
	a.logCosts(sess, "query_voice", usage)
	return res, nil
}

func (a *Assistant) query(ctx context.Context, sess *session.Context, question string, usage *costs.RequestMetrics) (QueryResult, error) {
	snap := sess.Read()
	res := QueryResult{Question: question}
	language := snap.Language

	switch {
	case IsSceneIntent(question) && snap.HasImage():
		res.Route = RouteScene
		res.Answer = a.describe(ctx, sess, snap.LastImage, usage)
	case snap.HasText():
		res.Route = RouteContext
		res.Answer = a.answer(ctx, question, *snap.LastText, usage)
	default:
		res.Route = RouteNoContext
		res.Answer = CaptureFirst
		language = lang.English
	}

	metrics.RouteDecision(string(res.Route))
	a.events.LogAsync(sess.ID(), eventlog.EventQueryRouted, map[string]any{
		"route":    string(res.Route),
		"language": language.String(),
	})

	audio, err := a.speak(ctx, sess, res.Answer, language, usage)
	if err != nil {
		return QueryResult{}, err
	}
	res.Audio = audio
	return res, nil
}

func (a *Assistant) describe(ctx context.Context, sess *session.Context, image []byte, usage *costs.RequestMetrics) string {
	desc := a.describer.Describe(ctx, image)
	countVision(usage, a.sceneProvider)
	a.events.LogAsync(sess.ID(), eventlog.EventSceneDescribed, map[string]any{
		"provider": a.sceneProvider,
		"degraded": desc == vision.SceneFallback,
	})
	return desc
}

func (a *Assistant) answer(ctx context.Context, question, contextText string, usage *costs.RequestMetrics) string {
	if a.answerer == nil {
		return AnswerFallback
	}
	callCtx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	start := time.Now()
	ans, err := a.answerer.Answer(callCtx, question, contextText)
	metrics.ObserveProvider("openai", "answer", outcome(err), time.Since(start))
	if err != nil {
		a.logger.Printf("assistant: answer failed: %v", err)
		return AnswerFallback
	}
	usage.LLMInputTokens += ans.InputTokens
	usage.LLMOutputTokens += ans.OutputTokens
	return ans.Text
}

func (a *Assistant) speak(ctx context.Context, sess *session.Context, text string, language lang.Tag, usage *costs.RequestMetrics) (audiocache.Artifact, error) {
	audio, err := a.synth.Synthesize(ctx, text, language)
	if err != nil {
		return audiocache.Artifact{}, fmt.Errorf("synthesize: %w", err)
	}

	// Callers that shared another request's generation are hits: the provider was
	// called, and billed, once.
	event := eventlog.EventTTSGenerated
	switch {
	case !audio.Generated:
		event = eventlog.EventTTSCacheHit
	case audio.Variant != a.synth.PrimaryVariant():
		event = eventlog.EventTTSFallback
	}
	if audio.Generated {
		chars := utf8.RuneCountInString(text)
		if audio.Variant == "elevenlabs" {
			usage.ElevenLabsCharacters += chars
		} else {
			usage.OpenAITTSCharacters += chars
		}
	}
	a.events.LogAsync(sess.ID(), event, map[string]any{
		"variant":  audio.Variant,
		"filename": audio.Filename,
		"language": language.String(),
	})
	return audio, nil
}

func (a *Assistant) logCosts(sess *session.Context, flow string, usage costs.RequestMetrics) {
	c := costs.CalculateRequestCosts(usage)
	if c.TotalMillicents == 0 {
		return
	}
	data := c.Fields()
	data["flow"] = flow
	a.events.LogAsync(sess.ID(), eventlog.EventRequestCosted, data)
}

func countVision(usage *costs.RequestMetrics, provider string) {
	switch provider {
	case "gemini":
		usage.GeminiImages++
	case "openai":
		usage.OpenAIVisionImages++
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}
