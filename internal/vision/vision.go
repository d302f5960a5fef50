// Package vision pulls text out of captured images and describes scenes when there is
// no text, trying an ordered chain of vision providers.
package vision

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lukasbauer/samaksh/internal/lang"
)

// noTextMarker is what the extraction prompts ask a model to reply with for an image
// without text.
const noTextMarker = "NO_TEXT_FOUND"

// Outcome tags the result of a single provider call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoContent
	OutcomeUnavailable
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoContent:
		return "no_content"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is what a provider returns for one call. Text is only meaningful when
// Outcome is OutcomeOK; Err is set for OutcomeUnavailable and OutcomeTimeout.
type Result struct {
	Text    string
	Outcome Outcome
	Err     error
}

// TextExtractor reads the visible text of an image.
type TextExtractor interface {
	Name() string
	ExtractText(ctx context.Context, image []byte) Result
}

// SceneProvider describes an image for someone who cannot see it.
type SceneProvider interface {
	Name() string
	DescribeScene(ctx context.Context, image []byte) Result
}

// Extraction is the pipeline result. A nil Text means no provider found text.
type Extraction struct {
	Text     *string
	Language lang.Tag
	Provider string

	// Attempted lists every provider called, in order, including the winner.
	Attempted []string
}

// Found reports whether text was extracted.
func (e Extraction) Found() bool { return e.Text != nil }

// failure maps a provider error to an outcome.
func failure(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Outcome: OutcomeTimeout, Err: err}
	}
	return Result{Outcome: OutcomeUnavailable, Err: err}
}

// textResult normalizes a raw model reply: empty replies and the no-text marker both
// become OutcomeNoContent.
func textResult(raw string) Result {
	text := stripCodeFences(raw)
	if text == "" || strings.Contains(text, noTextMarker) {
		return Result{Outcome: OutcomeNoContent}
	}
	return Result{Text: text, Outcome: OutcomeOK}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// sniffMIME falls back to image/jpeg, which is what the device camera sends.
func sniffMIME(image []byte) string {
	mime := http.DetectContentType(image)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}
