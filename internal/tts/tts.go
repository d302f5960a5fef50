package tts

import (
	"context"

	"github.com/lukasbauer/samaksh/internal/lang"
)

// Client defines the interface for text-to-speech providers.
type Client interface {
	// Name identifies the provider. It is part of the audio cache key, so two
	// providers must never share a name.
	Name() string

	// Synthesize converts text to speech and returns MP3 audio.
	Synthesize(ctx context.Context, text string, language lang.Tag) ([]byte, error)
}
