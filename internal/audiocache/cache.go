package audiocache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lukasbauer/samaksh/internal/lang"
	"github.com/lukasbauer/samaksh/internal/metrics"
	"github.com/lukasbauer/samaksh/internal/tts"
)

// Notifier is told when every synthesis provider failed for a request.
type Notifier interface {
	NotifySynthesisExhausted(ctx context.Context, text string, language lang.Tag, err error)
}

// Cache synthesizes speech through a primary and a fallback provider, storing each
// provider's output under its own key. The two providers do not produce identical
// audio, so the cache is per provider rather than provider-agnostic.
type Cache struct {
	store    *Store
	primary  tts.Client
	fallback tts.Client
	timeout  time.Duration
	logger   *log.Logger
	notifier Notifier
}

// Config holds the providers and limits for a Cache.
type Config struct {
	Primary  tts.Client
	Fallback tts.Client
	Timeout  time.Duration // per provider call
	Notifier Notifier      // optional
}

// New creates a Cache over store.
func New(store *Store, cfg Config, logger *log.Logger) *Cache {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cache{
		store:    store,
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		timeout:  timeout,
		logger:   logger,
		notifier: cfg.Notifier,
	}
}

// PrimaryVariant names the provider whose artifacts are preferred.
func (c *Cache) PrimaryVariant() string { return c.primary.Name() }

// Synthesize returns speech for text in language. A stored primary artifact is
// returned without calling any provider. On a primary provider failure the fallback
// slot is checked and, on a miss, the fallback provider is called. A fallback
// failure or any storage failure is returned as an error.
func (c *Cache) Synthesize(ctx context.Context, text string, language lang.Tag) (Artifact, error) {
	a, err := c.synthesizeWith(ctx, c.primary, text, language)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, ErrStorage) {
		return Artifact{}, err
	}
	c.logger.Printf("audiocache: %s failed, falling back to %s: %v", c.primary.Name(), c.fallback.Name(), err)

	a, ferr := c.synthesizeWith(ctx, c.fallback, text, language)
	if ferr == nil {
		return a, nil
	}
	if !errors.Is(ferr, ErrStorage) && c.notifier != nil {
		c.notifier.NotifySynthesisExhausted(ctx, text, language, ferr)
	}
	return Artifact{}, fmt.Errorf("all synthesis providers failed: %w", ferr)
}

func (c *Cache) synthesizeWith(ctx context.Context, p tts.Client, text string, language lang.Tag) (Artifact, error) {
	variant := p.Name()
	key := Key(text, language, variant)

	a, err := c.store.GetOrCreate(key, variant, func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		audio, err := p.Synthesize(callCtx, text, language)
		metrics.ObserveProvider(variant, "synthesize", outcome(err), time.Since(start))
		return audio, err
	})
	if err != nil {
		return Artifact{}, err
	}
	metrics.CacheLookup(variant, !a.Generated)
	switch {
	case a.Cached:
		c.logger.Printf("audiocache: hit %s (%s)", a.Filename, variant)
	case !a.Generated:
		c.logger.Printf("audiocache: joined generation of %s (%s)", a.Filename, variant)
	}
	return a, nil
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
