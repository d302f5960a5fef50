package vision

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/lukasbauer/samaksh/internal/metrics"
)

// SceneFallback is spoken when the scene provider fails.
const SceneFallback = "Could not analyze scene"

// maxSceneSentences bounds a description to something short enough to listen to.
const maxSceneSentences = 5

// Describer produces a spatial description of an image. It never returns an error:
// provider failures degrade to SceneFallback.
type Describer struct {
	provider SceneProvider
	timeout  time.Duration
	logger   *log.Logger
}

func NewDescriber(logger *log.Logger, timeout time.Duration, provider SceneProvider) *Describer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Describer{provider: provider, timeout: timeout, logger: logger}
}

// Describe returns a few sentences about objects, their positions and people in image.
func (d *Describer) Describe(ctx context.Context, image []byte) string {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	res := d.provider.DescribeScene(callCtx, image)
	if res.Outcome == OutcomeUnavailable && callCtx.Err() == context.DeadlineExceeded {
		res.Outcome = OutcomeTimeout
	}
	metrics.ObserveProvider(d.provider.Name(), "describe", res.Outcome.String(), time.Since(start))

	if res.Outcome != OutcomeOK {
		d.logger.Printf("vision: scene description failed (%s): %v", res.Outcome, res.Err)
		return SceneFallback
	}
	return clampSentences(res.Text, maxSceneSentences)
}

// clampSentences keeps at most n sentences of s.
func clampSentences(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' && r != '।' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\n' {
			continue
		}
		count++
		if count == n {
			return string(runes[:i+1])
		}
	}
	return s
}
