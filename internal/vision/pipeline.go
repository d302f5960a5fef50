package vision

import (
	"context"
	"log"
	"time"

	"github.com/lukasbauer/samaksh/internal/lang"
	"github.com/lukasbauer/samaksh/internal/metrics"
)

// Pipeline tries text extractors strictly in order. The first provider that returns
// text wins; there is no merging or voting.
type Pipeline struct {
	extractors []TextExtractor
	timeout    time.Duration
	logger     *log.Logger
}

// NewPipeline creates a pipeline over the given extractors. timeout bounds each
// provider call independently.
func NewPipeline(logger *log.Logger, timeout time.Duration, extractors ...TextExtractor) *Pipeline {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Pipeline{
		extractors: extractors,
		timeout:    timeout,
		logger:     logger,
	}
}

// Extract returns the first text found. Provider faults and "no text" replies both
// advance to the next provider; when every provider is exhausted the result has a
// nil Text.
func (p *Pipeline) Extract(ctx context.Context, image []byte) Extraction {
	var attempted []string
	for _, e := range p.extractors {
		res := p.call(ctx, e, image)
		attempted = append(attempted, e.Name())

		switch res.Outcome {
		case OutcomeOK:
			text := res.Text
			language := lang.Detect(text)
			p.logger.Printf("vision: %s extracted %d chars (%s)", e.Name(), len(text), language)
			return Extraction{Text: &text, Language: language, Provider: e.Name(), Attempted: attempted}
		case OutcomeNoContent:
			p.logger.Printf("vision: %s found no text", e.Name())
		case OutcomeTimeout:
			p.logger.Printf("vision: %s timed out after %v: %v", e.Name(), p.timeout, res.Err)
		default:
			p.logger.Printf("vision: %s unavailable: %v", e.Name(), res.Err)
		}
	}
	return Extraction{Language: lang.Default, Attempted: attempted}
}

func (p *Pipeline) call(ctx context.Context, e TextExtractor, image []byte) Result {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	res := e.ExtractText(callCtx, image)
	if res.Outcome == OutcomeUnavailable && callCtx.Err() == context.DeadlineExceeded {
		res.Outcome = OutcomeTimeout
	}
	metrics.ObserveProvider(e.Name(), "extract", res.Outcome.String(), time.Since(start))
	return res
}
