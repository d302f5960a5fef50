package llm

import "context"

// Answer is a reply to a question asked about previously read text.
type Answer struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client defines the interface for question-answering providers.
type Client interface {
	// Answer replies to question using contextText as grounding. Replies are kept
	// short enough to be spoken.
	Answer(ctx context.Context, question, contextText string) (Answer, error)
}
