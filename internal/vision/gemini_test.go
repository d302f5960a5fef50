package vision

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestGeminiExtractor_MissingKey(t *testing.T) {
	g := NewGeminiExtractor("  ", "")
	if g.model != "gemini-1.5-flash" {
		t.Errorf("model = %q, want gemini-1.5-flash", g.model)
	}
	if res := g.ExtractText(context.Background(), []byte("img")); res.Outcome != OutcomeUnavailable {
		t.Errorf("outcome = %s, want unavailable", res.Outcome)
	}
}

func geminiReply(parts ...genai.Part) *genai.Candidate {
	return &genai.Candidate{Content: &genai.Content{Role: "model", Parts: parts}}
}

func TestFirstText(t *testing.T) {
	tests := []struct {
		name        string
		resp        *genai.GenerateContentResponse
		want        string
		wantOutcome Outcome
	}{
		{
			name:        "nil response",
			resp:        nil,
			wantOutcome: OutcomeNoContent,
		},
		{
			name:        "no candidates",
			resp:        &genai.GenerateContentResponse{},
			wantOutcome: OutcomeNoContent,
		},
		{
			name: "candidate without content",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			wantOutcome: OutcomeNoContent,
		},
		{
			name: "only non-text parts",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					geminiReply(genai.Blob{MIMEType: "image/png", Data: []byte{1, 2}}),
				},
			},
			wantOutcome: OutcomeNoContent,
		},
		{
			name: "text after a non-text part",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					geminiReply(genai.Blob{MIMEType: "image/png"}, genai.Text("Platform 4")),
				},
			},
			want:        "Platform 4",
			wantOutcome: OutcomeOK,
		},
		{
			name: "first candidate empty, second has text",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{},
					geminiReply(genai.Text("EXIT")),
				},
			},
			want:        "EXIT",
			wantOutcome: OutcomeOK,
		},
		{
			name: "first text part wins",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					geminiReply(genai.Text("first"), genai.Text("second")),
				},
			},
			want:        "first",
			wantOutcome: OutcomeOK,
		},
		{
			name: "no text marker",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{geminiReply(genai.Text(noTextMarker))},
			},
			want:        noTextMarker,
			wantOutcome: OutcomeNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstText(tt.resp)
			if got != tt.want {
				t.Errorf("firstText() = %q, want %q", got, tt.want)
			}
			if res := textResult(got); res.Outcome != tt.wantOutcome {
				t.Errorf("textResult(firstText()) outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
		})
	}
}
