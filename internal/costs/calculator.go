// Package costs provides cost estimation for provider usage per request.
package costs

import (
	"os"
	"strconv"
)

// Pricing constants (in cents per unit for precision).
// These are based on 2026 market rates and can be overridden via environment variables.
var (
	// DeepgramCentsPerMinute is the cost per minute for Deepgram Nova-3 streaming STT.
	// Default: $0.0077/min = 0.77 cents/min
	DeepgramCentsPerMinute = getEnvFloat("COST_DEEPGRAM_CENTS_PER_MIN", 0.77)

	// OpenAICentsPerThousandInputTokens is the cost per 1K input tokens for GPT-4o-mini.
	// Default: $0.15/1M = $0.00015/1K = 0.015 cents/1K tokens
	OpenAICentsPerThousandInputTokens = getEnvFloat("COST_OPENAI_INPUT_CENTS_PER_1K", 0.015)

	// OpenAICentsPerThousandOutputTokens is the cost per 1K output tokens for GPT-4o-mini.
	// Default: $0.60/1M = $0.0006/1K = 0.06 cents/1K tokens
	OpenAICentsPerThousandOutputTokens = getEnvFloat("COST_OPENAI_OUTPUT_CENTS_PER_1K", 0.06)

	// GeminiCentsPerImage is the cost of one Gemini Flash vision call.
	// Default: $0.00002/image = 0.002 cents
	GeminiCentsPerImage = getEnvFloat("COST_GEMINI_CENTS_PER_IMAGE", 0.002)

	// OpenAIVisionCentsPerImage is the cost of one GPT-4o-mini vision call.
	// Default: $0.0004/image = 0.04 cents
	OpenAIVisionCentsPerImage = getEnvFloat("COST_OPENAI_VISION_CENTS_PER_IMAGE", 0.04)

	// ElevenLabsCentsPerThousandChars is the cost per 1K characters for ElevenLabs TTS.
	// Default: $0.18/1K chars = 18 cents/1K chars
	ElevenLabsCentsPerThousandChars = getEnvFloat("COST_ELEVENLABS_CENTS_PER_1K_CHARS", 18.0)

	// OpenAITTSCentsPerThousandChars is the cost per 1K characters for OpenAI tts-1.
	// Default: $15/1M chars = 1.5 cents/1K chars
	OpenAITTSCentsPerThousandChars = getEnvFloat("COST_OPENAI_TTS_CENTS_PER_1K_CHARS", 1.5)
)

// RequestMetrics contains the raw provider usage of one request.
type RequestMetrics struct {
	GeminiImages         int     // Gemini vision calls
	OpenAIVisionImages   int     // OpenAI vision calls
	LLMInputTokens       int     // Tokens sent to LLM
	LLMOutputTokens      int     // Tokens received from LLM
	ElevenLabsCharacters int     // Characters synthesized by ElevenLabs (cache misses only)
	OpenAITTSCharacters  int     // Characters synthesized by OpenAI speech (cache misses only)
	STTDurationSeconds   float64 // Audio processed by STT
}

// RequestCosts contains the estimated costs for a request in millicents
// (thousandths of a cent). A single request rarely costs a whole cent.
type RequestCosts struct {
	VisionMillicents int
	LLMMillicents    int
	TTSMillicents    int
	STTMillicents    int
	TotalMillicents  int
}

// CalculateRequestCosts computes the costs for a request based on usage metrics.
func CalculateRequestCosts(m RequestMetrics) RequestCosts {
	visionCents := float64(m.GeminiImages)*GeminiCentsPerImage +
		float64(m.OpenAIVisionImages)*OpenAIVisionCentsPerImage

	// LLM costs: per 1K tokens
	llmInputCents := (float64(m.LLMInputTokens) / 1000.0) * OpenAICentsPerThousandInputTokens
	llmOutputCents := (float64(m.LLMOutputTokens) / 1000.0) * OpenAICentsPerThousandOutputTokens
	llmCents := llmInputCents + llmOutputCents

	// TTS costs: per 1K characters
	ttsCents := (float64(m.ElevenLabsCharacters)/1000.0)*ElevenLabsCentsPerThousandChars +
		(float64(m.OpenAITTSCharacters)/1000.0)*OpenAITTSCentsPerThousandChars

	sttCents := (m.STTDurationSeconds / 60.0) * DeepgramCentsPerMinute

	costs := RequestCosts{
		VisionMillicents: roundToInt(visionCents * 1000),
		LLMMillicents:    roundToInt(llmCents * 1000),
		TTSMillicents:    roundToInt(ttsCents * 1000),
		STTMillicents:    roundToInt(sttCents * 1000),
	}
	costs.TotalMillicents = costs.VisionMillicents + costs.LLMMillicents + costs.TTSMillicents + costs.STTMillicents

	return costs
}

// Fields returns the costs as event data.
func (c RequestCosts) Fields() map[string]any {
	return map[string]any{
		"vision_millicents": c.VisionMillicents,
		"llm_millicents":    c.LLMMillicents,
		"tts_millicents":    c.TTSMillicents,
		"stt_millicents":    c.STTMillicents,
		"total_millicents":  c.TotalMillicents,
	}
}

// roundToInt rounds a float to the nearest integer.
func roundToInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

// getEnvFloat returns an environment variable as float64, or the default if not set.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
