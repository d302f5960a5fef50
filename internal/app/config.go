package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string

	// Vision providers, tried in this order for text extraction
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string // vision, scene description and question answering

	// Speech synthesis (ElevenLabs primary, OpenAI fallback)
	ElevenLabsAPIKey     string
	ElevenLabsModel      string
	ElevenLabsVoiceEN    string
	ElevenLabsVoiceOther string
	TTSStability         float64 // ElevenLabs voice stability (0.0-1.0)
	TTSSimilarity        float64 // ElevenLabs voice similarity boost (0.0-1.0)
	OpenAITTSModel       string
	OpenAITTSVoice       string

	// Speech recognition for voice questions
	DeepgramAPIKey   string
	DeepgramModel    string
	DeepgramLanguage string

	// Audio cache
	AudioCacheDir      string
	AudioCacheMaxBytes int64 // 0 keeps everything
	CacheSweepInterval time.Duration

	// Timeouts and limits
	ProviderTimeout time.Duration
	TTSTimeout      time.Duration
	MaxImageBytes   int64
	MaxAudioBytes   int64

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	SessionIdle   time.Duration // 0 keeps idle sessions forever

	// Notifications
	DiscordWebhookURL string
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),

		// Vision providers
		GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey: getenv("OPENAI_API_KEY", ""),
		OpenAIModel:  getenv("OPENAI_MODEL", "gpt-4o-mini"),

		// Speech synthesis
		ElevenLabsAPIKey:     getenv("ELEVENLABS_API_KEY", ""),
		ElevenLabsModel:      getenv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		ElevenLabsVoiceEN:    getenv("ELEVENLABS_VOICE_EN", "pNInz6obpgDQGcFmaJgB"),
		ElevenLabsVoiceOther: getenv("ELEVENLABS_VOICE_OTHER", "EXAVITQu4vr4xnSDxMaL"),
		TTSStability:         getenvFloatClamped("TTS_STABILITY", 0.5, 0.0, 1.0),
		TTSSimilarity:        getenvFloatClamped("TTS_SIMILARITY", 0.75, 0.0, 1.0),
		OpenAITTSModel:       getenv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:       getenv("OPENAI_TTS_VOICE", "alloy"),

		// Speech recognition
		DeepgramAPIKey:   getenv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:    getenv("DEEPGRAM_MODEL", "nova-2"),
		DeepgramLanguage: getenv("DEEPGRAM_LANGUAGE", "en-IN"),

		// Audio cache
		AudioCacheDir:      getenv("AUDIO_CACHE_DIR", "audio_cache"),
		AudioCacheMaxBytes: getenvInt64("AUDIO_CACHE_MAX_BYTES", 0),
		CacheSweepInterval: getenvDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute),

		// Timeouts and limits
		ProviderTimeout: getenvDuration("PROVIDER_TIMEOUT", 20*time.Second),
		TTSTimeout:      getenvDuration("TTS_TIMEOUT", 30*time.Second),
		MaxImageBytes:   getenvInt64("MAX_IMAGE_BYTES", 10<<20),
		MaxAudioBytes:   getenvInt64("MAX_AUDIO_BYTES", 5<<20),

		// Sessions
		SessionSecret: os.Getenv("SESSION_SECRET"), // Empty means a random per-process secret
		SessionTTL:    getenvDuration("SESSION_TTL", 24*time.Hour),
		SessionIdle:   getenvDuration("SESSION_IDLE", 24*time.Hour),

		// Notifications
		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvIntClamped(k string, def, min, max int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func getenvFloatClamped(k string, def, min, max float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}

// getenvDuration accepts Go durations ("90s") and plain seconds ("90").
func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if secs := getenvIntClamped(k, -1, -1, 1<<31-1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
