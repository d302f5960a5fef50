package app

import (
	"os"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		defValue string
		want     string
	}{
		{
			name:     "env set",
			envKey:   "TEST_ENV_VAR",
			envValue: "custom_value",
			defValue: "default",
			want:     "custom_value",
		},
		{
			name:     "env not set",
			envKey:   "TEST_ENV_VAR_NOTSET",
			envValue: "",
			defValue: "default",
			want:     "default",
		},
		{
			name:     "empty default",
			envKey:   "TEST_ENV_VAR_EMPTY",
			envValue: "",
			defValue: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenv(tt.envKey, tt.defValue)
			if got != tt.want {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.envKey, tt.defValue, got, tt.want)
			}
		})
	}
}

func TestGetenvIntClamped(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		def      int
		min      int
		max      int
		want     int
	}{
		{
			name:     "value within range",
			envKey:   "TEST_INT_NORMAL",
			envValue: "500",
			def:      100,
			min:      0,
			max:      1000,
			want:     500,
		},
		{
			name:     "value below min - clamp to min",
			envKey:   "TEST_INT_LOW",
			envValue: "-100",
			def:      100,
			min:      0,
			max:      1000,
			want:     0,
		},
		{
			name:     "value above max - clamp to max",
			envKey:   "TEST_INT_HIGH",
			envValue: "2000",
			def:      100,
			min:      0,
			max:      1000,
			want:     1000,
		},
		{
			name:     "env not set - use default",
			envKey:   "TEST_INT_NOTSET",
			envValue: "",
			def:      100,
			min:      0,
			max:      1000,
			want:     100,
		},
		{
			name:     "invalid value - use default",
			envKey:   "TEST_INT_INVALID",
			envValue: "not_a_number",
			def:      100,
			min:      0,
			max:      1000,
			want:     100,
		},
		{
			name:     "boundary: exactly min",
			envKey:   "TEST_INT_MIN",
			envValue: "200",
			def:      500,
			min:      200,
			max:      800,
			want:     200,
		},
		{
			name:     "boundary: exactly max",
			envKey:   "TEST_INT_MAX",
			envValue: "800",
			def:      500,
			min:      200,
			max:      800,
			want:     800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenvIntClamped(tt.envKey, tt.def, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("getenvIntClamped(%q, %d, %d, %d) = %d, want %d",
					tt.envKey, tt.def, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestGetenvFloatClamped(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		def      float64
		min      float64
		max      float64
		want     float64
	}{
		{
			name:     "value within range",
			envKey:   "TEST_FLOAT_NORMAL",
			envValue: "0.5",
			def:      0.3,
			min:      0.0,
			max:      1.0,
			want:     0.5,
		},
		{
			name:     "value below min - clamp to min",
			envKey:   "TEST_FLOAT_LOW",
			envValue: "-0.5",
			def:      0.3,
			min:      0.0,
			max:      1.0,
			want:     0.0,
		},
		{
			name:     "value above max - clamp to max",
			envKey:   "TEST_FLOAT_HIGH",
			envValue: "1.5",
			def:      0.3,
			min:      0.0,
			max:      1.0,
			want:     1.0,
		},
		{
			name:     "env not set - use default",
			envKey:   "TEST_FLOAT_NOTSET",
			envValue: "",
			def:      0.75,
			min:      0.0,
			max:      1.0,
			want:     0.75,
		},
		{
			name:     "invalid value - use default",
			envKey:   "TEST_FLOAT_INVALID",
			envValue: "not_a_float",
			def:      0.5,
			min:      0.0,
			max:      1.0,
			want:     0.5,
		},
		{
			name:     "boundary: exactly min",
			envKey:   "TEST_FLOAT_MIN",
			envValue: "0.0",
			def:      0.5,
			min:      0.0,
			max:      1.0,
			want:     0.0,
		},
		{
			name:     "boundary: exactly max",
			envKey:   "TEST_FLOAT_MAX",
			envValue: "1.0",
			def:      0.5,
			min:      0.0,
			max:      1.0,
			want:     1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenvFloatClamped(tt.envKey, tt.def, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("getenvFloatClamped(%q, %f, %f, %f) = %f, want %f",
					tt.envKey, tt.def, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestGetenvInt64(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int64
	}{
		{"not set", "", 42},
		{"valid", "1048576", 1048576},
		{"zero", "0", 0},
		{"negative uses default", "-1", 42},
		{"invalid uses default", "ten", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT64", tt.envValue)
			if got := getenvInt64("TEST_INT64", 42); got != tt.want {
				t.Errorf("getenvInt64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"not set", "", 20 * time.Second},
		{"go duration", "1m30s", 90 * time.Second},
		{"plain seconds", "45", 45 * time.Second},
		{"zero", "0", 0},
		{"negative uses default", "-5s", 20 * time.Second},
		{"invalid uses default", "soon", 20 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getenvDuration("TEST_DURATION", 20*time.Second); got != tt.want {
				t.Errorf("getenvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	keysToClean := []string{
		"HTTP_ADDR", "DATABASE_URL", "GEMINI_MODEL", "OPENAI_MODEL",
		"ELEVENLABS_MODEL", "ELEVENLABS_VOICE_EN", "ELEVENLABS_VOICE_OTHER",
		"TTS_STABILITY", "TTS_SIMILARITY", "AUDIO_CACHE_DIR", "AUDIO_CACHE_MAX_BYTES",
		"PROVIDER_TIMEOUT", "TTS_TIMEOUT", "MAX_IMAGE_BYTES",
	}
	for _, key := range keysToClean {
		t.Setenv(key, "")
	}

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}

	// Voices by language
	if cfg.ElevenLabsVoiceEN != "pNInz6obpgDQGcFmaJgB" {
		t.Errorf("ElevenLabsVoiceEN = %q", cfg.ElevenLabsVoiceEN)
	}
	if cfg.ElevenLabsVoiceOther != "EXAVITQu4vr4xnSDxMaL" {
		t.Errorf("ElevenLabsVoiceOther = %q", cfg.ElevenLabsVoiceOther)
	}
	if cfg.ElevenLabsModel != "eleven_multilingual_v2" {
		t.Errorf("ElevenLabsModel = %q", cfg.ElevenLabsModel)
	}

	// TTS defaults
	if cfg.TTSStability != 0.5 {
		t.Errorf("TTSStability = %f, want %f", cfg.TTSStability, 0.5)
	}
	if cfg.TTSSimilarity != 0.75 {
		t.Errorf("TTSSimilarity = %f, want %f", cfg.TTSSimilarity, 0.75)
	}

	// Cache and limits
	if cfg.AudioCacheDir != "audio_cache" {
		t.Errorf("AudioCacheDir = %q", cfg.AudioCacheDir)
	}
	if cfg.AudioCacheMaxBytes != 0 {
		t.Errorf("AudioCacheMaxBytes = %d, want 0 (unbounded)", cfg.AudioCacheMaxBytes)
	}
	if cfg.ProviderTimeout != 20*time.Second {
		t.Errorf("ProviderTimeout = %v", cfg.ProviderTimeout)
	}
	if cfg.TTSTimeout != 30*time.Second {
		t.Errorf("TTSTimeout = %v", cfg.TTSTimeout)
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Errorf("MaxImageBytes = %d", cfg.MaxImageBytes)
	}
}

func TestLoadConfigFromEnvCustomValues(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("TTS_STABILITY", "0.7")
	t.Setenv("TTS_SIMILARITY", "1.5")
	t.Setenv("AUDIO_CACHE_MAX_BYTES", "104857600")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.TTSStability != 0.7 {
		t.Errorf("TTSStability = %f, want %f", cfg.TTSStability, 0.7)
	}
	if cfg.TTSSimilarity != 1.0 {
		t.Errorf("TTSSimilarity = %f, want clamped 1.0", cfg.TTSSimilarity)
	}
	if cfg.AudioCacheMaxBytes != 100<<20 {
		t.Errorf("AudioCacheMaxBytes = %d", cfg.AudioCacheMaxBytes)
	}
	if cfg.ProviderTimeout != 5*time.Second {
		t.Errorf("ProviderTimeout = %v", cfg.ProviderTimeout)
	}
	if cfg.SessionSecret != "s3cret" {
		t.Errorf("SessionSecret = %q", cfg.SessionSecret)
	}
}
