package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/samaksh/internal/assistant"
	"github.com/lukasbauer/samaksh/internal/audiocache"
	"github.com/lukasbauer/samaksh/internal/eventlog"
	"github.com/lukasbauer/samaksh/internal/httpapi"
	"github.com/lukasbauer/samaksh/internal/jobs"
	"github.com/lukasbauer/samaksh/internal/llm"
	"github.com/lukasbauer/samaksh/internal/notifications"
	"github.com/lukasbauer/samaksh/internal/session"
	"github.com/lukasbauer/samaksh/internal/stt"
	"github.com/lukasbauer/samaksh/internal/tts"
	"github.com/lukasbauer/samaksh/internal/vision"
)

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool
	eventLog   *eventlog.Logger
	httpClient *http.Client // Shared HTTP client with connection pooling for providers
	discord    *notifications.Discord
	audio      *audiocache.Store
	sessions   *session.Store
	tokens     *session.TokenIssuer
	assistant  *assistant.Assistant
	drainer    *httpapi.Drainer
	sweep      *jobs.CacheSweepJob
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		db, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		logger.Println("DATABASE_URL not set, pipeline events are not recorded")
	}

	el := eventlog.New(db)
	if err := el.EnsureSchema(context.Background()); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("create event schema: %w", err)
	}

	// Shared HTTP client with connection pooling for providers.
	// Keeps TCP connections alive to reduce latency for repeated calls to the same hosts.
	// Per-call deadlines come from contexts, so there is no client-wide timeout.
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	audio, err := audiocache.NewStore(cfg.AudioCacheDir)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	tokens, err := session.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	if cfg.SessionSecret == "" {
		logger.Println("SESSION_SECRET not set, session tokens do not survive restarts")
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		eventLog:   el,
		httpClient: httpClient,
		discord:    notifications.NewDiscord(cfg.DiscordWebhookURL, logger),
		audio:      audio,
		sessions:   session.NewStore(),
		tokens:     tokens,
		drainer:    httpapi.NewDrainer(),
	}
	a.assistant = a.buildAssistant()
	a.sweep = jobs.NewCacheSweepJob(audio, a.sessions, jobs.CacheSweepConfig{
		MaxBytes:    cfg.AudioCacheMaxBytes,
		SessionIdle: cfg.SessionIdle,
		Interval:    cfg.CacheSweepInterval,
	}, logger)

	return a, nil
}

func (a *App) buildAssistant() *assistant.Assistant {
	cfg := a.cfg

	openaiVision := vision.NewOpenAIVision(vision.OpenAIVisionConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		HTTPClient: a.httpClient,
	})

	var extractors []vision.TextExtractor
	if cfg.GeminiAPIKey != "" {
		extractors = append(extractors, vision.NewGeminiExtractor(cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	if cfg.OpenAIAPIKey != "" {
		extractors = append(extractors, openaiVision)
	}
	if len(extractors) == 0 {
		a.logger.Println("no vision provider configured, every capture will be described as a scene")
	}

	primary := tts.NewElevenLabsClient(tts.ElevenLabsConfig{
		APIKey:       cfg.ElevenLabsAPIKey,
		EnglishVoice: cfg.ElevenLabsVoiceEN,
		OtherVoice:   cfg.ElevenLabsVoiceOther,
		ModelID:      cfg.ElevenLabsModel,
		Stability:    cfg.TTSStability,
		Similarity:   cfg.TTSSimilarity,
		HTTPClient:   a.httpClient,
	})
	fallback := tts.NewOpenAIClient(tts.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAITTSModel,
		Voice:      cfg.OpenAITTSVoice,
		HTTPClient: a.httpClient,
	})
	cache := audiocache.New(a.audio, audiocache.Config{
		Primary:  primary,
		Fallback: fallback,
		Timeout:  cfg.TTSTimeout,
		Notifier: a.discord,
	}, a.logger)

	var transcriber stt.Transcriber
	if cfg.DeepgramAPIKey != "" {
		transcriber = stt.NewDeepgramTranscriber(stt.DeepgramConfig{
			APIKey:   cfg.DeepgramAPIKey,
			Model:    cfg.DeepgramModel,
			Language: cfg.DeepgramLanguage,
		})
	}

	return assistant.New(assistant.Config{
		Extractor:   vision.NewPipeline(a.logger, cfg.ProviderTimeout, extractors...),
		Describer:   vision.NewDescriber(a.logger, cfg.ProviderTimeout, openaiVision),
		Synthesizer: cache,
		Answerer: llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			HTTPClient: a.httpClient,
		}),
		Transcriber:     transcriber,
		Events:          a.eventLog,
		SceneProvider:   openaiVision.Name(),
		ProviderTimeout: cfg.ProviderTimeout,
	}, a.logger)
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		MaxImageBytes: a.cfg.MaxImageBytes,
		MaxAudioBytes: a.cfg.MaxAudioBytes,
	}
	return httpapi.NewRouter(routerCfg, a.logger, httpapi.Deps{
		Assistant: a.assistant,
		Sessions:  a.sessions,
		Tokens:    a.tokens,
		Audio:     a.audio,
		EventLog:  a.eventLog,
		Drainer:   a.drainer,
	})
}

// Start launches background jobs.
func (a *App) Start(ctx context.Context) {
	if a.sweep.Enabled() {
		a.sweep.Start()
	}
	a.discord.NotifyStarted(ctx, a.cfg.HTTPAddr)
}

// Drain stops accepting provider-backed requests and waits for in-flight ones, or
// until ctx is done.
func (a *App) Drain(ctx context.Context) error {
	return a.drainer.Drain(ctx)
}

func (a *App) Close() error {
	if a.sweep.Enabled() {
		a.sweep.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
