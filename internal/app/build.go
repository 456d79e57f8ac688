package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/backtoback/internal/brain"
	"github.com/ent0n29/backtoback/internal/config"
	"github.com/ent0n29/backtoback/internal/conversation"
	"github.com/ent0n29/backtoback/internal/httpapi"
	"github.com/ent0n29/backtoback/internal/observability"
	"github.com/ent0n29/backtoback/internal/speech"
	"github.com/ent0n29/backtoback/internal/store"
)

// ProviderInfo reports which generator and synthesizer backends were wired.
type ProviderInfo struct {
	Generator   string
	Synthesizer string
}

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Manager   *conversation.Manager
	Engine    *conversation.Engine
	Store     conversation.Store
	Files     *speech.FileStore
	Metrics   *observability.Metrics
	Providers ProviderInfo

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	sessionStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("session store init failed: %w", err)
	}

	files, err := speech.NewFileStore(cfg.AudioDir, cfg.AudioTTL)
	if err != nil {
		_ = sessionStore.Close()
		return nil, fmt.Errorf("audio file store init failed: %w", err)
	}

	var (
		generator   conversation.Generator
		synthesizer conversation.Synthesizer
		providers   ProviderInfo
	)

	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		generator, err = brain.NewOpenAIGenerator(brain.OpenAIConfig{
			APIKey:          cfg.OpenAIAPIKey,
			Model:           cfg.LLMModel,
			MaxTokens:       cfg.LLMMaxTokens,
			Temperature:     float32(cfg.LLMTemperature),
			PresencePenalty: 0.1,
			Timeout:         cfg.LLMTimeout,
		})
		if err != nil {
			_ = sessionStore.Close()
			return nil, fmt.Errorf("generator init failed: %w", err)
		}
		providers.Generator = "openai"

		if cfg.TTSEnabled {
			synthesizer, err = speech.NewOpenAISynthesizer(speech.OpenAIConfig{
				APIKey:  cfg.OpenAIAPIKey,
				Model:   cfg.TTSModel,
				Timeout: cfg.TTSTimeout,
			}, files)
			if err != nil {
				_ = sessionStore.Close()
				return nil, fmt.Errorf("synthesizer init failed: %w", err)
			}
			providers.Synthesizer = "openai"
		} else {
			synthesizer = speech.NewMockSynthesizer()
			providers.Synthesizer = "disabled"
		}
	} else {
		generator = brain.NewMockGenerator()
		synthesizer = speech.NewMockSynthesizer()
		providers.Generator = "mock"
		providers.Synthesizer = "mock"
	}

	engine := conversation.NewEngine(generator, synthesizer, conversation.NewRatioPolicy(), metrics)
	manager := conversation.NewManager(sessionStore, engine, cfg.SessionTTL, cfg.DefaultMaxTurns)
	api := httpapi.New(cfg, manager, engine, sessionStore, files, metrics)

	cleanup := func() error {
		return sessionStore.Close()
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Manager:   manager,
		Engine:    engine,
		Store:     sessionStore,
		Files:     files,
		Metrics:   metrics,
		Providers: providers,
		Cleanup:   cleanup,
	}, nil
}
