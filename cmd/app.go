package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/config"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/narrative"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/orchestrator"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/rag"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/sentiment"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/session"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/youtube"
)

// app holds the components shared by the commands.
type app struct {
	cfg   *config.Config
	store session.Store
	orch  *orchestrator.Orchestrator
}

// loadConfig reads the config file and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := logging.New(logging.Options{
		Level: cfg.Log.Level,
		Color: cfg.Log.Color,
		JSON:  cfg.Log.JSON,
	})
	logging.SetDefault(logger)
	logger.Debug("configuration loaded", "path", configPath, "config", cfg)
	return cfg, nil
}

// newApp wires the provider, stores and pipelines from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.Default()

	provider, err := llm.NewOpenAIProvider(llm.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		Timeout:            cfg.OpenAITimeout(),
		MaxRetries:         cfg.OpenAI.MaxRetries,
		EmbeddingDimension: cfg.OpenAI.EmbeddingDimension,
	})
	if err != nil {
		return nil, err
	}

	var counter rag.TokenCounter = rag.ApproxCounter{}
	if tk, err := rag.NewTiktokenCounter(cfg.OpenAI.EmbeddingModel); err != nil {
		logger.Warn("tokenizer unavailable, estimating token counts", "error", err)
	} else {
		counter = tk
	}
	gateway := rag.NewGateway(provider, counter, rag.GatewayConfig{
		Model:     cfg.OpenAI.EmbeddingModel,
		Dimension: cfg.OpenAI.EmbeddingDimension,
	})

	ranker, err := rag.NewRanker(gateway)
	if err != nil {
		return nil, err
	}
	agent, err := orchestrator.NewAgent(orchestrator.AgentComponents{
		Planner:     rag.NewPlanner(provider, cfg.OpenAI.ChatModel),
		Ranker:      ranker,
		Reranker:    rag.NewReranker(provider, cfg.OpenAI.ChatModel),
		Coverage:    rag.NewCoverageChecker(provider, cfg.OpenAI.ChatModel),
		Synthesizer: narrative.NewSynthesizer(provider, cfg.OpenAI.ChatModel),
	}, cfg.Agent.MaxLoops)
	if err != nil {
		return nil, err
	}

	source, err := youtube.NewClient(ctx, youtube.Options{
		APIKey:           cfg.YouTube.APIKey,
		Timeout:          cfg.YouTubeTimeout(),
		MaxComments:      cfg.YouTube.MaxComments,
		IncludeReplies:   cfg.YouTube.IncludeReplies,
		ReplyConcurrency: cfg.YouTube.ReplyConcurrency,
		ThumbnailQuality: cfg.YouTube.ThumbnailQuality,
	})
	if err != nil {
		return nil, err
	}

	store, err := session.Open(cfg.Session.Store)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Components{
		Source:     source,
		Summarizer: narrative.NewSummarizer(provider, cfg.OpenAI.SummaryModel),
		Annotator:  sentiment.NewAnnotator(),
		Sessions:   session.NewCoordinator(store, gateway, cfg.SessionTTL()),
		Agent:      agent,
	}, orchestrator.Options{
		CommentLimit:   cfg.Session.CommentLimit,
		WarmEmbeddings: cfg.Session.WarmEmbeddings,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Debug("components ready",
		"store", cfg.Session.Store.Type,
		"chat_model", cfg.OpenAI.ChatModel,
		"embedding_model", cfg.OpenAI.EmbeddingModel,
	)
	return &app{cfg: cfg, store: store, orch: orch}, nil
}

// setup loads the config and wires the app in one step.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, failure(err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, failure(err)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logging.Default().Warn("failed to close session store", "error", err)
	}
}

// failure logs err in full and returns the message shown to the user.
func failure(err error) error {
	logging.Default().Error("command failed", "error", err)
	msg := orchestrator.UserMessage(err)
	if isConfigError(err) {
		msg = err.Error()
	}
	return fmt.Errorf("%s %s", errorStyle.Render("Error:"), msg)
}

func isConfigError(err error) bool {
	return errors.Is(err, config.ErrReadConfig) ||
		errors.Is(err, config.ErrParseConfig) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, llm.ErrInvalidConfig)
}
