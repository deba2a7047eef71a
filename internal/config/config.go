// Package config loads the ytqa configuration from a YAML file and the environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrReadConfig    = goerr.New("failed to read config file")
	ErrParseConfig   = goerr.New("failed to parse config file")
	ErrInvalidConfig = goerr.New("invalid configuration")
)

// Store types accepted by SessionConfig.Store.Type.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// OpenAIConfig configures the language-model provider.
type OpenAIConfig struct {
	APIKey             string `yaml:"-" masq:"secret"`
	BaseURL            string `yaml:"base_url,omitempty"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	ChatModel          string `yaml:"chat_model"`
	SummaryModel       string `yaml:"summary_model"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
	MaxRetries         int    `yaml:"max_retries"`
}

// YouTubeConfig configures the comment source.
type YouTubeConfig struct {
	APIKey           string `yaml:"-" masq:"secret"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
	MaxComments      int    `yaml:"max_comments"`
	IncludeReplies   bool   `yaml:"include_replies"`
	ReplyConcurrency int    `yaml:"reply_concurrency"`
	ThumbnailQuality string `yaml:"thumbnail_quality"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Type          string `yaml:"type"`
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-" masq:"secret"`
	RedisDB       int    `yaml:"redis_db"`
	MemorySize    int    `yaml:"memory_size"`
}

// SessionConfig configures session lifetime and size.
type SessionConfig struct {
	TTLSecs        int         `yaml:"ttl_secs"`
	CommentLimit   int         `yaml:"comment_limit"`
	WarmEmbeddings bool        `yaml:"warm_embeddings"`
	Store          StoreConfig `yaml:"store"`
}

// AgentConfig configures the question-answering loop.
type AgentConfig struct {
	MaxLoops int `yaml:"max_loops"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
	JSON  bool   `yaml:"json"`
}

// Config is the root configuration.
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai"`
	YouTube YouTubeConfig `yaml:"youtube"`
	Session SessionConfig `yaml:"session"`
	Agent   AgentConfig   `yaml:"agent"`
	Log     LogConfig     `yaml:"log"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingDimension: 1536,
			ChatModel:          "gpt-5-mini-2025-08-07",
			SummaryModel:       "gpt-4.1-mini",
			TimeoutSecs:        15,
			MaxRetries:         2,
		},
		YouTube: YouTubeConfig{
			TimeoutSecs:      10,
			ReplyConcurrency: 8,
			ThumbnailQuality: "hqdefault",
		},
		Session: SessionConfig{
			TTLSecs:      3600,
			CommentLimit: 500,
			Store: StoreConfig{
				Type:       StoreSQLite,
				SQLitePath: "ytqa-sessions.db",
				RedisAddr:  "localhost:6379",
				MemorySize: 128,
			},
		},
		Agent: AgentConfig{MaxLoops: 2},
		Log:   LogConfig{Level: "info", Color: true},
	}
}

// Load reads path and applies defaults and environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, goerr.Wrap(ErrReadConfig, err.Error(), goerr.V("path", path))
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, goerr.Wrap(ErrParseConfig, err.Error(), goerr.V("path", path))
			}
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML. Secrets are never written.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Session.Store.Type {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return goerr.Wrap(ErrInvalidConfig, "unknown session store type", goerr.V("type", c.Session.Store.Type))
	}
	if c.Agent.MaxLoops < 0 {
		return goerr.Wrap(ErrInvalidConfig, "agent.max_loops must not be negative", goerr.V("max_loops", c.Agent.MaxLoops))
	}
	return nil
}

// OpenAITimeout returns the per-call provider timeout.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSecs) * time.Second
}

// YouTubeTimeout returns the per-call fetch timeout.
func (c *Config) YouTubeTimeout() time.Duration {
	return time.Duration(c.YouTube.TimeoutSecs) * time.Second
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSecs) * time.Second
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = def.OpenAI.EmbeddingModel
	}
	if cfg.OpenAI.EmbeddingDimension <= 0 {
		cfg.OpenAI.EmbeddingDimension = def.OpenAI.EmbeddingDimension
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = def.OpenAI.ChatModel
	}
	if cfg.OpenAI.SummaryModel == "" {
		cfg.OpenAI.SummaryModel = def.OpenAI.SummaryModel
	}
	// Provider calls are capped at 15s.
	if cfg.OpenAI.TimeoutSecs <= 0 || cfg.OpenAI.TimeoutSecs > 15 {
		cfg.OpenAI.TimeoutSecs = def.OpenAI.TimeoutSecs
	}
	if cfg.OpenAI.MaxRetries < 0 {
		cfg.OpenAI.MaxRetries = def.OpenAI.MaxRetries
	}
	if cfg.YouTube.TimeoutSecs <= 0 || cfg.YouTube.TimeoutSecs > 10 {
		cfg.YouTube.TimeoutSecs = def.YouTube.TimeoutSecs
	}
	if cfg.YouTube.ReplyConcurrency <= 0 {
		cfg.YouTube.ReplyConcurrency = def.YouTube.ReplyConcurrency
	}
	if cfg.YouTube.ThumbnailQuality == "" {
		cfg.YouTube.ThumbnailQuality = def.YouTube.ThumbnailQuality
	}
	if cfg.Session.TTLSecs <= 0 {
		cfg.Session.TTLSecs = def.Session.TTLSecs
	}
	if cfg.Session.CommentLimit <= 0 {
		cfg.Session.CommentLimit = def.Session.CommentLimit
	}
	if cfg.Session.Store.Type == "" {
		cfg.Session.Store.Type = def.Session.Store.Type
	}
	if cfg.Session.Store.SQLitePath == "" {
		cfg.Session.Store.SQLitePath = def.Session.Store.SQLitePath
	}
	if cfg.Session.Store.RedisAddr == "" {
		cfg.Session.Store.RedisAddr = def.Session.Store.RedisAddr
	}
	if cfg.Session.Store.MemorySize <= 0 {
		cfg.Session.Store.MemorySize = def.Session.Store.MemorySize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

func applyEnv(cfg *Config) {
	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.Session.Store.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("YTQA_STORE"); v != "" {
		cfg.Session.Store.Type = v
	}
	if v := os.Getenv("YTQA_SQLITE_PATH"); v != "" {
		cfg.Session.Store.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.Store.RedisAddr = v
	}
	if v := os.Getenv("YTQA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("YTQA_MAX_LOOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxLoops = n
		}
	}
}
