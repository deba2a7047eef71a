// Package llm defines the language-model provider consumed by the QA engine.
// A Provider is the only source of embeddings, chat completions and
// schema-constrained JSON responses. Implementations are injected into each
// component so tests can substitute a deterministic fake.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInteraction   = goerr.New("language-model provider call failed")
	ErrRateLimited   = goerr.New("language-model provider rate limited")
	ErrInvalidConfig = goerr.New("invalid provider configuration")
)

// TagRetryable marks provider failures that may succeed if retried later.
var TagRetryable = goerr.NewTag("retryable")

// IsRetryable reports whether err is a rate-limit or otherwise retryable
// provider failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) || goerr.HasTag(err, TagRetryable)
}

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Schema describes the JSON object a structured completion must return.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Provider is a remote language-model service.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)

	// Complete returns the assistant reply for messages.
	Complete(ctx context.Context, model string, messages []Message) (string, error)

	// CompleteStructured returns the raw JSON text of a reply constrained to schema.
	CompleteStructured(ctx context.Context, model string, messages []Message, schema Schema) (string, error)
}

// Config holds options shared by provider implementations.
type Config struct {
	// APIKey is the authentication key for the provider
	APIKey string `masq:"secret"`

	// BaseURL overrides the provider endpoint (empty = provider default)
	BaseURL string

	// Timeout bounds every single provider call
	Timeout time.Duration

	// MaxRetries is passed to the provider client (0 = no client retries)
	MaxRetries int

	// EmbeddingDimension requests a reduced embedding size (0 = model default)
	EmbeddingDimension int

	// Temperature controls randomness (0 = model default)
	Temperature float32

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Timeout:            15 * time.Second,
		MaxRetries:         2,
		EmbeddingDimension: 1536,
	}
}
