// Package narrative produces the prose the engine returns to viewers: the final
// answer to a question and the overall summary of a video's comments. Both are
// single non-streaming completions against an llm.Provider over prompts
// assembled in this package.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

var (
	ErrGenerationFailed = goerr.New("narrative generation failed")
	ErrNoComments       = goerr.New("no comments to summarize")
)

// Synthesizer writes the final answer from the selected evidence.
type Synthesizer struct {
	provider llm.Provider
	model    string
}

// NewSynthesizer creates a Synthesizer using the given chat model.
func NewSynthesizer(provider llm.Provider, model string) *Synthesizer {
	return &Synthesizer{provider: provider, model: model}
}

// Answer generates the answer to question. Provider failures are returned
// wrapped with ErrGenerationFailed and keep their retryable classification;
// an empty completion is an error, never an empty answer.
func (s *Synthesizer) Answer(
	ctx context.Context,
	question string,
	selected []model.Comment,
	session *model.Session,
	instructions string,
) (string, error) {
	if session == nil {
		return "", goerr.Wrap(ErrGenerationFailed, "session is required")
	}

	prompt := AssembleAnswerPrompt(question, selected, session, instructions)
	logging.From(ctx).Debug("generating answer",
		"model", s.model,
		"selected", len(selected),
		"prompt_len", len(prompt),
	)

	text, err := s.provider.Complete(ctx, s.model, []llm.Message{llm.User(prompt)})
	if err != nil {
		return "", generationError(err, "answer generation failed", s.model)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", goerr.Wrap(fmt.Errorf("%w: %w", ErrGenerationFailed, llm.ErrInteraction),
			"model returned an empty answer", goerr.V("model", s.model))
	}
	return text, nil
}

func generationError(err error, msg, modelName string) error {
	opts := []goerr.Option{goerr.V("model", modelName)}
	if llm.IsRetryable(err) {
		opts = append(opts, goerr.T(llm.TagRetryable))
	}
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrGenerationFailed, err), msg, opts...)
}
