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

const summarizerSystemPrompt = "You are an expert summarizer."

// Summarizer condenses a video's most-liked comments into a short overview.
type Summarizer struct {
	provider llm.Provider
	model    string
}

// NewSummarizer creates a Summarizer using the given chat model.
func NewSummarizer(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

// Summarize returns an overview of comments. Only the 50 most-liked comments
// are sent to the model; the caller's slice is not reordered.
func (s *Summarizer) Summarize(ctx context.Context, comments []model.Comment) (string, error) {
	if len(comments) == 0 {
		return "", goerr.Wrap(ErrNoComments, "cannot summarize an empty comment list")
	}

	sorted := append([]model.Comment(nil), comments...)
	model.SortByLikes(sorted)

	prompt := AssembleSummaryPrompt(sorted)
	logging.From(ctx).Debug("summarizing comments",
		"model", s.model,
		"comments", len(comments),
		"prompt_len", len(prompt),
	)

	text, err := s.provider.Complete(ctx, s.model, []llm.Message{
		llm.System(summarizerSystemPrompt),
		llm.User(prompt),
	})
	if err != nil {
		return "", generationError(err, "comment summary failed", s.model)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", goerr.Wrap(fmt.Errorf("%w: %w", ErrGenerationFailed, llm.ErrInteraction),
			"model returned an empty summary", goerr.V("model", s.model))
	}
	return text, nil
}
