package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

const (
	coverageSampleSize = 8
	coverageTextChars  = 300
)

var coverageSchema = llm.NewSchema[CoverageVerdict]("coverage_check", "Whether the shown comments suffice to answer")

const coverageSystemPrompt = "You are a coverage checker. Decide whether the comments shown are sufficient " +
	"to answer the question. Only propose new_queries when something key is missing."

// CoverageChecker judges whether selected comments answer a question.
type CoverageChecker struct {
	provider llm.Provider
	model    string
}

// NewCoverageChecker creates a CoverageChecker using the chat model.
func NewCoverageChecker(provider llm.Provider, model string) *CoverageChecker {
	return &CoverageChecker{provider: provider, model: model}
}

// Check returns the model's verdict. On failure it assumes the evidence is sufficient.
func (c *CoverageChecker) Check(ctx context.Context, question string, selected []model.Comment) Outcome[CoverageVerdict] {
	logger := logging.From(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nCurrent Comments (sample):\n", question)
	for i, cm := range selected {
		if i == coverageSampleSize {
			break
		}
		fmt.Fprintf(&b, "- %s\n", truncateRunes(cm.Text, coverageTextChars))
	}

	raw, err := c.provider.CompleteStructured(ctx, c.model,
		[]llm.Message{llm.System(coverageSystemPrompt), llm.User(b.String())}, coverageSchema)
	if err != nil {
		reason := failureReason(err)
		logger.Warn("coverage check failed, assuming sufficient", "reason", reason, "error", err)
		return Fallback(CoverageVerdict{Reason: reason, NewQueries: []string{}}, reason)
	}

	var verdict CoverageVerdict
	if err := llm.DecodeJSON(raw, &verdict); err != nil {
		logger.Warn("coverage reply unusable, assuming sufficient", "error", err)
		return Fallback(CoverageVerdict{Reason: "invalid coverage response", NewQueries: []string{}}, "invalid coverage response")
	}

	verdict.NewQueries = nonEmpty(verdict.NewQueries)
	return Ok(verdict)
}
