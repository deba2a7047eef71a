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
	maxRerankCandidates = 50
	rerankTextChars     = 400
)

type rerankScore struct {
	Idx   int     `json:"idx"`
	Score float64 `json:"score" jsonschema_description:"Relevance from 0 to 10"`
}

type rerankReply struct {
	Scores []rerankScore `json:"scores"`
}

var rerankSchema = llm.NewSchema[rerankReply]("rerank_scores", "Relevance scores for candidate comments")

const rerankSystemPrompt = "You are a reranker. Given a question and candidate comments, " +
	"score each candidate's relevance to the question from 0 to 10 and return " +
	"{scores: [{idx, score}]} sorted by score descending."

// Reranker reorders candidates using the model's relevance judgment.
type Reranker struct {
	provider llm.Provider
	model    string
}

// NewReranker creates a Reranker using the chat model.
func NewReranker(provider llm.Provider, model string) *Reranker {
	return &Reranker{provider: provider, model: model}
}

// Rerank returns at most limit candidates ordered by model relevance. When the
// model cannot be used the incoming order is kept, truncated to limit.
// Returned indices are always a subset of the candidates' indices.
func (r *Reranker) Rerank(
	ctx context.Context,
	question string,
	candidates []Candidate,
	comments []model.Comment,
	limit int,
) Outcome[[]Candidate] {
	if len(candidates) == 0 {
		return Ok([]Candidate{})
	}
	logger := logging.From(ctx)
	passThrough := Truncate(candidates, limit)

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nCandidates:\n", question)
	for _, c := range Truncate(candidates, maxRerankCandidates) {
		var text string
		if c.Index >= 0 && c.Index < len(comments) {
			text = truncateRunes(comments[c.Index].Text, rerankTextChars)
		}
		fmt.Fprintf(&b, "- idx=%d pre=%.3f text=%s\n", c.Index, c.Score, text)
	}

	raw, err := r.provider.CompleteStructured(ctx, r.model,
		[]llm.Message{llm.System(rerankSystemPrompt), llm.User(b.String())}, rerankSchema)
	if err != nil {
		reason := failureReason(err)
		logger.Warn("rerank failed, keeping retrieval order", "reason", reason, "error", err)
		return Fallback(passThrough, reason)
	}

	var reply rerankReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		logger.Warn("rerank reply unusable, keeping retrieval order", "error", err)
		return Fallback(passThrough, "invalid rerank response")
	}

	known := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		known[c.Index] = true
	}
	var scored []Candidate
	for _, s := range reply.Scores {
		if known[s.Idx] {
			scored = append(scored, Candidate{Index: s.Idx, Score: s.Score})
		}
	}
	if len(scored) == 0 {
		return Fallback(passThrough, "no usable rerank scores")
	}

	return Ok(Truncate(MergeMax(scored), limit))
}
