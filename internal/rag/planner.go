package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

const (
	planSummaryChars     = 1200
	maxPlanK             = 50
	fallbackInstructions = "Be concise and cite 2-3 comments if used."
)

type planReply struct {
	NeedComments       *bool    `json:"need_comments" jsonschema_description:"Whether viewer comments are needed to answer"`
	NeedSummary        *bool    `json:"need_summary" jsonschema_description:"Whether the video summary is needed to answer"`
	PreferRecent       *bool    `json:"prefer_recent"`
	TopK               *int     `json:"top_k" jsonschema_description:"Final number of comments to select"`
	PerQueryK          *int     `json:"per_query_k" jsonschema_description:"Comments retrieved per query rewrite"`
	Rerank             *bool    `json:"rerank"`
	QueryRewrites      []string `json:"query_rewrites" jsonschema_description:"Search queries that retrieve relevant comments"`
	MinKeywords        []string `json:"min_keywords"`
	AnswerInstructions string   `json:"answer_instructions" jsonschema_description:"Style guidance for the final answer"`
	Rationale          string   `json:"rationale"`
}

var planSchema = llm.NewSchema[planReply]("retrieval_plan", "Retrieval plan for a YouTube comments question")

const planSystemPrompt = "You are a retrieval planner for a question-answering agent over YouTube comments. " +
	"Decide whether comments are needed, how many to retrieve and how the answer should be styled. " +
	"Reply with a JSON object only."

// Planner asks the model how to retrieve evidence for a question.
type Planner struct {
	provider llm.Provider
	model    string
}

// NewPlanner creates a Planner using the chat model.
func NewPlanner(provider llm.Provider, model string) *Planner {
	return &Planner{provider: provider, model: model}
}

// Plan returns the model's plan, or the fallback plan if the model call or its
// reply is unusable. It never fails.
func (p *Planner) Plan(ctx context.Context, question string, session *model.Session) Outcome[RetrievalPlan] {
	logger := logging.From(ctx)

	var title, summary string
	if session != nil {
		title = session.VideoInfo.Title
		summary = truncateRunes(session.Summary, planSummaryChars)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Video Title: %s\n", title)
	fmt.Fprintf(&b, "Summary: %s\n\n", summary)
	fmt.Fprintf(&b, "User Question: %s\n\n", question)
	b.WriteString("Guidelines:\n")
	b.WriteString("- Opinion or consensus questions need comments.\n")
	b.WriteString("- Factual questions about the video content may be answered from the summary alone.\n")
	b.WriteString("- Provide 2-5 query_rewrites that retrieve the most relevant comments.\n")
	b.WriteString("- Keep per_query_k small (3-7); top_k is the final merged size.\n")
	b.WriteString("- Set rerank to true for nuanced or long questions.\n")
	b.WriteString("- answer_instructions steer the final answer (e.g. 'cite top 3 comments', 'summarize consensus').\n")

	raw, err := p.provider.CompleteStructured(ctx, p.model,
		[]llm.Message{llm.System(planSystemPrompt), llm.User(b.String())}, planSchema)
	if err != nil {
		reason := failureReason(err)
		logger.Warn("planning failed, using fallback plan", "reason", reason, "error", err)
		return Fallback(FallbackPlan(question, reason), reason)
	}

	var reply planReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		logger.Warn("planner reply unusable, using fallback plan", "error", err)
		return Fallback(FallbackPlan(question, "invalid planner response"), "invalid planner response")
	}

	plan := reply.toPlan()
	logger.Debug("retrieval plan", "plan", plan)
	return Ok(plan)
}

// FallbackPlan asks the question as-is.
func FallbackPlan(question, reason string) RetrievalPlan {
	plan := DefaultPlan()
	plan.QueryRewrites = []string{question}
	plan.AnswerInstructions = fallbackInstructions
	plan.Rationale = "fallback plan: " + reason
	return plan
}

func (r planReply) toPlan() RetrievalPlan {
	plan := DefaultPlan()
	if r.NeedComments != nil {
		plan.NeedComments = *r.NeedComments
	}
	if r.NeedSummary != nil {
		plan.NeedSummary = *r.NeedSummary
	}
	if r.PreferRecent != nil {
		plan.PreferRecent = *r.PreferRecent
	}
	if r.Rerank != nil {
		plan.Rerank = *r.Rerank
	}
	if r.TopK != nil && *r.TopK > 0 {
		plan.TopK = min(*r.TopK, maxPlanK)
	}
	if r.PerQueryK != nil && *r.PerQueryK > 0 {
		plan.PerQueryK = min(*r.PerQueryK, maxPlanK)
	}
	plan.QueryRewrites = nonEmpty(r.QueryRewrites)
	plan.MinKeywords = nonEmpty(r.MinKeywords)
	plan.AnswerInstructions = strings.TrimSpace(r.AnswerInstructions)
	plan.Rationale = strings.TrimSpace(r.Rationale)
	return plan
}

// failureReason names the category of a provider failure without echoing its text.
func failureReason(err error) string {
	switch {
	case llm.IsRetryable(err):
		return "provider rate limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "provider timeout"
	default:
		return "provider error"
	}
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
