package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

func makeComments(n int) []model.Comment {
	out := make([]model.Comment, n)
	for i := range out {
		out[i] = model.Comment{Author: fmt.Sprintf("user%d", i), Text: fmt.Sprintf("comment number %d", i)}
	}
	return out
}

func TestReranker_Rerank_Empty(t *testing.T) {
	provider := &llm.MockProvider{}
	out := NewReranker(provider, "gpt-test").Rerank(context.Background(), "q", nil, makeComments(3), 5)

	if len(out.Value) != 0 {
		t.Errorf("expected empty result, got %v", out.Value)
	}
	if provider.StructuredCalls("rerank_scores") != 0 {
		t.Error("expected no provider call for empty candidates")
	}
}

func TestReranker_Rerank_ReordersAndDiscardsUnknown(t *testing.T) {
	provider := &llm.MockProvider{Structured: map[string]string{
		"rerank_scores": `{"scores":[
			{"idx": 2, "score": 9},
			{"idx": 99, "score": 10},
			{"idx": 0, "score": 3},
			{"idx": 1, "score": 9}
		]}`,
	}}
	candidates := []Candidate{{Index: 0, Score: 0.9}, {Index: 1, Score: 0.8}, {Index: 2, Score: 0.7}}

	out := NewReranker(provider, "gpt-test").Rerank(context.Background(), "q", candidates, makeComments(3), 2)
	if out.Fallback {
		t.Fatalf("unexpected fallback: %s", out.Reason)
	}

	got := out.Value
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %v", got)
	}
	if got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("expected tie broken by lower index [1 2], got %v", got)
	}
	for _, c := range got {
		if c.Index == 99 {
			t.Error("reranker returned an index absent from its input")
		}
	}
}

func TestReranker_Rerank_PassThrough(t *testing.T) {
	candidates := []Candidate{{Index: 4, Score: 0.9}, {Index: 1, Score: 0.8}, {Index: 3, Score: 0.7}}

	tests := []struct {
		name     string
		provider *llm.MockProvider
		reason   string
	}{
		{"provider error", &llm.MockProvider{Error: goerr.Wrap(llm.ErrInteraction, "boom")}, "provider error"},
		{"rate limited", &llm.MockProvider{Error: goerr.Wrap(llm.ErrRateLimited, "429")}, "provider rate limited"},
		{"malformed", &llm.MockProvider{Structured: map[string]string{"rerank_scores": "{oops"}}, "invalid rerank response"},
		{"only unknown indices", &llm.MockProvider{Structured: map[string]string{
			"rerank_scores": `{"scores":[{"idx": 7, "score": 8}]}`,
		}}, "no usable rerank scores"},
		{"no scores", &llm.MockProvider{Structured: map[string]string{"rerank_scores": `{"scores":[]}`}}, "no usable rerank scores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewReranker(tt.provider, "gpt-test").Rerank(context.Background(), "q", candidates, makeComments(5), 2)

			if !out.Fallback || out.Reason != tt.reason {
				t.Errorf("expected fallback %q, got fallback=%v reason=%q", tt.reason, out.Fallback, out.Reason)
			}
			if len(out.Value) != 2 || out.Value[0].Index != 4 || out.Value[1].Index != 1 {
				t.Errorf("expected original order truncated to 2, got %v", out.Value)
			}
		})
	}
}

func TestReranker_Rerank_BoundsPrompt(t *testing.T) {
	comments := makeComments(60)
	comments[0].Text = strings.Repeat("y", 1000)
	candidates := make([]Candidate, 60)
	for i := range candidates {
		candidates[i] = Candidate{Index: i, Score: 1 - float64(i)/100}
	}
	provider := &llm.MockProvider{}

	NewReranker(provider, "gpt-test").Rerank(context.Background(), "q", candidates, comments, 10)

	prompt := provider.LastPrompt()
	if n := strings.Count(prompt, "- idx="); n != maxRerankCandidates {
		t.Errorf("expected %d candidates in prompt, got %d", maxRerankCandidates, n)
	}
	if strings.Contains(prompt, strings.Repeat("y", rerankTextChars+1)) {
		t.Error("expected comment text truncated to 400 characters")
	}
	if !strings.Contains(prompt, strings.Repeat("y", rerankTextChars)) {
		t.Error("expected truncated comment text in prompt")
	}
}
