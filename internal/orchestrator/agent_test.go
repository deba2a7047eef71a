package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/narrative"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/rag"
)

const (
	sufficientReply   = `{"need_more": false, "reason": "enough evidence", "new_queries": []}`
	insufficientReply = `{"need_more": true, "reason": "missing audio opinions", "new_queries": ["audio quality", ""]}`
)

func testSession() *model.Session {
	return &model.Session{
		VideoID:   "dQw4w9WgXcQ",
		VideoInfo: model.VideoInfo{Title: "Desk setup tour"},
		Summary:   "Viewers discuss the desk, the lighting and the audio.",
		Comments: []model.Comment{
			{Author: "a", Text: "the audio quality is great", LikeCount: 50},
			{Author: "b", Text: "love the desk lamp", LikeCount: 40},
			{Author: "c", Text: "audio was too quiet for me", LikeCount: 30},
			{Author: "d", Text: "where did you buy the chair", LikeCount: 20},
			{Author: "e", Text: "the lighting looks amazing", LikeCount: 10},
		},
		TotalComments: 5,
	}
}

var topics = []string{"audio", "desk", "chair", "light"}

// topicVector embeds text as topic indicators plus a constant bias, so
// similarity between test texts is predictable.
func topicVector(text string) []float32 {
	v := make([]float32, len(topics)+1)
	v[len(topics)] = 1
	lower := strings.ToLower(text)
	for i, topic := range topics {
		if strings.Contains(lower, topic) {
			v[i] = 2
		}
	}
	return v
}

func newTopicProvider(response string) *llm.MockProvider {
	provider := llm.NewMockProvider(response)
	provider.EmbedFunc = func(ctx context.Context, model string, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = topicVector(text)
		}
		return vectors, nil
	}
	return provider
}

// testCorpus embeds the session comments without touching provider counters.
func testCorpus(s *model.Session) [][]float32 {
	corpus := make([][]float32, len(s.Comments))
	for i, c := range s.Comments {
		corpus[i] = rag.Normalize(topicVector(c.Text))
	}
	return corpus
}

func newTestAgent(t *testing.T, provider llm.Provider, maxLoops int) *Agent {
	t.Helper()
	ranker, err := rag.NewRanker(rag.NewGateway(provider, nil, rag.DefaultGatewayConfig()))
	if err != nil {
		t.Fatalf("failed to create ranker: %v", err)
	}
	agent, err := NewAgent(AgentComponents{
		Planner:     rag.NewPlanner(provider, "chat"),
		Ranker:      ranker,
		Reranker:    rag.NewReranker(provider, "chat"),
		Coverage:    rag.NewCoverageChecker(provider, "chat"),
		Synthesizer: narrative.NewSynthesizer(provider, "chat"),
	}, maxLoops)
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	return agent
}

func TestNewAgent_RequiresComponents(t *testing.T) {
	if _, err := NewAgent(AgentComponents{}, 2); err == nil {
		t.Error("expected error for missing components")
	}
}

func TestAgent_SkipsRetrievalWhenCommentsNotNeeded(t *testing.T) {
	provider := newTopicProvider("It is a desk setup tour.")
	provider.Structured = map[string]string{
		"retrieval_plan": `{"need_comments": false, "answer_instructions": "one sentence"}`,
	}
	agent := newTestAgent(t, provider, 2)

	result, err := agent.Run(context.Background(), "What is the video about?", testSession(), testCorpus(testSession()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Answer != "It is a desk setup tour." {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if result.UsedComments == nil || len(result.UsedComments) != 0 {
		t.Errorf("expected an empty, non-nil selection, got %#v", result.UsedComments)
	}
	if provider.EmbedCalls() != 0 {
		t.Errorf("expected no retrieval, got %d embed calls", provider.EmbedCalls())
	}
	if provider.StructuredCalls("coverage_check") != 0 {
		t.Error("expected no coverage check")
	}
	want := []State{StatePlan, StateAnswer, StateDone}
	if !reflect.DeepEqual(result.Trace, want) {
		t.Errorf("expected trace %v, got %v", want, result.Trace)
	}
	if prompt := provider.LastPrompt(); !strings.Contains(prompt, "(none selected)") || !strings.Contains(prompt, "one sentence") {
		t.Errorf("expected empty selection marker and instructions in prompt, got:\n%s", prompt)
	}
}

func TestAgent_SufficientCoverage(t *testing.T) {
	provider := newTopicProvider("Viewers like the audio.")
	provider.Structured = map[string]string{
		"retrieval_plan": `{"need_comments": true, "rerank": false, "top_k": 2, "per_query_k": 3, "query_rewrites": ["audio quality"]}`,
		"coverage_check": sufficientReply,
	}
	agent := newTestAgent(t, provider, 2)

	result, err := agent.Run(context.Background(), "How is the audio?", testSession(), testCorpus(testSession()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.EmbedCalls() != 1 {
		t.Errorf("expected one ranker pass, got %d", provider.EmbedCalls())
	}
	if got := provider.EmbeddedTexts()[0]; !reflect.DeepEqual(got, []string{"How is the audio?", "audio quality"}) {
		t.Errorf("expected question followed by rewrites, got %v", got)
	}
	if result.Loops != 1 {
		t.Errorf("expected 1 coverage check, got %d", result.Loops)
	}
	if len(result.UsedComments) != 2 {
		t.Fatalf("expected top_k=2 comments, got %d", len(result.UsedComments))
	}
	for _, c := range result.UsedComments {
		if !strings.Contains(c.Text, "audio") {
			t.Errorf("expected audio comments to rank first, got %q", c.Text)
		}
	}
	want := []State{StatePlan, StateRetrieve, StateCoverageCheck, StateAnswer, StateDone}
	if !reflect.DeepEqual(result.Trace, want) {
		t.Errorf("expected trace %v, got %v", want, result.Trace)
	}
}

func TestAgent_LoopIsBounded(t *testing.T) {
	for _, maxLoops := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("max_loops=%d", maxLoops), func(t *testing.T) {
			provider := newTopicProvider("answer")
			provider.Structured = map[string]string{
				"retrieval_plan": `{"need_comments": true, "rerank": false, "top_k": 3, "per_query_k": 2}`,
				"coverage_check": insufficientReply,
			}
			agent := newTestAgent(t, provider, maxLoops)

			result, err := agent.Run(context.Background(), "How is the audio?", testSession(), testCorpus(testSession()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := provider.EmbedCalls(); got != maxLoops+1 {
				t.Errorf("expected %d ranker passes, got %d", maxLoops+1, got)
			}
			if got := provider.StructuredCalls("coverage_check"); got != maxLoops {
				t.Errorf("expected %d coverage checks, got %d", maxLoops, got)
			}
			if result.Loops != maxLoops {
				t.Errorf("expected %d loops, got %d", maxLoops, result.Loops)
			}
			if len(result.UsedComments) > 3 {
				t.Errorf("expected at most top_k comments, got %d", len(result.UsedComments))
			}
			if result.Answer != "answer" {
				t.Errorf("unexpected answer %q", result.Answer)
			}
		})
	}
}

func TestAgent_FollowUpQueries(t *testing.T) {
	provider := newTopicProvider("answer")
	checks := 0
	provider.StructuredFunc = func(ctx context.Context, model string, messages []llm.Message, schema llm.Schema) (string, error) {
		switch schema.Name {
		case "retrieval_plan":
			return `{"need_comments": true, "rerank": false, "top_k": 3, "per_query_k": 2}`, nil
		case "coverage_check":
			checks++
			if checks == 1 {
				return `{"need_more": true, "reason": "no chair info", "new_queries": ["chair", "chair", " "]}`, nil
			}
			return sufficientReply, nil
		}
		return "", nil
	}
	agent := newTestAgent(t, provider, 3)

	result, err := agent.Run(context.Background(), "How is the audio?", testSession(), testCorpus(testSession()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := provider.EmbeddedTexts()
	if len(batches) != 2 {
		t.Fatalf("expected 2 ranker passes, got %d", len(batches))
	}
	if !reflect.DeepEqual(batches[1], []string{"chair"}) {
		t.Errorf("expected deduplicated follow-up queries, got %v", batches[1])
	}
	if result.Loops != 2 {
		t.Errorf("expected 2 loops, got %d", result.Loops)
	}
	found := false
	for _, c := range result.UsedComments {
		if strings.Contains(c.Text, "chair") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the follow-up pass to surface the chair comment, got %+v", result.UsedComments)
	}
}

func TestAgent_Rerank(t *testing.T) {
	provider := newTopicProvider("answer")
	provider.Structured = map[string]string{
		"retrieval_plan": `{"need_comments": true, "rerank": true, "top_k": 2, "per_query_k": 5}`,
		"rerank_scores":  `{"scores": [{"idx": 0, "score": 5}, {"idx": 3, "score": 9}, {"idx": 42, "score": 10}]}`,
		"coverage_check": sufficientReply,
	}
	agent := newTestAgent(t, provider, 2)
	sess := testSession()

	result, err := agent.Run(context.Background(), "Anything about furniture?", sess, testCorpus(sess))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []model.Comment{sess.Comments[3], sess.Comments[0]}
	if !reflect.DeepEqual(result.UsedComments, want) {
		t.Errorf("expected reranked selection %+v, got %+v", want, result.UsedComments)
	}
	if provider.StructuredCalls("rerank_scores") != 1 {
		t.Errorf("expected one rerank call, got %d", provider.StructuredCalls("rerank_scores"))
	}
}

func TestAgent_RerankFallbackKeepsRetrievalOrder(t *testing.T) {
	provider := newTopicProvider("answer")
	provider.Structured = map[string]string{
		"retrieval_plan": `{"need_comments": true, "rerank": true, "top_k": 2, "per_query_k": 5}`,
		"rerank_scores":  `not json`,
		"coverage_check": sufficientReply,
	}
	agent := newTestAgent(t, provider, 2)

	result, err := agent.Run(context.Background(), "audio", testSession(), testCorpus(testSession()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.UsedComments) != 2 {
		t.Fatalf("expected top_k comments, got %d", len(result.UsedComments))
	}
	for _, c := range result.UsedComments {
		if !strings.Contains(c.Text, "audio") {
			t.Errorf("expected similarity order to be kept, got %q", c.Text)
		}
	}
	if !reflect.DeepEqual(result.Trace[:4], []State{StatePlan, StateRetrieve, StateRerank, StateCoverageCheck}) {
		t.Errorf("unexpected trace %v", result.Trace)
	}
}

func TestAgent_PlannerFailureStillAnswers(t *testing.T) {
	provider := newTopicProvider("answer")
	provider.StructuredFunc = func(ctx context.Context, model string, messages []llm.Message, schema llm.Schema) (string, error) {
		if schema.Name == "retrieval_plan" {
			return "", llm.ErrRateLimited
		}
		return "", errors.New("provider down")
	}
	agent := newTestAgent(t, provider, 2)

	result, err := agent.Run(context.Background(), "How is the audio?", testSession(), testCorpus(testSession()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "answer" {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if !strings.HasPrefix(result.Plan.Rationale, "fallback plan") {
		t.Errorf("expected the fallback plan, got %+v", result.Plan)
	}
	if got := provider.EmbeddedTexts()[0]; !reflect.DeepEqual(got, []string{"How is the audio?"}) {
		t.Errorf("expected the question alone, got %v", got)
	}
	if len(result.UsedComments) != 5 {
		t.Errorf("expected the fallback top_k to cap at the corpus size, got %d", len(result.UsedComments))
	}
}

func TestAgent_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *llm.MockProvider)
		sentinel error
	}{
		{
			name: "ranking fails",
			setup: func(p *llm.MockProvider) {
				p.EmbedFunc = func(ctx context.Context, model string, texts []string) ([][]float32, error) {
					return nil, llm.ErrInteraction
				}
			},
			sentinel: rag.ErrEmbedding,
		},
		{
			name: "answer fails",
			setup: func(p *llm.MockProvider) {
				p.CompleteFunc = func(ctx context.Context, model string, messages []llm.Message) (string, error) {
					return "", llm.ErrInteraction
				}
			},
			sentinel: narrative.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTopicProvider("answer")
			provider.Structured = map[string]string{
				"retrieval_plan": `{"need_comments": true, "rerank": false}`,
				"coverage_check": sufficientReply,
			}
			tt.setup(provider)
			agent := newTestAgent(t, provider, 2)

			_, err := agent.Run(context.Background(), "How is the audio?", testSession(), testCorpus(testSession()))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestAgent_NilSession(t *testing.T) {
	agent := newTestAgent(t, newTopicProvider("answer"), 2)
	if _, err := agent.Run(context.Background(), "q", nil, nil); err == nil {
		t.Error("expected error for nil session")
	}
}

func TestUniqueQueries(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{nil, []string{}},
		{[]string{"a", " a ", "", "b", "a"}, []string{"a", "b"}},
		{[]string{"  "}, []string{}},
	}
	for _, tt := range tests {
		if got := uniqueQueries(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("uniqueQueries(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestState_String(t *testing.T) {
	if StateCoverageCheck.String() != "COVERAGE_CHECK" {
		t.Errorf("unexpected name %q", StateCoverageCheck.String())
	}
	if State(99).String() != "State(99)" {
		t.Errorf("unexpected name %q", State(99).String())
	}
}
