package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/narrative"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/rag"
)

// State is one step of the question-answering state machine.
type State int

const (
	StatePlan State = iota
	StateRetrieve
	StateRerank
	StateCoverageCheck
	StateAnswer
	StateDone
)

var stateNames = [...]string{"PLAN", "RETRIEVE", "RERANK", "COVERAGE_CHECK", "ANSWER", "DONE"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	// DefaultMaxLoops bounds the number of coverage checks per question.
	DefaultMaxLoops = 2

	minRetrieveK = 5
	minRefineK   = 3
)

// AgentComponents are the steps an Agent drives.
type AgentComponents struct {
	Planner     *rag.Planner
	Ranker      *rag.Ranker
	Reranker    *rag.Reranker
	Coverage    *rag.CoverageChecker
	Synthesizer *narrative.Synthesizer
}

// Agent answers one question against a session with a bounded
// plan/retrieve/check loop.
type Agent struct {
	planner     *rag.Planner
	ranker      *rag.Ranker
	reranker    *rag.Reranker
	coverage    *rag.CoverageChecker
	synthesizer *narrative.Synthesizer
	maxLoops    int
}

// NewAgent creates an Agent. maxLoops below zero means DefaultMaxLoops.
func NewAgent(c AgentComponents, maxLoops int) (*Agent, error) {
	if c.Planner == nil || c.Ranker == nil || c.Reranker == nil || c.Coverage == nil || c.Synthesizer == nil {
		return nil, goerr.New("agent requires planner, ranker, reranker, coverage checker and synthesizer")
	}
	if maxLoops < 0 {
		maxLoops = DefaultMaxLoops
	}
	return &Agent{
		planner:     c.Planner,
		ranker:      c.Ranker,
		reranker:    c.Reranker,
		coverage:    c.Coverage,
		synthesizer: c.Synthesizer,
		maxLoops:    maxLoops,
	}, nil
}

// Result is the terminal output of an agent run.
type Result struct {
	Answer       string            `json:"answer"`
	UsedComments []model.Comment   `json:"used_comments"`
	Plan         rag.RetrievalPlan `json:"plan"`
	Loops        int               `json:"loops"`
	Trace        []State           `json:"trace"`
}

// run holds the mutable state of a single question.
type run struct {
	question string
	session  *model.Session
	corpus   [][]float32

	plan     rag.RetrievalPlan
	queries  []string
	pool     []rag.Candidate
	selected []model.Comment
	loops    int
}

// Run answers question. corpus holds the comment vectors, index-aligned with
// session.Comments; a nil vector is never retrieved. Only ranking and answer
// failures are returned; planning, reranking and coverage failures degrade
// to their fallbacks.
func (a *Agent) Run(ctx context.Context, question string, session *model.Session, corpus [][]float32) (*Result, error) {
	if session == nil {
		return nil, goerr.New("session is required")
	}
	logger := logging.From(ctx)

	r := &run{
		question: question,
		session:  session,
		corpus:   corpus,
		selected: []model.Comment{},
	}
	result := &Result{}

	state := StatePlan
	for state != StateDone {
		result.Trace = append(result.Trace, state)
		logger.Debug("[agent] stage", "state", state.String(), "loops", r.loops)

		var err error
		switch state {
		case StatePlan:
			state = a.doPlan(ctx, r)
		case StateRetrieve:
			state, err = a.doRetrieve(ctx, r)
		case StateRerank:
			state = a.doRerank(ctx, r)
		case StateCoverageCheck:
			state = a.doCoverage(ctx, r)
		case StateAnswer:
			result.Answer, err = a.synthesizer.Answer(ctx, r.question, r.selected, r.session, r.plan.AnswerInstructions)
			state = StateDone
		default:
			err = goerr.New("unknown agent state", goerr.V("state", int(state)))
		}
		if err != nil {
			return nil, err
		}
	}
	result.Trace = append(result.Trace, StateDone)

	result.UsedComments = r.selected
	result.Plan = r.plan
	result.Loops = r.loops
	logger.Info("[agent] answered question",
		"used_comments", len(r.selected),
		"loops", r.loops,
		"answer_chars", len(result.Answer),
	)
	return result, nil
}

func (a *Agent) doPlan(ctx context.Context, r *run) State {
	outcome := a.planner.Plan(ctx, r.question, r.session)
	r.plan = outcome.Value
	if outcome.Fallback {
		logging.From(ctx).Warn("[agent] using fallback plan", "reason", outcome.Reason)
	}
	if !r.plan.NeedComments {
		return StateAnswer
	}
	r.queries = uniqueQueries(append([]string{r.question}, r.plan.QueryRewrites...))
	return StateRetrieve
}

// doRetrieve ranks the current queries and max-merges them into the pool.
// Follow-up passes after a coverage check use a smaller per-query depth.
func (a *Agent) doRetrieve(ctx context.Context, r *run) (State, error) {
	perQueryK, topK := r.plan.PerQueryK, max(r.plan.TopK, minRetrieveK)
	if r.loops > 0 {
		perQueryK, topK = max(minRefineK, r.plan.PerQueryK/2), r.plan.TopK*2
	}

	cands, err := a.ranker.RankMulti(ctx, r.queries, r.corpus, perQueryK, topK)
	if err != nil {
		return StateDone, err
	}
	r.pool = rag.MergeMax(r.pool, cands)
	logging.From(ctx).Debug("[agent] retrieved candidates",
		"queries", len(r.queries),
		"new", len(cands),
		"pool", len(r.pool),
	)

	if r.plan.Rerank && len(r.pool) > 0 {
		return StateRerank, nil
	}
	r.selected = pick(r.session.Comments, rag.Truncate(r.pool, r.plan.TopK))
	return StateCoverageCheck, nil
}

func (a *Agent) doRerank(ctx context.Context, r *run) State {
	outcome := a.reranker.Rerank(ctx, r.question, r.pool, r.session.Comments, r.plan.TopK)
	if outcome.Fallback {
		logging.From(ctx).Warn("[agent] rerank fell back to retrieval order", "reason", outcome.Reason)
	}
	r.selected = pick(r.session.Comments, outcome.Value)
	return StateCoverageCheck
}

func (a *Agent) doCoverage(ctx context.Context, r *run) State {
	if r.loops >= a.maxLoops {
		return StateAnswer
	}
	r.loops++

	verdict := a.coverage.Check(ctx, r.question, r.selected).Value
	next := uniqueQueries(verdict.NewQueries)
	if !verdict.NeedMore || len(next) == 0 {
		return StateAnswer
	}
	logging.From(ctx).Info("[agent] coverage insufficient, retrieving again",
		"reason", verdict.Reason,
		"new_queries", len(next),
	)
	r.queries = next
	return StateRetrieve
}

// pick returns the comments at the candidates' indices, in candidate order.
func pick(comments []model.Comment, cands []rag.Candidate) []model.Comment {
	picked := make([]model.Comment, 0, len(cands))
	for _, c := range cands {
		if c.Index >= 0 && c.Index < len(comments) {
			picked = append(picked, comments[c.Index])
		}
	}
	return picked
}

// uniqueQueries drops blank and repeated queries, keeping first occurrences.
func uniqueQueries(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}
