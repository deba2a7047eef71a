package rag

import "sort"

// Candidate is a comment index with its similarity or relevance score.
type Candidate struct {
	Index int     `json:"idx"`
	Score float64 `json:"score"`
}

// SortCandidates orders candidates by score descending, ties by lower index.
func SortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Index < cands[j].Index
	})
}

// MergeMax combines candidate lists keeping the highest score per index.
// The result is sorted with SortCandidates.
func MergeMax(lists ...[]Candidate) []Candidate {
	best := make(map[int]float64)
	for _, list := range lists {
		for _, c := range list {
			if s, ok := best[c.Index]; !ok || c.Score > s {
				best[c.Index] = c.Score
			}
		}
	}

	merged := make([]Candidate, 0, len(best))
	for idx, score := range best {
		merged = append(merged, Candidate{Index: idx, Score: score})
	}
	SortCandidates(merged)
	return merged
}

// Truncate returns at most n leading candidates.
func Truncate(cands []Candidate, n int) []Candidate {
	if n < 0 {
		n = 0
	}
	if len(cands) > n {
		return cands[:n]
	}
	return cands
}

// RetrievalPlan is the planner's decision for one question.
type RetrievalPlan struct {
	NeedComments       bool     `json:"need_comments"`
	NeedSummary        bool     `json:"need_summary"`
	PreferRecent       bool     `json:"prefer_recent"`
	TopK               int      `json:"top_k"`
	PerQueryK          int      `json:"per_query_k"`
	Rerank             bool     `json:"rerank"`
	QueryRewrites      []string `json:"query_rewrites"`
	MinKeywords        []string `json:"min_keywords"`
	AnswerInstructions string   `json:"answer_instructions"`
	Rationale          string   `json:"rationale"`
}

// DefaultPlan returns the plan used for fields the planner leaves unset.
func DefaultPlan() RetrievalPlan {
	return RetrievalPlan{
		NeedComments:  true,
		NeedSummary:   true,
		PreferRecent:  false,
		TopK:          8,
		PerQueryK:     5,
		Rerank:        true,
		QueryRewrites: []string{},
		MinKeywords:   []string{},
	}
}

// CoverageVerdict is the coverage checker's decision.
type CoverageVerdict struct {
	NeedMore   bool     `json:"need_more"`
	Reason     string   `json:"reason"`
	NewQueries []string `json:"new_queries"`
}

// Outcome is the result of a model-judged step: either the parsed value or
// a fallback value with the reason the model's answer was not used.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Reason   string
}

// Ok wraps a value decoded from the model.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fallback wraps a substitute value and the reason it was used.
func Fallback[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Reason: reason}
}
