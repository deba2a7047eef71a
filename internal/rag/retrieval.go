package rag

import (
	"context"
	"fmt"
)

// Ranker scores a corpus of comment vectors against several query variants.
type Ranker struct {
	embedder Embedder
}

// NewRanker creates a Ranker that embeds queries with embedder.
func NewRanker(embedder Embedder) (*Ranker, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	return &Ranker{embedder: embedder}, nil
}

// RankMulti embeds all queries in one call, takes the perQueryK best corpus
// entries for each query and merges them by maximum similarity. It returns the
// topK merged candidates, score descending, ties by lower index.
// Corpus entries with no vector or a mismatched dimension are never ranked.
func (r *Ranker) RankMulti(
	ctx context.Context,
	queries []string,
	corpus [][]float32,
	perQueryK int,
	topK int,
) ([]Candidate, error) {
	if len(queries) == 0 || len(corpus) == 0 || perQueryK <= 0 || topK <= 0 {
		return []Candidate{}, nil
	}

	queryVecs, err := r.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("failed to embed queries: %w", err)
	}

	rows := make([][]Candidate, 0, len(queryVecs))
	for _, q := range queryVecs {
		rows = append(rows, Truncate(scoreRow(q, corpus), perQueryK))
	}

	return Truncate(MergeMax(rows...), topK), nil
}

// scoreRow returns every rankable corpus entry scored against q, sorted.
func scoreRow(q []float32, corpus [][]float32) []Candidate {
	row := make([]Candidate, 0, len(corpus))
	for i, doc := range corpus {
		if len(doc) == 0 || len(doc) != len(q) {
			continue
		}
		row = append(row, Candidate{Index: i, Score: Dot(q, doc)})
	}
	SortCandidates(row)
	return row
}

// Dot returns the dot product of a and b, which equals cosine similarity for
// unit vectors.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
