package sentiment

import (
	"context"
	"math"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

// Thresholds on the compound score separating positive, neutral and negative.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Annotator attaches polarity scores to comments.
type Annotator struct {
	analyzer *Analyzer
}

// NewAnnotator creates an annotator backed by the default analyzer.
func NewAnnotator() *Annotator {
	return &Annotator{analyzer: NewAnalyzer()}
}

// Annotate sets the Sentiment of every comment in place. Scores depend only
// on the text, so annotating twice yields the same values.
func (a *Annotator) Annotate(ctx context.Context, comments []model.Comment) error {
	for i := range comments {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := a.analyzer.PolarityScores(comments[i].Text)
		comments[i].Sentiment = &s
	}
	logging.From(ctx).Debug("annotated comment sentiment", "comments", len(comments))
	return nil
}

// Stats returns the percentage of positive, negative and neutral comments,
// rounded to two decimals. Comments without a score count as neutral. An
// empty list yields all zeros.
func Stats(comments []model.Comment) model.SentimentStats {
	if len(comments) == 0 {
		return model.SentimentStats{}
	}

	var pos, neg int
	for _, c := range comments {
		if c.Sentiment == nil {
			continue
		}
		switch {
		case c.Sentiment.Compound >= PositiveThreshold:
			pos++
		case c.Sentiment.Compound <= NegativeThreshold:
			neg++
		}
	}

	total := float64(len(comments))
	positive := percent(float64(pos) / total)
	negative := percent(float64(neg) / total)
	return model.SentimentStats{
		Positive: positive,
		Negative: negative,
		Neutral:  math.Round((100-positive-negative)*100) / 100,
	}
}

func percent(ratio float64) float64 {
	return math.Round(ratio*100*100) / 100
}
