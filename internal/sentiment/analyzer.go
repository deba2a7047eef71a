// Package sentiment scores comment polarity with VADER and aggregates the
// scores into positive, negative and neutral shares.
package sentiment

import (
	"strings"
	"unicode"

	"github.com/jonreiter/govader"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

// Analyzer computes polarity scores for text.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer returns an analyzer over the standard VADER lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// PolarityScores returns neg, neu and pos proportions and a compound score
// in [-1, 1]. Text without any letters or digits scores all zero.
func (a *Analyzer) PolarityScores(text string) model.Sentiment {
	if !hasWords(text) {
		return model.Sentiment{}
	}
	s := a.vader.PolarityScores(text)
	return model.Sentiment{
		Neg:      s.Negative,
		Neu:      s.Neutral,
		Pos:      s.Positive,
		Compound: s.Compound,
	}
}

func hasWords(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
