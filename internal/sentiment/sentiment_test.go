package sentiment

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

func TestAnalyzer_Polarity(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I love this video", "positive"},
		{"This is the best tutorial on the topic", "positive"},
		{"This is terrible", "negative"},
		{"What a waste of time, total clickbait", "negative"},
		{"The video is 10 minutes long", "neutral"},
		{"not good", "negative"},
		{"What a terrific and marvelous performance", "positive"},
		{"Outstanding tutorial, very well explained", "positive"},
		{"The worst upload this channel has made", "negative"},
		{"The intro was bad but the ending was amazing", "positive"},
		{"", "neutral"},
		{"🎵🎵🎵", "neutral"},
		{"!!! ???", "neutral"},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := a.PolarityScores(tt.text)
			if got := classify(s.Compound); got != tt.want {
				t.Errorf("expected %s, got %s (compound %v)", tt.want, got, s.Compound)
			}
			if s.Compound < -1 || s.Compound > 1 {
				t.Errorf("compound out of range: %v", s.Compound)
			}
			for _, p := range []float64{s.Neg, s.Neu, s.Pos} {
				if p < 0 || p > 1 {
					t.Errorf("proportion out of range: %+v", s)
				}
			}
		})
	}
}

func classify(compound float64) string {
	switch {
	case compound >= PositiveThreshold:
		return "positive"
	case compound <= NegativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

func TestAnalyzer_Intensifiers(t *testing.T) {
	a := NewAnalyzer()
	base := a.PolarityScores("this video is good").Compound

	tests := []struct {
		name string
		text string
	}{
		{"booster", "this video is very good"},
		{"caps", "this video is GOOD"},
		{"exclamation", "this video is good!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.PolarityScores(tt.text).Compound; got <= base {
				t.Errorf("expected %q (%v) to score above %v", tt.text, got, base)
			}
		})
	}

	if got := a.PolarityScores("this video is slightly good").Compound; got >= base {
		t.Errorf("expected dampener to lower the score, got %v vs %v", got, base)
	}
}

func TestAnalyzer_Proportions(t *testing.T) {
	s := NewAnalyzer().PolarityScores("great video but the audio is bad")
	if sum := s.Neg + s.Neu + s.Pos; math.Abs(sum-1) > 0.01 {
		t.Errorf("expected proportions to sum to 1, got %v (%+v)", sum, s)
	}
	if s.Pos == 0 || s.Neg == 0 || s.Neu == 0 {
		t.Errorf("expected all three proportions to be non-zero, got %+v", s)
	}
}

func TestAnnotator_Idempotent(t *testing.T) {
	comments := []model.Comment{
		{Text: "love it"},
		{Text: "hate it"},
		{Text: "it exists"},
	}
	a := NewAnnotator()

	if err := a.Annotate(context.Background(), comments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := make([]model.Sentiment, len(comments))
	for i, c := range comments {
		if c.Sentiment == nil {
			t.Fatalf("comment %d not annotated", i)
		}
		first[i] = *c.Sentiment
	}

	if err := a.Annotate(context.Background(), comments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range comments {
		if !reflect.DeepEqual(*c.Sentiment, first[i]) {
			t.Errorf("comment %d changed on re-annotation: %+v vs %+v", i, *c.Sentiment, first[i])
		}
	}
}

func TestAnnotator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewAnnotator().Annotate(ctx, []model.Comment{{Text: "x"}}); err == nil {
		t.Error("expected context error")
	}
}

func TestStats(t *testing.T) {
	withCompound := func(v float64) model.Comment {
		return model.Comment{Sentiment: &model.Sentiment{Compound: v}}
	}

	tests := []struct {
		name     string
		comments []model.Comment
		want     model.SentimentStats
	}{
		{"empty", nil, model.SentimentStats{}},
		{"thirds", []model.Comment{withCompound(0.5), withCompound(-0.5), withCompound(0)},
			model.SentimentStats{Positive: 33.33, Negative: 33.33, Neutral: 33.34}},
		{"thresholds inclusive", []model.Comment{withCompound(0.05), withCompound(-0.05), withCompound(0.049), withCompound(-0.049)},
			model.SentimentStats{Positive: 25, Negative: 25, Neutral: 50}},
		{"unscored counts as neutral", []model.Comment{withCompound(0.9), {Text: "no score"}},
			model.SentimentStats{Positive: 50, Negative: 0, Neutral: 50}},
		{"all positive", []model.Comment{withCompound(1), withCompound(0.3)},
			model.SentimentStats{Positive: 100, Negative: 0, Neutral: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stats(tt.comments)
			if !approx(got.Positive, tt.want.Positive) || !approx(got.Negative, tt.want.Negative) || !approx(got.Neutral, tt.want.Neutral) {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
			if len(tt.comments) > 0 {
				if sum := got.Positive + got.Negative + got.Neutral; !approx(sum, 100) {
					t.Errorf("expected percentages to sum to 100, got %v", sum)
				}
			}
		})
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
