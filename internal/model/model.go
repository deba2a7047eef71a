// Package model holds the data shared by every stage of the comment QA engine:
// fetched comments, video metadata and the session bundle created by a
// summarize request.
package model

import "sort"

// Sentiment is the VADER polarity of a single comment.
type Sentiment struct {
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Comment is one public comment on a video.
// Sentiment is nil until an annotator has scored it.
type Comment struct {
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	LikeCount int64      `json:"likeCount"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
}

// VideoInfo is a snapshot of video metadata taken when the session is created.
type VideoInfo struct {
	Title        string `json:"title"`
	PublishedAt  string `json:"publishedAt"`
	ViewCount    uint64 `json:"viewCount"`
	LikeCount    uint64 `json:"likeCount"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// SentimentStats holds the share of positive, negative and neutral comments
// as percentages.
type SentimentStats struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Session is the read-only bundle a question is answered against.
// Comments are ordered by like count, descending.
type Session struct {
	VideoID        string         `json:"video_id"`
	VideoInfo      VideoInfo      `json:"video_info"`
	Summary        string         `json:"summary"`
	Comments       []Comment      `json:"comments"`
	TotalComments  int            `json:"total_comments"`
	SentimentStats SentimentStats `json:"sentiment_stats"`
}

// Texts returns the comment texts in order.
func Texts(comments []Comment) []string {
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	return texts
}

// SortByLikes orders comments by like count, descending. Equal counts keep
// their fetch order.
func SortByLikes(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].LikeCount > comments[j].LikeCount
	})
}
