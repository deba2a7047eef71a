package narrative

import (
	"fmt"
	"strings"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

const (
	summaryCommentLimit = 50
	noneSelected        = "(none selected)"
)

// AssembleAnswerPrompt builds the grounding prompt for a viewer question.
// An empty selection is rendered as an explicit marker so the model knows no
// comments were retrieved.
func AssembleAnswerPrompt(question string, selected []model.Comment, session *model.Session, instructions string) string {
	var b strings.Builder

	b.WriteString("You are an intelligent assistant that answers questions about a YouTube video's ")
	b.WriteString("comments section. Use the video metadata, the summary, the selected comments and ")
	b.WriteString("the sentiment insights to answer accurately and concisely. If the information is ")
	b.WriteString("insufficient, say so and suggest what else is needed.\n\n")

	b.WriteString("# Answer Instructions\n\n")
	if strings.TrimSpace(instructions) == "" {
		b.WriteString("None\n\n")
	} else {
		b.WriteString(instructions + "\n\n")
	}

	info := session.VideoInfo
	b.WriteString("# Video Information\n\n")
	fmt.Fprintf(&b, "- Title: %s\n", info.Title)
	fmt.Fprintf(&b, "- Published At: %s\n", info.PublishedAt)
	fmt.Fprintf(&b, "- Views: %d\n", info.ViewCount)
	fmt.Fprintf(&b, "- Likes: %d\n", info.LikeCount)
	fmt.Fprintf(&b, "- URL: %s\n", info.URL)
	fmt.Fprintf(&b, "- Thumbnail: %s\n\n", info.ThumbnailURL)

	b.WriteString("# Video Summary\n\n")
	b.WriteString(session.Summary + "\n\n")

	b.WriteString("# Related Comments\n\n")
	if len(selected) == 0 {
		b.WriteString(noneSelected + "\n\n")
	} else {
		for _, c := range selected {
			fmt.Fprintf(&b, "- %s\n", c.Text)
		}
		b.WriteString("\n")
	}

	stats := session.SentimentStats
	b.WriteString("# Comment Insights\n\n")
	fmt.Fprintf(&b, "- Total Comments Fetched: %d\n", session.TotalComments)
	fmt.Fprintf(&b, "- Sentiment: %.2f%% positive, %.2f%% negative, %.2f%% neutral\n\n",
		stats.Positive, stats.Negative, stats.Neutral)

	b.WriteString("# Question\n\n")
	b.WriteString(question + "\n\n")

	b.WriteString("Provide a clear, concise and grounded answer. Prefer the consensus of the comments when relevant. ")
	b.WriteString("If citing comments, do so naturally (e.g. \"Several viewers mentioned ...\"). ")
	b.WriteString("Do not fabricate details; if the comments do not cover the question, say that the information is insufficient.\n")

	return b.String()
}

// AssembleSummaryPrompt lists the most-liked comments for the summarizer.
// comments must already be ordered by like count.
func AssembleSummaryPrompt(comments []model.Comment) string {
	var b strings.Builder
	b.WriteString("Summarize the following YouTube comments. Describe the main themes, ")
	b.WriteString("the overall tone and any notable disagreements.\n\n")
	for i, c := range comments {
		if i == summaryCommentLimit {
			break
		}
		fmt.Fprintf(&b, "- [%d likes] %s\n", c.LikeCount, c.Text)
	}
	return b.String()
}
