package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/orchestrator"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/sentiment"
)

// LipGloss signature purple/pink palette
var (
	headerColor   = lipgloss.Color("#F780FF") // Bright pink
	titleColor    = lipgloss.Color("#BD93F9") // Purple
	numberColor   = lipgloss.Color("#FF79C6") // Pink
	textColor     = lipgloss.Color("#E9E9F4") // Light purple/white
	borderColor   = lipgloss.Color("#6272A4") // Muted purple
	questionColor = lipgloss.Color("#8BE9FD") // Cyan
	errorColor    = lipgloss.Color("#FF5555") // Red
	successColor  = lipgloss.Color("#50FA7B") // Green
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	titleStyle    = lipgloss.NewStyle().Foreground(titleColor).Bold(true)
	textStyle     = lipgloss.NewStyle().Foreground(textColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(borderColor).Italic(true)
	questionStyle = lipgloss.NewStyle().Foreground(questionColor).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(successColor)
	borderStyle   = lipgloss.NewStyle().Foreground(borderColor)
)

// Column widths of the comment table
const (
	likesWidth  = 9
	authorWidth = 20
	moodWidth   = 10
	textWidth   = 60
)

// renderSummary formats a summarize result for the terminal.
func renderSummary(res *orchestrator.SummaryResult) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(res.VideoInfo.Title) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %d views · %d likes · published %s",
		res.VideoInfo.URL, res.VideoInfo.ViewCount, res.VideoInfo.LikeCount, res.VideoInfo.PublishedAt)) + "\n\n")

	b.WriteString(headerStyle.Render("Summary:") + "\n")
	b.WriteString(textStyle.Width(textWidth+authorWidth).Render(strings.TrimSpace(res.Summary)) + "\n\n")

	b.WriteString(headerStyle.Render("Sentiment:") + "\n")
	b.WriteString(renderStats(res.SentimentStats) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Total comments fetched: %d", res.TotalComments)) + "\n\n")

	b.WriteString(headerStyle.Render("Top comments:") + "\n")
	b.WriteString(renderComments(res.TopComments))

	b.WriteString("\n" + successStyle.Render("Session: ") + questionStyle.Render(res.Token) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Ask with: ytqa ask %s \"your question\"", res.Token)) + "\n")
	return b.String()
}

func renderStats(s model.SentimentStats) string {
	cell := lipgloss.NewStyle().Foreground(numberColor).Padding(0, 1)
	parts := []string{
		cell.Render(fmt.Sprintf("%.2f%% positive", s.Positive)),
		cell.Render(fmt.Sprintf("%.2f%% negative", s.Negative)),
		cell.Render(fmt.Sprintf("%.2f%% neutral", s.Neutral)),
	}
	return strings.Join(parts, borderStyle.Render("│"))
}

// renderComments prints comments as a likes/author/mood/text table.
func renderComments(comments []model.Comment) string {
	if len(comments) == 0 {
		return mutedStyle.Render("(none)") + "\n"
	}

	cellHeader := headerStyle.Padding(0, 1)
	headers := []string{
		cellHeader.Width(likesWidth).Render("LIKES"),
		cellHeader.Width(authorWidth).Render("AUTHOR"),
		cellHeader.Width(moodWidth).Render("MOOD"),
		cellHeader.Width(textWidth).Render("COMMENT"),
	}

	var b strings.Builder
	b.WriteString(strings.Join(headers, borderStyle.Render("│")) + "\n")
	separatorParts := []string{
		strings.Repeat("─", likesWidth),
		strings.Repeat("─", authorWidth),
		strings.Repeat("─", moodWidth),
		strings.Repeat("─", textWidth),
	}
	b.WriteString(borderStyle.Render(strings.Join(separatorParts, "┼")) + "\n")

	likesStyle := lipgloss.NewStyle().Foreground(numberColor).Padding(0, 1).Width(likesWidth).Align(lipgloss.Right)
	authorStyle := lipgloss.NewStyle().Foreground(titleColor).Padding(0, 1).Width(authorWidth)
	moodStyle := lipgloss.NewStyle().Foreground(questionColor).Padding(0, 1).Width(moodWidth)
	bodyStyle := lipgloss.NewStyle().Foreground(textColor).Padding(0, 1).Width(textWidth)

	for _, c := range comments {
		cells := []string{
			likesStyle.Render(fmt.Sprintf("%d", c.LikeCount)),
			authorStyle.Render(ellipsize(c.Author, authorWidth-2)),
			moodStyle.Render(mood(c.Sentiment)),
			bodyStyle.Render(ellipsize(oneLine(c.Text), 3*(textWidth-2))),
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			cells[0], borderStyle.Render("│"),
			cells[1], borderStyle.Render("│"),
			cells[2], borderStyle.Render("│"),
			cells[3]) + "\n")
	}
	return b.String()
}

func mood(s *model.Sentiment) string {
	switch {
	case s == nil:
		return "-"
	case s.Compound >= sentiment.PositiveThreshold:
		return "positive"
	case s.Compound <= sentiment.NegativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ellipsize shortens s to at most n runes.
func ellipsize(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
