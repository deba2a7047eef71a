package orchestrator

import (
	"context"
	"errors"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/narrative"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/rag"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/session"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/youtube"
)

// userMessages maps error categories to messages safe to show a user.
// Earlier entries win, so specific errors precede their parents.
var userMessages = []struct {
	target  error
	message string
}{
	{youtube.ErrInvalidVideoURL, "Invalid YouTube URL."},
	{youtube.ErrVideoNotFound, "Video not found. Please check the URL."},
	{youtube.ErrCommentsDisabled, "Comments are disabled for this video."},
	{youtube.ErrFetch, "Failed to fetch comments from YouTube. Please try again later."},
	{narrative.ErrNoComments, "This video has no comments to analyze."},
	{session.ErrSessionExpired, "Session not found or expired. Please summarize a video first."},
	{session.ErrDataCorruption, "Corrupted session data. Please try summarizing again."},
	{context.DeadlineExceeded, "The request timed out. Please try again."},
	{context.Canceled, "The request was cancelled."},
	{session.ErrStorage, "Internal error accessing the session store."},
	{llm.ErrRateLimited, "AI service is busy. Please try again in a moment."},
	{rag.ErrNoValidInput, "None of the comments could be prepared for search."},
	{rag.ErrEmbedding, "Failed to prepare comments for search. Please try again."},
	{rag.ErrEmptyEmbedding, "Failed to prepare comments for search. Please try again."},
	{narrative.ErrGenerationFailed, "AI service failed to generate a response. Please try again later."},
	{llm.ErrInteraction, "AI service unavailable. Please try again later."},
}

// UserMessage returns a generic, non-leaking description of err. Provider
// and store details stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.target) {
			return m.message
		}
	}
	if llm.IsRetryable(err) {
		return "AI service is busy. Please try again in a moment."
	}
	return "Unexpected error. Please try again."
}
