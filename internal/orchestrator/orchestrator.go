// Package orchestrator wires the comment source, summarizer, sentiment
// annotator, session coordinator and question-answering agent into the two
// user-facing pipelines: summarizing a video and asking about it.
package orchestrator

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/sentiment"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/youtube"
)

const (
	// DefaultCommentLimit caps the comments stored and embedded per session.
	DefaultCommentLimit = 500

	topCommentCount = 5
)

// CommentSource fetches comments and metadata for a video.
type CommentSource interface {
	FetchComments(ctx context.Context, videoID string) ([]model.Comment, error)
	FetchVideoInfo(ctx context.Context, videoID string) (*model.VideoInfo, error)
}

// Summarizer condenses comments into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, comments []model.Comment) (string, error)
}

// Annotator attaches sentiment scores to comments in place.
type Annotator interface {
	Annotate(ctx context.Context, comments []model.Comment) error
}

// Sessions stores sessions and their embedding cache.
type Sessions interface {
	Create(ctx context.Context, s *model.Session) (string, error)
	Load(ctx context.Context, token string) (*model.Session, error)
	Embeddings(ctx context.Context, token string, comments []model.Comment) ([][]float32, error)
}

// Components are the collaborators of an Orchestrator.
type Components struct {
	Source     CommentSource
	Summarizer Summarizer
	Annotator  Annotator
	Sessions   Sessions
	Agent      *Agent
}

// Options tunes the pipelines.
type Options struct {
	// CommentLimit caps the comments kept in a session
	CommentLimit int

	// WarmEmbeddings computes the embedding cache when a session is created
	WarmEmbeddings bool
}

// Orchestrator runs the summarize and ask pipelines.
type Orchestrator struct {
	source     CommentSource
	summarizer Summarizer
	annotator  Annotator
	sessions   Sessions
	agent      *Agent
	opts       Options
}

// New creates an Orchestrator. A non-positive CommentLimit means DefaultCommentLimit.
func New(c Components, opts Options) (*Orchestrator, error) {
	if c.Source == nil || c.Summarizer == nil || c.Annotator == nil || c.Sessions == nil || c.Agent == nil {
		return nil, goerr.New("orchestrator requires source, summarizer, annotator, sessions and agent")
	}
	if opts.CommentLimit <= 0 {
		opts.CommentLimit = DefaultCommentLimit
	}
	return &Orchestrator{
		source:     c.Source,
		summarizer: c.Summarizer,
		annotator:  c.Annotator,
		sessions:   c.Sessions,
		agent:      c.Agent,
		opts:       opts,
	}, nil
}

// SummaryResult is what a summarize request returns, and what a stored
// session looks like when reopened.
type SummaryResult struct {
	Token          string               `json:"token"`
	VideoID        string               `json:"video_id"`
	VideoInfo      model.VideoInfo      `json:"video_info"`
	Summary        string               `json:"summary"`
	TopComments    []model.Comment      `json:"top_comments"`
	TotalComments  int                  `json:"total_comments"`
	SentimentStats model.SentimentStats `json:"sentiment_stats"`
}

// Summarize fetches a video's comments, summarizes and scores them, and
// stores the result as a new session.
func (o *Orchestrator) Summarize(ctx context.Context, videoURL string) (*SummaryResult, error) {
	videoID, err := youtube.ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}
	logger := logging.From(ctx).With("video_id", videoID)

	logger.Info("[summarize] Stage 1: fetching video info")
	info, err := o.source.FetchVideoInfo(ctx, videoID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch video info", goerr.V("video_id", videoID))
	}

	logger.Info("[summarize] Stage 2: fetching comments")
	comments, err := o.source.FetchComments(ctx, videoID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch comments", goerr.V("video_id", videoID))
	}
	model.SortByLikes(comments)
	logger.Info("[summarize] fetched comments", "count", len(comments))

	logger.Info("[summarize] Stage 3: summarizing comments")
	summary, err := o.summarizer.Summarize(ctx, comments)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize comments", goerr.V("video_id", videoID))
	}

	logger.Info("[summarize] Stage 4: scoring sentiment")
	if err := o.annotator.Annotate(ctx, comments); err != nil {
		logger.Warn("sentiment annotation failed, continuing without it", "error", err)
	}
	stats := sentiment.Stats(comments)

	kept := comments
	if len(kept) > o.opts.CommentLimit {
		kept = kept[:o.opts.CommentLimit]
	}
	sess := &model.Session{
		VideoID:        videoID,
		VideoInfo:      *info,
		Summary:        summary,
		Comments:       kept,
		TotalComments:  len(comments),
		SentimentStats: stats,
	}

	logger.Info("[summarize] Stage 5: storing session", "kept", len(kept))
	token, err := o.sessions.Create(ctx, sess)
	if err != nil {
		return nil, err
	}

	if o.opts.WarmEmbeddings {
		if _, err := o.sessions.Embeddings(ctx, token, kept); err != nil {
			logger.Warn("failed to warm embedding cache", "error", err)
		}
	}

	return summaryResult(token, sess), nil
}

// Reopen returns the summary view of a stored session.
func (o *Orchestrator) Reopen(ctx context.Context, token string) (*SummaryResult, error) {
	sess, err := o.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	return summaryResult(token, sess), nil
}

// Ask answers question against the session stored under token.
func (o *Orchestrator) Ask(ctx context.Context, token, question string) (*Result, error) {
	logger := logging.From(ctx)

	logger.Debug("[ask] Stage 1: loading session")
	sess, err := o.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}

	logger.Debug("[ask] Stage 2: loading embeddings", "comments", len(sess.Comments))
	corpus, err := o.sessions.Embeddings(ctx, token, sess.Comments)
	if err != nil {
		return nil, err
	}

	logger.Debug("[ask] Stage 3: running agent")
	return o.agent.Run(ctx, question, sess, corpus)
}

func summaryResult(token string, s *model.Session) *SummaryResult {
	top := s.Comments
	if len(top) > topCommentCount {
		top = top[:topCommentCount]
	}
	return &SummaryResult{
		Token:          token,
		VideoID:        s.VideoID,
		VideoInfo:      s.VideoInfo,
		Summary:        s.Summary,
		TopComments:    top,
		TotalComments:  s.TotalComments,
		SentimentStats: s.SentimentStats,
	}
}
