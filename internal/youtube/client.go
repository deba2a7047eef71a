// Package youtube is the comment source: it reads comment threads, replies
// and video metadata from the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

var (
	ErrFetch            = goerr.New("failed to fetch from YouTube")
	ErrVideoNotFound    = goerr.New("video not found")
	ErrCommentsDisabled = goerr.New("comments are disabled for this video")
	ErrInvalidVideoURL  = goerr.New("invalid YouTube URL")
)

const pageSize = 100

// Options configures the client.
type Options struct {
	APIKey           string `masq:"secret"`
	Timeout          time.Duration
	MaxComments      int
	IncludeReplies   bool
	ReplyConcurrency int
	ThumbnailQuality string

	// ClientOptions are appended after the API key option.
	ClientOptions []option.ClientOption
}

// DefaultOptions returns the limits used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Timeout:          10 * time.Second,
		ReplyConcurrency: 8,
		ThumbnailQuality: DefaultThumbnailQuality,
	}
}

// Client fetches comments and video info for one API key.
type Client struct {
	svc  *yt.Service
	opts Options
}

// NewClient creates a client. Zero option fields take DefaultOptions values.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.ReplyConcurrency <= 0 {
		opts.ReplyConcurrency = def.ReplyConcurrency
	}
	if !validQuality(opts.ThumbnailQuality) {
		opts.ThumbnailQuality = def.ThumbnailQuality
	}

	var clientOpts []option.ClientOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrFetch, err), "failed to create YouTube service")
	}
	return &Client{svc: svc, opts: opts}, nil
}

// thread is a top-level comment with the replies collected so far.
type thread struct {
	id         string
	top        model.Comment
	replies    []model.Comment
	replyTotal int64
}

// FetchComments returns the video's comments in API order. With replies
// enabled each thread's replies follow it; threads with more replies than
// were returned inline are expanded concurrently.
func (c *Client) FetchComments(ctx context.Context, videoID string) ([]model.Comment, error) {
	logger := logging.From(ctx)

	parts := []string{"snippet"}
	if c.opts.IncludeReplies {
		parts = append(parts, "replies")
	}

	var threads []*thread
	pageToken := ""
	pages := 0
	for {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		call := c.svc.CommentThreads.List(parts).
			VideoId(videoID).
			MaxResults(pageSize).
			TextFormat("plainText").
			Context(callCtx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		cancel()
		if err != nil {
			return nil, fetchError(err, "commentThreads.list failed", videoID)
		}
		pages++

		for _, item := range resp.Items {
			if t := toThread(item, c.opts.IncludeReplies); t != nil {
				threads = append(threads, t)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || c.reachedLimit(len(threads)) {
			break
		}
	}

	if c.opts.IncludeReplies {
		if err := c.expandReplies(ctx, videoID, threads); err != nil {
			return nil, err
		}
	}

	comments := make([]model.Comment, 0, len(threads))
	for _, t := range threads {
		comments = append(comments, t.top)
		comments = append(comments, t.replies...)
	}
	if c.opts.MaxComments > 0 && len(comments) > c.opts.MaxComments {
		comments = comments[:c.opts.MaxComments]
	}

	logger.Info("fetched comments",
		"video_id", videoID,
		"threads", len(threads),
		"comments", len(comments),
		"pages", pages,
	)
	return comments, nil
}

func (c *Client) reachedLimit(n int) bool {
	return c.opts.MaxComments > 0 && n >= c.opts.MaxComments
}

// expandReplies fetches the full reply list of every thread whose inline
// replies are incomplete, at most ReplyConcurrency at a time.
func (c *Client) expandReplies(ctx context.Context, videoID string, threads []*thread) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.ReplyConcurrency)

	expanded := 0
	for _, t := range threads {
		if t.replyTotal <= int64(len(t.replies)) || t.id == "" {
			continue
		}
		expanded++
		g.Go(func() error {
			replies, err := c.fetchReplies(gctx, t.id)
			if err != nil {
				return fetchError(err, "comments.list failed", videoID)
			}
			t.replies = replies
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if expanded > 0 {
		logging.From(ctx).Debug("expanded reply threads", "video_id", videoID, "threads", expanded)
	}
	return nil
}

func (c *Client) fetchReplies(ctx context.Context, parentID string) ([]model.Comment, error) {
	var replies []model.Comment
	pageToken := ""
	for {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		call := c.svc.Comments.List([]string{"snippet"}).
			ParentId(parentID).
			MaxResults(pageSize).
			TextFormat("plainText").
			Context(callCtx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		cancel()
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if cm, ok := toComment(item); ok {
				replies = append(replies, cm)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return replies, nil
		}
	}
}

// FetchVideoInfo returns a snapshot of the video's metadata.
func (c *Client) FetchVideoInfo(ctx context.Context, videoID string) (*model.VideoInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.svc.Videos.List([]string{"snippet", "statistics"}).
		Id(videoID).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, fetchError(err, "videos.list failed", videoID)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrFetch, ErrVideoNotFound), "no video with this id",
			goerr.V("video_id", videoID))
	}

	return toVideoInfo(resp.Items[0], videoID, c.opts.ThumbnailQuality), nil
}

func fetchError(err error, msg, videoID string) error {
	opts := []goerr.Option{goerr.V("video_id", videoID)}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		opts = append(opts, goerr.V("status", apiErr.Code))
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			opts = append(opts, goerr.T(llm.TagRetryable))
		}
		switch {
		case apiErr.Code == http.StatusNotFound:
			return goerr.Wrap(fmt.Errorf("%w: %w: %w", ErrFetch, ErrVideoNotFound, err), msg, opts...)
		case hasReason(apiErr, "commentsDisabled"):
			return goerr.Wrap(fmt.Errorf("%w: %w: %w", ErrFetch, ErrCommentsDisabled, err), msg, opts...)
		}
	}
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrFetch, err), msg, opts...)
}

func hasReason(apiErr *googleapi.Error, reason string) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
