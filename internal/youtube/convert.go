package youtube

import (
	"strings"

	yt "google.golang.org/api/youtube/v3"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
)

func toComment(c *yt.Comment) (model.Comment, bool) {
	if c == nil || c.Snippet == nil {
		return model.Comment{}, false
	}
	text := c.Snippet.TextOriginal
	if strings.TrimSpace(text) == "" {
		text = c.Snippet.TextDisplay
	}
	likes := c.Snippet.LikeCount
	if likes < 0 {
		likes = 0
	}
	return model.Comment{
		Author:    c.Snippet.AuthorDisplayName,
		Text:      text,
		LikeCount: likes,
	}, true
}

func toThread(item *yt.CommentThread, withReplies bool) *thread {
	if item == nil || item.Snippet == nil {
		return nil
	}
	top, ok := toComment(item.Snippet.TopLevelComment)
	if !ok {
		return nil
	}

	t := &thread{id: item.Id, top: top}
	if !withReplies {
		return t
	}
	t.replyTotal = item.Snippet.TotalReplyCount
	if item.Replies != nil {
		for _, r := range item.Replies.Comments {
			if cm, ok := toComment(r); ok {
				t.replies = append(t.replies, cm)
			}
		}
	}
	return t
}

func toVideoInfo(v *yt.Video, videoID, quality string) *model.VideoInfo {
	info := &model.VideoInfo{
		URL:          WatchURL(videoID),
		ThumbnailURL: ThumbnailURL(videoID, quality),
	}
	if v.Snippet != nil {
		info.Title = v.Snippet.Title
		info.PublishedAt = v.Snippet.PublishedAt
	}
	if v.Statistics != nil {
		info.ViewCount = v.Statistics.ViewCount
		info.LikeCount = v.Statistics.LikeCount
	}
	return info
}
