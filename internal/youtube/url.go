package youtube

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID returns the 11-character video id from a watch, short,
// embed, live or youtu.be URL, or from a bare id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", goerr.Wrap(ErrInvalidVideoURL, "unparseable URL", goerr.V("url", raw))
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")

	var id string
	switch host {
	case "youtu.be":
		id, _, _ = strings.Cut(path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if path == "watch" {
			id = u.Query().Get("v")
			break
		}
		prefix, rest, ok := strings.Cut(path, "/")
		if ok {
			switch prefix {
			case "shorts", "embed", "live", "v":
				id, _, _ = strings.Cut(rest, "/")
			}
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", goerr.Wrap(ErrInvalidVideoURL, "no video id in URL", goerr.V("url", raw))
	}
	return id, nil
}

// WatchURL returns the canonical watch URL for a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailQualities lists the thumbnail sizes YouTube serves.
var ThumbnailQualities = []string{"default", "mqdefault", "hqdefault", "sddefault", "maxresdefault"}

// DefaultThumbnailQuality is used when an unknown quality is requested.
const DefaultThumbnailQuality = "hqdefault"

// ThumbnailURL returns the thumbnail image URL for a video. An unknown
// quality falls back to DefaultThumbnailQuality.
func ThumbnailURL(videoID, quality string) string {
	if !validQuality(quality) {
		quality = DefaultThumbnailQuality
	}
	return "https://img.youtube.com/vi/" + videoID + "/" + quality + ".jpg"
}

func validQuality(q string) bool {
	for _, v := range ThumbnailQualities {
		if q == v {
			return true
		}
	}
	return false
}
