package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/rag"
)

// DefaultTTL is how long a session and its embeddings are kept.
const DefaultTTL = time.Hour

// EmbeddingSource computes index-aligned comment embeddings.
type EmbeddingSource interface {
	EmbedAll(ctx context.Context, texts []string) (*rag.EmbedResult, error)
	Model() string
	Dimension() int
}

// header is everything in a session except its comments.
type header struct {
	VideoID        string               `json:"video_id"`
	VideoInfo      model.VideoInfo      `json:"video_info"`
	Summary        string               `json:"summary"`
	TotalComments  int                  `json:"total_comments"`
	SentimentStats model.SentimentStats `json:"sentiment_stats"`
}

type embeddingEntry struct {
	Fingerprint string      `json:"fingerprint"`
	Model       string      `json:"model"`
	Dimension   int         `json:"dimension"`
	Vectors     [][]float32 `json:"vectors"`
}

// Coordinator owns the session lifecycle: it writes a session once, loads
// validated copies of it and serves its embeddings from cache or by
// computing them.
type Coordinator struct {
	store    Store
	embedder EmbeddingSource
	ttl      time.Duration
	newToken func() string
}

// NewCoordinator creates a Coordinator. A non-positive ttl uses DefaultTTL.
func NewCoordinator(store Store, embedder EmbeddingSource, ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coordinator{
		store:    store,
		embedder: embedder,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

func summaryKey(token string) string    { return token + ":summary" }
func commentsKey(token string) string   { return token + ":comments" }
func embeddingsKey(token string) string { return token + ":embeddings" }

// Create stores s under a fresh token and returns the token.
func (c *Coordinator) Create(ctx context.Context, s *model.Session) (string, error) {
	if s == nil {
		return "", goerr.Wrap(ErrDataCorruption, "session is nil")
	}

	comments := s.Comments
	if comments == nil {
		comments = []model.Comment{}
	}
	head, err := Encode(header{
		VideoID:        s.VideoID,
		VideoInfo:      s.VideoInfo,
		Summary:        s.Summary,
		TotalComments:  s.TotalComments,
		SentimentStats: s.SentimentStats,
	})
	if err != nil {
		return "", err
	}
	body, err := Encode(comments)
	if err != nil {
		return "", err
	}

	token := c.newToken()
	if err := c.store.Set(ctx, summaryKey(token), head, c.ttl); err != nil {
		return "", goerr.Wrap(err, "failed to store session summary", goerr.V("video_id", s.VideoID))
	}
	if err := c.store.Set(ctx, commentsKey(token), body, c.ttl); err != nil {
		return "", goerr.Wrap(err, "failed to store session comments", goerr.V("video_id", s.VideoID))
	}

	logging.From(ctx).Info("session created",
		"video_id", s.VideoID,
		"comments", len(comments),
		"ttl", c.ttl,
	)
	return token, nil
}

// Load returns the session stored under token. Both the summary and the
// comments must be present, otherwise the session is considered expired.
func (c *Coordinator) Load(ctx context.Context, token string) (*model.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, goerr.Wrap(ErrSessionExpired, "empty session token")
	}

	rawHead, okHead, err := c.store.Get(ctx, summaryKey(token))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read session summary")
	}
	rawBody, okBody, err := c.store.Get(ctx, commentsKey(token))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read session comments")
	}
	if !okHead || !okBody {
		return nil, goerr.Wrap(ErrSessionExpired, "session not found",
			goerr.V("has_summary", okHead), goerr.V("has_comments", okBody))
	}

	var head header
	if err := Decode(rawHead, &head); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session summary")
	}
	var comments []model.Comment
	if err := Decode(rawBody, &comments); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session comments")
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	for i, cm := range comments {
		if cm.LikeCount < 0 {
			return nil, goerr.Wrap(ErrDataCorruption, "negative like count", goerr.V("index", i))
		}
	}

	return &model.Session{
		VideoID:        head.VideoID,
		VideoInfo:      head.VideoInfo,
		Summary:        head.Summary,
		Comments:       comments,
		TotalComments:  head.TotalComments,
		SentimentStats: head.SentimentStats,
	}, nil
}

// Embeddings returns one vector per comment, index-aligned. Comments that
// could not be embedded get a nil vector. A cached array is only used when it
// was computed from the same texts with the same model and dimension; otherwise it is
// recomputed, as is one whose vectors differ in size from each other or from
// the configured dimension. Cache write failures are logged and ignored.
func (c *Coordinator) Embeddings(ctx context.Context, token string, comments []model.Comment) ([][]float32, error) {
	if len(comments) == 0 {
		return [][]float32{}, nil
	}
	logger := logging.From(ctx)

	texts := model.Texts(comments)
	dim := c.embedder.Dimension()
	fp := fingerprint(c.embedder.Model(), dim, texts)
	key := embeddingsKey(token)

	raw, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("embedding cache read failed, recomputing", "error", err)
	case ok:
		var entry embeddingEntry
		if err := Decode(raw, &entry); err != nil {
			logger.Warn("embedding cache unreadable, recomputing", "error", err)
		} else if entry.Fingerprint != fp || len(entry.Vectors) != len(comments) {
			logger.Warn("embedding cache does not match comments, recomputing",
				"cached", len(entry.Vectors), "comments", len(comments))
		} else if !uniformDimension(entry.Vectors, dim) {
			logger.Warn("embedding cache has unexpected vector size, recomputing", "dimension", dim)
		} else {
			logger.Debug("embedding cache hit", "vectors", len(entry.Vectors))
			return entry.Vectors, nil
		}
	}

	res, err := c.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compute comment embeddings", goerr.V("comments", len(comments)))
	}
	if len(res.Vectors) != len(comments) {
		return nil, goerr.Wrap(ErrDataCorruption, "embedding count does not match comments",
			goerr.V("vectors", len(res.Vectors)), goerr.V("comments", len(comments)))
	}

	c.cacheEmbeddings(ctx, key, embeddingEntry{
		Fingerprint: fp,
		Model:       c.embedder.Model(),
		Dimension:   dim,
		Vectors:     res.Vectors,
	})
	return res.Vectors, nil
}

func (c *Coordinator) cacheEmbeddings(ctx context.Context, key string, entry embeddingEntry) {
	logger := logging.From(ctx)
	data, err := Encode(entry)
	if err != nil {
		logger.Warn("failed to encode embeddings for cache", "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		logger.Warn("failed to cache embeddings", "error", err)
	}
}

// Ping checks the backing store.
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// IsExpired reports whether err means the session no longer exists.
func IsExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// uniformDimension reports whether every non-nil vector has the same length,
// equal to want when want is positive.
func uniformDimension(vectors [][]float32, want int) bool {
	size := want
	for _, v := range vectors {
		if v == nil {
			continue
		}
		if size <= 0 {
			size = len(v)
		}
		if len(v) != size {
			return false
		}
	}
	return true
}

func fingerprint(modelName string, dimension int, texts []string) string {
	h := sha256.New()
	h.Write([]byte(modelName))
	h.Write([]byte(strconv.Itoa(dimension)))
	for _, t := range texts {
		h.Write([]byte{0})
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
