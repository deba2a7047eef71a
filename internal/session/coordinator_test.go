package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/model"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/rag"
)

// failingStore wraps a Store and fails selected operations.
type failingStore struct {
	Store
	failGet bool
	failSet bool
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, ErrStorage
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failSet {
		return ErrStorage
	}
	return f.Store.Set(ctx, key, value, ttl)
}

func testSession(n int) *model.Session {
	comments := make([]model.Comment, n)
	for i := range comments {
		comments[i] = model.Comment{
			Author:    fmt.Sprintf("user%d", i),
			Text:      fmt.Sprintf("great video number %d", i),
			LikeCount: int64(100 - i),
		}
	}
	return &model.Session{
		VideoID:        "abc123def45",
		VideoInfo:      model.VideoInfo{Title: "Test Video", ViewCount: 1000, URL: "https://www.youtube.com/watch?v=abc123def45"},
		Summary:        "People like it.",
		Comments:       comments,
		TotalComments:  n,
		SentimentStats: model.SentimentStats{Positive: 100},
	}
}

func newTestCoordinator(t *testing.T, store Store) (*Coordinator, *llm.MockProvider) {
	t.Helper()
	provider := &llm.MockProvider{}
	gw := rag.NewGateway(provider, nil, rag.DefaultGatewayConfig())
	return NewCoordinator(store, gw, time.Hour), provider
}

func memStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore(64)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestCoordinator_CreateLoad(t *testing.T) {
	for _, n := range []int{0, 1, 500} {
		t.Run(fmt.Sprintf("%d comments", n), func(t *testing.T) {
			coord, _ := newTestCoordinator(t, memStore(t))
			ctx := context.Background()
			want := testSession(n)

			token, err := coord.Create(ctx, want)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if token == "" {
				t.Fatal("expected non-empty token")
			}

			got, err := coord.Load(ctx, token)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("loaded session differs:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestCoordinator_UniqueTokens(t *testing.T) {
	coord, _ := newTestCoordinator(t, memStore(t))
	ctx := context.Background()

	a, _ := coord.Create(ctx, testSession(1))
	b, _ := coord.Create(ctx, testSession(1))
	if a == b {
		t.Error("expected distinct tokens")
	}
}

func TestCoordinator_Load_Expired(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(store *MemoryStore, token string)
	}{
		{"unknown token", func(store *MemoryStore, token string) {}},
		{"summary missing", func(store *MemoryStore, token string) {
			_ = store.Set(ctx, commentsKey(token), mustEncode(t, []model.Comment{}), time.Hour)
		}},
		{"comments missing", func(store *MemoryStore, token string) {
			_ = store.Set(ctx, summaryKey(token), mustEncode(t, header{}), time.Hour)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memStore(t)
			coord, _ := newTestCoordinator(t, store)
			tt.setup(store, "tok")

			_, err := coord.Load(ctx, "tok")
			if !errors.Is(err, ErrSessionExpired) {
				t.Errorf("expected ErrSessionExpired, got %v", err)
			}
			if !IsExpired(err) {
				t.Error("expected IsExpired to report true")
			}
		})
	}

	coord, _ := newTestCoordinator(t, memStore(t))
	if _, err := coord.Load(ctx, "  "); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired for blank token, got %v", err)
	}
}

func TestCoordinator_Load_AfterTTL(t *testing.T) {
	store := memStore(t)
	clock := newClock()
	store.now = clock.Now
	coord, _ := newTestCoordinator(t, store)
	ctx := context.Background()

	token, err := coord.Create(ctx, testSession(2))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	clock.Advance(2 * time.Hour)

	if _, err := coord.Load(ctx, token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired after TTL, got %v", err)
	}
}

func TestCoordinator_Load_Corrupt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		summary  []byte
		comments []byte
	}{
		{"garbage comments", mustEncode(t, header{}), []byte("not a payload")},
		{"garbage summary", []byte("###"), mustEncode(t, []model.Comment{})},
		{"wrong shape", mustEncode(t, header{}), mustEncode(t, map[string]int{"a": 1})},
		{"negative likes", mustEncode(t, header{}), mustEncode(t, []model.Comment{{Text: "x", LikeCount: -1}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memStore(t)
			_ = store.Set(ctx, summaryKey("tok"), tt.summary, time.Hour)
			_ = store.Set(ctx, commentsKey("tok"), tt.comments, time.Hour)
			coord, _ := newTestCoordinator(t, store)

			_, err := coord.Load(ctx, "tok")
			if !errors.Is(err, ErrDataCorruption) {
				t.Errorf("expected ErrDataCorruption, got %v", err)
			}
		})
	}
}

func TestCoordinator_StorageErrors(t *testing.T) {
	ctx := context.Background()

	coord, _ := newTestCoordinator(t, &failingStore{Store: memStore(t), failSet: true})
	if _, err := coord.Create(ctx, testSession(1)); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage from create, got %v", err)
	}

	coord, _ = newTestCoordinator(t, &failingStore{Store: memStore(t), failGet: true})
	if _, err := coord.Load(ctx, "tok"); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage from load, got %v", err)
	}
}

func TestCoordinator_Embeddings_CacheHit(t *testing.T) {
	coord, provider := newTestCoordinator(t, memStore(t))
	ctx := context.Background()
	s := testSession(5)

	token, _ := coord.Create(ctx, s)

	first, err := coord.Embeddings(ctx, token, s.Comments)
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if len(first) != len(s.Comments) {
		t.Fatalf("expected %d vectors, got %d", len(s.Comments), len(first))
	}
	callsAfterFirst := provider.EmbedCalls()
	if callsAfterFirst == 0 {
		t.Fatal("expected provider call on cache miss")
	}

	second, err := coord.Embeddings(ctx, token, s.Comments)
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if provider.EmbedCalls() != callsAfterFirst {
		t.Error("expected cache hit without provider call")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached embeddings differ from computed ones")
	}
}

func TestCoordinator_Embeddings_RecomputeOnMismatch(t *testing.T) {
	store := memStore(t)
	coord, provider := newTestCoordinator(t, store)
	ctx := context.Background()
	s := testSession(3)

	stale := mustEncode(t, embeddingEntry{
		Fingerprint: "stale",
		Model:       "old-model",
		Vectors:     [][]float32{{1}, {1}},
	})
	_ = store.Set(ctx, embeddingsKey("tok"), stale, time.Hour)

	vectors, err := coord.Embeddings(ctx, "tok", s.Comments)
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Errorf("expected 3 recomputed vectors, got %d", len(vectors))
	}
	if provider.EmbedCalls() == 0 {
		t.Error("expected recomputation for stale cache")
	}

	_ = store.Set(ctx, embeddingsKey("tok"), []byte("corrupt"), time.Hour)
	calls := provider.EmbedCalls()
	if _, err := coord.Embeddings(ctx, "tok", s.Comments); err != nil {
		t.Fatalf("expected recovery from corrupt cache, got %v", err)
	}
	if provider.EmbedCalls() == calls {
		t.Error("expected recomputation for corrupt cache")
	}
}

func TestCoordinator_Embeddings_KeepsAlignment(t *testing.T) {
	coord, _ := newTestCoordinator(t, memStore(t))
	comments := []model.Comment{{Text: "first"}, {Text: "   "}, {Text: "third"}}

	vectors, err := coord.Embeddings(context.Background(), "tok", comments)
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected aligned vectors, got %d", len(vectors))
	}
	if vectors[1] != nil {
		t.Error("expected nil vector for unembeddable comment")
	}
	if vectors[0] == nil || vectors[2] == nil {
		t.Error("expected vectors for valid comments")
	}
}

func TestCoordinator_Embeddings_CacheWriteFailureIgnored(t *testing.T) {
	coord, _ := newTestCoordinator(t, &failingStore{Store: memStore(t), failSet: true})
	s := testSession(2)

	vectors, err := coord.Embeddings(context.Background(), "tok", s.Comments)
	if err != nil {
		t.Fatalf("expected cache write failure to be ignored, got %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(vectors))
	}
}

func TestCoordinator_Embeddings_ProviderError(t *testing.T) {
	store := memStore(t)
	provider := &llm.MockProvider{Error: llm.ErrRateLimited}
	coord := NewCoordinator(store, rag.NewGateway(provider, nil, rag.DefaultGatewayConfig()), time.Hour)

	_, err := coord.Embeddings(context.Background(), "tok", testSession(2).Comments)
	if !errors.Is(err, rag.ErrEmbedding) {
		t.Errorf("expected ErrEmbedding, got %v", err)
	}
	if !llm.IsRetryable(err) {
		t.Error("expected retryable error")
	}
}

func TestCoordinator_Embeddings_Empty(t *testing.T) {
	coord, provider := newTestCoordinator(t, memStore(t))
	vectors, err := coord.Embeddings(context.Background(), "tok", nil)
	if err != nil || len(vectors) != 0 {
		t.Errorf("expected empty result, got %v %v", vectors, err)
	}
	if provider.EmbedCalls() != 0 {
		t.Error("expected no provider call")
	}
}

func mustEncode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := Encode(v)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return data
}

// sizedProvider embeds every text as a dim-sized vector.
func sizedProvider(dim int) *llm.MockProvider {
	return &llm.MockProvider{
		EmbedFunc: func(ctx context.Context, model string, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				v := make([]float32, dim)
				v[i%dim] = 1
				out[i] = v
			}
			return out, nil
		},
	}
}

func sizedCoordinator(store Store, dim int) (*Coordinator, *llm.MockProvider) {
	provider := sizedProvider(dim)
	cfg := rag.DefaultGatewayConfig()
	cfg.Dimension = dim
	return NewCoordinator(store, rag.NewGateway(provider, nil, cfg), time.Hour), provider
}

func TestCoordinator_Embeddings_RecomputeOnDimensionChange(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	comments := testSession(3).Comments

	small, _ := sizedCoordinator(store, 8)
	if _, err := small.Embeddings(ctx, "tok", comments); err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}

	large, provider := sizedCoordinator(store, 16)
	vectors, err := large.Embeddings(ctx, "tok", comments)
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if provider.EmbedCalls() != 1 {
		t.Errorf("expected the cache to be recomputed, got %d embed calls", provider.EmbedCalls())
	}
	for i, v := range vectors {
		if len(v) != 16 {
			t.Errorf("vector %d has size %d, expected 16", i, len(v))
		}
	}

	calls := provider.EmbedCalls()
	if _, err := large.Embeddings(ctx, "tok", comments); err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if provider.EmbedCalls() != calls {
		t.Error("expected the recomputed vectors to be served from cache")
	}
}

func TestCoordinator_Embeddings_RecomputeOnRaggedCache(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	coord, provider := newTestCoordinator(t, store)
	comments := testSession(2).Comments

	fp := fingerprint(rag.DefaultGatewayConfig().Model, 0, model.Texts(comments))
	ragged := embeddingEntry{
		Fingerprint: fp,
		Model:       rag.DefaultGatewayConfig().Model,
		Vectors:     [][]float32{make([]float32, 4), make([]float32, 6)},
	}
	if err := store.Set(ctx, embeddingsKey("tok"), mustEncode(t, ragged), time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	vectors, err := coord.Embeddings(ctx, "tok", comments)
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if provider.EmbedCalls() != 1 {
		t.Errorf("expected 1 embed call, got %d", provider.EmbedCalls())
	}
	if len(vectors[0]) != llm.MockDimension || len(vectors[1]) != llm.MockDimension {
		t.Errorf("expected recomputed %d-dim vectors, got %d and %d", llm.MockDimension, len(vectors[0]), len(vectors[1]))
	}
}

func TestUniformDimension(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		want    int
		ok      bool
	}{
		{"empty", nil, 8, true},
		{"matching", [][]float32{make([]float32, 8), nil, make([]float32, 8)}, 8, true},
		{"wrong size", [][]float32{make([]float32, 8)}, 16, false},
		{"ragged without target", [][]float32{make([]float32, 3), make([]float32, 4)}, 0, false},
		{"uniform without target", [][]float32{make([]float32, 3), make([]float32, 3)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniformDimension(tt.vectors, tt.want); got != tt.ok {
				t.Errorf("expected %v, got %v", tt.ok, got)
			}
		})
	}
}
