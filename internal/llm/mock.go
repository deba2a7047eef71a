package llm

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// MockDimension is the vector size produced by MockProvider's default embedder.
const MockDimension = 32

// MockProvider is a deterministic Provider for tests.
// Func fields override the default behaviour; call counters record usage.
type MockProvider struct {
	EmbedFunc      func(ctx context.Context, model string, texts []string) ([][]float32, error)
	CompleteFunc   func(ctx context.Context, model string, messages []Message) (string, error)
	StructuredFunc func(ctx context.Context, model string, messages []Message, schema Schema) (string, error)

	// Response is returned by Complete when CompleteFunc is nil.
	Response string

	// Structured maps schema names to replies when StructuredFunc is nil.
	Structured map[string]string

	// Error, if set, is returned by every call.
	Error error

	mu              sync.Mutex
	embedCalls      int
	completeCalls   int
	structuredCalls map[string]int
	embeddedTexts   [][]string
	lastMessages    []Message
}

// NewMockProvider returns a mock whose Complete returns response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

// Embed returns bag-of-words vectors unless EmbedFunc is set.
func (m *MockProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.embeddedTexts = append(m.embeddedTexts, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.Error != nil {
		return nil, m.Error
	}
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, model, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = BagOfWords(text)
	}
	return vectors, nil
}

// Complete returns Response unless CompleteFunc is set.
func (m *MockProvider) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	m.mu.Lock()
	m.completeCalls++
	m.lastMessages = messages
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, model, messages)
	}
	return m.Response, nil
}

// CompleteStructured returns Structured[schema.Name] unless StructuredFunc is set.
// An unknown schema yields an empty reply.
func (m *MockProvider) CompleteStructured(ctx context.Context, model string, messages []Message, schema Schema) (string, error) {
	m.mu.Lock()
	if m.structuredCalls == nil {
		m.structuredCalls = make(map[string]int)
	}
	m.structuredCalls[schema.Name]++
	m.lastMessages = messages
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}
	if m.StructuredFunc != nil {
		return m.StructuredFunc(ctx, model, messages, schema)
	}
	return m.Structured[schema.Name], nil
}

// EmbedCalls returns how many times Embed was called.
func (m *MockProvider) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// EmbeddedTexts returns the text batches passed to Embed, in call order.
func (m *MockProvider) EmbeddedTexts() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embeddedTexts
}

// CompleteCalls returns how many times Complete was called.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// StructuredCalls returns how many structured calls used the named schema.
func (m *MockProvider) StructuredCalls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.structuredCalls[name]
}

// LastPrompt returns the content of the last message sent to Complete or
// CompleteStructured.
func (m *MockProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lastMessages) == 0 {
		return ""
	}
	return m.lastMessages[len(m.lastMessages)-1].Content
}

// BagOfWords hashes lower-cased words into a MockDimension-sized count vector.
func BagOfWords(text string) []float32 {
	vec := make([]float32, MockDimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%MockDimension]++
	}
	return vec
}
