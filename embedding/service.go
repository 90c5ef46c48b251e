package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/sozialkompass/semcore/ai"
	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
)

// FlushPolicy controls when newly cached vectors are persisted.
type FlushPolicy int

const (
	// FlushWriteThrough persists the cache after every new vector. Durable
	// across restarts at the cost of one save per miss.
	FlushWriteThrough FlushPolicy = iota

	// FlushBatched defers persistence to an explicit Flush call (or the next
	// write-through save). Narrow durability window, much higher throughput
	// for bulk indexing.
	FlushBatched
)

const (
	defaultBatchSize    = 100
	defaultTokenCeiling = 8192
)

// Usage is a snapshot of the service's running counters.
type Usage struct {
	CacheHits     int64
	CacheMisses   int64
	ProviderCalls int64
	Tokens        int64
	Cost          float64
	Skipped       int64
}

// Service embeds text through an ai.Embedder with a persistent cache in
// front. Safe for concurrent use.
type Service struct {
	embedder     ai.Embedder
	cache        storage.CacheRepository
	model        string
	batchSize    int
	tokenCeiling int
	costPer1K    float64
	flushPolicy  FlushPolicy
	logger       *slog.Logger

	mu    sync.Mutex
	usage Usage
}

// Option configures a Service.
type Option func(*Service) error

// WithBatchSize sets the maximum number of texts per provider call.
// Default is 100.
func WithBatchSize(size int) Option {
	return func(s *Service) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// WithTokenCeiling sets the per-text token limit. Oversized texts are
// truncated proportionally, not rejected. Default is 8192.
func WithTokenCeiling(ceiling int) Option {
	return func(s *Service) error {
		if ceiling <= 0 {
			return fmt.Errorf("token ceiling must be positive, got %d", ceiling)
		}
		s.tokenCeiling = ceiling
		return nil
	}
}

// WithCostPerThousandTokens sets the cost rate used by the usage counters.
// Default is 0, which fits locally hosted models.
func WithCostPerThousandTokens(rate float64) Option {
	return func(s *Service) error {
		s.costPer1K = rate
		return nil
	}
}

// WithFlushPolicy sets the cache persistence policy.
// Default is FlushWriteThrough.
func WithFlushPolicy(policy FlushPolicy) Option {
	return func(s *Service) error {
		s.flushPolicy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "embedding")
		return nil
	}
}

// NewService creates an embedding service for the given model.
func NewService(embedder ai.Embedder, cache storage.CacheRepository, model string, opts ...Option) (*Service, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if model == "" {
		return nil, fmt.Errorf("model name required")
	}

	s := &Service{
		embedder:     embedder,
		cache:        cache,
		model:        model,
		batchSize:    defaultBatchSize,
		tokenCeiling: defaultTokenCeiling,
		flushPolicy:  FlushWriteThrough,
		logger:       slog.Default().With("component", "embedding"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Embed returns the vector for a single text, serving from cache when the
// same (model, text) pair has been embedded before.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return nil, ErrEmptyInput
	}
	normalized = s.truncate(normalized)

	key := core.CacheKeyFor(s.model, normalized)
	if record, err := s.cache.Get(ctx, key); err == nil {
		s.account(func(u *Usage) { u.CacheHits++ })
		return record.Vector, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("cache lookup failed, falling through to provider", "err", err)
	}

	vector, err := s.embedder.EmbedText(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	tokens := int64(llms.CountTokens(s.model, normalized))
	s.account(func(u *Usage) {
		u.CacheMisses++
		u.ProviderCalls++
		u.Tokens += tokens
		u.Cost += float64(tokens) / 1000 * s.costPer1K
	})

	s.store(ctx, key, normalized, vector)
	if s.flushPolicy == FlushWriteThrough {
		s.persist(ctx)
	}

	return vector, nil
}

// EmbedBatch returns vectors for texts in input order. Cached texts are
// served without a provider call; the rest are embedded in chunks of the
// configured batch size. Blank texts yield a nil vector at their position
// and are counted as skipped, never aborting the batch. A provider failure
// aborts the whole attempt.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	// Partition into cached and uncached, remembering original positions.
	var pendingTexts []string
	var pendingIdx []int
	var pendingKeys []string

	for i, text := range texts {
		normalized := strings.TrimSpace(text)
		if normalized == "" {
			s.account(func(u *Usage) { u.Skipped++ })
			continue
		}
		normalized = s.truncate(normalized)

		key := core.CacheKeyFor(s.model, normalized)
		if record, err := s.cache.Get(ctx, key); err == nil {
			s.account(func(u *Usage) { u.CacheHits++ })
			vectors[i] = record.Vector
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cache lookup failed, falling through to provider", "err", err)
		}

		pendingTexts = append(pendingTexts, normalized)
		pendingIdx = append(pendingIdx, i)
		pendingKeys = append(pendingKeys, key)
	}

	if len(pendingTexts) == 0 {
		return vectors, nil
	}

	s.logger.Debug("embedding uncached texts",
		"total", len(texts), "cached", len(texts)-len(pendingTexts), "uncached", len(pendingTexts))

	// Chunks run sequentially to respect provider rate limits.
	for start := 0; start < len(pendingTexts); start += s.batchSize {
		end := min(start+s.batchSize, len(pendingTexts))
		chunk := pendingTexts[start:end]

		embedded, err := s.embedder.EmbedTexts(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		if len(embedded) != len(chunk) {
			return nil, fmt.Errorf("%w: expected %d vectors, received %d", ErrProvider, len(chunk), len(embedded))
		}

		var tokens int64
		for _, text := range chunk {
			tokens += int64(llms.CountTokens(s.model, text))
		}
		s.account(func(u *Usage) {
			u.CacheMisses += int64(len(chunk))
			u.ProviderCalls++
			u.Tokens += tokens
			u.Cost += float64(tokens) / 1000 * s.costPer1K
		})

		for j, vector := range embedded {
			vectors[pendingIdx[start+j]] = vector
			s.store(ctx, pendingKeys[start+j], chunk[j], vector)
		}
	}

	if s.flushPolicy == FlushWriteThrough {
		s.persist(ctx)
	}

	return vectors, nil
}

// Flush persists the cache. Needed under FlushBatched; harmless otherwise.
func (s *Service) Flush(ctx context.Context) error {
	return s.cache.Save(ctx)
}

// Usage returns a snapshot of the running counters.
func (s *Service) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Model returns the embedding model name the service is bound to.
func (s *Service) Model() string {
	return s.model
}

// truncate cuts text down proportionally when its token count exceeds the
// ceiling. Token boundaries are approximate, so the cut keeps a small margin.
func (s *Service) truncate(text string) string {
	tokens := llms.CountTokens(s.model, text)
	if tokens <= s.tokenCeiling {
		return text
	}

	runes := []rune(text)
	keep := len(runes) * s.tokenCeiling / tokens
	keep = keep * 95 / 100
	if keep < 1 {
		keep = 1
	}

	s.logger.Warn("text exceeds token ceiling, truncating",
		"tokens", tokens, "ceiling", s.tokenCeiling, "keptRunes", keep, "totalRunes", len(runes))
	return strings.TrimSpace(string(runes[:keep]))
}

func (s *Service) store(ctx context.Context, key, text string, vector []float32) {
	record := &core.CacheRecord{
		Key:         key,
		Vector:      vector,
		TextSnippet: core.Snippet(text),
		Model:       s.model,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.cache.Put(ctx, record); err != nil {
		s.logger.Warn("failed to cache vector", "key", key, "err", err)
	}
}

func (s *Service) persist(ctx context.Context) {
	if err := s.cache.Save(ctx); err != nil {
		s.logger.Warn("failed to persist cache", "err", err)
	}
}

func (s *Service) account(update func(*Usage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.usage)
}
