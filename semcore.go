// Copyright 2025 Sozialkompass
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package semcore is a semantic retrieval and answer-generation core for
// German benefits content. It wires the embedding cache, vector index,
// search orchestrator, query processor, and RAG pipeline together with
// explicit dependency injection; construct a System once at process start
// and pass it around.
package semcore

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sozialkompass/semcore/ai"
	"github.com/sozialkompass/semcore/ai/openai"
	"github.com/sozialkompass/semcore/embedding"
	"github.com/sozialkompass/semcore/query"
	"github.com/sozialkompass/semcore/rag"
	"github.com/sozialkompass/semcore/search"
	"github.com/sozialkompass/semcore/storage"
	"github.com/sozialkompass/semcore/storage/badger"
	"github.com/sozialkompass/semcore/storage/jsonfile"
)

const (
	vectorFileName = "vectors.json"
	cacheFileName  = "cache.json"
)

// System bundles the constructed services over one data directory.
type System struct {
	vectors  storage.VectorRepository
	cache    storage.CacheRepository
	backend  *badger.Backend
	provider ai.Provider
	embedder *embedding.Service
	searcher *search.Orchestrator

	generatorModel string
	logger         *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig    *ai.Config
	provider    ai.Provider
	useBadger   bool
	cacheTTL    time.Duration
	flushPolicy embedding.FlushPolicy
}

// WithAIConfig sets the provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a pre-built AI provider, bypassing WithAIConfig.
// Mainly for tests running against mocks.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithBadgerStorage stores vectors and cached embeddings in a BadgerDB
// directory instead of whole-file JSON documents.
func WithBadgerStorage() SystemOption {
	return func(o *systemOptions) {
		o.useBadger = true
	}
}

// WithCacheTTL sets an expiry on cached embeddings. Zero (the default)
// keeps them forever.
func WithCacheTTL(ttl time.Duration) SystemOption {
	return func(o *systemOptions) {
		o.cacheTTL = ttl
	}
}

// WithFlushPolicy sets the embedding cache persistence policy.
// Default is embedding.FlushWriteThrough.
func WithFlushPolicy(policy embedding.FlushPolicy) SystemOption {
	return func(o *systemOptions) {
		o.flushPolicy = policy
	}
}

// NewSystem constructs the full service stack over dataDir. An empty
// dataDir keeps everything in memory, which suits tests and one-shot use.
func NewSystem(dataDir string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:    ai.DefaultConfig(),
		flushPolicy: embedding.FlushWriteThrough,
	}
	for _, opt := range opts {
		opt(options)
	}

	s := &System{
		generatorModel: options.aiConfig.GeneratorModel,
		logger:         slog.Default().With("component", "semcore"),
	}

	if options.useBadger && dataDir != "" {
		backend, err := badger.OpenBackend(filepath.Join(dataDir, "badger"), false)
		if err != nil {
			return nil, err
		}
		vectors, err := badger.NewVectorRepository(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		var cacheOpts []badger.CacheOption
		if options.cacheTTL > 0 {
			cacheOpts = append(cacheOpts, badger.WithTTL(options.cacheTTL))
		}
		s.backend = backend
		s.vectors = vectors
		s.cache = badger.NewCacheRepository(backend, cacheOpts...)
	} else {
		vectorPath := ""
		cachePath := ""
		if dataDir != "" {
			vectorPath = filepath.Join(dataDir, vectorFileName)
			cachePath = filepath.Join(dataDir, cacheFileName)
		}
		var cacheOpts []jsonfile.CacheOption
		if options.cacheTTL > 0 {
			cacheOpts = append(cacheOpts, jsonfile.WithCacheTTL(options.cacheTTL))
		}
		s.vectors = jsonfile.NewVectorStore(vectorPath)
		s.cache = jsonfile.NewCacheStore(cachePath, cacheOpts...)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			s.closeStorage()
			return nil, err
		}
	}
	s.provider = provider

	embedder, err := embedding.NewService(
		provider.Embedder(), s.cache, options.aiConfig.EmbeddingModel,
		embedding.WithFlushPolicy(options.flushPolicy),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.embedder = embedder

	searcher, err := search.NewOrchestrator(s.vectors, embedder)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.searcher = searcher

	return s, nil
}

// Load reads the persisted vector index and embedding cache.
func (s *System) Load(ctx context.Context) error {
	if err := s.vectors.Load(ctx); err != nil {
		return err
	}
	return s.cache.Load(ctx)
}

// Save persists the vector index and embedding cache.
func (s *System) Save(ctx context.Context) error {
	if err := s.vectors.Save(ctx); err != nil {
		return err
	}
	return s.cache.Save(ctx)
}

// Close releases all services and storage.
func (s *System) Close() error {
	if s.searcher != nil {
		s.searcher.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	return s.closeStorage()
}

func (s *System) closeStorage() error {
	var firstErr error
	if s.vectors != nil {
		if err := s.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// VectorRepository returns the vector index.
func (s *System) VectorRepository() storage.VectorRepository {
	return s.vectors
}

// CacheRepository returns the embedding cache.
func (s *System) CacheRepository() storage.CacheRepository {
	return s.cache
}

// EmbeddingService returns the caching embedding service.
func (s *System) EmbeddingService() *embedding.Service {
	return s.embedder
}

// Searcher returns the search orchestrator.
func (s *System) Searcher() *search.Orchestrator {
	return s.searcher
}

// NewPipeline builds a RAG pipeline over the system's services.
func (s *System) NewPipeline(opts ...rag.PipelineOption) (*rag.Pipeline, error) {
	answerer, err := rag.NewAnswerGenerator(s.provider.Generator())
	if err != nil {
		return nil, err
	}
	builder := rag.NewContextBuilder(s.generatorModel)
	return rag.NewPipeline(query.NewProcessor(), s.searcher, builder, answerer, opts...)
}
