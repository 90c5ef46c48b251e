package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/embedding"
	"github.com/sozialkompass/semcore/storage"
)

const (
	// DefaultTopK is the result count when the caller does not set one.
	DefaultTopK = 10

	// DefaultMinSimilarity is the similarity floor when the caller does not
	// set one.
	DefaultMinSimilarity = 0.7

	// Descriptions shorter than this fall back to content for the composite
	// embedding text.
	minDescriptionRunes = 20
)

// Orchestrator indexes entries into the vector repository and serves
// semantic queries over them.
type Orchestrator struct {
	vectors  storage.VectorRepository
	embedder *embedding.Service
	reranker Reranker
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "search")
		return nil
	}
}

// WithReranker sets the reranking strategy.
// Default is NewHeuristicReranker().
func WithReranker(reranker Reranker) Option {
	return func(o *Orchestrator) error {
		if reranker == nil {
			return fmt.Errorf("reranker must not be nil")
		}
		o.reranker = reranker
		return nil
	}
}

// WithPoolSize sets the worker pool size used to store vectors during batch
// indexing. Default is 1, which keeps indexing sequential; raise it only
// when the vector repository tolerates concurrent writers.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// NewOrchestrator creates a search orchestrator.
func NewOrchestrator(vectors storage.VectorRepository, embedder *embedding.Service, opts ...Option) (*Orchestrator, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbeddingServiceRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		vectors:  vectors,
		embedder: embedder,
		reranker: NewHeuristicReranker(),
		pool:     pool,
		logger:   slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.pool.Release()
			return nil, err
		}
	}

	return o, nil
}

// Release frees the worker pool. The orchestrator should not be used after
// calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// IndexEntry embeds a single entry and stores its vector with display
// metadata. Entries without an id fail with ErrMissingID; entries with no
// extractable text fail with ErrEmptyContent.
func (o *Orchestrator) IndexEntry(ctx context.Context, entry *core.Entry) error {
	if err := core.ValidateEntry(entry); err != nil {
		if errors.Is(err, core.ErrMissingID) {
			return fmt.Errorf("%w: %v", ErrMissingID, err)
		}
		return err
	}

	text := compositeText(entry)
	if text == "" {
		return fmt.Errorf("%w: %s", ErrEmptyContent, entry.Id)
	}

	vector, err := o.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	if err := o.vectors.Add(ctx, vectorEntryFor(entry, vector)); err != nil {
		return err
	}

	return o.vectors.Save(ctx)
}

// IndexAll indexes entries in one logical pass: eligible texts are embedded
// via the embedding service's batch path, then each vector is stored through
// the worker pool. Invalid entries are counted as failed, never aborting the
// run. The repository is persisted once at the end. progress may be nil.
func (o *Orchestrator) IndexAll(ctx context.Context, entries []*core.Entry, progress ProgressFunc) (*IndexReport, error) {
	start := time.Now()
	report := &IndexReport{Total: len(entries)}

	type job struct {
		entry *core.Entry
		text  string
	}

	jobs := make([]*job, 0, len(entries))
	for _, entry := range entries {
		if err := core.ValidateEntry(entry); err != nil {
			o.logger.Warn("skipping invalid entry", "err", err)
			report.Failed++
			continue
		}
		text := compositeText(entry)
		if text == "" {
			o.logger.Warn("skipping entry with no extractable text", "id", entry.Id)
			report.Failed++
			continue
		}
		jobs = append(jobs, &job{entry: entry, text: text})
	}

	if len(jobs) > 0 {
		texts := make([]string, len(jobs))
		for i, j := range jobs {
			texts[i] = j.text
		}

		vectors, err := o.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}

		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := range jobs {
			if vectors[i] == nil {
				mu.Lock()
				report.Failed++
				mu.Unlock()
				continue
			}

			i := i
			wg.Add(1)
			task := func() {
				defer wg.Done()
				if err := o.vectors.Add(ctx, vectorEntryFor(jobs[i].entry, vectors[i])); err != nil {
					o.logger.Warn("failed to store vector", "id", jobs[i].entry.Id, "err", err)
					mu.Lock()
					report.Failed++
					mu.Unlock()
					return
				}
				mu.Lock()
				report.Success++
				stored := report.Success
				mu.Unlock()
				if progress != nil {
					progress(stored, report.Total)
				}
			}
			if err := o.pool.Submit(task); err != nil {
				task()
			}
		}
		wg.Wait()
	}

	if err := o.vectors.Save(ctx); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(start)
	o.logger.Info("batch indexing complete",
		"success", report.Success, "failed", report.Failed, "total", report.Total,
		"elapsed", report.Elapsed, "throughput", report.Throughput())

	return report, nil
}

// Query holds search parameters. Zero values select the defaults.
type Query struct {
	Text string

	// TopK limits the result count. 0 selects DefaultTopK.
	TopK int

	// MinSimilarity is the similarity floor. 0 selects DefaultMinSimilarity
	// unless MinSimilaritySet is true.
	MinSimilarity float32

	// MinSimilaritySet marks an explicit zero floor as caller-provided, so
	// it is not replaced by the default.
	MinSimilaritySet bool

	// Filter restricts results to entries whose metadata matches every pair
	// exactly.
	Filter map[string]string

	// Rerank enables the heuristic reranking pass.
	Rerank bool
}

// Search embeds the query text, retrieves candidates from the vector
// repository, optionally reranks, and returns formatted results.
func (o *Orchestrator) Search(ctx context.Context, q Query) ([]*Result, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	minSimilarity := q.MinSimilarity
	if minSimilarity == 0 && !q.MinSimilaritySet {
		minSimilarity = DefaultMinSimilarity
	}

	vector, err := o.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	// With reranking on, fetch a wider candidate pool so the second pass has
	// something to reorder before truncation.
	fetchK := topK
	if q.Rerank {
		fetchK = topK * 2
	}

	matches, err := o.vectors.Search(ctx, vector, storage.SearchOptions{
		TopK:          fetchK,
		MinSimilarity: minSimilarity,
		Filter:        q.Filter,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(matches))
	for i, match := range matches {
		results[i] = formatMatch(match)
	}

	if q.Rerank {
		results = o.reranker.Rerank(q.Text, results)
	}
	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// FindSimilar returns up to topK entries similar to the stored entry with
// the given id, excluding the entry itself. Fails with storage.ErrNotFound
// when the id is not indexed.
func (o *Orchestrator) FindSimilar(ctx context.Context, id string, topK int) ([]*Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	entry, err := o.vectors.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Fetch one extra so the entry itself can be dropped.
	matches, err := o.vectors.Search(ctx, entry.Vector, storage.SearchOptions{TopK: topK + 1})
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, topK)
	for _, match := range matches {
		if match.Entry.Id == id {
			continue
		}
		results = append(results, formatMatch(match))
		if len(results) == topK {
			break
		}
	}

	return results, nil
}

// compositeText builds the text to embed: title plus description, falling
// back to content when the description is short or absent.
func compositeText(entry *core.Entry) string {
	title := strings.TrimSpace(entry.Title)
	description := strings.TrimSpace(entry.Description)
	content := strings.TrimSpace(entry.Content)

	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, title)
	}
	if description != "" {
		parts = append(parts, description)
	}
	if len([]rune(description)) < minDescriptionRunes && content != "" {
		parts = append(parts, content)
	}

	return strings.Join(parts, "\n")
}

// vectorEntryFor builds the stored record: the vector plus the display
// metadata search results are formatted from.
func vectorEntryFor(entry *core.Entry, vector []float32) *core.VectorEntry {
	metadata := map[string]string{
		"title":       entry.Title,
		"description": core.Snippet(entry.Description),
	}
	if entry.Type != "" {
		metadata["type"] = entry.Type
	}
	if entry.URL != "" {
		metadata["url"] = entry.URL
	}

	return &core.VectorEntry{
		Id:        entry.Id,
		Vector:    vector,
		Metadata:  metadata,
		IndexedAt: time.Now().UTC(),
	}
}

func formatMatch(match *core.Match) *Result {
	similarity := match.Similarity
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}

	return &Result{
		Id:          match.Entry.Id,
		Title:       match.Entry.Metadata["title"],
		Description: match.Entry.Metadata["description"],
		Type:        match.Entry.Metadata["type"],
		URL:         match.Entry.Metadata["url"],
		IndexedAt:   match.Entry.IndexedAt,
		Similarity:  similarity,
		Score:       similarity,
	}
}
