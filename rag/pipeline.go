package rag

import (
	"context"
	"log/slog"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/query"
	"github.com/sozialkompass/semcore/search"
)

// noContextAnswer is returned without a provider call when retrieval finds
// nothing usable.
const noContextAnswer = "Dazu habe ich leider keine Informationen in den hinterlegten Quellen gefunden."

// Pipeline composes query processing, retrieval, context assembly, and
// answer generation into single calls.
type Pipeline struct {
	processor    *query.Processor
	orchestrator *search.Orchestrator
	builder      *ContextBuilder
	answerer     *AnswerGenerator
	topK         int
	rerank       bool
	logger       *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets a custom logger.
// Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "rag")
	}
}

// WithRetrievalTopK sets how many documents retrieval may feed into context
// assembly. Default is search.DefaultTopK.
func WithRetrievalTopK(topK int) PipelineOption {
	return func(p *Pipeline) {
		if topK > 0 {
			p.topK = topK
		}
	}
}

// WithRerank toggles the reranking pass during retrieval.
// Default is enabled.
func WithRerank(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.rerank = enabled
	}
}

// NewPipeline creates a RAG pipeline over the given components.
func NewPipeline(processor *query.Processor, orchestrator *search.Orchestrator, builder *ContextBuilder, answerer *AnswerGenerator, opts ...PipelineOption) (*Pipeline, error) {
	if orchestrator == nil {
		return nil, ErrOrchestratorRequired
	}
	if answerer == nil {
		return nil, ErrGeneratorRequired
	}
	if processor == nil {
		processor = query.NewProcessor()
	}
	if builder == nil {
		builder = NewContextBuilder("")
	}

	p := &Pipeline{
		processor:    processor,
		orchestrator: orchestrator,
		builder:      builder,
		answerer:     answerer,
		topK:         search.DefaultTopK,
		rerank:       true,
		logger:       slog.Default().With("component", "rag"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Ask answers a question from the indexed corpus: the query is expanded for
// retrieval, results become context blocks, and the generator is constrained
// to that context. The returned answer carries citations and the grounded
// flag from validation.
func (p *Pipeline) Ask(ctx context.Context, question string) (*core.Answer, error) {
	processed := p.processor.ProcessQuery(question)

	documents, err := p.retrieve(ctx, processed)
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		p.logger.Info("no documents retrieved", "query", processed.Original)
		return &core.Answer{Text: noContextAnswer}, nil
	}

	budget := CalculateOptimalContextSize(processed.Intent)
	contextText := p.builder.BuildContext(documents, processed.Original, budget)

	answer, err := p.answerer.GenerateAnswer(ctx, processed.Original, contextText)
	if err != nil {
		return nil, err
	}

	p.answerer.ValidateAnswer(answer, documents)
	return answer, nil
}

// AskStructured is Ask with a fixed-schema JSON answer, for machine
// consumers such as eligibility checks.
func (p *Pipeline) AskStructured(ctx context.Context, question string) (*StructuredAnswer, error) {
	processed := p.processor.ProcessQuery(question)

	documents, err := p.retrieve(ctx, processed)
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return &StructuredAnswer{Answer: noContextAnswer, Eligible: "unclear"}, nil
	}

	budget := CalculateOptimalContextSize(processed.Intent)
	contextText := p.builder.BuildContext(documents, processed.Original, budget)

	return p.answerer.GenerateStructuredAnswer(ctx, processed.Original, contextText)
}

// retrieve searches with the expanded query and converts hits into context
// documents.
func (p *Pipeline) retrieve(ctx context.Context, processed *query.ProcessedQuery) ([]*core.ContextDocument, error) {
	results, err := p.orchestrator.Search(ctx, search.Query{
		Text:   processed.Expanded,
		TopK:   p.topK,
		Rerank: p.rerank,
	})
	if err != nil {
		return nil, err
	}

	documents := make([]*core.ContextDocument, len(results))
	for i, result := range results {
		source := result.URL
		if source == "" {
			source = result.Type
		}
		documents[i] = &core.ContextDocument{
			DocumentID: result.Id,
			Title:      result.Title,
			Source:     source,
			Excerpt:    result.Description,
			Relevance:  result.Score,
			IndexedAt:  result.IndexedAt,
		}
	}
	return documents, nil
}
