package rag

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/query"
)

// Token budgets by query complexity. Comparison and summarization intents
// get more context than direct lookups.
const (
	contextBudgetLookup     = 1024
	contextBudgetQuestion   = 2048
	contextBudgetComparison = 3072
	contextBudgetDefault    = 1536
)

const blockDelimiter = "---"

// ContextBuilder assembles retrieved documents into a prompt context that
// fits a token budget.
type ContextBuilder struct {
	model  string
	logger *slog.Logger
}

// ContextBuilderOption configures a ContextBuilder.
type ContextBuilderOption func(*ContextBuilder)

// WithContextLogger sets a custom logger.
// Default is slog.Default().
func WithContextLogger(logger *slog.Logger) ContextBuilderOption {
	return func(b *ContextBuilder) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "context")
	}
}

// NewContextBuilder creates a context builder. model is the generation model
// name used for token counting.
func NewContextBuilder(model string, opts ...ContextBuilderOption) *ContextBuilder {
	b := &ContextBuilder{
		model:  model,
		logger: slog.Default().With("component", "context"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildContext ranks documents by relevance and concatenates them as
// delimited blocks until the token budget is reached. Documents that do not
// fit are dropped whole, lowest-ranked first, never truncated mid-document.
func (b *ContextBuilder) BuildContext(documents []*core.ContextDocument, queryText string, tokenBudget int) string {
	if len(documents) == 0 {
		return ""
	}
	if tokenBudget <= 0 {
		tokenBudget = contextBudgetDefault
	}

	ranked := make([]*core.ContextDocument, len(documents))
	copy(ranked, documents)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})

	var blocks []string
	used := 0
	dropped := 0

	for _, doc := range ranked {
		block := formatBlock(doc)
		tokens := llms.CountTokens(b.model, block)
		if used+tokens > tokenBudget {
			dropped++
			continue
		}
		blocks = append(blocks, block)
		used += tokens
	}

	if dropped > 0 {
		b.logger.Debug("dropped context documents over token budget",
			"dropped", dropped, "kept", len(blocks), "budget", tokenBudget)
	}

	return strings.Join(blocks, "\n"+blockDelimiter+"\n")
}

// CalculateOptimalContextSize maps the query intent to a token budget.
func CalculateOptimalContextSize(intent query.Intent) int {
	switch intent {
	case query.IntentLookup:
		return contextBudgetLookup
	case query.IntentQuestion:
		return contextBudgetQuestion
	case query.IntentComparison:
		return contextBudgetComparison
	default:
		return contextBudgetDefault
	}
}

// formatBlock renders one document as a delimited context block. The [id]
// header is what answers cite.
func formatBlock(doc *core.ContextDocument) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", doc.DocumentID, doc.Title)
	if doc.Source != "" {
		fmt.Fprintf(&sb, "Quelle: %s\n", doc.Source)
	}
	if !doc.IndexedAt.IsZero() {
		fmt.Fprintf(&sb, "Stand: %s\n", doc.IndexedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "Relevanz: %.2f\n", doc.Relevance)
	sb.WriteString(doc.Excerpt)
	return sb.String()
}
