package query

import (
	"log/slog"
	"strings"
)

// Intent is a coarse classification of what the user is asking for.
type Intent string

const (
	IntentQuestion   Intent = "question"
	IntentComparison Intent = "comparison"
	IntentLookup     Intent = "lookup"
	IntentUnknown    Intent = "unknown"
)

// ProcessedQuery is the result of analyzing a raw query. Original is always
// the literal input; Expanded carries appended synonyms for recall.
type ProcessedQuery struct {
	Original string
	Expanded string
	Intent   Intent
	Entities []string
}

// Processor classifies queries and expands them for retrieval. The
// heuristics are rule based; misclassification degrades ranking quality but
// never fails.
type Processor struct {
	expander Expander
	logger   *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithExpander sets the expansion strategy.
// Default is NewSynonymExpander(nil).
func WithExpander(expander Expander) Option {
	return func(p *Processor) {
		if expander != nil {
			p.expander = expander
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "query")
	}
}

// NewProcessor creates a query processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		expander: NewSynonymExpander(nil),
		logger:   slog.Default().With("component", "query"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessQuery classifies the query's intent, extracts entity terms, and
// builds an expanded query. The original query is preserved verbatim.
func (p *Processor) ProcessQuery(raw string) *ProcessedQuery {
	trimmed := strings.TrimSpace(raw)

	entities := extractEntities(trimmed)
	intent := classifyIntent(trimmed, entities)
	expanded := p.expander.Expand(trimmed, entities)

	p.logger.Debug("processed query",
		"intent", string(intent), "entities", len(entities), "expanded", expanded != trimmed)

	return &ProcessedQuery{
		Original: trimmed,
		Expanded: expanded,
		Intent:   intent,
		Entities: entities,
	}
}

var questionStarters = map[string]bool{
	"wie": true, "was": true, "wer": true, "wann": true, "wo": true,
	"warum": true, "wieso": true, "weshalb": true, "welche": true,
	"welcher": true, "welches": true, "kann": true, "darf": true,
	"muss": true, "habe": true, "gibt": true, "bekomme": true,
	"how": true, "what": true, "who": true, "when": true, "where": true,
	"why": true, "which": true, "can": true, "does": true, "is": true,
}

var comparisonMarkers = []string{
	"unterschied", "vergleich", "verglichen", "besser", "statt",
	"anstatt", " vs ", " vs. ", "gegenüber", "difference", "compare",
	"versus",
}

// classifyIntent applies keyword and pattern heuristics in priority order:
// comparison beats question beats lookup.
func classifyIntent(query string, entities []string) Intent {
	if query == "" {
		return IntentUnknown
	}
	lowered := strings.ToLower(query)

	for _, marker := range comparisonMarkers {
		if strings.Contains(lowered, marker) {
			return IntentComparison
		}
	}
	if strings.Count(lowered, " oder ") > 0 && len(entities) >= 2 {
		return IntentComparison
	}

	if strings.Contains(query, "?") {
		return IntentQuestion
	}
	words := strings.Fields(lowered)
	if len(words) > 0 && questionStarters[words[0]] {
		return IntentQuestion
	}

	// Short keyword queries without question markers are lookups.
	if len(words) <= 4 && len(entities) > 0 {
		return IntentLookup
	}
	if len(entities) > 0 {
		return IntentQuestion
	}

	return IntentUnknown
}

// Stop words dropped during entity extraction. German with English mixed in.
var entityStopWords = map[string]bool{
	"der": true, "die": true, "das": true, "ein": true, "eine": true,
	"einen": true, "einem": true, "einer": true, "und": true, "oder": true,
	"aber": true, "ist": true, "sind": true, "war": true, "wird": true,
	"werden": true, "ich": true, "du": true, "sie": true, "wir": true,
	"mit": true, "für": true, "von": true, "bei": true, "auf": true,
	"aus": true, "nach": true, "über": true, "unter": true, "zum": true,
	"zur": true, "zu": true, "im": true, "in": true, "an": true, "am": true,
	"den": true, "dem": true, "des": true, "nicht": true, "kein": true,
	"was": true, "wie": true, "wer": true, "wo": true, "wann": true,
	"warum": true, "welche": true, "kann": true, "darf": true, "muss": true,
	"habe": true, "gibt": true, "hilfe": true, "bekomme": true, "mir": true,
	"mich": true, "mein": true, "meine": true, "noch": true, "auch": true,
	"the": true, "a": true, "is": true, "are": true, "to": true,
	"of": true, "and": true, "for": true, "with": true, "do": true,
	"does": true, "can": true, "how": true, "what": true, "i": true,
}

// extractEntities returns the lowercased content terms of the query in
// order of first appearance.
func extractEntities(query string) []string {
	words := strings.Fields(query)
	seen := make(map[string]bool, len(words))
	entities := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if len([]rune(cleaned)) < 3 || entityStopWords[cleaned] || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		entities = append(entities, cleaned)
	}

	return entities
}
