package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sozialkompass/semcore/ai"
	"github.com/sozialkompass/semcore/core"
)

const answerSystemPrompt = `Du bist ein Assistent für deutsche Sozialleistungen.
Beantworte die Frage ausschließlich anhand des bereitgestellten Kontexts.
Zitiere jede Aussage mit der Dokument-Id in eckigen Klammern, z.B. [wohngeld].
Wenn der Kontext die Frage nicht beantwortet, sage das klar und erfinde nichts.`

const structuredSystemPrompt = `Du bist ein Assistent für deutsche Sozialleistungen.
Beantworte ausschließlich anhand des bereitgestellten Kontexts.
Antworte mit genau diesem JSON-Schema und nichts anderem:
{"answer": "...", "eligible": "yes|no|unclear", "reasoning": "...", "citations": ["dokument-id", ...]}`

// citationPattern matches [id] markers in generated text.
var citationPattern = regexp.MustCompile(`\[([^\[\]\s]+)\]`)

// StructuredAnswer is the fixed-schema machine-consumable answer form.
type StructuredAnswer struct {
	Answer    string   `json:"answer"`
	Eligible  string   `json:"eligible"`
	Reasoning string   `json:"reasoning"`
	Citations []string `json:"citations"`
}

// ValidationReport is the outcome of checking an answer against its context.
type ValidationReport struct {
	// UnknownCitations lists cited ids that do not exist in the context.
	UnknownCitations []string

	// Grounded reports whether the answer's sentences were traceable to the
	// context. Heuristic, not proof.
	Grounded bool
}

// AnswerGenerator produces grounded answers over assembled context.
type AnswerGenerator struct {
	generator ai.Generator
	logger    *slog.Logger
}

// AnswerOption configures an AnswerGenerator.
type AnswerOption func(*AnswerGenerator)

// WithAnswerLogger sets a custom logger.
// Default is slog.Default().
func WithAnswerLogger(logger *slog.Logger) AnswerOption {
	return func(g *AnswerGenerator) {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "answer")
	}
}

// NewAnswerGenerator creates an answer generator.
func NewAnswerGenerator(generator ai.Generator, opts ...AnswerOption) (*AnswerGenerator, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	g := &AnswerGenerator{
		generator: generator,
		logger:    slog.Default().With("component", "answer"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateAnswer prompts the provider to answer the query from the supplied
// context only, and extracts the [id] citations from the response.
func (g *AnswerGenerator) GenerateAnswer(ctx context.Context, queryText, contextText string) (*core.Answer, error) {
	prompt := buildAnswerPrompt(queryText, contextText)

	text, err := g.generator.Generate(ctx, answerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	return &core.Answer{
		Text:      strings.TrimSpace(text),
		Citations: extractCitations(text),
	}, nil
}

// GenerateStructuredAnswer requests a fixed-schema JSON answer. A response
// that does not parse surfaces as ErrMalformedStructuredAnswer, never a
// silent fallback.
func (g *AnswerGenerator) GenerateStructuredAnswer(ctx context.Context, queryText, contextText string) (*StructuredAnswer, error) {
	prompt := buildAnswerPrompt(queryText, contextText)

	raw, err := g.generator.GenerateJSON(ctx, structuredSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var answer StructuredAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		g.logger.Warn("structured answer did not parse", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredAnswer, err)
	}
	if answer.Answer == "" {
		return nil, fmt.Errorf("%w: missing answer field", ErrMalformedStructuredAnswer)
	}

	switch answer.Eligible {
	case "yes", "no", "unclear", "":
	default:
		return nil, fmt.Errorf("%w: eligible must be yes, no, or unclear, got %q", ErrMalformedStructuredAnswer, answer.Eligible)
	}

	return &answer, nil
}

// ValidateAnswer checks citations against the context documents and runs the
// groundedness heuristic. The answer's Grounded flag is set accordingly;
// nothing is discarded.
func (g *AnswerGenerator) ValidateAnswer(answer *core.Answer, documents []*core.ContextDocument) *ValidationReport {
	known := make(map[string]bool, len(documents))
	var contextText strings.Builder
	for _, doc := range documents {
		known[doc.DocumentID] = true
		contextText.WriteString(doc.Title)
		contextText.WriteString(" ")
		contextText.WriteString(doc.Excerpt)
		contextText.WriteString(" ")
	}

	report := &ValidationReport{}
	for _, citation := range answer.Citations {
		if !known[citation] {
			report.UnknownCitations = append(report.UnknownCitations, citation)
		}
	}

	report.Grounded = len(report.UnknownCitations) == 0 &&
		isTraceable(answer.Text, contextText.String())
	answer.Grounded = report.Grounded

	if !report.Grounded {
		g.logger.Warn("answer flagged as not grounded",
			"unknownCitations", len(report.UnknownCitations))
	}

	return report
}

func buildAnswerPrompt(queryText, contextText string) string {
	if contextText == "" {
		contextText = "(kein Kontext gefunden)"
	}
	return "Kontext:\n" + contextText + "\n\nFrage: " + queryText
}

// extractCitations returns the distinct [id] markers in order of first
// appearance.
func extractCitations(text string) []string {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	citations := make([]string, 0, len(matches))
	for _, match := range matches {
		id := match[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		citations = append(citations, id)
	}
	return citations
}

// isTraceable reports whether each sentence of the answer shares at least
// half of its content words with the context.
func isTraceable(answerText, contextText string) bool {
	contextWords := make(map[string]bool)
	for _, word := range contentWords(contextText) {
		contextWords[word] = true
	}
	if len(contextWords) == 0 {
		return false
	}

	for _, sentence := range splitSentences(answerText) {
		words := contentWords(sentence)
		if len(words) == 0 {
			continue
		}
		traced := 0
		for _, word := range words {
			if contextWords[word] {
				traced++
			}
		}
		if traced*2 < len(words) {
			return false
		}
	}

	return true
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

func splitSentences(text string) []string {
	parts := sentenceSplitter.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// Function words skipped by the groundedness check.
var functionWords = map[string]bool{
	"der": true, "die": true, "das": true, "ein": true, "eine": true,
	"einen": true, "einem": true, "einer": true, "und": true, "oder": true,
	"ist": true, "sind": true, "wird": true, "werden": true, "kann": true,
	"können": true, "mit": true, "für": true, "von": true, "bei": true,
	"auf": true, "aus": true, "nach": true, "über": true, "zum": true,
	"zur": true, "zu": true, "im": true, "in": true, "an": true, "am": true,
	"den": true, "dem": true, "des": true, "nicht": true, "als": true,
	"auch": true, "sie": true, "es": true, "man": true, "sich": true,
	"the": true, "a": true, "is": true, "are": true, "to": true,
	"of": true, "and": true, "or": true, "for": true, "with": true,
	"you": true, "it": true, "this": true, "that": true,
}

func contentWords(text string) []string {
	// Citation markers are not claims.
	cleaned := citationPattern.ReplaceAllString(text, " ")

	var words []string
	for _, word := range strings.Fields(cleaned) {
		w := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if len([]rune(w)) < 3 || functionWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}
