package search

import "strings"

// Stop words filtered out before term matching. The corpus is German with
// some English mixed in, so both lists apply.
var stopWords = map[string]bool{
	// German
	"der": true, "die": true, "das": true, "ein": true, "eine": true,
	"einen": true, "einem": true, "einer": true, "und": true, "oder": true,
	"aber": true, "ist": true, "sind": true, "war": true, "wird": true,
	"werden": true, "ich": true, "du": true, "sie": true, "wir": true,
	"mit": true, "für": true, "von": true, "bei": true, "auf": true,
	"aus": true, "nach": true, "über": true, "unter": true, "zum": true,
	"zur": true, "zu": true, "im": true, "in": true, "an": true, "am": true,
	"den": true, "dem": true, "des": true, "nicht": true, "kein": true,
	"was": true, "wie": true, "wer": true, "wo": true, "wann": true,
	"hilfe": true, "auch": true, "noch": true, "kann": true, "man": true,
	// English
	"the": true, "a": true, "be": true, "is": true, "are": true,
	"to": true, "of": true, "and": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true,
	"with": true, "as": true, "you": true, "do": true, "at": true,
	"this": true, "but": true, "by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation,
// and removes stop words.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// countTermMatches counts how many filtered query terms appear in the
// document text. Each distinct query term counts at most once.
func countTermMatches(document, query string) int {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return 0
	}

	docWords := tokenizeAndFilter(document)
	docWordSet := make(map[string]bool, len(docWords))
	for _, word := range docWords {
		docWordSet[word] = true
	}

	seen := make(map[string]bool, len(queryWords))
	matches := 0
	for _, qWord := range queryWords {
		if seen[qWord] {
			continue
		}
		seen[qWord] = true
		if docWordSet[qWord] {
			matches++
		}
	}

	return matches
}
