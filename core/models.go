package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Entry is a record from the entry store: a piece of indexable content
// such as a benefit description. The core never writes entries back.
type Entry struct {
	Id          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Content     string            `json:"content,omitempty"`
	Type        string            `json:"type,omitempty"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// VectorEntry is an indexed document: an embedding vector plus the display
// metadata needed to format search results. All vectors in one store share
// the same dimensionality.
type VectorEntry struct {
	Id        string
	Vector    []float32
	Metadata  map[string]string
	IndexedAt time.Time
}

// CacheRecord is a cached embedding keyed by (model, normalized text).
// TextSnippet holds a truncated copy of the source text for debugging only.
type CacheRecord struct {
	Key         string
	Vector      []float32
	TextSnippet string
	Model       string
	CreatedAt   time.Time
}

// Match is a raw similarity hit from the vector store.
// Similarity is cosine similarity in [-1, 1].
type Match struct {
	Entry      *VectorEntry
	Similarity float32
}

// ContextDocument is one retrieved passage formatted for prompt assembly.
type ContextDocument struct {
	DocumentID string
	Title      string
	Source     string
	Excerpt    string
	Relevance  float32
	IndexedAt  time.Time
}

// Answer is a generated answer with the document ids it cites.
// Grounded reports whether every claim was traceable to the supplied context.
type Answer struct {
	Text      string
	Citations []string
	Grounded  bool
}

// snippetLength bounds the debug text stored in cache records.
const snippetLength = 80

// CacheKeyFor derives a deterministic cache key from the embedding model and
// the normalized input text using BLAKE2b hashing. Identical (model, text)
// pairs always yield identical keys.
func CacheKeyFor(model, text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Snippet returns text truncated for storage in a CacheRecord.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength])
}
