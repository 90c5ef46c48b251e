package search

import (
	"sort"
	"time"
)

// Reranker reorders an initial similarity-sorted candidate list using
// additional signals. Implementations must preserve membership: the returned
// slice contains exactly the input results, only their order and Score may
// change.
type Reranker interface {
	Rerank(query string, results []*Result) []*Result
}

const (
	termMatchBoost    = 0.1
	maxRecencyBonus   = 0.05
	recencyWindowDays = 365
	minCombinedLength = 50
	shortTextPenalty  = 0.9
)

// HeuristicReranker scores candidates by exact term matches, recency, and
// text length on top of the vector similarity:
//
//   - similarity is multiplied by (1 + 0.1 × term matches), where a match in
//     the title counts double versus one in the description
//   - a recency bonus decays linearly to zero over 365 days since indexing
//   - a 10% penalty applies when title plus description is under ~50 chars
type HeuristicReranker struct {
	now func() time.Time
}

var _ Reranker = (*HeuristicReranker)(nil)

// NewHeuristicReranker creates the default reranker.
func NewHeuristicReranker() *HeuristicReranker {
	return &HeuristicReranker{now: time.Now}
}

// Rerank reorders results by composite score descending. Ties keep their
// incoming order.
func (r *HeuristicReranker) Rerank(query string, results []*Result) []*Result {
	now := r.now()

	reranked := make([]*Result, len(results))
	for i, result := range results {
		scored := *result
		scored.Score = r.score(query, result, now)
		reranked[i] = &scored
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return reranked
}

func (r *HeuristicReranker) score(query string, result *Result, now time.Time) float32 {
	titleMatches := countTermMatches(result.Title, query)
	descMatches := countTermMatches(result.Description, query)
	weighted := float32(2*titleMatches + descMatches)

	score := result.Similarity * (1 + termMatchBoost*weighted)

	if !result.IndexedAt.IsZero() {
		ageDays := now.Sub(result.IndexedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		if ageDays < recencyWindowDays {
			score += maxRecencyBonus * float32(1-ageDays/recencyWindowDays)
		}
	}

	if len([]rune(result.Title))+len([]rune(result.Description)) < minCombinedLength {
		score *= shortTextPenalty
	}

	return score
}
