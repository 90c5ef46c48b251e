package search

import "time"

// Result is a formatted search hit.
type Result struct {
	Id          string
	Title       string
	Description string
	Type        string
	URL         string
	IndexedAt   time.Time

	// Similarity is the clamped cosine similarity against the query, in [0,1].
	Similarity float32

	// Score is the ranking score. Equals Similarity unless reranking ran.
	Score float32
}

// IndexReport summarizes a batch indexing run.
type IndexReport struct {
	Success int
	Failed  int
	Total   int
	Elapsed time.Duration
}

// Throughput returns successfully indexed entries per second.
func (r *IndexReport) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Success) / r.Elapsed.Seconds()
}

// ProgressFunc receives a callback after each stored vector during batch
// indexing. stored counts successfully stored vectors; total is the input
// entry count.
type ProgressFunc func(stored, total int)
