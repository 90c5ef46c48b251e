package search

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints indexing progress to a writer. It plugs into
// IndexAll as a ProgressFunc via Update.
type ProgressTracker struct {
	writer         io.Writer
	reportInterval int

	mu           sync.Mutex
	total        int
	current      int
	lastReported int
	startTime    time.Time
	started      bool
}

// NewProgressTracker creates a tracker that reports every reportInterval
// stored entries. writer is typically os.Stderr.
func NewProgressTracker(writer io.Writer, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// Update records progress. The first call starts the clock.
func (p *ProgressTracker) Update(stored, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.started = true
		p.startTime = time.Now()
	}

	p.total = total
	if stored > total {
		stored = total
	}
	p.current = stored

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since the first Update.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rIndexed: %d/%d (%.1f%%) - %.1f entries/s",
		p.current, p.total, percentage, rate)
}
