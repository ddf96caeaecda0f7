package batch

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many episodes of a batch have finished.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	committed int
	rejected  int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total episodes writing to writer
// (typically os.Stderr). A nil writer discards output.
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressTracker{writer: writer, total: total}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.committed = 0
	p.rejected = 0
}

// Done records one finished episode and reports progress.
func (p *ProgressTracker) Done(committed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	if committed {
		p.committed++
	} else {
		p.rejected++
	}
	p.report()
}

// Finish prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Counts returns the committed and rejected totals so far.
func (p *ProgressTracker) Counts() (committed, rejected int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.committed, p.rejected
}

// Elapsed returns the time elapsed since Start was called.
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
	done := p.committed + p.rejected
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(done) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rEpisodes: %d/%d (%.1f%%) - %d committed, %d rejected - %s",
		done, p.total, percentage, p.committed, p.rejected, time.Since(p.startTime).Round(time.Second))
}
