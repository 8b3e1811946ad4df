package ingestion

import (
	"fmt"
	"io"
	"time"
)

// batchProgress prints a single, rewritten status line while batches are written.
// It is owned by one Ingest call and is not safe for concurrent use.
type batchProgress struct {
	w            io.Writer
	spans        int
	batches      int
	interval     int
	written      int
	batchesDone  int
	lastReported int
	start        time.Time
}

func newBatchProgress(w io.Writer, spans, batchSize, interval int) *batchProgress {
	return &batchProgress{
		w:        w,
		spans:    spans,
		batches:  (spans + batchSize - 1) / batchSize,
		interval: max(interval, 1),
		start:    time.Now(),
	}
}

// batchWritten records one stored batch of n spans and prints when another
// interval of spans has been written.
func (p *batchProgress) batchWritten(n int) {
	p.batchesDone++
	p.written = min(p.written+n, p.spans)
	if p.written-p.lastReported >= p.interval {
		p.print()
		p.lastReported = p.written
	}
}

// done prints the final line and ends it.
func (p *batchProgress) done() {
	p.print()
	fmt.Fprintln(p.w)
}

func (p *batchProgress) print() {
	pct := 100.0
	if p.spans > 0 {
		pct = float64(p.written) / float64(p.spans) * 100
	}
	rate := float64(p.written) / max(time.Since(p.start).Seconds(), 1e-9)
	fmt.Fprintf(p.w, "\rIngested batch %d/%d, spans %d/%d (%.1f%%) at %.0f spans/s",
		p.batchesDone, p.batches, p.written, p.spans, pct, rate)
}
