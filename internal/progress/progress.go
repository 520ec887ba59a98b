// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package progress is the one piece of shared mutable state the hot
// path touches (REDESIGN FLAGS §9): a throttled reporter fed at chunk
// granularity. Report is called from whichever worker goroutine
// finishes a chunk, so progress lines are written by workers; calls
// are serialized by a mutex, and the values passed in need not arrive
// in increasing order. Grounded on the periodic
// "%d\n" line-count logging every muscato stage binary does every
// 100000/1000000 records, generalized from "log every N lines" to
// "log every chunk, gated by a minimum wall-clock interval".
package progress

import (
	"log"
	"sync"
	"time"
)

// Reporter throttles progress log lines to at most once per interval.
type Reporter struct {
	mu       sync.Mutex
	logger   *log.Logger
	total    int32
	label    string
	interval time.Duration
	last     time.Time
}

// New returns a reporter that will log at most once per interval.
func New(logger *log.Logger, label string, total int32, interval time.Duration) *Reporter {
	return &Reporter{logger: logger, label: label, total: total, interval: interval}
}

// Report is called with a cumulative count of completed work units. It
// is safe to call from several goroutines at once; under concurrent
// workers the counts may arrive out of order, and each line prints the
// count it was given.
func (r *Reporter) Report(done int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if !r.last.IsZero() && now.Sub(r.last) < r.interval && done < r.total {
		return
	}
	r.last = now
	r.logger.Printf("%s: %d/%d", r.label, done, r.total)
}
