// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package engine implements the hot loop of spec §4.5 and the fixed
// worker pool of spec §5. The pool is a generalization of the
// limiter-channel idiom the teacher uses in muscato_screen.go and
// muscato_confirm.go ("limit := make(chan bool, concurrency)", one
// goroutine launched per unit of work) into a fixed set of
// long-lived workers pulling fixed-size chunks from a shared atomic
// cursor, per REDESIGN FLAGS §9's worker state machine
// (Idle -> Running -> Idle -> ... -> Quitting) and spec §5's
// monotone chunk-assignment requirement.
package engine

import (
	"sync"
	"sync/atomic"
)

// ChunkSize is the number of query indices claimed per cursor grab
// (spec §5).
const ChunkSize = 1000

// Pool runs one command's parallel region: fixed-size worker set,
// shared cursor, per-worker thread-local accumulator merged under a
// lock by each worker as soon as it finds the cursor drained.
type Pool struct {
	threads int
}

// NewPool clamps threads into the valid range from spec §6 (1..256)
// and returns a pool. A pool of size 1 never touches a mutex or
// atomic, matching spec §5's explicit single-thread fast path.
func NewPool(threads int) *Pool {
	if threads < 1 {
		threads = 1
	}
	if threads > 256 {
		threads = 256
	}
	return &Pool{threads: threads}
}

// Threads reports the configured worker count.
func (p *Pool) Threads() int { return p.threads }

// Run executes work over every chunk of [0,total) using one
// thread-local accumulator per worker (built by newLocal), merging
// each worker's accumulator into the shared result via merge once
// that worker has exhausted the cursor. progress, if non-nil, is
// called with the number of queries completed so far, at chunk
// granularity, from whichever worker happens to finish a chunk --
// the only shared mutable state on the hot path (REDESIGN FLAGS §9
// "Progress reporting").
func RunWithShards[T any](p *Pool, total int32, newLocal func() T, work func(local T, lo, hi int32), merge func(local T), progress func(done int32)) {
	if total <= 0 {
		return
	}

	if p.threads == 1 {
		local := newLocal()
		for lo := int32(0); lo < total; lo += ChunkSize {
			hi := lo + ChunkSize
			if hi > total {
				hi = total
			}
			work(local, lo, hi)
			if progress != nil {
				progress(hi)
			}
		}
		merge(local)
		return
	}

	var cursor int64
	var done int64
	var mergeMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(p.threads)

	for w := 0; w < p.threads; w++ {
		go func() {
			defer wg.Done()
			local := newLocal()
			for {
				lo := int32(atomic.AddInt64(&cursor, int64(ChunkSize)) - int64(ChunkSize))
				if lo >= total {
					break
				}
				hi := lo + ChunkSize
				if hi > total {
					hi = total
				}
				work(local, lo, hi)
				if progress != nil {
					progress(int32(atomic.AddInt64(&done, int64(hi-lo))))
				}
			}
			mergeMu.Lock()
			merge(local)
			mergeMu.Unlock()
		}()
	}
	wg.Wait()
}
