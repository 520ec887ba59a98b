// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package cluster implements the single-linkage connected-components
// builder of spec §4.7: an edge-materialization pass driven by the
// neighbor engine, followed by a single-threaded BFS-style chain walk
// that labels components. The edge arena is grounded on REDESIGN
// FLAGS §9 ("Cluster chains... represent as next: u32 with a
// sentinel rather than raw pointers") and on the teacher's own
// growable-buffer idiom for concurrently produced results
// (muscato_confirm.go's qinsert, generalized from a bounded
// priority queue to an unbounded append-only arena since spec §3
// requires the edge arena to grow on demand rather than truncate).
package cluster

import (
	"sort"
	"sync"

	"github.com/kshedden/compairr/internal/engine"
)

// Sentinel marks "no next element" / "no cluster yet" (spec §3,
// REDESIGN FLAGS §9).
const Sentinel = int32(-1)

// edgeBlock is the growth increment for the shared edge arena, chosen
// to land on a 1 MiB block of int32 target ids (spec §4.7).
const edgeBlock = (1 << 20) / 4

// edgeArena is the shared, grow-on-demand store of per-row edge lists.
// Writers hold the lock only for the O(chunk) append of one worker's
// local buffer at a time (spec §4.7, §5).
type edgeArena struct {
	mu   sync.Mutex
	data []int32
}

func (a *edgeArena) append(edges []int32) (offset int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	offset = int32(len(a.data))
	need := len(a.data) + len(edges)
	if cap(a.data) < need {
		newCap := cap(a.data)
		if newCap == 0 {
			newCap = edgeBlock
		}
		for newCap < need {
			newCap += edgeBlock
		}
		grown := make([]int32, len(a.data), newCap)
		copy(grown, a.data)
		a.data = grown
	}
	a.data = append(a.data, edges...)
	return offset
}

// State holds the per-row cluster bookkeeping for one repertoire file
// (spec §3 "Cluster state").
type State struct {
	clusterID  []int32
	next       []int32
	edgeOffset []int32
	edgeCount  []int32
	arena      edgeArena
}

// NewState allocates cluster state for n clonotypes, all initially
// unlabeled.
func NewState(n int) *State {
	s := &State{
		clusterID:  make([]int32, n),
		next:       make([]int32, n),
		edgeOffset: make([]int32, n),
		edgeCount:  make([]int32, n),
	}
	for i := range s.clusterID {
		s.clusterID[i] = Sentinel
		s.next[i] = Sentinel
	}
	return s
}

// BuildEdges runs phase 1 (spec §4.7): the neighbor engine is run
// against the same repertoire file, and every accepted hit for query
// u is recorded into u's edge list.
func BuildEdges(eng *engine.Engine, pool *engine.Pool, n int32, state *State, progress func(int32)) {
	type local struct {
		buf []int32
	}
	engine.RunWithShards(pool, n, func() *local {
		return &local{}
	}, func(l *local, lo, hi int32) {
		for q := lo; q < hi; q++ {
			l.buf = l.buf[:0]
			eng.Query(q, func(m engine.Match) {
				l.buf = append(l.buf, m.Target)
			})
			off := state.arena.append(l.buf)
			state.edgeOffset[q] = off
			state.edgeCount[q] = int32(len(l.buf))
		}
	}, func(l *local) {}, progress)
}

// Info describes one labeled cluster (spec §4.7 step 3).
type Info struct {
	ID   int32
	Seed int32
	Size int32
}

// Label runs phase 2 (single-threaded single-linkage chain walk) and
// phase 3 (descending-size sort, ties broken by seed index) of spec
// §4.7, returning one Info per cluster in final emission order.
func Label(state *State) []Info {
	n := len(state.clusterID)
	var clusters []Info
	var nextID int32

	for u := 0; u < n; u++ {
		if state.clusterID[u] != Sentinel {
			continue
		}
		id := nextID
		nextID++
		state.clusterID[u] = id
		state.next[u] = Sentinel
		tail := int32(u)
		size := int32(1)

		cur := int32(u)
		for cur != Sentinel {
			off := state.edgeOffset[cur]
			cnt := state.edgeCount[cur]
			for k := int32(0); k < cnt; k++ {
				w := state.arena.data[off+k]
				if state.clusterID[w] == Sentinel {
					state.clusterID[w] = id
					state.next[tail] = w
					state.next[w] = Sentinel
					tail = w
					size++
				}
			}
			cur = state.next[cur]
		}

		clusters = append(clusters, Info{ID: id, Seed: int32(u), Size: size})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size > clusters[j].Size
	})
	return clusters
}

// Members returns the row indices of one cluster, in chain order,
// starting from its seed.
func Members(state *State, seed int32) []int32 {
	var out []int32
	for cur := seed; cur != Sentinel; cur = state.next[cur] {
		out = append(out, cur)
	}
	return out
}
