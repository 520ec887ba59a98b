// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package zobrist builds and queries the Zobrist fingerprint tables
// described in spec §4.1: per-position/per-symbol and per-gene random
// 64-bit keys whose XOR gives a tagged string's fingerprint, with O(1)
// incremental updates for the single-edit neighborhoods the variant
// generator walks.
//
// The table itself is grounded on the teacher's own deterministic
// random-table construction (muscato_screen.go's genTables, which
// seeds math/rand once and fills per-slot tables); the incremental
// delete/insert algebra is ported from original_source/src/variants.cc
// (zobrist_hash_delete_first / zobrist_hash_insert_first and their
// shift loops), expressed over Go's math/rand instead of hand-rolled
// collision-avoiding table fill.
package zobrist

import "math/rand"

// MaxInserts is the margin added to the longest observed sequence so
// that an insertion at the final position still has a backing row.
const MaxInserts = 1

// Seed is the deterministic seed mandated by spec §4.1.
const Seed = 1

// Tables holds the process-wide random keys for one run.
type Tables struct {
	alphabetSize int
	posRows      [][]uint64 // [position][symbol]
	vTab         []uint64
	jTab         []uint64
	rng          *rand.Rand
}

// Build constructs the tables sized for the given longest sequence,
// alphabet, and observed V/J registry counts. Called once per run,
// after ingest has determined all three bounds.
func Build(longest, alphabetSize, vGenes, jGenes int) *Tables {
	t := &Tables{
		alphabetSize: alphabetSize,
		rng:          rand.New(rand.NewSource(Seed)),
	}
	rows := longest + MaxInserts
	t.posRows = make([][]uint64, rows)
	for i := range t.posRows {
		t.posRows[i] = t.freshRow(alphabetSize)
	}
	t.vTab = t.freshRow(vGenes)
	t.jTab = t.freshRow(jGenes)
	return t
}

func (t *Tables) freshRow(n int) []uint64 {
	row := make([]uint64, n)
	for i := range row {
		row[i] = t.rng.Uint64()
	}
	return row
}

// GrowGenes extends the V/J tables to cover newly interned gene ids.
// Existing keys are left untouched; new keys are drawn from the same
// run-scoped generator so a run is still fully deterministic given the
// order genes are interned in.
func (t *Tables) GrowGenes(vGenes, jGenes int) {
	for len(t.vTab) < vGenes {
		t.vTab = append(t.vTab, t.rng.Uint64())
	}
	for len(t.jTab) < jGenes {
		t.jTab = append(t.jTab, t.rng.Uint64())
	}
}

// PosRows reports how many position rows are available (for bounds
// checks in the variant generator).
func (t *Tables) PosRows() int { return len(t.posRows) }

// AlphabetSize reports the configured alphabet width.
func (t *Tables) AlphabetSize() int { return t.alphabetSize }

// VJ returns the gene-only contribution, useful when a caller wants to
// build a fingerprint up incrementally from scratch.
func (t *Tables) VJ(v, j int) uint64 {
	return t.vTab[v] ^ t.jTab[j]
}

// Fingerprint computes H for a full tagged string.
func (t *Tables) Fingerprint(seq []byte, v, j int) uint64 {
	h := t.VJ(v, j)
	for i, s := range seq {
		h ^= t.posRows[i][s]
	}
	return h
}

// Substitute returns the fingerprint obtained by replacing the symbol
// at position i with newSym (§4.1 "Substitute").
func (t *Tables) Substitute(h uint64, i int, oldSym, newSym byte) uint64 {
	return h ^ t.posRows[i][oldSym] ^ t.posRows[i][newSym]
}

// hashShiftedDown computes the fingerprint of seq as if every residue
// occupied the row one below its natural position -- i.e. the
// fingerprint of a sequence missing its first residue. This is the
// seed for the deletion-variant sweep (zobrist_hash_delete_first).
func (t *Tables) hashShiftedDown(seq []byte, v, j int) uint64 {
	h := t.VJ(v, j)
	for i := 1; i < len(seq); i++ {
		h ^= t.posRows[i-1][seq[i]]
	}
	return h
}

// hashShiftedUp computes the fingerprint of seq as if every residue
// occupied the row one above its natural position -- the seed for the
// insertion-variant sweep (zobrist_hash_insert_first).
func (t *Tables) hashShiftedUp(seq []byte, v, j int) uint64 {
	h := t.VJ(v, j)
	for i, s := range seq {
		h ^= t.posRows[i+1][s]
	}
	return h
}

// WalkDeletions emits the fingerprint of seq with exactly one residue
// removed, for every distinct deletion position, in O(n) total work.
// emit receives the position deleted and the resulting fingerprint.
func (t *Tables) WalkDeletions(seq []byte, v, j int, emit func(pos int, h uint64)) {
	n := len(seq)
	if n == 0 {
		return
	}
	h := t.hashShiftedDown(seq, v, j)
	emit(0, h)
	deleted := seq[0]
	for i := 1; i < n; i++ {
		x := seq[i]
		if x != deleted {
			h ^= t.posRows[i-1][deleted] ^ t.posRows[i-1][x]
			emit(i, h)
			deleted = x
		}
	}
}

// WalkInsertions emits the fingerprint of seq with exactly one residue
// inserted, for every position and every inserted symbol, skipping
// constructions that would duplicate an already-emitted neighbor
// (inserting a residue adjacent to an identical one), in O(n x
// alphabet) total work. emit receives the insertion position, the
// inserted symbol, and the resulting fingerprint.
func (t *Tables) WalkInsertions(seq []byte, v, j int, emit func(pos int, sym byte, h uint64)) {
	n := len(seq)
	h := t.hashShiftedUp(seq, v, j)
	for x := 0; x < t.alphabetSize; x++ {
		emit(0, byte(x), h^t.posRows[0][byte(x)])
	}
	for i := 0; i < n; i++ {
		inserted := seq[i]
		h ^= t.posRows[i][inserted] ^ t.posRows[i+1][inserted]
		for x := 0; x < t.alphabetSize; x++ {
			if byte(x) == inserted {
				continue
			}
			emit(i+1, byte(x), h^t.posRows[i+1][byte(x)])
		}
	}
}
