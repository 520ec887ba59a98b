// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package hashindex implements the fixed-capacity, open-addressed,
// insert-only fingerprint multimap described in spec §4.3. It has no
// direct teacher analogue (muscato indexes k-mers through Bloom
// sketches alone, never a full fingerprint->payload table); it is
// grounded instead on original_source/src/hashtable.{h,cc}, translated
// from raw C arrays into parallel Go slices plus an occupied bitset
// backed by the same bitarray library used for the Bloom filter.
package hashindex

import (
	"math"

	"github.com/golang-collections/go-datastructures/bitarray"
)

// MaxLoadFactor is the load factor the table must stay under by
// construction (spec §3 invariants).
const MaxLoadFactor = 0.70

// Index is a fixed-capacity open-addressed fingerprint -> clonotype
// index multimap. Entries are never removed for the lifetime of one
// command invocation -- no tombstones (spec §4.3).
type Index struct {
	occupied bitarray.BitArray
	value    []uint64
	data     []int32
	mask     uint64
	count    int
}

// nextPow2 returns the smallest power of two >= n (n >= 1).
func nextPow2(n uint64) uint64 {
	if n < 1 {
		n = 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the smallest power of two hash table capacity for
// the given number of sequences, keeping the load factor under
// MaxLoadFactor by construction: capacity >= sequences / 0.70.
func Capacity(sequences int) uint64 {
	need := uint64(math.Ceil(float64(sequences) / MaxLoadFactor))
	if need < 1 {
		need = 1
	}
	return nextPow2(need)
}

// New builds an empty table with exactly capacity slots (capacity must
// be a power of two, e.g. from Capacity).
func New(capacity uint64) *Index {
	return &Index{
		occupied: bitarray.NewBitArray(capacity),
		value:    make([]uint64, capacity),
		data:     make([]int32, capacity),
		mask:     capacity - 1,
	}
}

// start derives the probe start slot from the upper 32 bits of the
// fingerprint, decorrelating it from the Bloom filter's own slice
// positions (spec §4.3).
func (idx *Index) start(h uint64) uint64 {
	return uint64(uint32(h>>32)) & idx.mask
}

func (idx *Index) occupiedAt(slot uint64) bool {
	ok, err := idx.occupied.GetBit(slot)
	return err == nil && ok
}

// Insert adds one (fingerprint, clonotype index) pair, linear-probing
// from the fingerprint's start slot to the first free slot.
func (idx *Index) Insert(fingerprint uint64, clonotypeIndex int32) {
	slot := idx.start(fingerprint)
	for idx.occupiedAt(slot) {
		slot = (slot + 1) & idx.mask
	}
	idx.value[slot] = fingerprint
	idx.data[slot] = clonotypeIndex
	_ = idx.occupied.SetBit(slot)
	idx.count++
}

// Count returns the number of entries inserted.
func (idx *Index) Count() int { return idx.count }

// Iterator walks every occupied slot whose stored fingerprint equals
// the one it was created for.
type Iterator struct {
	idx  *Index
	h    uint64
	slot uint64
	done bool
}

// Find returns an iterator positioned at the first candidate slot for
// fingerprint h. Call Next to advance; the iterator itself does not
// validate sequence equality -- the caller must do that (spec §4.3
// "the caller validates structural equality of sequences after a
// fingerprint hit").
func (idx *Index) Find(h uint64) *Iterator {
	return &Iterator{idx: idx, h: h, slot: idx.start(h)}
}

// Next advances the iterator to the next occupied slot with a
// matching fingerprint, returning the stored clonotype index and
// whether a candidate was found. The probe chain stops as soon as an
// empty slot is reached, since entries are only ever inserted along a
// contiguous run starting at their own start slot.
func (it *Iterator) Next() (clonotypeIndex int32, ok bool) {
	if it.done {
		return 0, false
	}
	for {
		if !it.idx.occupiedAt(it.slot) {
			it.done = true
			return 0, false
		}
		if it.idx.value[it.slot] == it.h {
			ci := it.idx.data[it.slot]
			it.slot = (it.slot + 1) & it.idx.mask
			return ci, true
		}
		it.slot = (it.slot + 1) & it.idx.mask
	}
}

// FindFirst is a convenience wrapper returning only the first match.
func (idx *Index) FindFirst(h uint64) (clonotypeIndex int32, ok bool) {
	return idx.Find(h).Next()
}
