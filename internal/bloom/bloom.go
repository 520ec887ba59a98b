// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package bloom implements the negative-answer hint in front of the
// hash index (spec §4.2). It is deliberately a narrow capability
// interface -- set/get/zap plus a size hint -- per REDESIGN FLAGS §9
// ("Bloom filter as an interface") so an alternative implementation
// (e.g. a blocked Bloom filter) can be swapped in without touching the
// neighbor engine.
//
// The bit storage is grounded on the same library the teacher used to
// back its own read-sketch Bloom filters
// (github.com/golang-collections/go-datastructures/bitarray, see
// muscato_screen.go's "smp []bitarray.BitArray"); the fixed four-probe
// slice-and-mask scheme is specified directly by spec §4.2 rather than
// the teacher's rolling-hash multi-table probing.
package bloom

import "github.com/golang-collections/go-datastructures/bitarray"

// Probes is the fixed number of independent bit probes per spec §4.2.
const Probes = 4

// Filter is the capability surface the neighbor engine depends on.
type Filter interface {
	Set(h uint64)
	Get(h uint64) bool
	Zap()
}

// BitarrayFilter is the default Filter, backed by a flat bit array.
type BitarrayFilter struct {
	bits bitarray.BitArray
	size uint64
	mask uint64
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

// New builds a filter sized to 2x the given target-set capacity, the
// sizing rule fixed by spec §3 ("Neighbor engine state").
func New(targetCapacity uint64) *BitarrayFilter {
	return NewSized(nextPow2(2 * targetCapacity))
}

// NewSized builds a filter with exactly bits slots (bits must already
// be a power of two); exposed for tests that want an exact size.
func NewSized(bits uint64) *BitarrayFilter {
	if bits == 0 {
		bits = 1
	}
	return &BitarrayFilter{
		bits: bitarray.NewBitArray(bits),
		size: bits,
		mask: bits - 1,
	}
}

// probes splits H into Probes 16-bit slices, each masked down to the
// filter's bit range, per spec §4.2.
func (f *BitarrayFilter) probes(h uint64) [Probes]uint64 {
	var p [Probes]uint64
	for i := 0; i < Probes; i++ {
		p[i] = (h >> (16 * uint(i))) & f.mask
	}
	return p
}

// Set marks all probe positions for h.
func (f *BitarrayFilter) Set(h uint64) {
	for _, p := range f.probes(h) {
		_ = f.bits.SetBit(p)
	}
}

// Get reports whether every probe position for h is set. A false
// result is a guaranteed negative; a true result only a hint.
func (f *BitarrayFilter) Get(h uint64) bool {
	for _, p := range f.probes(h) {
		ok, err := f.bits.GetBit(p)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Zap clears the filter in place.
func (f *BitarrayFilter) Zap() {
	f.bits = bitarray.NewBitArray(f.size)
}
