// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

package engine

import (
	"errors"

	"github.com/kshedden/compairr/internal/bloom"
	"github.com/kshedden/compairr/internal/hashindex"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/variants"
)

// errIndelsBeyondHashPath preserves the refusal spec §9 requires: the
// traditional path assumes no indels, so requesting indels with d
// beyond MaxDiffHash must be rejected rather than silently ignored.
var errIndelsBeyondHashPath = errors.New("engine: indels are not supported when d exceeds the hash-index path (d>2)")

// MaxDiffHash is the upper d handled by the variant-enumeration path;
// above this the engine falls back to the traditional pairwise path
// (spec §4.5, glossary "MAXDIFF_HASH").
const MaxDiffHash = 2

// Options configures one neighbor-engine run.
type Options struct {
	D           int
	Indels      bool
	IgnoreGenes bool
}

// Match is one accepted (query, target) pair, with its distance for
// the optional pairs-stream distance column (SPEC_FULL §10): the
// accepted variant's edit distance (0, 1, or 2) on the variant path,
// or the substitution count (0..D) on the traditional path.
type Match struct {
	Query    int32
	Target   int32
	Distance int
}

// Target is the built index over one sequence set: the Bloom filter
// and hash table described in spec §3 ("Neighbor engine state"),
// immutable once built and read freely by every worker (spec §5).
type Target struct {
	Store *store.Store
	index *hashindex.Index
	filt  bloom.Filter
}

// BuildTarget constructs the Bloom filter and hash index over st, per
// the sizing rules in spec §3: hash table capacity is the smallest
// power of two >= sequences/0.70, and the Bloom filter is sized to 2x
// that capacity.
func BuildTarget(st *store.Store) *Target {
	n := st.Len()
	capacity := hashindex.Capacity(n)
	idx := hashindex.New(capacity)
	filt := bloom.NewSized(nextPow2(2 * capacity))
	for i := int32(0); i < int32(n); i++ {
		h := st.Row(i).Fingerprint
		idx.Insert(h, i)
		filt.Set(h)
	}
	return &Target{Store: st, index: idx, filt: filt}
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Engine runs the per-query hot loop of spec §4.5 against one Target.
type Engine struct {
	source  *store.Store
	target  *Target
	gen     *variants.Generator
	opts    Options
	sameSet bool
}

// New builds an Engine comparing source against target. sameSet must
// be true when source and target are the identical store (the
// dedicated self-comparison case used by the cluster builder and by
// matrix/existence runs where set1 is compared to itself), so a query
// never matches itself.
func New(source *store.Store, target *Target, opts Options, sameSet bool) (*Engine, error) {
	if opts.Indels && opts.D > MaxDiffHash {
		return nil, errIndelsBeyondHashPath
	}
	return &Engine{source: source, target: target, opts: opts, sameSet: sameSet}, nil
}

// WithGenerator attaches the run's variant generator (built once the
// Zobrist tables are ready) to the engine.
func (e *Engine) WithGenerator(gen *variants.Generator) *Engine {
	e.gen = gen
	return e
}

// lengthOK reports whether a candidate target length is consistent
// with the edit kind of a variant, before paying for the full
// byte-for-byte verification (spec §4.5 step 2.b).
func lengthOK(kind variants.Kind, seedLen, targetLen int) bool {
	switch kind {
	case variants.Identical, variants.Substitution, variants.SubSub:
		return targetLen == seedLen
	case variants.Deletion:
		return targetLen == seedLen-1
	case variants.Insertion:
		return targetLen == seedLen+1
	default:
		return false
	}
}

// Query runs the hot loop for one query clonotype, calling sink for
// every accepted match. If opts.D exceeds MaxDiffHash, it runs the
// traditional brute-force path instead of variant enumeration (spec
// §4.5 "Fast path").
func (e *Engine) Query(q int32, sink func(Match)) {
	if e.opts.D <= MaxDiffHash {
		e.queryVariant(q, sink)
		return
	}
	e.queryTraditional(q, sink)
}

func (e *Engine) queryVariant(q int32, sink func(Match)) {
	row := e.source.Row(q)
	seq := e.source.Seq(q)

	e.gen.Generate(row.Fingerprint, seq, int(row.VGene), int(row.JGene), func(vr variants.Variant) {
		if !e.target.filt.Get(vr.Fingerprint) {
			return
		}
		it := e.target.index.Find(vr.Fingerprint)
		for {
			ti, ok := it.Next()
			if !ok {
				break
			}
			if e.sameSet && ti == q {
				continue
			}
			trow := e.target.Store.Row(ti)
			if !e.opts.IgnoreGenes && (trow.VGene != row.VGene || trow.JGene != row.JGene) {
				continue
			}
			if !lengthOK(vr.Kind, len(seq), int(trow.Length)) {
				continue
			}
			tseq := e.target.Store.Seq(ti)
			if !variants.Verify(vr, seq, tseq) {
				continue
			}
			sink(Match{Query: q, Target: ti, Distance: vr.Distance()})
		}
	})
}

func (e *Engine) queryTraditional(q int32, sink func(Match)) {
	row := e.source.Row(q)
	seq := e.source.Seq(q)
	d := e.opts.D
	n := e.target.Store.Len()
	for ti := int32(0); ti < int32(n); ti++ {
		if e.sameSet && ti == q {
			continue
		}
		trow := e.target.Store.Row(ti)
		if !e.opts.IgnoreGenes && (trow.VGene != row.VGene || trow.JGene != row.JGene) {
			continue
		}
		if int(trow.Length) != len(seq) {
			continue
		}
		tseq := e.target.Store.Seq(ti)
		mism := 0
		matched := true
		for i := range seq {
			if seq[i] != tseq[i] {
				mism++
				if mism > d {
					matched = false
					break
				}
			}
		}
		if matched && mism <= d {
			sink(Match{Query: q, Target: ti, Distance: mism})
		}
	}
}
