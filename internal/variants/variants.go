// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package variants enumerates the fingerprints of every distance-<=d
// neighbor of a seed sequence (spec §4.4). It has no direct teacher
// analogue -- muscato never enumerates point mutations, only k-mer
// windows -- so it is grounded on original_source/src/variants.cc,
// translated from its C arrays and output parameters into a Go
// generator that calls back into the Zobrist incremental-update
// algebra of internal/zobrist.
package variants

import (
	"errors"

	"github.com/kshedden/compairr/internal/zobrist"
)

// Kind tags the shape of one emitted variant, mirroring REDESIGN
// FLAGS §9 ("Variant kind as a tagged variant") rather than the
// original's enum-plus-two-positions-and-two-residues union struct.
type Kind int

const (
	Identical Kind = iota
	Substitution
	Deletion
	Insertion
	SubSub
)

func (k Kind) String() string {
	switch k {
	case Identical:
		return "identical"
	case Substitution:
		return "substitution"
	case Deletion:
		return "deletion"
	case Insertion:
		return "insertion"
	case SubSub:
		return "sub_sub"
	default:
		return "unknown"
	}
}

// Variant is one candidate neighbor record (spec §4.4). Pos1/Res1 and
// Pos2/Res2 are populated according to Kind; unused fields are zero.
type Variant struct {
	Kind        Kind
	Pos1        int
	Res1        byte
	Pos2        int
	Res2        byte
	Fingerprint uint64
}

// Distance reports the edit distance implied by a variant's kind, used
// for the optional pairs-stream distance column (SPEC_FULL §10).
func (v Variant) Distance() int {
	switch v.Kind {
	case Identical:
		return 0
	case Substitution, Deletion, Insertion:
		return 1
	case SubSub:
		return 2
	default:
		return -1
	}
}

// Options configures the generator for one run.
type Options struct {
	D      int
	Indels bool
}

// ErrUnsupportedIndelDepth is the fixed refusal for d=2 combined with
// indels (spec §9 Open Questions: "the generator would otherwise miss
// or double-count neighbors"; preserved rather than guessed at).
var ErrUnsupportedIndelDepth = errors.New("variants: d=2 combined with indels is not supported")

// Generator enumerates variant records for seeds sharing one alphabet
// and Zobrist table set.
type Generator struct {
	tables *zobrist.Tables
	opts   Options
}

// New validates the requested options and returns a Generator, or
// ErrUnsupportedIndelDepth if the refused combination is requested.
func New(tables *zobrist.Tables, opts Options) (*Generator, error) {
	if opts.Indels && opts.D >= 2 {
		return nil, ErrUnsupportedIndelDepth
	}
	return &Generator{tables: tables, opts: opts}, nil
}

// UpperBound returns the maximum number of variant records Generate
// can emit for a sequence of length n, used to pre-size the caller's
// buffer (spec §4.4).
func UpperBound(n, alphabetSize int, opts Options) int {
	a := alphabetSize
	total := 1 + n*(a-1)
	if opts.Indels {
		total += n + (n+1)*(a-1) + 1
	}
	if opts.D >= 2 {
		pairs := n * (n - 1) / 2
		total += pairs * (a - 1) * (a - 1)
	}
	return total
}

// Generate emits every distance-<=d neighbor fingerprint record for
// seq (already Zobrist-fingerprinted as seed) tagged with gene ids v
// and j. Emission order is unspecified; duplicates are tolerated
// because the engine verifies every candidate exactly (spec §4.4).
func (g *Generator) Generate(seed uint64, seq []byte, v, j int, emit func(Variant)) {
	emit(Variant{Kind: Identical, Fingerprint: seed})

	n := len(seq)
	a := byte(g.tables.AlphabetSize())

	if g.opts.D >= 1 {
		for i := 0; i < n; i++ {
			orig := seq[i]
			for x := byte(0); x < a; x++ {
				if x == orig {
					continue
				}
				h := g.tables.Substitute(seed, i, orig, x)
				emit(Variant{Kind: Substitution, Pos1: i, Res1: x, Fingerprint: h})
			}
		}
	}

	if g.opts.Indels {
		g.tables.WalkDeletions(seq, v, j, func(pos int, h uint64) {
			emit(Variant{Kind: Deletion, Pos1: pos, Fingerprint: h})
		})
		g.tables.WalkInsertions(seq, v, j, func(pos int, sym byte, h uint64) {
			emit(Variant{Kind: Insertion, Pos1: pos, Res1: sym, Fingerprint: h})
		})
	}

	if g.opts.D >= 2 {
		for i := 0; i < n; i++ {
			oi := seq[i]
			for x := byte(0); x < a; x++ {
				if x == oi {
					continue
				}
				h1 := g.tables.Substitute(seed, i, oi, x)
				for jj := i + 1; jj < n; jj++ {
					oj := seq[jj]
					for y := byte(0); y < a; y++ {
						if y == oj {
							continue
						}
						h2 := g.tables.Substitute(h1, jj, oj, y)
						emit(Variant{Kind: SubSub, Pos1: i, Res1: x, Pos2: jj, Res2: y, Fingerprint: h2})
					}
				}
			}
		}
	}
}

// Verify checks whether applying this variant's edit to seed would
// byte-for-byte reproduce candidate's sequence (the mandatory
// verification step of spec §4.5, and the basis for the "Exactness"
// testable property of spec §8). seed and candidate are the encoded
// sequences; their lengths must differ exactly as v.Kind implies.
func Verify(v Variant, seed, candidate []byte) bool {
	switch v.Kind {
	case Identical:
		return len(seed) == len(candidate) && bytesEqual(seed, candidate)
	case Substitution:
		if len(seed) != len(candidate) {
			return false
		}
		for i := range seed {
			want := seed[i]
			if i == v.Pos1 {
				want = v.Res1
			}
			if want != candidate[i] {
				return false
			}
		}
		return true
	case SubSub:
		if len(seed) != len(candidate) {
			return false
		}
		for i := range seed {
			want := seed[i]
			switch i {
			case v.Pos1:
				want = v.Res1
			case v.Pos2:
				want = v.Res2
			}
			if want != candidate[i] {
				return false
			}
		}
		return true
	case Deletion:
		if len(candidate) != len(seed)-1 {
			return false
		}
		ci := 0
		for i := range seed {
			if i == v.Pos1 {
				continue
			}
			if seed[i] != candidate[ci] {
				return false
			}
			ci++
		}
		return true
	case Insertion:
		if len(candidate) != len(seed)+1 {
			return false
		}
		si := 0
		for ci := range candidate {
			if ci == v.Pos1 {
				if candidate[ci] != v.Res1 {
					return false
				}
				continue
			}
			if seed[si] != candidate[ci] {
				return false
			}
			si++
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
