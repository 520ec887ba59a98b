// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package alphabet resolves the residue alphabet (amino acid or
// nucleotide) used to encode clonotype sequences, the way
// cmd/muscato_prep_targets folds raw FASTA letters into a fixed
// symbol set before anything downstream ever sees a byte.
package alphabet

import "fmt"

// Kind selects which residue alphabet a run uses.
type Kind int

const (
	AminoAcid Kind = iota
	Nucleotide
)

// Table maps input bytes to small dense indices and back.
type Table struct {
	kind    Kind
	decode  []byte
	encode  [256]int8
}

var aminoAcids = []byte("ACDEFGHIKLMNPQRSTVWY")
var nucleotides = []byte("ACGT")

// New builds the lookup table for the given alphabet kind.
func New(kind Kind) *Table {
	letters := aminoAcids
	if kind == Nucleotide {
		letters = nucleotides
	}

	t := &Table{kind: kind, decode: letters}
	for i := range t.encode {
		t.encode[i] = -1
	}
	for i, c := range letters {
		t.encode[c] = int8(i)
		t.encode[lower(c)] = int8(i)
	}
	if kind == Nucleotide {
		// u/U fold to t/T (§3).
		t.encode['u'] = t.encode['t']
		t.encode['U'] = t.encode['T']
	}
	return t
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// Size returns the number of distinct symbols in the alphabet.
func (t *Table) Size() int { return len(t.decode) }

// Kind reports which alphabet this table encodes.
func (t *Table) Kind() Kind { return t.kind }

// Encode converts a raw sequence into alphabet indices, returning an
// error naming the first illegal byte encountered.
func (t *Table) Encode(raw []byte, dst []byte) ([]byte, error) {
	if cap(dst) < len(raw) {
		dst = make([]byte, 0, len(raw))
	}
	dst = dst[:0]
	for i, c := range raw {
		v := t.encode[c]
		if v < 0 {
			return nil, fmt.Errorf("illegal residue %q at position %d", c, i)
		}
		dst = append(dst, byte(v))
	}
	return dst, nil
}

// Decode converts alphabet indices back to their printable letters.
func (t *Table) Decode(enc []byte, dst []byte) []byte {
	if cap(dst) < len(enc) {
		dst = make([]byte, 0, len(enc))
	}
	dst = dst[:0]
	for _, v := range enc {
		dst = append(dst, t.decode[v])
	}
	return dst
}

// Symbol returns the printable letter for an encoded index.
func (t *Table) Symbol(v byte) byte { return t.decode[v] }
