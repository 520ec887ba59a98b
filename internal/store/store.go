// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package store implements the sequence store from spec §3: a
// contiguous residue arena plus per-entry metadata, exclusively owning
// both, with clonotypes immutable once ingest completes. Grounded on
// the teacher's record-at-a-time reader (utils.ReadInSeq in
// utils/fastq.go), generalized here from "scan one FASTQ record" to
// "bulk-append into one shared arena" since the neighbor engine needs
// random access across the whole set, not a forward-only stream.
package store

import (
	"fmt"

	"github.com/kshedden/compairr/internal/alphabet"
	"github.com/kshedden/compairr/internal/registry"
)

// Clonotype is the metadata for one ingested row (spec §3). The
// residue payload itself lives in the owning Store's arena.
type Clonotype struct {
	RepertoireID int32
	SequenceID   string
	Offset       int32
	Length       int32
	VGene        int32
	JGene        int32
	Count        uint32
	Keep         string
	Fingerprint  uint64
}

// Store owns the residue arena and the per-row metadata for one input
// file. It is built once, read concurrently by the work pool, and
// discarded at the end of a command (spec §3 "Lifecycle").
type Store struct {
	genes       *registry.Genes
	alphabet    *alphabet.Table
	repertoires *registry.StringTable

	arena []byte
	rows  []Clonotype
	maxLn int
}

// New returns an empty store sharing the given process-global gene
// registries and alphabet.
func New(genes *registry.Genes, alpha *alphabet.Table) *Store {
	return &Store{
		genes:       genes,
		alphabet:    alpha,
		repertoires: registry.NewStringTable(),
	}
}

// Row describes one not-yet-ingested clonotype, as parsed from a TSV
// line, before residue encoding and fingerprinting.
type Row struct {
	RepertoireText string
	SequenceID     string
	Seq            []byte // raw, unencoded residue bytes
	VCallText      string
	JCallText      string
	Count          uint32
	Keep           string
	IgnoreGenes    bool
}

// Add encodes and appends one row, returning its index in the store.
func (s *Store) Add(r Row) (int32, error) {
	enc, err := s.alphabet.Encode(r.Seq, nil)
	if err != nil {
		return 0, fmt.Errorf("encode sequence: %w", err)
	}
	if len(enc) == 0 {
		return 0, fmt.Errorf("empty sequence")
	}

	off := int32(len(s.arena))
	s.arena = append(s.arena, enc...)

	var v, j int32
	if !r.IgnoreGenes {
		v = s.genes.V.Intern(r.VCallText)
		j = s.genes.J.Intern(r.JCallText)
	}

	c := Clonotype{
		RepertoireID: s.repertoires.Intern(r.RepertoireText),
		SequenceID:   r.SequenceID,
		Offset:       off,
		Length:       int32(len(enc)),
		VGene:        v,
		JGene:        j,
		Count:        r.Count,
		Keep:         r.Keep,
	}
	if len(enc) > s.maxLn {
		s.maxLn = len(enc)
	}
	s.rows = append(s.rows, c)
	return int32(len(s.rows) - 1), nil
}

// Len reports the number of ingested clonotypes.
func (s *Store) Len() int { return len(s.rows) }

// MaxLength reports the longest encoded sequence ingested so far.
func (s *Store) MaxLength() int { return s.maxLn }

// Row returns the metadata for clonotype index i.
func (s *Store) Row(i int32) *Clonotype { return &s.rows[i] }

// Seq returns the encoded residues for clonotype index i, as a slice
// directly into the arena -- callers must not mutate it.
func (s *Store) Seq(i int32) []byte {
	c := &s.rows[i]
	return s.arena[c.Offset : c.Offset+c.Length]
}

// SetFingerprint records the Zobrist fingerprint computed for
// clonotype i, during the post-ingest fingerprinting pass.
func (s *Store) SetFingerprint(i int32, h uint64) {
	s.rows[i].Fingerprint = h
}

// Repertoires returns the per-file repertoire registry.
func (s *Store) Repertoires() *registry.StringTable { return s.repertoires }

// Genes returns the shared gene registries.
func (s *Store) Genes() *registry.Genes { return s.genes }

// Alphabet returns the alphabet table used to encode this store.
func (s *Store) Alphabet() *alphabet.Table { return s.alphabet }

// DecodeSeq renders the encoded residues for clonotype i back to
// printable letters.
func (s *Store) DecodeSeq(i int32) []byte {
	return s.alphabet.Decode(s.Seq(i), nil)
}
