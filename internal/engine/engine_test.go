// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

package engine

import (
	"testing"

	"github.com/kshedden/compairr/internal/alphabet"
	"github.com/kshedden/compairr/internal/registry"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/variants"
	"github.com/kshedden/compairr/internal/zobrist"
)

func buildStore(t *testing.T, tables *zobrist.Tables, rows []store.Row) *store.Store {
	t.Helper()
	return buildStoreWithGenes(t, tables, registry.NewGenes(), rows)
}

// buildStoreWithGenes builds a store on the given gene registry, so that
// several stores can share gene ids the way run.Load's stores do.
func buildStoreWithGenes(t *testing.T, tables *zobrist.Tables, genes *registry.Genes, rows []store.Row) *store.Store {
	t.Helper()
	alpha := alphabet.New(alphabet.AminoAcid)
	st := store.New(genes, alpha)
	for _, r := range rows {
		i, err := st.Add(r)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		seq := st.Seq(i)
		row := st.Row(i)
		st.SetFingerprint(i, tables.Fingerprint(seq, int(row.VGene), int(row.JGene)))
	}
	return st
}

func TestQueryVariantFindsExactSelfMatchAcrossSets(t *testing.T) {
	tables := zobrist.Build(10, 20, 2, 2)
	rows := []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1"},
	}
	source := buildStore(t, tables, rows)
	target := buildStore(t, tables, rows)

	tgt := BuildTarget(target)
	gen, err := variants.New(tables, variants.Options{D: 1})
	if err != nil {
		t.Fatalf("variants.New: %v", err)
	}
	e, err := New(source, tgt, Options{D: 1}, false)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	e.WithGenerator(gen)

	var matches []Match
	e.Query(0, func(m Match) { matches = append(matches, m) })
	if len(matches) != 1 || matches[0].Distance != 0 {
		t.Fatalf("expected one identical match, got %v", matches)
	}
}

func TestQueryVariantExcludesSelfWhenSameSet(t *testing.T) {
	tables := zobrist.Build(10, 20, 2, 2)
	rows := []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1"},
	}
	st := buildStore(t, tables, rows)
	tgt := BuildTarget(st)
	gen, err := variants.New(tables, variants.Options{D: 1})
	if err != nil {
		t.Fatalf("variants.New: %v", err)
	}
	e, err := New(st, tgt, Options{D: 1}, true)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	e.WithGenerator(gen)

	var matches []Match
	e.Query(0, func(m Match) { matches = append(matches, m) })
	if len(matches) != 0 {
		t.Fatalf("same-set query must exclude itself, got %v", matches)
	}
}

func TestQueryVariantBlocksOnGeneMismatch(t *testing.T) {
	tables := zobrist.Build(10, 20, 2, 2)
	genes := registry.NewGenes()
	source := buildStoreWithGenes(t, tables, genes, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1"},
	})
	target := buildStoreWithGenes(t, tables, genes, []store.Row{
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSL"), VCallText: "TRBV2", JCallText: "TRBJ1"},
	})
	tgt := BuildTarget(target)
	gen, err := variants.New(tables, variants.Options{D: 1})
	if err != nil {
		t.Fatalf("variants.New: %v", err)
	}

	blocked, err := New(source, tgt, Options{D: 1}, false)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	blocked.WithGenerator(gen)
	var matches []Match
	blocked.Query(0, func(m Match) { matches = append(matches, m) })
	if len(matches) != 0 {
		t.Fatalf("gene mismatch must block the match by default, got %v", matches)
	}

	// Under ignore-genes, ingest stores every row with gene ids 0
	// (store.Row.IgnoreGenes), so both rows carry the same fingerprint
	// and the engine waives the V/J check.
	igSource := buildStoreWithGenes(t, tables, registry.NewGenes(), []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", IgnoreGenes: true},
	})
	igTarget := buildStoreWithGenes(t, tables, registry.NewGenes(), []store.Row{
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSL"), VCallText: "TRBV2", JCallText: "TRBJ1", IgnoreGenes: true},
	})
	allowed, err := New(igSource, BuildTarget(igTarget), Options{D: 1, IgnoreGenes: true}, false)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	allowed.WithGenerator(gen)
	matches = nil
	allowed.Query(0, func(m Match) { matches = append(matches, m) })
	if len(matches) != 1 {
		t.Fatalf("ignore-genes must allow the match through, got %v", matches)
	}
}

func TestQueryTraditionalPathUsedAboveMaxDiffHash(t *testing.T) {
	tables := zobrist.Build(10, 20, 2, 2)
	source := buildStore(t, tables, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSLLLL"), VCallText: "TRBV1", JCallText: "TRBJ1"},
	})
	target := buildStore(t, tables, []store.Row{
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSLLLA"), VCallText: "TRBV1", JCallText: "TRBJ1"},
	})
	tgt := BuildTarget(target)

	e, err := New(source, tgt, Options{D: MaxDiffHash + 1}, false)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	var matches []Match
	e.Query(0, func(m Match) { matches = append(matches, m) })
	if len(matches) != 1 || matches[0].Distance != 1 {
		t.Fatalf("expected one distance-1 match via the traditional path, got %v", matches)
	}
}

func TestNewRejectsIndelsBeyondHashPath(t *testing.T) {
	tables := zobrist.Build(10, 20, 2, 2)
	st := buildStore(t, tables, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASS"), VCallText: "TRBV1", JCallText: "TRBJ1"},
	})
	tgt := BuildTarget(st)
	if _, err := New(st, tgt, Options{D: MaxDiffHash + 1, Indels: true}, false); err != errIndelsBeyondHashPath {
		t.Fatalf("expected errIndelsBeyondHashPath, got %v", err)
	}
}

func TestLengthOKMatchesEditKind(t *testing.T) {
	cases := []struct {
		kind            variants.Kind
		seedLen, tgtLen int
		want            bool
	}{
		{variants.Identical, 5, 5, true},
		{variants.Identical, 5, 4, false},
		{variants.Substitution, 5, 5, true},
		{variants.Deletion, 5, 4, true},
		{variants.Deletion, 5, 5, false},
		{variants.Insertion, 5, 6, true},
		{variants.Insertion, 5, 5, false},
	}
	for _, c := range cases {
		if got := lengthOK(c.kind, c.seedLen, c.tgtLen); got != c.want {
			t.Fatalf("lengthOK(%v, %d, %d) = %v, want %v", c.kind, c.seedLen, c.tgtLen, got, c.want)
		}
	}
}
