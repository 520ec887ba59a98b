// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

package dedup

import (
	"testing"

	"github.com/kshedden/compairr/internal/alphabet"
	"github.com/kshedden/compairr/internal/registry"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/zobrist"
)

func buildStore(t *testing.T, rows []store.Row) *store.Store {
	t.Helper()
	tables := zobrist.Build(10, 20, 4, 4)
	st := store.New(registry.NewGenes(), alphabet.New(alphabet.AminoAcid))
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

func TestRunMergesExactDuplicatesAndSumsCounts(t *testing.T) {
	st := buildStore(t, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 2},
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 3},
		{RepertoireText: "r1", SequenceID: "s3", Seq: []byte("CASSA"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 1},
	})
	reps := Run(st, false, false)
	if len(reps) != 2 {
		t.Fatalf("expected 2 representatives, got %d: %v", len(reps), reps)
	}
	if reps[0].Row != 0 || reps[0].Count != 5 {
		t.Fatalf("expected first representative row 0 with count 5, got %+v", reps[0])
	}
	if reps[1].Row != 2 || reps[1].Count != 1 {
		t.Fatalf("expected second representative row 2 with count 1, got %+v", reps[1])
	}
}

func TestRunKeepsDistinctRepertoiresSeparate(t *testing.T) {
	st := buildStore(t, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 1},
		{RepertoireText: "r2", SequenceID: "s2", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 1},
	})
	reps := Run(st, false, false)
	if len(reps) != 2 {
		t.Fatalf("identical sequences in different repertoires must not merge, got %d reps", len(reps))
	}
}

func TestRunGeneMismatchBlocksMergeUnlessIgnored(t *testing.T) {
	st := buildStore(t, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 1},
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSL"), VCallText: "TRBV2", JCallText: "TRBJ1", Count: 1},
	})

	blocked := Run(st, false, false)
	if len(blocked) != 2 {
		t.Fatalf("expected gene mismatch to block merge by default, got %d reps", len(blocked))
	}

	merged := Run(st, true, false)
	if len(merged) != 1 {
		t.Fatalf("expected ignore-genes to merge across V/J mismatch, got %d reps", len(merged))
	}
	if merged[0].Count != 2 {
		t.Fatalf("expected merged count 2, got %d", merged[0].Count)
	}
}

func TestRunIgnoreCountsCountsOccurrences(t *testing.T) {
	st := buildStore(t, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 50},
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 70},
	})
	reps := Run(st, false, true)
	if len(reps) != 1 || reps[0].Count != 2 {
		t.Fatalf("ignore-counts must count occurrences (2), not sum Count fields, got %+v", reps)
	}
}

func TestRunIsIdempotentOnAlreadyUniqueInput(t *testing.T) {
	st := buildStore(t, []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 1},
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSA"), VCallText: "TRBV1", JCallText: "TRBJ1", Count: 1},
	})
	reps := Run(st, false, false)
	if len(reps) != 2 {
		t.Fatalf("deduplicating an already-unique set must not change its size, got %d", len(reps))
	}
	for _, r := range reps {
		if r.Count != 1 {
			t.Fatalf("expected every representative's count unchanged at 1, got %+v", r)
		}
	}
}
