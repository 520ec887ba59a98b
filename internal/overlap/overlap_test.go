// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

package overlap

import (
	"math"
	"testing"

	"github.com/kshedden/compairr/internal/alphabet"
	"github.com/kshedden/compairr/internal/engine"
	"github.com/kshedden/compairr/internal/registry"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/variants"
	"github.com/kshedden/compairr/internal/zobrist"
)

func TestParseScore(t *testing.T) {
	for _, name := range []string{"product", "ratio", "min", "max", "mean", "mh", "jaccard"} {
		if _, ok := ParseScore(name); !ok {
			t.Fatalf("expected %q to parse", name)
		}
	}
	if _, ok := ParseScore("bogus"); ok {
		t.Fatalf("expected an unrecognized score name to fail")
	}
}

func TestIncrementByScore(t *testing.T) {
	cases := []struct {
		score Score
		f, g  float64
		want  float64
	}{
		{Product, 2, 3, 6},
		{MorisitaHorn, 2, 3, 6},
		{Ratio, 6, 3, 2},
		{Ratio, 6, 0, 0},
		{Min, 2, 3, 2},
		{Jaccard, 2, 3, 2},
		{Max, 2, 3, 3},
		{Mean, 2, 4, 3},
	}
	for _, c := range cases {
		if got := increment(c.score, c.f, c.g); got != c.want {
			t.Fatalf("increment(%v, %v, %v) = %v, want %v", c.score, c.f, c.g, got, c.want)
		}
	}
}

func newTestStore(rows []store.Row) (*store.Store, []int32) {
	st := store.New(registry.NewGenes(), alphabet.New(alphabet.AminoAcid))
	ids := make([]int32, len(rows))
	for i, r := range rows {
		id, err := st.Add(r)
		if err != nil {
			panic(err)
		}
		ids[i] = id
	}
	return st, ids
}

func TestMatrixAddRoutesByRepertoireID(t *testing.T) {
	source, ids := newTestStore([]store.Row{
		{RepertoireText: "repA", SequenceID: "s1", Seq: []byte("CASS"), VCallText: "V1", JCallText: "J1", Count: 2},
	})
	target, tids := newTestStore([]store.Row{
		{RepertoireText: "repX", SequenceID: "t1", Seq: []byte("CASS"), VCallText: "V1", JCallText: "J1", Count: 5},
	})

	m := NewMatrix(Overlap, Product, source.Repertoires().Len(), target.Repertoires().Len(), source, target, false, true)
	m.Add(ids[0], tids[0], 0)

	if got := m.Cell(0, 0); got != 10 {
		t.Fatalf("expected product 2*5=10, got %v", got)
	}
	if len(m.Pairs()) != 1 {
		t.Fatalf("expected one recorded pair")
	}
}

func TestMatrixAddIgnoreCounts(t *testing.T) {
	source, ids := newTestStore([]store.Row{
		{RepertoireText: "repA", SequenceID: "s1", Seq: []byte("CASS"), VCallText: "V1", JCallText: "J1", Count: 2},
	})
	target, tids := newTestStore([]store.Row{
		{RepertoireText: "repX", SequenceID: "t1", Seq: []byte("CASS"), VCallText: "V1", JCallText: "J1", Count: 5},
	})
	m := NewMatrix(Overlap, Product, 1, 1, source, target, true, false)
	m.Add(ids[0], tids[0], 0)
	if got := m.Cell(0, 0); got != 1 {
		t.Fatalf("ignore-counts must treat every clonotype as weight 1, got %v", got)
	}
}

func TestMatrixMergeSumsCellsAndPairs(t *testing.T) {
	source, _ := newTestStore([]store.Row{{RepertoireText: "r", SequenceID: "s", Seq: []byte("CASS"), VCallText: "V", JCallText: "J"}})
	target, _ := newTestStore([]store.Row{{RepertoireText: "t", SequenceID: "s", Seq: []byte("CASS"), VCallText: "V", JCallText: "J"}})

	a := NewMatrix(Overlap, Product, 1, 1, source, target, false, true)
	a.cells[0] = 3
	a.pairs = []Pair{{Query: 0, Target: 0}}

	b := NewMatrix(Overlap, Product, 1, 1, source, target, false, true)
	b.cells[0] = 4
	b.pairs = []Pair{{Query: 1, Target: 1}}

	a.merge(b)
	if a.Cell(0, 0) != 7 {
		t.Fatalf("expected merged cell 7, got %v", a.Cell(0, 0))
	}
	if len(a.Pairs()) != 2 {
		t.Fatalf("expected 2 merged pairs, got %d", len(a.Pairs()))
	}
}

func TestMorisitaHornValueSelfIdentity(t *testing.T) {
	// A repertoire compared to itself with productSum = sum(c_i^2)
	// should report MH = 1 when lambda is computed from the same
	// counts (spec §8 "MH self-identity").
	productSum := 1.0 + 4.0 + 9.0 // counts 1,2,3 squared
	total := 6.0                 // 1+2+3
	lambda := (1.0 + 4.0 + 9.0) / (total * total)
	got := MorisitaHornValue(productSum, total, total, lambda, lambda)
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected MH self-identity ~1, got %v", got)
	}
}

func TestJaccardValueSelfIdentity(t *testing.T) {
	// minSum over identical repertoires equals the total count, so
	// J = total / (total + total - total) = 1.
	got := JaccardValue(6, 6, 6)
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected jaccard self-identity 1, got %v", got)
	}
}

func TestMorisitaHornValueZeroDenominator(t *testing.T) {
	if got := MorisitaHornValue(0, 0, 0, 0, 0); got != 0 {
		t.Fatalf("expected 0 for a degenerate zero-count comparison, got %v", got)
	}
}

func TestRepertoireTotals(t *testing.T) {
	st, _ := newTestStore([]store.Row{
		{RepertoireText: "r1", SequenceID: "a", Seq: []byte("CASS"), VCallText: "V", JCallText: "J", Count: 2},
		{RepertoireText: "r1", SequenceID: "b", Seq: []byte("CASSL"), VCallText: "V", JCallText: "J", Count: 3},
		{RepertoireText: "r2", SequenceID: "c", Seq: []byte("CASSA"), VCallText: "V", JCallText: "J", Count: 1},
	})
	totals, lambdas := RepertoireTotals(st, false)
	if totals[0] != 5 || totals[1] != 1 {
		t.Fatalf("expected totals [5 1], got %v", totals)
	}
	wantLambda0 := (4.0 + 9.0) / (5.0 * 5.0)
	if math.Abs(lambdas[0]-wantLambda0) > 1e-9 {
		t.Fatalf("expected lambda[0]=%v, got %v", wantLambda0, lambdas[0])
	}
}

func TestRepertoireTotalsIgnoreCounts(t *testing.T) {
	st, _ := newTestStore([]store.Row{
		{RepertoireText: "r1", SequenceID: "a", Seq: []byte("CASS"), VCallText: "V", JCallText: "J", Count: 9},
		{RepertoireText: "r1", SequenceID: "b", Seq: []byte("CASSL"), VCallText: "V", JCallText: "J", Count: 9},
	})
	totals, _ := RepertoireTotals(st, true)
	if totals[0] != 2 {
		t.Fatalf("ignore-counts totals must count clonotypes, not sum Count, got %v", totals[0])
	}
}

func TestFinalizeRewritesMorisitaHornCells(t *testing.T) {
	m := NewMatrix(Overlap, MorisitaHorn, 1, 1, nil, nil, false, false)
	m.cells[0] = 14 // raw product sum
	m.Finalize([]float64{6}, []float64{14.0 / 36.0}, []float64{6}, []float64{14.0 / 36.0})
	if math.Abs(m.Cell(0, 0)-1) > 1e-9 {
		t.Fatalf("expected finalized MH self-identity ~1, got %v", m.Cell(0, 0))
	}
}

func TestFinalizeRewritesJaccardCells(t *testing.T) {
	m := NewMatrix(Overlap, Jaccard, 1, 1, nil, nil, false, false)
	m.cells[0] = 6
	m.Finalize([]float64{6}, nil, []float64{6}, nil)
	if math.Abs(m.Cell(0, 0)-1) > 1e-9 {
		t.Fatalf("expected finalized jaccard self-identity 1, got %v", m.Cell(0, 0))
	}
}

func TestFinalizeIsNoOpForProductScore(t *testing.T) {
	m := NewMatrix(Overlap, Product, 1, 1, nil, nil, false, false)
	m.cells[0] = 42
	m.Finalize([]float64{1}, []float64{1}, []float64{1}, []float64{1})
	if m.Cell(0, 0) != 42 {
		t.Fatalf("finalize must leave non-mh/jaccard scores untouched, got %v", m.Cell(0, 0))
	}
}

func TestRunAccumulatesAcrossShardedQueries(t *testing.T) {
	tables := zobrist.Build(10, 20, 2, 2)
	rows := []store.Row{
		{RepertoireText: "r1", SequenceID: "s1", Seq: []byte("CASSL"), VCallText: "V1", JCallText: "J1", Count: 1},
		{RepertoireText: "r1", SequenceID: "s2", Seq: []byte("CASSA"), VCallText: "V1", JCallText: "J1", Count: 1},
	}
	source := store.New(registry.NewGenes(), alphabet.New(alphabet.AminoAcid))
	for _, r := range rows {
		i, err := source.Add(r)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		seq := source.Seq(i)
		row := source.Row(i)
		source.SetFingerprint(i, tables.Fingerprint(seq, int(row.VGene), int(row.JGene)))
	}

	tgt := engine.BuildTarget(source)
	gen, err := variants.New(tables, variants.Options{D: 1})
	if err != nil {
		t.Fatalf("variants.New: %v", err)
	}
	eng, err := engine.New(source, tgt, engine.Options{D: 1}, true)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	eng.WithGenerator(gen)

	m := NewMatrix(Overlap, Product, source.Repertoires().Len(), source.Repertoires().Len(), source, source, false, false)
	pool := engine.NewPool(1)
	Run(eng, pool, int32(source.Len()), m, nil)

	// s1="CASSL" and s2="CASSA" differ by one substitution, so each
	// query finds the other at distance 1 and both directions add to
	// the same (r1,r1) cell.
	if m.Cell(0, 0) != 2 {
		t.Fatalf("expected both directions of the single distance-1 pair to accumulate into cell (0,0), got %v", m.Cell(0, 0))
	}
}
