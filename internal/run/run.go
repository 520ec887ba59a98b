// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package run wires the full per-command pipeline together: ingest
// both input files, build the shared Zobrist tables once both
// registries and the longest sequence are known, fingerprint every
// row, build the target index, and drive the engine (spec §4.9 "Init
// order"). Grounded on cmd/muscato's own top-to-bottom stage
// orchestration in main(), generalized from muscato's five-binary
// pipeline-of-processes into one in-process sequence of calls.
package run

import (
	"fmt"
	"time"

	"github.com/kshedden/compairr/internal/airr"
	"github.com/kshedden/compairr/internal/alphabet"
	"github.com/kshedden/compairr/internal/cluster"
	"github.com/kshedden/compairr/internal/config"
	"github.com/kshedden/compairr/internal/dedup"
	"github.com/kshedden/compairr/internal/engine"
	"github.com/kshedden/compairr/internal/overlap"
	"github.com/kshedden/compairr/internal/progress"
	"github.com/kshedden/compairr/internal/registry"
	"github.com/kshedden/compairr/internal/runlog"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/variants"
	"github.com/kshedden/compairr/internal/zobrist"
)

// Loaded holds the ingested stores and shared run-scoped state common
// to every command (spec §3 "Lifecycle": registries frozen before the
// parallel region starts).
type Loaded struct {
	Genes   *registry.Genes
	Alpha   *alphabet.Table
	Tables  *zobrist.Tables
	Set1    *store.Store
	Set2    *store.Store // nil for single-file commands (cluster, deduplicate)
	Result1 *airr.IngestResult
	Result2 *airr.IngestResult
}

// engineOptions translates a Config into engine.Options (spec §4.5).
func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{D: cfg.Differences, Indels: cfg.Indels, IgnoreGenes: cfg.IgnoreGenes}
}

// Load ingests one or two input files, builds the shared Zobrist
// tables once both files' bounds are known, and fingerprints every
// row (spec §4.1 "init order": registries and L_max must be final
// before any fingerprint is computed).
func Load(cfg *config.Config, requireSeqID1, requireSeqID2 bool) (*Loaded, error) {
	alpha := alphabet.New(alphaKind(cfg))
	genes := registry.NewGenes()

	set1 := store.New(genes, alpha)
	res1, err := airr.Ingest(cfg.Input1, set1, cfg, "1", requireSeqID1)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", cfg.Input1, err)
	}

	var set2 *store.Store
	var res2 *airr.IngestResult
	if cfg.Input2 != "" {
		set2 = store.New(genes, alpha)
		res2, err = airr.Ingest(cfg.Input2, set2, cfg, "2", requireSeqID2)
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", cfg.Input2, err)
		}
	}

	longest := set1.MaxLength()
	if set2 != nil && set2.MaxLength() > longest {
		longest = set2.MaxLength()
	}

	tables := zobrist.Build(longest, alpha.Size(), genes.V.Len(), genes.J.Len())

	fingerprint(set1, tables)
	if set2 != nil {
		fingerprint(set2, tables)
	}

	return &Loaded{Genes: genes, Alpha: alpha, Tables: tables, Set1: set1, Set2: set2, Result1: res1, Result2: res2}, nil
}

func alphaKind(cfg *config.Config) alphabet.Kind {
	if cfg.Nucleotides {
		return alphabet.Nucleotide
	}
	return alphabet.AminoAcid
}

func fingerprint(st *store.Store, tables *zobrist.Tables) {
	n := st.Len()
	for i := int32(0); i < int32(n); i++ {
		row := st.Row(i)
		h := tables.Fingerprint(st.Seq(i), int(row.VGene), int(row.JGene))
		st.SetFingerprint(i, h)
	}
}

// newEngine builds an Engine comparing source against a freshly built
// target index over target, with a variant generator attached when
// the options are within the generator's domain (spec §4.5).
func newEngine(cfg *config.Config, tables *zobrist.Tables, source *store.Store, target *store.Store, sameSet bool) (*engine.Engine, *engine.Target, error) {
	tgt := engine.BuildTarget(target)
	eng, err := engine.New(source, tgt, engineOptions(cfg), sameSet)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Differences <= engine.MaxDiffHash {
		gen, err := variants.New(tables, variants.Options{D: cfg.Differences, Indels: cfg.Indels})
		if err != nil {
			return nil, nil, err
		}
		eng = eng.WithGenerator(gen)
	}
	return eng, tgt, nil
}

// Matrix runs the overlap (matrix) command: set1 and set2 compared
// against each other via the neighbor engine, accumulated into an
// R1xR2 score matrix (spec §4.6).
func Matrix(cfg *config.Config, l *Loaded, pool *engine.Pool, log *runlog.Logger) (*overlap.Matrix, error) {
	score, ok := overlap.ParseScore(cfg.Score)
	if !ok {
		return nil, fmt.Errorf("unrecognized score %q", cfg.Score)
	}

	sameSet := l.Set2 == nil
	target := l.Set2
	if sameSet {
		target = l.Set1
	}

	eng, _, err := newEngine(cfg, l.Tables, l.Set1, target, sameSet)
	if err != nil {
		return nil, err
	}

	rows := l.Set1.Repertoires().Len()
	cols := target.Repertoires().Len()
	m := overlap.NewMatrix(overlap.Overlap, score, rows, cols, l.Set1, target, cfg.IgnoreCounts, cfg.Pairs != "")

	progress := progressFn(log, "matrix", int32(l.Set1.Len()))
	overlap.Run(eng, pool, int32(l.Set1.Len()), m, progress)

	if score == overlap.MorisitaHorn || score == overlap.Jaccard {
		sourceTotals, sourceLambdas := overlap.RepertoireTotals(l.Set1, cfg.IgnoreCounts)
		targetTotals, targetLambdas := overlap.RepertoireTotals(target, cfg.IgnoreCounts)
		m.Finalize(sourceTotals, sourceLambdas, targetTotals, targetLambdas)
	}
	return m, nil
}

// Existence runs the existence command: every sequence of set1
// (exactly one repertoire) is queried against set2's repertoires,
// producing an SxR2 existence/overlap vector (spec §4.6).
func Existence(cfg *config.Config, l *Loaded, pool *engine.Pool, log *runlog.Logger) (*overlap.Matrix, error) {
	score, ok := overlap.ParseScore(cfg.Score)
	if !ok {
		return nil, fmt.Errorf("unrecognized score %q", cfg.Score)
	}
	if l.Set1.Repertoires().Len() != 1 {
		return nil, fmt.Errorf("existence set 1 must contain exactly one repertoire, found %d", l.Set1.Repertoires().Len())
	}

	sameSet := l.Set2 == nil
	target := l.Set2
	if sameSet {
		target = l.Set1
	}

	eng, _, err := newEngine(cfg, l.Tables, l.Set1, target, sameSet)
	if err != nil {
		return nil, err
	}

	rows := l.Set1.Len()
	cols := target.Repertoires().Len()
	m := overlap.NewMatrix(overlap.Existence, score, rows, cols, l.Set1, target, cfg.IgnoreCounts, cfg.Pairs != "")

	progress := progressFn(log, "existence", int32(l.Set1.Len()))
	overlap.Run(eng, pool, int32(l.Set1.Len()), m, progress)
	return m, nil
}

// Cluster runs the cluster command: single-linkage connected
// components within set1 (spec §4.7).
func Cluster(cfg *config.Config, l *Loaded, pool *engine.Pool, log *runlog.Logger) (*cluster.State, []cluster.Info, error) {
	eng, _, err := newEngine(cfg, l.Tables, l.Set1, l.Set1, true)
	if err != nil {
		return nil, nil, err
	}

	n := int32(l.Set1.Len())
	state := cluster.NewState(int(n))
	progress := progressFn(log, "cluster", n)
	cluster.BuildEdges(eng, pool, n, state, progress)
	infos := cluster.Label(state)
	return state, infos, nil
}

// Deduplicate runs the deduplicate command: exact-match merge within
// set1 (spec §4.8).
func Deduplicate(cfg *config.Config, l *Loaded) []dedup.Representative {
	return dedup.Run(l.Set1, cfg.IgnoreGenes, cfg.IgnoreCounts)
}

func progressFn(log *runlog.Logger, label string, total int32) func(int32) {
	if log == nil || total == 0 {
		return nil
	}
	r := progress.New(log.Logger, label, total, 2*time.Second)
	return r.Report
}
