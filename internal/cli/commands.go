// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

package cli

import (
	"flag"

	"github.com/kshedden/compairr/internal/airr"
	"github.com/kshedden/compairr/internal/config"
	"github.com/kshedden/compairr/internal/engine"
	"github.com/kshedden/compairr/internal/overlap"
	"github.com/kshedden/compairr/internal/profiling"
	"github.com/kshedden/compairr/internal/run"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/xio"
)

func runMatrixLike(cmd config.Command, args []string) int {
	cfg := config.Default()
	cfg.Command = cmd

	fs := flag.NewFlagSet(string(cmd), flag.ContinueOnError)
	configPath := commonFlags(fs, cfg)
	if err := parseWithConfig(fs, cfg, configPath, args); err != nil {
		return fail("%v", err)
	}

	positional, err := requirePositional(fs, 1)
	if err != nil {
		return fail("%v", err)
	}
	cfg.Input1 = positional[0]
	if len(positional) > 1 {
		cfg.Input2 = positional[1]
	}

	if cmd == config.Existence && cfg.Input2 == "" {
		return fail("existence requires two input paths (a query set and a reference set)")
	}

	if err := cfg.Validate(); err != nil {
		return fail("%v", err)
	}

	log, closeLog, err := openLog(cfg)
	if err != nil {
		return fail("open log: %v", err)
	}
	defer closeLog()
	banner(log, cfg)

	stop := profiling.Start(profileDir(cfg), cfg.CPUProfile != "", cfg.MemProfile != "")
	defer stop()

	requireSeqID1 := cmd == config.Existence
	loaded, err := run.Load(cfg, requireSeqID1, false)
	if err != nil {
		return fail("%v", err)
	}
	log.Printf("ingested %d rows (%d skipped) from %s", loaded.Result1.Rows, loaded.Result1.Skipped, cfg.Input1)
	if loaded.Result2 != nil {
		log.Printf("ingested %d rows (%d skipped) from %s", loaded.Result2.Rows, loaded.Result2.Skipped, cfg.Input2)
	}

	pool := engine.NewPool(cfg.Threads)

	var m *overlap.Matrix
	if cmd == config.Existence {
		m, err = run.Existence(cfg, loaded, pool, log)
	} else {
		m, err = run.Matrix(cfg, loaded, pool, log)
	}
	if err != nil {
		return fail("%v", err)
	}

	out, err := xio.OpenWrite(cfg.Output)
	if err != nil {
		return fail("open output: %v", err)
	}
	defer out.Close()

	target := loaded.Set2
	sameSet := target == nil
	if sameSet {
		target = loaded.Set1
	}

	if cmd == config.Existence {
		rowLabels := make([]string, loaded.Set1.Len())
		for i := range rowLabels {
			rowLabels[i] = loaded.Set1.Row(int32(i)).SequenceID
		}
		colLabels := repertoireLabels(target)
		if err := airr.EmitMatrix(out, m, rowLabels, colLabels, cfg.Alternative, "sequence_id_1"); err != nil {
			return fail("write output: %v", err)
		}
	} else {
		rowLabels := repertoireLabels(loaded.Set1)
		colLabels := repertoireLabels(target)
		if err := airr.EmitMatrix(out, m, rowLabels, colLabels, cfg.Alternative, "repertoire_id_1"); err != nil {
			return fail("write output: %v", err)
		}
	}

	if cfg.Pairs != "" {
		pairsOut, err := xio.OpenWrite(cfg.Pairs)
		if err != nil {
			return fail("open pairs: %v", err)
		}
		defer pairsOut.Close()
		if err := airr.EmitPairs(pairsOut, loaded.Set1, target, m.Pairs(), loaded.Genes, loaded.Set1.Repertoires(), target.Repertoires(), cfg.Distance, keepColumnNames(cfg)); err != nil {
			return fail("write pairs: %v", err)
		}
	}

	return 0
}

func runCluster(args []string) int {
	cfg := config.Default()
	cfg.Command = config.Cluster

	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	configPath := commonFlags(fs, cfg)
	if err := parseWithConfig(fs, cfg, configPath, args); err != nil {
		return fail("%v", err)
	}

	positional, err := requirePositional(fs, 1)
	if err != nil {
		return fail("%v", err)
	}
	cfg.Input1 = positional[0]

	if err := cfg.Validate(); err != nil {
		return fail("%v", err)
	}

	log, closeLog, err := openLog(cfg)
	if err != nil {
		return fail("open log: %v", err)
	}
	defer closeLog()
	banner(log, cfg)

	stop := profiling.Start(profileDir(cfg), cfg.CPUProfile != "", cfg.MemProfile != "")
	defer stop()

	loaded, err := run.Load(cfg, true, false)
	if err != nil {
		return fail("%v", err)
	}
	log.Printf("ingested %d rows (%d skipped) from %s", loaded.Result1.Rows, loaded.Result1.Skipped, cfg.Input1)

	pool := engine.NewPool(cfg.Threads)
	state, infos, err := run.Cluster(cfg, loaded, pool, log)
	if err != nil {
		return fail("%v", err)
	}

	out, err := xio.OpenWrite(cfg.Output)
	if err != nil {
		return fail("open output: %v", err)
	}
	defer out.Close()

	if err := airr.EmitCluster(out, loaded.Set1, state, infos, loaded.Set1.Repertoires(), loaded.Genes, sequenceColumnName(cfg)); err != nil {
		return fail("write output: %v", err)
	}
	return 0
}

func runDeduplicate(args []string) int {
	cfg := config.Default()
	cfg.Command = config.Deduplicate

	fs := flag.NewFlagSet("deduplicate", flag.ContinueOnError)
	configPath := commonFlags(fs, cfg)
	if err := parseWithConfig(fs, cfg, configPath, args); err != nil {
		return fail("%v", err)
	}

	positional, err := requirePositional(fs, 1)
	if err != nil {
		return fail("%v", err)
	}
	cfg.Input1 = positional[0]

	if err := cfg.Validate(); err != nil {
		return fail("%v", err)
	}

	log, closeLog, err := openLog(cfg)
	if err != nil {
		return fail("open log: %v", err)
	}
	defer closeLog()
	banner(log, cfg)

	loaded, err := run.Load(cfg, false, false)
	if err != nil {
		return fail("%v", err)
	}
	log.Printf("ingested %d rows (%d skipped) from %s", loaded.Result1.Rows, loaded.Result1.Skipped, cfg.Input1)

	reps := run.Deduplicate(cfg, loaded)

	out, err := xio.OpenWrite(cfg.Output)
	if err != nil {
		return fail("open output: %v", err)
	}
	defer out.Close()

	if err := airr.EmitDedup(out, loaded.Set1, reps, loaded.Genes, loaded.Set1.Repertoires(), cfg.IgnoreGenes); err != nil {
		return fail("write output: %v", err)
	}
	return 0
}

func profileDir(cfg *config.Config) string {
	if cfg.MemProfile != "" {
		return cfg.MemProfile
	}
	return cfg.CPUProfile
}

func repertoireLabels(st *store.Store) []string {
	reps := st.Repertoires()
	labels := make([]string, reps.Len())
	for i := range labels {
		labels[i] = reps.Text(int32(i))
	}
	return labels
}

func keepColumnNames(cfg *config.Config) []string {
	return cfg.KeepColumns
}
