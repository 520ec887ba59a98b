// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package cli implements the compairr command line: subcommand
// dispatch, flag parsing into a config.Config, and wiring every
// internal package together into the four commands spec §6
// describes. Grounded on cmd/muscato/main.go's flat flag.Parse()
// style, generalized from one binary's fixed flag set into a
// subcommand dispatcher with one flag.FlagSet per subcommand.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/kshedden/compairr/internal/config"
	"github.com/kshedden/compairr/internal/runlog"
	"github.com/kshedden/compairr/internal/xio"
)

const usage = `compairr <command> [options] set1 [set2]

Commands:
  matrix        repertoire x repertoire overlap matrix
  existence     per-sequence existence/overlap vector against a reference set
  cluster       single-linkage clustering within one repertoire file
  deduplicate   exact-match collapse within one repertoire file
  version       print build metadata
  help          print this message
`

// Run parses args (excluding the program name) and executes the
// requested subcommand, returning a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	case "version":
		printVersion(os.Stdout)
		return 0
	case "matrix":
		return runMatrixLike(config.Matrix, rest)
	case "existence":
		return runMatrixLike(config.Existence, rest)
	case "cluster":
		return runCluster(rest)
	case "deduplicate":
		return runDeduplicate(rest)
	default:
		fmt.Fprintf(os.Stderr, "unrecognized command %q\n\n%s", cmd, usage)
		return 1
	}
}

func printVersion(w io.Writer) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Fprintln(w, "compairr (version unknown)")
		return
	}
	fmt.Fprintf(w, "compairr %s (%s)\n", info.Main.Version, info.GoVersion)
}

// fail writes msg to stderr and returns the standard fatal exit code
// (spec §7: configuration errors print and exit non-zero before any
// work starts).
func fail(msg string, args ...any) int {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	return 1
}

// commonFlags registers every option from spec §6's table plus the
// ambient additions from SPEC_FULL §6, shared by all four
// subcommands (a handful are no-ops for a given subcommand, e.g.
// -alternative for cluster; unused ones are simply never read).
func commonFlags(fs *flag.FlagSet, cfg *config.Config) (configPath *string) {
	fs.IntVar(&cfg.Differences, "differences", 0, "maximum number of symbol edits allowed")
	fs.BoolVar(&cfg.Indels, "indels", false, "allow one insertion or deletion when differences=1")
	fs.BoolVar(&cfg.IgnoreCounts, "ignore-counts", false, "treat every duplicate_count as 1")
	fs.BoolVar(&cfg.IgnoreGenes, "ignore-genes", false, "disable the V/J equality constraint")
	fs.BoolVar(&cfg.IgnoreUnknown, "ignore-unknown", false, "skip rows with illegal residues instead of failing")
	fs.BoolVar(&cfg.Nucleotides, "nucleotides", false, "use the 4-symbol nucleotide alphabet instead of amino acids")
	fs.BoolVar(&cfg.CDR3, "cdr3", false, "use cdr3(_aa) columns instead of junction(_aa)")
	fs.StringVar(&cfg.Score, "score", "product", "product|ratio|min|max|mean|mh|jaccard")
	fs.IntVar(&cfg.Threads, "threads", 1, "number of worker threads, 1..256")
	fs.BoolVar(&cfg.Alternative, "alternative", false, "column-triples output instead of a dense matrix")
	fs.BoolVar(&cfg.Distance, "distance", false, "append a numeric distance column to the pairs stream")
	var keepColumns string
	fs.StringVar(&keepColumns, "keep-columns", "", "comma-separated column names passed through into the pairs stream")
	fs.StringVar(&cfg.Output, "output", "", "output path, - for stdout")
	fs.StringVar(&cfg.Log, "log", "", "run log path, - for stderr")
	fs.StringVar(&cfg.Pairs, "pairs", "", "pairs stream output path")
	fs.StringVar(&cfg.CPUProfile, "cpuprofile", "", "write a CPU profile to this directory")
	fs.StringVar(&cfg.MemProfile, "memprofile", "", "write a memory profile to this directory")
	path := fs.String("config", "", "optional TOML config file merged underneath explicit flags")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	return path
}

// finishKeepColumns applies -keep-columns onto cfg when the flag was
// actually given on the command line; otherwise cfg.KeepColumns is
// left untouched so a value supplied only via -config survives the
// flag/TOML merge (SPEC_FULL §6).
func finishKeepColumns(fs *flag.FlagSet, cfg *config.Config) {
	seen := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "keep-columns" {
			seen = true
		}
	})
	if !seen {
		return
	}
	v := fs.Lookup("keep-columns").Value.String()
	if v != "" {
		cfg.KeepColumns = strings.Split(v, ",")
	} else {
		cfg.KeepColumns = nil
	}
}

// parseWithConfig parses fs against args, then applies -config (if
// given) underneath, re-parsing args afterward so explicit flags
// still win (SPEC_FULL §6 "-config").
func parseWithConfig(fs *flag.FlagSet, cfg *config.Config, configPath *string, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	finishKeepColumns(fs, cfg)
	if *configPath != "" {
		if err := config.LoadTOML(cfg, *configPath); err != nil {
			return err
		}
		// Re-apply explicit flags so they still win over the file.
		if err := fs.Parse(args); err != nil {
			return err
		}
		finishKeepColumns(fs, cfg)
	}
	return nil
}

func openLog(cfg *config.Config) (*runlog.Logger, func() error, error) {
	return runlog.New(cfg.Log, xio.OpenWrite)
}

func banner(log *runlog.Logger, cfg *config.Config) {
	log.Banner(map[string]string{
		"command":        string(cfg.Command),
		"differences":    fmt.Sprint(cfg.Differences),
		"indels":         fmt.Sprint(cfg.Indels),
		"ignore-counts":  fmt.Sprint(cfg.IgnoreCounts),
		"ignore-genes":   fmt.Sprint(cfg.IgnoreGenes),
		"ignore-unknown": fmt.Sprint(cfg.IgnoreUnknown),
		"alphabet":       cfg.Alphabet(),
		"cdr3":           fmt.Sprint(cfg.CDR3),
		"score":          cfg.Score,
		"threads":        fmt.Sprint(cfg.Threads),
	})
	if cfg.Score == "ratio" {
		log.Printf("warning: score 'ratio' is not symmetric; its interpretation for existence vs matrix is left to the caller (spec §9)")
	}
}

func sequenceColumnName(cfg *config.Config) string {
	base := "junction"
	if cfg.CDR3 {
		base = "cdr3"
	}
	if !cfg.Nucleotides {
		base += "_aa"
	}
	return base
}

func requirePositional(fs *flag.FlagSet, n int) ([]string, error) {
	a := fs.Args()
	if len(a) < n {
		return nil, fmt.Errorf("expected %d input path(s), got %d", n, len(a))
	}
	return a, nil
}
