// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package config is the run-scoped option set for one compairr
// invocation (spec §6). It plays the role the teacher's utils.Config
// plays for muscato, down to the pattern of an optional structured
// config file loaded before flags are applied -- rendered here in
// TOML via github.com/BurntSushi/toml rather than the teacher's JSON,
// since TOML is the config-file format the pack's own test harness
// (tests/test.go + tests.toml) already decodes end-to-end.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Command is the mutually-exclusive subcommand selector (spec §6).
type Command string

const (
	Matrix      Command = "matrix"
	Existence   Command = "existence"
	Cluster     Command = "cluster"
	Deduplicate Command = "deduplicate"
	Help        Command = "help"
	Version     Command = "version"
)

// Config holds every option spec §6 names, plus the ambient options
// SPEC_FULL §6 adds (config file, profiling hooks).
type Config struct {
	Command Command

	Input1 string
	Input2 string

	Differences   int
	Indels        bool
	IgnoreCounts  bool
	IgnoreGenes   bool
	IgnoreUnknown bool
	Nucleotides   bool
	CDR3          bool
	Score         string
	Threads       int
	Alternative   bool
	Distance      bool
	KeepColumns   []string

	Output string
	Log    string
	Pairs  string

	CPUProfile string
	MemProfile string
}

// Default returns a Config populated with spec-mandated defaults.
func Default() *Config {
	return &Config{
		Differences: 0,
		Score:       "product",
		Threads:     1,
	}
}

// fileConfig mirrors Config's TOML-visible fields; every field carries
// an explicit toml tag naming its key in the config file.
type fileConfig struct {
	Differences   *int      `toml:"differences"`
	Indels        *bool     `toml:"indels"`
	IgnoreCounts  *bool     `toml:"ignore-counts"`
	IgnoreGenes   *bool     `toml:"ignore-genes"`
	IgnoreUnknown *bool     `toml:"ignore-unknown"`
	Nucleotides   *bool     `toml:"nucleotides"`
	CDR3          *bool     `toml:"cdr3"`
	Score         *string   `toml:"score"`
	Threads       *int      `toml:"threads"`
	Alternative   *bool     `toml:"alternative"`
	Distance      *bool     `toml:"distance"`
	KeepColumns   *[]string `toml:"keep-columns"`
	Output        *string   `toml:"output"`
	Log           *string   `toml:"log"`
	Pairs         *string   `toml:"pairs"`
}

// LoadTOML reads an optional config file and applies its values onto
// cfg, for every field the file sets. Command-line flags still win,
// since the cli package parses the arguments again after LoadTOML
// and so overwrites cfg with every flag the user typed (SPEC_FULL
// §6 "-config path.toml").
func LoadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Differences != nil {
		cfg.Differences = *fc.Differences
	}
	if fc.Indels != nil {
		cfg.Indels = *fc.Indels
	}
	if fc.IgnoreCounts != nil {
		cfg.IgnoreCounts = *fc.IgnoreCounts
	}
	if fc.IgnoreGenes != nil {
		cfg.IgnoreGenes = *fc.IgnoreGenes
	}
	if fc.IgnoreUnknown != nil {
		cfg.IgnoreUnknown = *fc.IgnoreUnknown
	}
	if fc.Nucleotides != nil {
		cfg.Nucleotides = *fc.Nucleotides
	}
	if fc.CDR3 != nil {
		cfg.CDR3 = *fc.CDR3
	}
	if fc.Score != nil {
		cfg.Score = *fc.Score
	}
	if fc.Threads != nil {
		cfg.Threads = *fc.Threads
	}
	if fc.Alternative != nil {
		cfg.Alternative = *fc.Alternative
	}
	if fc.Distance != nil {
		cfg.Distance = *fc.Distance
	}
	if fc.KeepColumns != nil {
		cfg.KeepColumns = *fc.KeepColumns
	}
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Log != nil {
		cfg.Log = *fc.Log
	}
	if fc.Pairs != nil {
		cfg.Pairs = *fc.Pairs
	}
	return nil
}

// Validate checks the option combinations spec §6/§7 requires to be
// rejected before any work starts.
func (c *Config) Validate() error {
	if c.Differences < 0 {
		return fmt.Errorf("differences must be >= 0")
	}
	if c.Indels && c.Differences != 1 {
		return fmt.Errorf("indels is only valid when differences=1")
	}
	if c.Threads < 1 || c.Threads > 256 {
		return fmt.Errorf("threads must be in [1,256]")
	}
	switch c.Score {
	case "product", "ratio", "min", "max", "mean", "mh", "jaccard":
	default:
		return fmt.Errorf("unrecognized score %q", c.Score)
	}
	if (c.Score == "mh" || c.Score == "jaccard") && c.Differences != 0 {
		return fmt.Errorf("score %q requires differences=0", c.Score)
	}
	if (c.Score == "mh" || c.Score == "jaccard") && c.Command != Matrix {
		return fmt.Errorf("score %q is only valid for the matrix command", c.Score)
	}
	if len(c.KeepColumns) > 0 && c.Pairs == "" {
		return fmt.Errorf("keep-columns requires -pairs")
	}
	return nil
}

// Alphabet reports which residue alphabet this run uses, in words, for
// log banners.
func (c *Config) Alphabet() string {
	if c.Nucleotides {
		return "nucleotide"
	}
	return "amino-acid"
}
