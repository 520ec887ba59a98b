// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package airr stream-parses AIRR-style tab-separated repertoire
// files and emits the four result table formats spec §6 defines.
// Grounded on cmd/muscato_prep_targets's bufio.Scanner-with-
// large-buffer idiom and its format-dispatch style (processFasta vs
// processText), generalized from "two fixed input shapes" to "header-
// driven column resolution over one TSV shape".
package airr

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/kshedden/compairr/internal/config"
	"github.com/kshedden/compairr/internal/store"
	"github.com/kshedden/compairr/internal/xio"
)

const maxLineBytes = 16 * 1024 * 1024

// Header records which column index each semantic field resolved to;
// -1 means the field is absent/ignored for this file.
type Header struct {
	Seq         int
	Count       int
	VCall       int
	JCall       int
	SequenceID  int
	Repertoire  int
	Keep        []int
	KeepNames   []string
	ColumnNames []string
}

// sequenceColumnName picks junction/junction_aa/cdr3/cdr3_aa per
// spec §6 ("cdr3 / nucleotides").
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

// ResolveHeader maps a parsed header line's column names to the
// Header fields this run needs, per spec §6's "required columns
// depend on options" table.
func ResolveHeader(fields []string, cfg *config.Config, requireSequenceID bool) (*Header, error) {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[strings.TrimSpace(f)] = i
	}

	h := &Header{Seq: -1, Count: -1, VCall: -1, JCall: -1, SequenceID: -1, Repertoire: -1, ColumnNames: fields}

	seqCol := sequenceColumnName(cfg)
	var missing []string

	if i, ok := idx[seqCol]; ok {
		h.Seq = i
	} else {
		missing = append(missing, seqCol)
	}

	if !cfg.IgnoreCounts {
		if i, ok := idx["duplicate_count"]; ok {
			h.Count = i
		} else {
			missing = append(missing, "duplicate_count")
		}
	}

	if !cfg.IgnoreGenes {
		if i, ok := idx["v_call"]; ok {
			h.VCall = i
		} else {
			missing = append(missing, "v_call")
		}
		if i, ok := idx["j_call"]; ok {
			h.JCall = i
		} else {
			missing = append(missing, "j_call")
		}
	}

	if requireSequenceID {
		if i, ok := idx["sequence_id"]; ok {
			h.SequenceID = i
		} else {
			missing = append(missing, "sequence_id")
		}
	} else if i, ok := idx["sequence_id"]; ok {
		h.SequenceID = i
	}

	if i, ok := idx["repertoire_id"]; ok {
		h.Repertoire = i
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	for _, name := range cfg.KeepColumns {
		if i, ok := idx[name]; ok {
			h.Keep = append(h.Keep, i)
			h.KeepNames = append(h.KeepNames, name)
		} else {
			return nil, fmt.Errorf("keep-columns: unknown column %q", name)
		}
	}

	return h, nil
}

// IngestResult reports row accounting for a log banner (SPEC_FULL
// §6).
type IngestResult struct {
	Rows    int
	Skipped int
}

// Ingest streams path into st. defaultRepertoireID is used for every
// row when the file has no repertoire_id column (spec §6, §9 Open
// Questions "Default repertoire id when column absent"). requireSequenceID
// is set for existence's set 1 and for cluster's input.
func Ingest(path string, st *store.Store, cfg *config.Config, defaultRepertoireID string, requireSequenceID bool) (*IngestResult, error) {
	rc, err := xio.OpenRead(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var header *Header
	lnum := 0
	res := &IngestResult{}

	for scanner.Scan() {
		lnum++
		line := scanner.Text()
		if header == nil {
			if len(line) > 0 && (line[0] == '#' || line[0] == '@') {
				continue
			}
			fields := strings.Split(line, "\t")
			header, err = ResolveHeader(fields, cfg, requireSequenceID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lnum, err)
			}
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		row, ferr := parseRow(fields, header, cfg, defaultRepertoireID)
		if ferr != nil {
			if cfg.IgnoreUnknown && isUnknownResidueErr(ferr) {
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("line %d: %w", lnum, ferr)
		}

		if _, err := st.Add(*row); err != nil {
			if cfg.IgnoreUnknown {
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("line %d: %w", lnum, err)
		}
		res.Rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if header == nil {
		return nil, fmt.Errorf("%s: no header row found", path)
	}
	return res, nil
}

type unknownResidueError struct{ msg string }

func (e *unknownResidueError) Error() string { return e.msg }

func isUnknownResidueErr(err error) bool {
	_, ok := err.(*unknownResidueError)
	return ok
}

func parseRow(fields []string, h *Header, cfg *config.Config, defaultRepertoireID string) (*store.Row, error) {
	if len(fields) <= h.Seq {
		return nil, fmt.Errorf("row has %d fields, need at least %d", len(fields), h.Seq+1)
	}
	seq := fields[h.Seq]
	if seq == "" {
		return nil, &unknownResidueError{msg: "empty sequence"}
	}

	count := uint32(1)
	if !cfg.IgnoreCounts {
		n, err := strconv.ParseUint(fields[h.Count], 10, 32)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("malformed duplicate_count %q", fields[h.Count])
		}
		count = uint32(n)
	}

	var vCall, jCall string
	if !cfg.IgnoreGenes {
		vCall = fields[h.VCall]
		jCall = fields[h.JCall]
		if vCall == "" || jCall == "" {
			return nil, fmt.Errorf("empty v_call/j_call")
		}
	}

	var seqID string
	if h.SequenceID >= 0 && h.SequenceID < len(fields) {
		seqID = fields[h.SequenceID]
	}

	repText := defaultRepertoireID
	if h.Repertoire >= 0 && h.Repertoire < len(fields) {
		repText = fields[h.Repertoire]
	}

	var keep string
	if len(h.Keep) > 0 {
		parts := make([]string, len(h.Keep))
		for i, ci := range h.Keep {
			if ci < len(fields) {
				parts[i] = fields[ci]
			}
		}
		keep = strings.Join(parts, "\t")
	}

	return &store.Row{
		RepertoireText: repText,
		SequenceID:     seqID,
		Seq:            []byte(seq),
		VCallText:      vCall,
		JCallText:      jCall,
		Count:          count,
		Keep:           keep,
		IgnoreGenes:    cfg.IgnoreGenes,
	}, nil
}
