// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

package airr

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kshedden/compairr/internal/cluster"
	"github.com/kshedden/compairr/internal/dedup"
	"github.com/kshedden/compairr/internal/overlap"
	"github.com/kshedden/compairr/internal/registry"
	"github.com/kshedden/compairr/internal/store"
)

// formatValue prints a floating score with up to 10 significant
// digits, per spec §6 ("All numeric cells are printed with up to 10
// significant digits for floating values").
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// EmitMatrix writes the dense or alternative overlap/existence report
// (spec §6).
func EmitMatrix(w io.Writer, m *overlap.Matrix, rowLabels, colLabels []string, alternative bool, rowLabelName string) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	if alternative {
		if _, err := fmt.Fprintf(bw, "#%s\trepertoire_id_2\tmatches\n", rowLabelName); err != nil {
			return err
		}
		for r := 0; r < m.Rows(); r++ {
			for c := 0; c < m.Cols(); c++ {
				v := m.Cell(r, c)
				if v == 0 {
					continue
				}
				if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", rowLabels[r], colLabels[c], formatValue(v)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if _, err := fmt.Fprintf(bw, "#\t%s\n", strings.Join(colLabels, "\t")); err != nil {
		return err
	}
	for r := 0; r < m.Rows(); r++ {
		vals := make([]string, m.Cols())
		for c := 0; c < m.Cols(); c++ {
			vals[c] = formatValue(m.Cell(r, c))
		}
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", rowLabels[r], strings.Join(vals, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// EmitCluster writes the cluster command's report (spec §6).
func EmitCluster(w io.Writer, st *store.Store, state *cluster.State, infos []cluster.Info, reps *registry.StringTable, genes *registry.Genes, seqColName string) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	if _, err := fmt.Fprintf(bw, "#cluster_no\tcluster_size\trepertoire_id\tsequence_id\tduplicate_count\tv_call\tj_call\t%s\n", seqColName); err != nil {
		return err
	}

	for clusterNo, info := range infos {
		for _, member := range cluster.Members(state, info.Seed) {
			row := st.Row(member)
			if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
				clusterNo+1, info.Size,
				reps.Text(row.RepertoireID),
				row.SequenceID,
				row.Count,
				genes.V.Text(row.VGene),
				genes.J.Text(row.JGene),
				string(st.DecodeSeq(member)),
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmitDedup writes the deduplicate command's report (spec §6).
func EmitDedup(w io.Writer, st *store.Store, reps []dedup.Representative, genes *registry.Genes, repReg *registry.StringTable, ignoreGenes bool) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for _, r := range reps {
		row := st.Row(r.Row)
		if ignoreGenes {
			if _, err := fmt.Fprintf(bw, "%s\t%d\t%s\n", repReg.Text(row.RepertoireID), r.Count, string(st.DecodeSeq(r.Row))); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%s\t%s\t%s\n",
			repReg.Text(row.RepertoireID), r.Count,
			genes.V.Text(row.VGene), genes.J.Text(row.JGene),
			string(st.DecodeSeq(r.Row)),
		); err != nil {
			return err
		}
	}
	return nil
}

// EmitPairs writes the optional per-match pairs stream (spec §6).
// Ordering is unspecified -- the caller must treat it as a set across
// multi-threaded runs (spec §5).
func EmitPairs(w io.Writer, source, target *store.Store, pairs []overlap.Pair, genes *registry.Genes, sourceReps, targetReps *registry.StringTable, withDistance bool, keepNames []string) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	header := []string{"repertoire_id_1", "sequence_id_1", "duplicate_count_1", "v_call_1", "j_call_1",
		"repertoire_id_2", "sequence_id_2", "duplicate_count_2", "v_call_2", "j_call_2"}
	if withDistance {
		header = append(header, "distance")
	}
	header = append(header, keepNames...)
	if _, err := fmt.Fprintf(bw, "#%s\n", strings.Join(header, "\t")); err != nil {
		return err
	}

	for _, p := range pairs {
		q := source.Row(p.Query)
		t := target.Row(p.Target)
		fields := []string{
			sourceReps.Text(q.RepertoireID), q.SequenceID, strconv.FormatUint(uint64(q.Count), 10),
			genes.V.Text(q.VGene), genes.J.Text(q.JGene),
			targetReps.Text(t.RepertoireID), t.SequenceID, strconv.FormatUint(uint64(t.Count), 10),
			genes.V.Text(t.VGene), genes.J.Text(t.JGene),
		}
		if withDistance {
			fields = append(fields, strconv.Itoa(p.Distance))
		}
		if len(keepNames) > 0 {
			fields = append(fields, q.Keep)
		}
		if _, err := fmt.Fprintf(bw, "%s\n", strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}
