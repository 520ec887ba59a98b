// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package registry implements the string<->integer id bijections used
// throughout the pipeline: V/J gene registries (process-global, shared
// across both input files of a run) and per-file repertoire id
// registries (spec §3). REDESIGN FLAGS §9 calls for these to be
// encapsulated as a run-scoped object threaded through the sequence
// store rather than left as module globals, the way the teacher keeps
// its own run state in a single *utils.Config passed explicitly
// between stages instead of package-level mutable state.
package registry

// StringTable is an insertion-ordered bijection between strings and
// small integer ids.
type StringTable struct {
	byText map[string]int32
	byID   []string
}

// NewStringTable returns an empty table.
func NewStringTable() *StringTable {
	return &StringTable{byText: make(map[string]int32)}
}

// Intern returns the id for s, assigning a fresh one if s is new.
func (t *StringTable) Intern(s string) int32 {
	if id, ok := t.byText[s]; ok {
		return id
	}
	id := int32(len(t.byID))
	t.byID = append(t.byID, s)
	t.byText[s] = id
	return id
}

// Lookup returns the id for s without interning it.
func (t *StringTable) Lookup(s string) (int32, bool) {
	id, ok := t.byText[s]
	return id, ok
}

// Text returns the string for a previously interned id.
func (t *StringTable) Text(id int32) string {
	return t.byID[id]
}

// Len returns the number of distinct strings interned.
func (t *StringTable) Len() int { return len(t.byID) }

// Genes holds the two process-global gene registries for a run. Both
// are shared across every input file the run touches, and are
// created fresh by NewGenes for each command invocation (spec §3: "cleared on
// init/teardown").
type Genes struct {
	V *StringTable
	J *StringTable
}

// NewGenes returns a fresh, empty pair of gene registries.
func NewGenes() *Genes {
	return &Genes{V: NewStringTable(), J: NewStringTable()}
}
