package profile

import "fmt"

// Modification is one profile-modification-chain entry, per spec §4.F:
// "Each modification declares conditions... and an ordering (before/after
// other modifications by class name)... may update object_classes, merge
// overlays, add symbols, adjust native types."
type Modification struct {
	// Name is this modification's class name, referenced by other
	// modifications' Before/After lists.
	Name string
	// Conditions reports whether this modification applies to meta; nil
	// means "always applies".
	Conditions func(meta Metadata) bool
	// Before/After name other modifications this one must be ordered
	// relative to. A name with no registered modification (or one whose
	// Conditions didn't hold) is a missing predecessor: logged, not fatal.
	Before []string
	After  []string
	// Apply mutates the in-progress builder: merging overlays, adding
	// symbols/constants, overriding native types, or registering behavior
	// classes (spec's "object_classes").
	Apply func(b *Builder) error
}

// topoSortModifications orders the subset of mods whose Conditions hold
// against meta, honoring Before/After edges, per spec §4.F. It reports
// missing-predecessor names (for the caller to log, non-fatal) and returns
// a ProfileCompile error on a Before/After cycle (fatal, per spec §7).
func topoSortModifications(mods []Modification, meta Metadata) (ordered []Modification, missing []string, err error) {
	active := make(map[string]Modification, len(mods))
	for _, m := range mods {
		if m.Conditions == nil || m.Conditions(meta) {
			if _, dup := active[m.Name]; dup {
				return nil, nil, compileModErr(fmt.Sprintf("duplicate modification name %q", m.Name))
			}
			active[m.Name] = m
		}
	}

	// edge[a] = set of names that must come strictly after a.
	edges := make(map[string]map[string]bool, len(active))
	indegree := make(map[string]int, len(active))
	for name := range active {
		edges[name] = make(map[string]bool)
		indegree[name] = 0
	}
	addEdge := func(before, after string) {
		if _, ok := active[before]; !ok {
			missing = append(missing, fmt.Sprintf("modification %q references missing predecessor %q", after, before))
			return
		}
		if _, ok := active[after]; !ok {
			missing = append(missing, fmt.Sprintf("modification %q references missing successor %q", before, after))
			return
		}
		if !edges[before][after] {
			edges[before][after] = true
			indegree[after]++
		}
	}
	for _, m := range active {
		for _, b := range m.Before {
			addEdge(m.Name, b) // m before b: edge m -> b
		}
		for _, a := range m.After {
			addEdge(a, m.Name) // m after a: edge a -> m
		}
	}

	// Kahn's algorithm, iterating candidate names in a fixed order
	// (insertion order of mods) so ties are deterministic.
	var order []string
	queued := make(map[string]bool, len(active))
	remaining := len(active)
	for remaining > 0 {
		progressed := false
		for _, m := range mods {
			if _, ok := active[m.Name]; !ok || queued[m.Name] {
				continue
			}
			if indegree[m.Name] == 0 {
				queued[m.Name] = true
				order = append(order, m.Name)
				remaining--
				progressed = true
				for next := range edges[m.Name] {
					indegree[next]--
				}
			}
		}
		if !progressed {
			return nil, nil, compileModErr("modification before/after graph has a cycle")
		}
	}

	ordered = make([]Modification, 0, len(order))
	for _, name := range order {
		ordered = append(ordered, active[name])
	}
	return ordered, missing, nil
}
