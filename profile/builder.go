package profile

import (
	"fmt"
	"log"

	"github.com/arvidw/physmem/nativetype"
	"github.com/arvidw/physmem/object"
	"github.com/arvidw/physmem/vtype"
)

// Builder accumulates a profile's declared inputs — native types, base
// vtypes, hand-written overlays, symbols, constants, behavior classes, and
// the modification chain — for Compile to resolve into an immutable
// Profile. It mirrors spec §4.E's declared construction order: natives and
// vtypes and symbols are loaded by calling the Add* methods before
// Compile, which then applies the modification chain and merges overlays.
type Builder struct {
	meta      Metadata
	natives   *nativetype.Table
	baseTypes map[string]vtype.Base
	overlays  map[string][]vtype.Overlay
	symbols   map[string]map[string][]SymbolEntry
	constants map[string]uint64
	behaviors map[string]object.BehaviorFactory
	mods      []Modification
}

// NewBuilder starts a profile build for the given OS/version identity and
// native-type table (step 1 of spec §4.E's construction order).
func NewBuilder(meta Metadata, natives *nativetype.Table) *Builder {
	return &Builder{
		meta:      meta,
		natives:   natives,
		baseTypes: make(map[string]vtype.Base),
		overlays:  make(map[string][]vtype.Overlay),
		symbols:   make(map[string]map[string][]SymbolEntry),
		constants: make(map[string]uint64),
		behaviors: make(map[string]object.BehaviorFactory),
	}
}

// Natives exposes the in-progress native-type table so a Modification can
// adjust it ("adjust native types", spec §4.F).
func (b *Builder) Natives() *nativetype.Table { return b.natives }

// Meta exposes the profile identity a Modification's Apply may need beyond
// what Conditions already saw.
func (b *Builder) Meta() Metadata { return b.meta }

// AddBaseType declares a structure dictionary entry (step 2, "load vtypes",
// spec §4.E) — typically produced from DWARF output or a pre-baked
// dictionary, outside this package's concern.
func (b *Builder) AddBaseType(base vtype.Base) { b.baseTypes[base.Name] = base }

// AddOverlay appends a hand-written overlay patch for typeName. Overlays
// added before Compile (declared overlays) are applied before any a
// Modification appends during the chain, preserving later-wins precedence
// (spec §4.C, Property 5).
func (b *Builder) AddOverlay(typeName string, ov vtype.Overlay) {
	b.overlays[typeName] = append(b.overlays[typeName], ov)
}

// AddSymbol records one symbol definition (step 3, "load symbols", spec
// §4.E) — from System.map for Linux, or embedded constants for Windows.
func (b *Builder) AddSymbol(module, name string, entry SymbolEntry) {
	if module == "" {
		module = "kernel"
	}
	if b.symbols[module] == nil {
		b.symbols[module] = make(map[string][]SymbolEntry)
	}
	b.symbols[module][name] = append(b.symbols[module][name], entry)
}

// AddConstant records a named scalar constant.
func (b *Builder) AddConstant(name string, v uint64) { b.constants[name] = v }

// SetBehavior registers a behavior class for typeName (spec §4.F's
// "update object_classes", spec §4.D.4's behavior attachment).
func (b *Builder) SetBehavior(typeName string, f object.BehaviorFactory) { b.behaviors[typeName] = f }

// AddModification appends one profile-modification-chain entry (step 4,
// spec §4.F). Order of registration does not determine application
// order — Compile topologically sorts by Before/After.
func (b *Builder) AddModification(m Modification) { b.mods = append(b.mods, m) }

// Compile applies the modification chain (step 4) then merges overlays and
// verifies every declared base type (step 5, "compile layouts"), producing
// an immutable Profile. Cycles in the modification Before/After graph are
// fatal (ProfileCompile); missing predecessors are logged via log.Printf,
// matching the teacher's sole logging call site, and recorded in
// Profile.Diagnostics().
func (b *Builder) Compile() (*Profile, error) {
	ordered, missing, err := topoSortModifications(b.mods, b.meta)
	if err != nil {
		return nil, err
	}

	var diagnostics []string
	for _, m := range missing {
		log.Printf("profile: %s", m)
		diagnostics = append(diagnostics, m)
	}

	for _, m := range ordered {
		if m.Apply == nil {
			continue
		}
		if err := m.Apply(b); err != nil {
			return nil, fmt.Errorf("profile: applying modification %q: %w", m.Name, err)
		}
	}

	types := make(map[string]*vtype.Type, len(b.baseTypes))
	for name, base := range b.baseTypes {
		t, err := vtype.Compile(base, b.overlays[name]...)
		if err != nil {
			return nil, err
		}
		types[name] = t
	}
	for name := range b.overlays {
		if _, ok := b.baseTypes[name]; !ok {
			diagnostics = append(diagnostics, fmt.Sprintf("profile: overlay declared for unknown base type %q", name))
		}
	}

	symbols := make(map[string]map[string][]SymbolEntry, len(b.symbols))
	for module, byName := range b.symbols {
		cp := make(map[string][]SymbolEntry, len(byName))
		for name, entries := range byName {
			cp[name] = append([]SymbolEntry(nil), entries...)
		}
		symbols[module] = cp
	}

	constants := make(map[string]uint64, len(b.constants))
	for k, v := range b.constants {
		constants[k] = v
	}
	behaviors := make(map[string]object.BehaviorFactory, len(b.behaviors))
	for k, v := range b.behaviors {
		behaviors[k] = v
	}

	return &Profile{
		meta:        b.meta,
		natives:     b.natives,
		types:       types,
		symbols:     symbols,
		constants:   constants,
		behaviors:   behaviors,
		diagnostics: diagnostics,
	}, nil
}
