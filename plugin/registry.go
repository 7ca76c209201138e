// Package plugin is the discovery registry spec §4.H describes, adapted
// to Go: since the language has no import-scanning equivalent to Python's
// `imp` walking plugin directories, concrete classes self-register at
// package `init()` time instead — the same pattern `database/sql` drivers
// and `image` format decoders use in the standard library (spec §9's
// design note: "maps to explicit registration at module init").
//
// Discovery rules, per spec §4.H: a registered name beginning with
// "Abstract" is silently skipped (it names a base class, not a concrete
// plugin); a duplicate name is a fatal, immediate panic — the same
// failure mode `sql.Register` uses, surfaced at init() time rather than
// deferred to first use.
package plugin

import (
	"fmt"
	"strings"
	"sync"
)

// Kind names one of the "well-known abstract bases" spec §4.H lists.
type Kind string

const (
	KindAddressSpace Kind = "address_space"
	KindProfile      Kind = "profile"
	KindCommand      Kind = "command"
	KindScannerCheck Kind = "scanner_check"
	KindModification Kind = "modification"
)

// Config is the subset of session configuration an is_active predicate
// inspects — spec §4.H: "Plugins declare is_active(config) predicates so
// OS-specific plugins decline to run on unrelated profiles."
type Config struct {
	OS           string
	MemoryModel  string
	VersionMajor int
	VersionMinor int
}

// Entry is one registered plugin.
type Entry struct {
	Name     string
	Kind     Kind
	IsActive func(cfg Config) bool // nil means always active
	Value    any
}

type registry struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var global = &registry{entries: make(map[string]Entry)}

// Register adds e to the registry. A name beginning with "Abstract" is
// skipped per the discovery rule. A name already registered (by any Kind)
// panics — registration happens at init() time, before any goroutine can
// observe a half-built registry, so failing loudly and immediately is the
// correct failure mode, exactly as sql.Register panics on a duplicate
// driver name.
func Register(e Entry) {
	if strings.HasPrefix(e.Name, "Abstract") {
		return
	}
	global.mu.Lock()
	defer global.mu.Unlock()
	if _, dup := global.entries[e.Name]; dup {
		panic(fmt.Sprintf("plugin: %q registered twice", e.Name))
	}
	global.entries[e.Name] = e
}

// Lookup returns the entry registered under name.
func Lookup(name string) (Entry, bool) {
	global.mu.Lock()
	defer global.mu.Unlock()
	e, ok := global.entries[name]
	return e, ok
}

// ByKind returns every registered entry of kind, in an unspecified order
// (spec §5: "No ordering guarantees" beyond what a caller imposes itself).
func ByKind(kind Kind) []Entry {
	global.mu.Lock()
	defer global.mu.Unlock()
	var out []Entry
	for _, e := range global.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Active returns every entry of kind whose IsActive(cfg) holds (or which
// declared no predicate at all).
func Active(kind Kind, cfg Config) []Entry {
	var out []Entry
	for _, e := range ByKind(kind) {
		if e.IsActive == nil || e.IsActive(cfg) {
			out = append(out, e)
		}
	}
	return out
}
