// Package session holds the explicit Session value callers pass around in
// place of package-level configuration state. Config does not change after
// Open; Session.SetDTB does change the Session it is called on. CLI flag
// parsing itself is out of scope (spec §1) — Config
// is a plain struct a caller fills in however it likes, not a flag parser.
package session

// Config is the recognized option set spec §6 lists under "Configuration".
// PID, PIDS, OBJECT-TYPE, PHYSICAL-OFFSET, and SILENT are consumed by
// plugins, not the core, and so have no field here — a plugin that wants
// them reads them from its own argument, not from Config.
type Config struct {
	// Filename is the image path. Required.
	Filename string
	// Write enables mutation of the underlying image.
	Write bool
	// HasDTB and DTB supply an explicit directory-table-base, skipping
	// discovery entirely.
	HasDTB bool
	DTB    uint64
	// Profile names the registered plugin.KindProfile entry to apply.
	Profile string
	// Plugins lists extra plugin directories, path-separator delimited.
	// The Go discovery mechanism is init()-time self-registration (package
	// plugin), which has no notion of scanning a directory at runtime, so
	// this field is carried for interface completeness with spec §6 but
	// is not consumed by Open.
	Plugins string
	// Info requests a registry-contents dump rather than normal analysis.
	Info bool
	// HasKDBG and KDBG supply an explicit kernel-debugger-block address.
	HasKDBG bool
	KDBG    uint64
}
