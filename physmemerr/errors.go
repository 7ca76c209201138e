// Package physmemerr is the error taxonomy shared by every layer of the
// core: the address-space stack, the overlay/object engine, the profile
// builder and the pool scanner all classify their failures against this
// same small set of kinds instead of growing package-local error types.
package physmemerr

import "fmt"

// Kind classifies a core error so callers can branch on intent instead of
// matching error text. The set mirrors the taxonomy the engine is built
// around: construction-time failures (StackRejection, ProfileCompile) are
// meant to surface to the caller, while per-datum failures (InvalidAddress,
// ShortRead, TypeMissing, AmbiguousSymbol) are normally absorbed into
// sentinel values by the object engine rather than propagated.
type Kind int

const (
	// StackRejection: a layer declined to stack on the presented base.
	StackRejection Kind = iota
	// InvalidAddress: an address falls outside any present run.
	InvalidAddress
	// ShortRead: a read could not be fully satisfied.
	ShortRead
	// TypeMissing: a requested structure or field is not in the profile.
	TypeMissing
	// AmbiguousSymbol: symbol lookup found multiple addresses, no disambiguator given.
	AmbiguousSymbol
	// ProfileCompile: an overlay references a nonexistent type, a field
	// offset exceeds the declared size, or a modification chain has a cycle.
	ProfileCompile
	// ScanAbort: the underlying image became unreadable mid-scan.
	ScanAbort
)

func (k Kind) String() string {
	switch k {
	case StackRejection:
		return "stack-rejection"
	case InvalidAddress:
		return "invalid-address"
	case ShortRead:
		return "short-read"
	case TypeMissing:
		return "type-missing"
	case AmbiguousSymbol:
		return "ambiguous-symbol"
	case ProfileCompile:
		return "profile-compile"
	case ScanAbort:
		return "scan-abort"
	default:
		return "unknown"
	}
}

// Error is a typed, wrappable error. Err is the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, physmemerr.New(physmemerr.InvalidAddress, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind around a cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}
