package addrspace

import (
	"errors"

	"github.com/arvidw/physmem/physmemerr"
)

// Rejected wraps the stock StackRejection error so Factory.Build
// implementations can signal "I don't apply to this base" without the
// caller having to string-match.
func Rejected(reason string) error {
	return physmemerr.New(physmemerr.StackRejection, reason)
}

// IsRejection reports whether err is a stacking rejection, as opposed to a
// hard construction failure that should abort the build.
func IsRejection(err error) bool {
	var pe *physmemerr.Error
	if errors.As(err, &pe) {
		return pe.Kind == physmemerr.StackRejection
	}
	return false
}
