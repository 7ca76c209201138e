package profile

import (
	"fmt"

	"github.com/arvidw/physmem/physmemerr"
)

func compileModErr(msg string) error {
	return physmemerr.New(physmemerr.ProfileCompile, fmt.Sprintf("profile: %s", msg))
}
