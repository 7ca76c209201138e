package object

import "github.com/arvidw/physmem/addrspace"

// noneObject is the sentinel spec §4.D.6 describes: every operation on it
// returns another noneObject (carrying the original reason), its boolean
// conversion is false, and its integer conversion is zero. This is what
// makes chained field/deref/index traversal total over a torn image
// instead of requiring a nil check after every hop.
type noneObject struct {
	reason string
}

// None constructs a none-object carrying reason, for use by callers outside
// this package (e.g. a profile reporting "type missing").
func None(reason string) Object { return &noneObject{reason: reason} }

func (n *noneObject) Field(string) Object   { return n }
func (n *noneObject) Index(int) Object      { return n }
func (n *noneObject) Deref() Object         { return n }
func (n *noneObject) Value() (uint64, bool) { return 0, false }
func (n *noneObject) Bool() bool            { return false }
func (n *noneObject) String() string        { return "" }
func (n *noneObject) IsNone() bool          { return true }
func (n *noneObject) Reason() string        { return n.reason }
func (n *noneObject) TypeName() string      { return "" }
func (n *noneObject) Address() uint64       { return 0 }
func (n *noneObject) AddressSpace() addrspace.AddressSpace { return nil }
