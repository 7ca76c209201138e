package object

import (
	"golang.org/x/text/encoding/unicode"
)

// unicodeString is the behavior class for Windows kernel UNICODE_STRING
// fields: a Length (bytes, no NUL), a MaximumLength, and a Buffer pointer
// to a UTF-16LE character array. Decoding is delegated to
// golang.org/x/text/encoding/unicode rather than a hand-rolled UTF-16
// reader, per SPEC_FULL's domain-stack wiring.
type unicodeString struct {
	*View
	lengthField, bufferField string
}

// NewUnicodeStringBehaviorFactory builds the UNICODE_STRING behavior,
// parametrized by its Length and Buffer field names so it is not tied to
// one profile's exact struct spelling.
func NewUnicodeStringBehaviorFactory(lengthField, bufferField string) BehaviorFactory {
	return func(v *View) Object {
		return &unicodeString{View: v, lengthField: lengthField, bufferField: bufferField}
	}
}

// String decodes the buffer, per spec §4.D.7's Windows string handling: a
// short read or null buffer returns "" rather than propagating an error,
// keeping traversal total.
func (u *unicodeString) String() string {
	length, ok := u.Field(u.lengthField).Value()
	if !ok || length == 0 {
		return ""
	}
	bufAddr, ok := u.Field(u.bufferField).Value()
	if !ok || bufAddr == 0 {
		return ""
	}

	as := u.Resolver().DefaultAddressSpace()
	if as == nil {
		as = u.AddressSpace()
	}
	raw, err := as.Read(bufAddr, int(length))
	if err != nil {
		return ""
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(decoded)
}
