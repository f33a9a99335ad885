// Package payload implements the transfer payload wrappers exchanged between the
// wallet and minter sides of the gateway: BurnIntent and Attestation, plus their
// length-prefixed set forms. Every wrapper embeds exactly one TransferSpec and is
// consumed through zero-copy views, mirroring the transferspec package.
package payload

import (
	"errors"
	"fmt"

	"github.com/gateway-os/gatewayd/pkg/gateway-lib/transferspec"
)

// CurrentVersion is the only payload format version this package understands.
const CurrentVersion uint32 = 1

var (
	BurnIntentMagic     = transferspec.MagicFromLabel("gateway.BurnIntent")
	BurnIntentSetMagic  = transferspec.MagicFromLabel("gateway.BurnIntentSet")
	AttestationMagic    = transferspec.MagicFromLabel("gateway.Attestation")
	AttestationSetMagic = transferspec.MagicFromLabel("gateway.AttestationSet")
)

// MaxSetElements is the largest element count representable by the uint32 set header.
const MaxSetElements = 1<<32 - 1

// ErrCursorOutOfBounds is returned by Cursor.Next once every element has been visited.
var ErrCursorOutOfBounds = errors.New("cursor out of bounds: all elements consumed")

// PayloadLengthMismatchError is returned when a wrapper's total length does not equal
// its own header length plus the embedded TransferSpec's declared length.
type PayloadLengthMismatchError struct {
	Expected int
	Got      int
}

func (e PayloadLengthMismatchError) Error() string {
	return fmt.Sprintf(
		"transfer payload overall length mismatch: expected %d bytes, buffer holds %d",
		e.Expected, e.Got,
	)
}

// ElementHeaderTooShortError is returned during set validation when too few bytes
// remain at an element position to read the element's own header.
type ElementHeaderTooShortError struct {
	Kind      string
	Index     uint32
	Remaining int
	Want      int
}

func (e ElementHeaderTooShortError) Error() string {
	return fmt.Sprintf(
		"%s %d header too short: %d bytes remaining, want at least %d",
		e.Kind, e.Index, e.Remaining, e.Want,
	)
}

// ElementTooShortError is returned during set validation when an element's
// self-declared length exceeds the remaining buffer.
type ElementTooShortError struct {
	Kind      string
	Index     uint32
	Remaining int
	Want      int
}

func (e ElementTooShortError) Error() string {
	return fmt.Sprintf(
		"%s %d too short: %d bytes remaining, element declares %d",
		e.Kind, e.Index, e.Remaining, e.Want,
	)
}

// InvalidElementMagicError is returned when an element inside a set carries the wrong
// format magic.
type InvalidElementMagicError struct {
	Kind  string
	Index uint32
	Got   [transferspec.MagicLength]byte
	Want  [transferspec.MagicLength]byte
}

func (e InvalidElementMagicError) Error() string {
	return fmt.Sprintf("%s %d has invalid magic: got %x, want %x", e.Kind, e.Index, e.Got, e.Want)
}

// TooManyElementsError is returned when encoding a set whose element count is not
// representable by the uint32 header field.
type TooManyElementsError struct {
	Count int
}

func (e TooManyElementsError) Error() string {
	return fmt.Sprintf("too many elements: %d, max %d", e.Count, uint64(MaxSetElements))
}

// elementKind describes one payload wrapper format so set validation and cursor
// iteration can be shared between BurnIntent and Attestation.
type elementKind struct {
	name         string
	magic        [transferspec.MagicLength]byte
	headerLength int
}

var (
	burnIntentKind  = elementKind{"burn intent", BurnIntentMagic, burnIntentHeaderLength}
	attestationKind = elementKind{"attestation", AttestationMagic, attestationHeaderLength}
)

// minLength is the smallest buffer that allows reading the element's self-declared
// length: its own header plus the embedded spec's fixed header.
func (k elementKind) minLength() int {
	return k.headerLength + transferspec.HeaderLength
}

// declaredLength reads the element's total length from the embedded spec's hook data
// length field. The caller must have checked minLength bytes are available.
func (k elementKind) declaredLength(buf []byte) int {
	spec := transferspec.TransferSpec(buf[k.headerLength:])
	return k.headerLength + spec.Length()
}
