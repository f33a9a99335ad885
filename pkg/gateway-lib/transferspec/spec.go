package transferspec

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// CurrentVersion is the only TransferSpec format version this package understands.
const CurrentVersion uint32 = 1

// Field offsets of the fixed portion of an encoded TransferSpec. All integers are
// big-endian, all addresses are 32-byte left-padded values.
const (
	magicOffset                = 0
	versionOffset              = 4
	sourceDomainOffset         = 8
	destinationDomainOffset    = 12
	sourceContractOffset       = 16
	destinationContractOffset  = 48
	sourceTokenOffset          = 80
	destinationTokenOffset     = 112
	sourceDepositorOffset      = 144
	destinationRecipientOffset = 176
	sourceSignerOffset         = 208
	destinationCallerOffset    = 240
	valueOffset                = 272
	saltOffset                 = 304
	hookDataLengthOffset       = 336

	// HeaderLength is the size of the fixed portion, hook data follows immediately after.
	HeaderLength = 340

	// MagicLength is the size of the format discriminator prefix.
	MagicLength = 4
)

// MaxHookDataLength is the largest hook data payload representable by the uint32
// length prefix.
const MaxHookDataLength = 1<<32 - 1

// Magic identifies an encoded TransferSpec. Like every format magic in gateway-lib it
// is the first 4 bytes of the keccak256 hash of the format label.
var Magic = MagicFromLabel("gateway.TransferSpec")

// MagicFromLabel derives a 4-byte format magic from a format label.
func MagicFromLabel(label string) [MagicLength]byte {
	return [MagicLength]byte(crypto.Keccak256([]byte(label))[:MagicLength])
}

// DataTooShortError is returned by Cast when the buffer cannot even hold the magic.
type DataTooShortError struct {
	Length int
}

func (e DataTooShortError) Error() string {
	return fmt.Sprintf("data too short: %d bytes, need at least %d for magic", e.Length, MagicLength)
}

// InvalidMagicError is returned when the format discriminator does not match.
type InvalidMagicError struct {
	Got  [MagicLength]byte
	Want [MagicLength]byte
}

func (e InvalidMagicError) Error() string {
	return fmt.Sprintf("invalid magic: got %x, want %x", e.Got, e.Want)
}

// HeaderTooShortError is returned by Validate when the buffer cannot hold the full
// fixed header.
type HeaderTooShortError struct {
	Length int
	Want   int
}

func (e HeaderTooShortError) Error() string {
	return fmt.Sprintf("header too short: %d bytes, want at least %d", e.Length, e.Want)
}

// InvalidVersionError is returned when the version field differs from CurrentVersion.
type InvalidVersionError struct {
	Got  uint32
	Want uint32
}

func (e InvalidVersionError) Error() string {
	return fmt.Sprintf("unsupported version: got %d, want %d", e.Got, e.Want)
}

// LengthMismatchError is returned when the self-declared length of a record does not
// match the actual buffer length.
type LengthMismatchError struct {
	Expected int
	Got      int
}

func (e LengthMismatchError) Error() string {
	return fmt.Sprintf("overall length mismatch: declared %d bytes, buffer holds %d", e.Expected, e.Got)
}

// HookDataTooLargeError is returned by Encode when hook data exceeds the maximum
// representable length.
type HookDataTooLargeError struct {
	Length int
}

func (e HookDataTooLargeError) Error() string {
	return fmt.Sprintf("hook data too large: %d bytes, max %d", e.Length, uint64(MaxHookDataLength))
}

// TransferSpec is a zero-copy typed view over the encoded bytes of one transfer
// record. The view is produced by Cast and is only fully trusted after Validate
// succeeded; accessors bound-check regardless and return zero values rather than
// reading out of range.
type TransferSpec []byte

// Cast wraps buf into a TransferSpec view after checking the magic prefix. It does
// not copy and does not validate the structure, see Validate.
func Cast(buf []byte) (TransferSpec, error) {
	if len(buf) < MagicLength {
		return nil, DataTooShortError{Length: len(buf)}
	}
	var got [MagicLength]byte
	copy(got[:], buf[:MagicLength])
	if got != Magic {
		return nil, InvalidMagicError{Got: got, Want: Magic}
	}
	return TransferSpec(buf), nil
}

// Validate checks the structural integrity of the view: full header present,
// supported version, and buffer length equal to header plus declared hook data.
func (s TransferSpec) Validate() error {
	if len(s) < HeaderLength {
		return HeaderTooShortError{Length: len(s), Want: HeaderLength}
	}
	if v := s.Version(); v != CurrentVersion {
		return InvalidVersionError{Got: v, Want: CurrentVersion}
	}
	expected := HeaderLength + int(s.HookDataLength())
	if expected != len(s) {
		return LengthMismatchError{Expected: expected, Got: len(s)}
	}
	return nil
}

func (s TransferSpec) uint32At(offset int) uint32 {
	if len(s) < offset+4 {
		return 0
	}
	return binary.BigEndian.Uint32(s[offset : offset+4])
}

func (s TransferSpec) bytes32At(offset int) [32]byte {
	var out [32]byte
	if len(s) < offset+32 {
		return out
	}
	copy(out[:], s[offset:offset+32])
	return out
}

func (s TransferSpec) Version() uint32           { return s.uint32At(versionOffset) }
func (s TransferSpec) SourceDomain() uint32      { return s.uint32At(sourceDomainOffset) }
func (s TransferSpec) DestinationDomain() uint32 { return s.uint32At(destinationDomainOffset) }

func (s TransferSpec) SourceContract() [32]byte       { return s.bytes32At(sourceContractOffset) }
func (s TransferSpec) DestinationContract() [32]byte  { return s.bytes32At(destinationContractOffset) }
func (s TransferSpec) SourceToken() [32]byte          { return s.bytes32At(sourceTokenOffset) }
func (s TransferSpec) DestinationToken() [32]byte     { return s.bytes32At(destinationTokenOffset) }
func (s TransferSpec) SourceDepositor() [32]byte      { return s.bytes32At(sourceDepositorOffset) }
func (s TransferSpec) DestinationRecipient() [32]byte { return s.bytes32At(destinationRecipientOffset) }
func (s TransferSpec) SourceSigner() [32]byte         { return s.bytes32At(sourceSignerOffset) }
func (s TransferSpec) DestinationCaller() [32]byte    { return s.bytes32At(destinationCallerOffset) }
func (s TransferSpec) Salt() [32]byte                 { return s.bytes32At(saltOffset) }

// Value returns the transfer amount in source-chain units.
func (s TransferSpec) Value() *uint256.Int {
	b := s.bytes32At(valueOffset)
	return new(uint256.Int).SetBytes32(b[:])
}

// HookDataLength returns the declared length of the trailing hook data.
func (s TransferSpec) HookDataLength() uint32 { return s.uint32At(hookDataLengthOffset) }

// HookData returns a zero-copy view of the trailing hook data. It returns an empty
// slice, not an error, when the declared length is zero.
func (s TransferSpec) HookData() []byte {
	length := int(s.HookDataLength())
	if length == 0 || len(s) < HeaderLength+length {
		return []byte{}
	}
	return s[HeaderLength : HeaderLength+length]
}

// Length returns the total encoded length declared by the record itself. It is only
// meaningful after Validate passed.
func (s TransferSpec) Length() int {
	return HeaderLength + int(s.HookDataLength())
}
