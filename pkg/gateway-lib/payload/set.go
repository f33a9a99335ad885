package payload

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gateway-os/gatewayd/pkg/gateway-lib/transferspec"
)

const (
	setNumElementsOffset = 8
	setHeaderLength      = 12
)

var (
	// BurnIntentSetTypeHash is the EIP-712 type hash of the BurnIntentSet struct.
	BurnIntentSetTypeHash = common.Hash(crypto.Keccak256(
		[]byte("BurnIntentSet(BurnIntent[] intents)" +
			"BurnIntent(uint256 maxBlockHeight,uint256 maxFee,TransferSpec spec)" +
			transferSpecTypeDef),
	))

	// AttestationSetTypeHash is the EIP-712 type hash of the AttestationSet struct.
	AttestationSetTypeHash = common.Hash(crypto.Keccak256(
		[]byte("AttestationSet(Attestation[] attestations)" +
			"Attestation(TransferSpec spec)" +
			transferSpecTypeDef),
	))
)

// BurnIntentSet is a zero-copy view over a length-prefixed sequence of burn intents.
type BurnIntentSet []byte

// AttestationSet is a zero-copy view over a length-prefixed sequence of attestations.
type AttestationSet []byte

// CastBurnIntentSet wraps buf into a BurnIntentSet view after checking the magic.
func CastBurnIntentSet(buf []byte) (BurnIntentSet, error) {
	if err := castSet(buf, BurnIntentSetMagic); err != nil {
		return nil, err
	}
	return BurnIntentSet(buf), nil
}

// CastAttestationSet wraps buf into an AttestationSet view after checking the magic.
func CastAttestationSet(buf []byte) (AttestationSet, error) {
	if err := castSet(buf, AttestationSetMagic); err != nil {
		return nil, err
	}
	return AttestationSet(buf), nil
}

func castSet(buf []byte, magic [transferspec.MagicLength]byte) error {
	if len(buf) < transferspec.MagicLength {
		return transferspec.DataTooShortError{Length: len(buf)}
	}
	var got [transferspec.MagicLength]byte
	copy(got[:], buf[:transferspec.MagicLength])
	if got != magic {
		return transferspec.InvalidMagicError{Got: got, Want: magic}
	}
	return nil
}

// Validate walks the declared element count checking, per position, that the element
// header fits, that the element's self-declared length fits, and that the element
// magic matches, then checks that the walk consumed the buffer exactly. It does not
// run per-element structural validation; the cursor does that lazily on first visit.
func (s BurnIntentSet) Validate() error { return validateSet(s, burnIntentKind) }

// Validate runs the outer set validation, see BurnIntentSet.Validate.
func (s AttestationSet) Validate() error { return validateSet(s, attestationKind) }

func validateSet(buf []byte, kind elementKind) error {
	if len(buf) < setHeaderLength {
		return transferspec.HeaderTooShortError{Length: len(buf), Want: setHeaderLength}
	}
	if v := binary.BigEndian.Uint32(buf[4:8]); v != CurrentVersion {
		return transferspec.InvalidVersionError{Got: v, Want: CurrentVersion}
	}

	numElements := binary.BigEndian.Uint32(buf[setNumElementsOffset:setHeaderLength])
	offset := setHeaderLength
	for i := uint32(0); i < numElements; i++ {
		remaining := len(buf) - offset
		if remaining < kind.minLength() {
			return ElementHeaderTooShortError{
				Kind: kind.name, Index: i, Remaining: remaining, Want: kind.minLength(),
			}
		}
		elementLength := kind.declaredLength(buf[offset:])
		if remaining < elementLength {
			return ElementTooShortError{
				Kind: kind.name, Index: i, Remaining: remaining, Want: elementLength,
			}
		}
		var got [transferspec.MagicLength]byte
		copy(got[:], buf[offset:offset+transferspec.MagicLength])
		if got != kind.magic {
			return InvalidElementMagicError{Kind: kind.name, Index: i, Got: got, Want: kind.magic}
		}
		offset += elementLength
	}
	if offset != len(buf) {
		return transferspec.LengthMismatchError{Expected: offset, Got: len(buf)}
	}
	return nil
}

// NumElements returns the declared element count.
func (s BurnIntentSet) NumElements() uint32 { return setNumElements(s) }

// NumElements returns the declared element count.
func (s AttestationSet) NumElements() uint32 { return setNumElements(s) }

func setNumElements(buf []byte) uint32 {
	if len(buf) < setHeaderLength {
		return 0
	}
	return binary.BigEndian.Uint32(buf[setNumElementsOffset:setHeaderLength])
}

// Cursor validates the outer set structure and returns a forward-only iterator over
// the intents.
func (s BurnIntentSet) Cursor() (*Cursor[BurnIntent], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return newCursor(s, burnIntentKind, func(buf []byte) (BurnIntent, error) {
		intent, err := CastBurnIntent(buf)
		if err != nil {
			return nil, err
		}
		if err := intent.Validate(); err != nil {
			return nil, err
		}
		return intent, nil
	}), nil
}

// Cursor validates the outer set structure and returns a forward-only iterator over
// the attestations.
func (s AttestationSet) Cursor() (*Cursor[Attestation], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return newCursor(s, attestationKind, func(buf []byte) (Attestation, error) {
		attestation, err := CastAttestation(buf)
		if err != nil {
			return nil, err
		}
		if err := attestation.Validate(); err != nil {
			return nil, err
		}
		return attestation, nil
	}), nil
}

// TypedDataHash returns the EIP-712 struct hash of the set: the type hash together
// with the keccak256 of the concatenated element struct hashes. Every element is
// validated during the walk.
func (s BurnIntentSet) TypedDataHash() (common.Hash, error) {
	cursor, err := s.Cursor()
	if err != nil {
		return common.Hash{}, err
	}
	elementHashes := make([]byte, 0, int(s.NumElements())*32)
	for !cursor.Done() {
		intent, err := cursor.Next()
		if err != nil {
			return common.Hash{}, err
		}
		hash := intent.TypedDataHash()
		elementHashes = append(elementHashes, hash[:]...)
	}
	return setTypedDataHash(BurnIntentSetTypeHash, elementHashes), nil
}

// TypedDataHash returns the EIP-712 struct hash of the set, see
// BurnIntentSet.TypedDataHash.
func (s AttestationSet) TypedDataHash() (common.Hash, error) {
	cursor, err := s.Cursor()
	if err != nil {
		return common.Hash{}, err
	}
	elementHashes := make([]byte, 0, int(s.NumElements())*32)
	for !cursor.Done() {
		attestation, err := cursor.Next()
		if err != nil {
			return common.Hash{}, err
		}
		hash := attestation.TypedDataHash()
		elementHashes = append(elementHashes, hash[:]...)
	}
	return setTypedDataHash(AttestationSetTypeHash, elementHashes), nil
}

func setTypedDataHash(typeHash common.Hash, elementHashes []byte) common.Hash {
	buf := make([]byte, 0, 2*32)
	buf = append(buf, typeHash[:]...)
	buf = append(buf, crypto.Keccak256(elementHashes)...)
	return common.Hash(crypto.Keccak256(buf))
}

// EncodeBurnIntentSet serializes the intents into a set record.
func EncodeBurnIntentSet(intents []BurnIntentFields) ([]byte, error) {
	encoded := make([][]byte, 0, len(intents))
	for _, intent := range intents {
		buf, err := intent.Encode()
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, buf)
	}
	return encodeSet(BurnIntentSetMagic, encoded)
}

// EncodeAttestationSet serializes the attestations into a set record.
func EncodeAttestationSet(attestations []AttestationFields) ([]byte, error) {
	encoded := make([][]byte, 0, len(attestations))
	for _, attestation := range attestations {
		buf, err := attestation.Encode()
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, buf)
	}
	return encodeSet(AttestationSetMagic, encoded)
}

func encodeSet(magic [transferspec.MagicLength]byte, elements [][]byte) ([]byte, error) {
	if len(elements) > MaxSetElements {
		return nil, TooManyElementsError{Count: len(elements)}
	}

	total := setHeaderLength
	for _, element := range elements {
		total += len(element)
	}
	w := bytes.NewBuffer(make([]byte, 0, total))
	w.Write(magic[:])
	writeUint32(w, CurrentVersion)
	writeUint32(w, uint32(len(elements)))
	for _, element := range elements {
		w.Write(element)
	}
	return w.Bytes(), nil
}
