package payload

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gateway-os/gatewayd/pkg/gateway-lib/transferspec"
)

const (
	attestationSpecOffset   = 8
	attestationHeaderLength = 8
)

// AttestationTypeHash is the EIP-712 type hash of the Attestation struct, including
// its nested TransferSpec type definition.
var AttestationTypeHash = common.Hash(crypto.Keccak256(
	[]byte("Attestation(TransferSpec spec)" + transferSpecTypeDef),
))

// Attestation is a zero-copy view over an encoded attestation: the wrapper header
// (magic, version) followed by one TransferSpec. The attestation carries no fields of
// its own beyond the spec; the operator's signature over its typed-data hash is what
// authorizes the destination-chain mint.
type Attestation []byte

// CastAttestation wraps buf into an Attestation view after checking the magic prefix.
func CastAttestation(buf []byte) (Attestation, error) {
	if len(buf) < transferspec.MagicLength {
		return nil, transferspec.DataTooShortError{Length: len(buf)}
	}
	var got [transferspec.MagicLength]byte
	copy(got[:], buf[:transferspec.MagicLength])
	if got != AttestationMagic {
		return nil, transferspec.InvalidMagicError{Got: got, Want: AttestationMagic}
	}
	return Attestation(buf), nil
}

// Validate checks the wrapper header, the embedded TransferSpec, and the overall
// length invariant.
func (a Attestation) Validate() error {
	if len(a) < attestationHeaderLength {
		return transferspec.HeaderTooShortError{Length: len(a), Want: attestationHeaderLength}
	}
	if v := a.Version(); v != CurrentVersion {
		return transferspec.InvalidVersionError{Got: v, Want: CurrentVersion}
	}
	spec, err := transferspec.Cast(a[attestationSpecOffset:])
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	expected := attestationHeaderLength + spec.Length()
	if expected != len(a) {
		return PayloadLengthMismatchError{Expected: expected, Got: len(a)}
	}
	return nil
}

func (a Attestation) Version() uint32 {
	if len(a) < 8 {
		return 0
	}
	return binary.BigEndian.Uint32(a[4:8])
}

// Spec returns the embedded TransferSpec view. Only valid after Validate passed.
func (a Attestation) Spec() transferspec.TransferSpec {
	if len(a) < attestationSpecOffset {
		return transferspec.TransferSpec{}
	}
	return transferspec.TransferSpec(a[attestationSpecOffset:])
}

// Length returns the total encoded length declared by the attestation itself.
func (a Attestation) Length() int {
	return attestationHeaderLength + a.Spec().Length()
}

// TypedDataHash returns the EIP-712 struct hash of the attestation.
func (a Attestation) TypedDataHash() common.Hash {
	buf := make([]byte, 0, 2*32)
	buf = append(buf, AttestationTypeHash[:]...)
	specHash := a.Spec().TypedDataHash()
	buf = append(buf, specHash[:]...)
	return common.Hash(crypto.Keccak256(buf))
}

// AttestationFields is the decoded form of an Attestation.
type AttestationFields struct {
	Spec transferspec.Fields
}

// Encode serializes the attestation into the canonical byte layout.
func (f AttestationFields) Encode() ([]byte, error) {
	specBytes, err := f.Spec.Encode()
	if err != nil {
		return nil, err
	}

	w := bytes.NewBuffer(make([]byte, 0, attestationHeaderLength+len(specBytes)))
	w.Write(AttestationMagic[:])
	writeUint32(w, CurrentVersion)
	w.Write(specBytes)
	return w.Bytes(), nil
}
