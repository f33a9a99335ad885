package payload

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/gateway-os/gatewayd/pkg/gateway-lib/transferspec"
)

const (
	burnIntentMaxBlockHeightOffset = 8
	burnIntentMaxFeeOffset         = 40
	burnIntentSpecOffset           = 72

	burnIntentHeaderLength = 72
)

// BurnIntentTypeHash is the EIP-712 type hash of the BurnIntent struct, including its
// nested TransferSpec type definition.
var BurnIntentTypeHash = common.Hash(crypto.Keccak256(
	[]byte("BurnIntent(uint256 maxBlockHeight,uint256 maxFee,TransferSpec spec)" + transferSpecTypeDef),
))

const transferSpecTypeDef = "TransferSpec(uint32 version,uint32 sourceDomain,uint32 destinationDomain," +
	"bytes32 sourceContract,bytes32 destinationContract,bytes32 sourceToken," +
	"bytes32 destinationToken,bytes32 sourceDepositor,bytes32 destinationRecipient," +
	"bytes32 sourceSigner,bytes32 destinationCaller,uint256 value,bytes32 salt,bytes hookData)"

// BurnIntent is a zero-copy view over an encoded burn intent: the wrapper header
// (magic, version, maxBlockHeight, maxFee) followed by one TransferSpec.
type BurnIntent []byte

// CastBurnIntent wraps buf into a BurnIntent view after checking the magic prefix.
func CastBurnIntent(buf []byte) (BurnIntent, error) {
	if len(buf) < transferspec.MagicLength {
		return nil, transferspec.DataTooShortError{Length: len(buf)}
	}
	var got [transferspec.MagicLength]byte
	copy(got[:], buf[:transferspec.MagicLength])
	if got != BurnIntentMagic {
		return nil, transferspec.InvalidMagicError{Got: got, Want: BurnIntentMagic}
	}
	return BurnIntent(buf), nil
}

// Validate checks the wrapper header, then the embedded TransferSpec, then the
// overall length invariant tying the two together.
func (b BurnIntent) Validate() error {
	if len(b) < burnIntentHeaderLength {
		return transferspec.HeaderTooShortError{Length: len(b), Want: burnIntentHeaderLength}
	}
	if v := b.Version(); v != CurrentVersion {
		return transferspec.InvalidVersionError{Got: v, Want: CurrentVersion}
	}
	spec, err := transferspec.Cast(b[burnIntentSpecOffset:])
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	expected := burnIntentHeaderLength + spec.Length()
	if expected != len(b) {
		return PayloadLengthMismatchError{Expected: expected, Got: len(b)}
	}
	return nil
}

func (b BurnIntent) Version() uint32 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint32(b[4:8])
}

// MaxBlockHeight returns the block height after which the intent may no longer be
// executed on the source chain.
func (b BurnIntent) MaxBlockHeight() *uint256.Int {
	return uint256At(b, burnIntentMaxBlockHeightOffset)
}

// MaxFee returns the highest fee the depositor agreed to pay for this burn.
func (b BurnIntent) MaxFee() *uint256.Int {
	return uint256At(b, burnIntentMaxFeeOffset)
}

// Spec returns the embedded TransferSpec view. Only valid after Validate passed.
func (b BurnIntent) Spec() transferspec.TransferSpec {
	if len(b) < burnIntentSpecOffset {
		return transferspec.TransferSpec{}
	}
	return transferspec.TransferSpec(b[burnIntentSpecOffset:])
}

// Length returns the total encoded length declared by the intent itself.
func (b BurnIntent) Length() int {
	return burnIntentHeaderLength + b.Spec().Length()
}

// TypedDataHash returns the EIP-712 struct hash of the intent: its own type hash,
// the wrapper fields, and the nested TransferSpec struct hash.
func (b BurnIntent) TypedDataHash() common.Hash {
	buf := make([]byte, 0, 4*32)
	buf = append(buf, BurnIntentTypeHash[:]...)
	maxBlockHeight := b.MaxBlockHeight().Bytes32()
	buf = append(buf, maxBlockHeight[:]...)
	maxFee := b.MaxFee().Bytes32()
	buf = append(buf, maxFee[:]...)
	specHash := b.Spec().TypedDataHash()
	buf = append(buf, specHash[:]...)
	return common.Hash(crypto.Keccak256(buf))
}

// BurnIntentFields is the decoded form of a BurnIntent, used to build new intents.
type BurnIntentFields struct {
	MaxBlockHeight *uint256.Int
	MaxFee         *uint256.Int
	Spec           transferspec.Fields
}

// Encode serializes the intent into the canonical byte layout.
func (f BurnIntentFields) Encode() ([]byte, error) {
	specBytes, err := f.Spec.Encode()
	if err != nil {
		return nil, err
	}

	w := bytes.NewBuffer(make([]byte, 0, burnIntentHeaderLength+len(specBytes)))
	w.Write(BurnIntentMagic[:])
	writeUint32(w, CurrentVersion)
	writeUint256(w, f.MaxBlockHeight)
	writeUint256(w, f.MaxFee)
	w.Write(specBytes)
	return w.Bytes(), nil
}

func uint256At(buf []byte, offset int) *uint256.Int {
	if len(buf) < offset+32 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).SetBytes32(buf[offset : offset+32])
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func writeUint256(w *bytes.Buffer, v *uint256.Int) {
	if v == nil {
		v = uint256.NewInt(0)
	}
	b := v.Bytes32()
	w.Write(b[:])
}
