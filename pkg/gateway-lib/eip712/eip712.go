// Package eip712 implements the structured-data hashing and signing scheme used to
// authorize burn intents and attestations. The domain parameters are versioned
// constants agreed out-of-band by every party decoding gateway payloads.
package eip712

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DomainTypeHash is the type hash of the signing domain. The verifying contract is a
// 32-byte left-padded value, matching the address encoding used everywhere else in
// the gateway wire format.
var DomainTypeHash = common.Hash(crypto.Keccak256(
	[]byte("EIP712Domain(string name,string version,uint256 chainId,bytes32 verifyingContract)"),
))

// Default domain name and version for the wallet-side contract.
const (
	WalletDomainName    = "GatewayWallet"
	WalletDomainVersion = "1"
)

// SignatureLength is the length of a compact [R || S || V] signature.
const SignatureLength = 65

// InvalidSignatureError is returned when a signature has the wrong length or an
// unrecognized recovery id.
type InvalidSignatureError struct {
	Reason string
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature: %s", e.Reason)
}

// Domain identifies one signing domain: a named contract on a specific chain.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract [32]byte
}

// WalletDomain returns the signing domain of the wallet contract on the given chain.
func WalletDomain(chainID uint64, contract [32]byte) Domain {
	return Domain{
		Name:              WalletDomainName,
		Version:           WalletDomainVersion,
		ChainID:           chainID,
		VerifyingContract: contract,
	}
}

// Separator returns the domain separator hash.
func (d Domain) Separator() common.Hash {
	buf := make([]byte, 0, 5*32)
	buf = append(buf, DomainTypeHash[:]...)
	buf = append(buf, crypto.Keccak256([]byte(d.Name))...)
	buf = append(buf, crypto.Keccak256([]byte(d.Version))...)
	var chainID [32]byte
	for i := 0; i < 8; i++ {
		chainID[31-i] = byte(d.ChainID >> (8 * i))
	}
	buf = append(buf, chainID[:]...)
	buf = append(buf, d.VerifyingContract[:]...)
	return common.Hash(crypto.Keccak256(buf))
}

// Digest wraps a struct hash into the final signable digest:
// keccak256(0x1901 || separator || structHash).
func (d Domain) Digest(structHash common.Hash) common.Hash {
	separator := d.Separator()
	buf := make([]byte, 0, 2+2*32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, separator[:]...)
	buf = append(buf, structHash[:]...)
	return common.Hash(crypto.Keccak256(buf))
}

// Sign produces a compact [R || S || V] signature over the digest, with V in the
// conventional 27/28 range.
func Sign(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverSigner returns the address that produced the signature over the digest.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, InvalidSignatureError{
			Reason: fmt.Sprintf("length %d, want %d", len(sig), SignatureLength),
		}
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, InvalidSignatureError{
			Reason: fmt.Sprintf("recovery id %d", sig[64]),
		}
	}
	pubkey, err := crypto.SigToPub(digest[:], normalized)
	if err != nil {
		return common.Address{}, InvalidSignatureError{Reason: err.Error()}
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// AddressToBytes32 left-pads a 20-byte address into the 32-byte form used by the
// gateway wire format.
func AddressToBytes32(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[12:], addr[:])
	return out
}

// AddressFromBytes32 truncates a 32-byte left-padded value back to an address.
func AddressFromBytes32(b [32]byte) common.Address {
	return common.BytesToAddress(b[12:])
}
