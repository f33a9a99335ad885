package transferspec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TypeHash is the EIP-712 type hash of the TransferSpec struct.
var TypeHash = common.Hash(crypto.Keccak256(
	[]byte("TransferSpec(uint32 version,uint32 sourceDomain,uint32 destinationDomain," +
		"bytes32 sourceContract,bytes32 destinationContract,bytes32 sourceToken," +
		"bytes32 destinationToken,bytes32 sourceDepositor,bytes32 destinationRecipient," +
		"bytes32 sourceSigner,bytes32 destinationCaller,uint256 value,bytes32 salt,bytes hookData)"),
))

// Hash returns the keccak256 content hash of the complete encoded record. This is the
// anti-replay key: it commits to every byte, hook data included.
func (s TransferSpec) Hash() common.Hash {
	return common.Hash(crypto.Keccak256(s))
}

// TypedDataHash returns the EIP-712 struct hash of the record. Every field is padded
// to a 32-byte word in declaration order; the variable-length hook data contributes
// through its own keccak256 hash.
func (s TransferSpec) TypedDataHash() common.Hash {
	buf := make([]byte, 0, 15*32)
	buf = append(buf, TypeHash[:]...)
	buf = appendUint32Word(buf, s.Version())
	buf = appendUint32Word(buf, s.SourceDomain())
	buf = appendUint32Word(buf, s.DestinationDomain())
	for _, field := range [][32]byte{
		s.SourceContract(), s.DestinationContract(),
		s.SourceToken(), s.DestinationToken(),
		s.SourceDepositor(), s.DestinationRecipient(),
		s.SourceSigner(), s.DestinationCaller(),
	} {
		buf = append(buf, field[:]...)
	}
	value := s.Value().Bytes32()
	buf = append(buf, value[:]...)
	salt := s.Salt()
	buf = append(buf, salt[:]...)
	buf = append(buf, crypto.Keccak256(s.HookData())...)
	return common.Hash(crypto.Keccak256(buf))
}

func appendUint32Word(buf []byte, v uint32) []byte {
	var word [32]byte
	word[28] = byte(v >> 24)
	word[29] = byte(v >> 16)
	word[30] = byte(v >> 8)
	word[31] = byte(v)
	return append(buf, word[:]...)
}
