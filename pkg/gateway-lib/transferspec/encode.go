package transferspec

import (
	"bytes"
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Fields is the decoded form of a TransferSpec, used to build new records.
// The version field is implied: Encode always emits CurrentVersion.
type Fields struct {
	SourceDomain         uint32
	DestinationDomain    uint32
	SourceContract       [32]byte
	DestinationContract  [32]byte
	SourceToken          [32]byte
	DestinationToken     [32]byte
	SourceDepositor      [32]byte
	DestinationRecipient [32]byte
	SourceSigner         [32]byte
	DestinationCaller    [32]byte
	Value                *uint256.Int
	Salt                 [32]byte
	HookData             []byte
}

// Encode serializes the fields into the canonical byte layout. The resulting buffer
// always passes Cast and Validate.
func (f Fields) Encode() ([]byte, error) {
	if len(f.HookData) > MaxHookDataLength {
		return nil, HookDataTooLargeError{Length: len(f.HookData)}
	}

	w := bytes.NewBuffer(make([]byte, 0, HeaderLength+len(f.HookData)))
	w.Write(Magic[:])
	writeUint32(w, CurrentVersion)
	writeUint32(w, f.SourceDomain)
	writeUint32(w, f.DestinationDomain)
	w.Write(f.SourceContract[:])
	w.Write(f.DestinationContract[:])
	w.Write(f.SourceToken[:])
	w.Write(f.DestinationToken[:])
	w.Write(f.SourceDepositor[:])
	w.Write(f.DestinationRecipient[:])
	w.Write(f.SourceSigner[:])
	w.Write(f.DestinationCaller[:])

	value := f.Value
	if value == nil {
		value = uint256.NewInt(0)
	}
	valueBytes := value.Bytes32()
	w.Write(valueBytes[:])
	w.Write(f.Salt[:])
	writeUint32(w, uint32(len(f.HookData)))
	w.Write(f.HookData)

	return w.Bytes(), nil
}

// Decode copies the fields out of a validated view. It is the inverse of Encode and
// is mostly useful for tests and tooling; on-path consumers read fields through the
// zero-copy accessors instead.
func (s TransferSpec) Decode() Fields {
	return Fields{
		SourceDomain:         s.SourceDomain(),
		DestinationDomain:    s.DestinationDomain(),
		SourceContract:       s.SourceContract(),
		DestinationContract:  s.DestinationContract(),
		SourceToken:          s.SourceToken(),
		DestinationToken:     s.DestinationToken(),
		SourceDepositor:      s.SourceDepositor(),
		DestinationRecipient: s.DestinationRecipient(),
		SourceSigner:         s.SourceSigner(),
		DestinationCaller:    s.DestinationCaller(),
		Value:                s.Value(),
		Salt:                 s.Salt(),
		HookData:             append([]byte{}, s.HookData()...),
	}
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}
