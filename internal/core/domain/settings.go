package domain

import "github.com/ethereum/go-ethereum/common"

// Settings holds the mutable operator configuration: the burn signer authorized to
// submit batches and the recipient of accumulated burn fees.
type Settings struct {
	BurnSigner   common.Address
	FeeRecipient common.Address
}
