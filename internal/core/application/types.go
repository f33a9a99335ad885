package application

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/gateway-os/gatewayd/internal/core/domain"
)

// Service is the wallet-side settlement service: it keeps the per (token, depositor)
// ledger, accepts deposits and delayed withdrawals, and executes signed burn batches.
type Service interface {
	Start() error
	Stop()
	GetEventsChannel(ctx context.Context) <-chan domain.Event

	Deposit(ctx context.Context, token, depositor common.Address, value *uint256.Int) error
	InitiateWithdrawal(ctx context.Context, token, depositor common.Address, value *uint256.Int) error
	Withdraw(ctx context.Context, token, depositor common.Address) (*uint256.Int, error)
	GetBalance(ctx context.Context, token, depositor common.Address) (*BalanceInfo, error)

	GatewayBurn(ctx context.Context, batch BurnBatch) (*BurnReport, error)
	ListBurns(ctx context.Context) ([]domain.Burn, error)

	SetBurnSigner(ctx context.Context, signer common.Address) error
	SetFeeRecipient(ctx context.Context, recipient common.Address) error
	SupportToken(ctx context.Context, token common.Address) error
	UnsupportToken(ctx context.Context, token common.Address) error
	AddDelegate(ctx context.Context, token, depositor, delegate common.Address) error
	RevokeDelegate(ctx context.Context, token, depositor, delegate common.Address) error
}

// SignedBurnPayload is one (payload, signature, fees) triple of a burn batch. The
// payload is an encoded BurnIntent or BurnIntentSet; the signature is the source
// signer's EIP-712 signature over the payload's typed-data digest; fees carries one
// charged fee per intent in the payload, in intent order.
type SignedBurnPayload struct {
	Payload   []byte
	Signature []byte
	Fees      []*uint256.Int
}

// BurnBatch is the input of GatewayBurn: the signed payloads plus one outer
// signature over the whole batch from the authorized burn signer.
type BurnBatch struct {
	Payloads  []SignedBurnPayload
	Signature []byte
}

// Digest returns the batch digest the burn signer signs: the keccak256 hash of the
// concatenated content hashes of every payload.
func (b BurnBatch) Digest() common.Hash {
	buf := make([]byte, 0, len(b.Payloads)*32)
	for _, payload := range b.Payloads {
		hash := common.Hash(keccak(payload.Payload))
		buf = append(buf, hash[:]...)
	}
	return common.Hash(keccak(buf))
}

// BurnReport summarizes an executed batch.
type BurnReport struct {
	BatchId     string
	Token       common.Address
	TotalValue  *uint256.Int
	TotalFee    *uint256.Int
	NumIntents  int
	NumSkipped  int
	BlockHeight uint64
}

// BalanceInfo is the external balance view exposed to collaborators.
type BalanceInfo struct {
	Token               common.Address
	Depositor           common.Address
	Total               *uint256.Int
	Available           *uint256.Int
	Withdrawing         *uint256.Int
	Withdrawable        *uint256.Int
	WithdrawableAtBlock uint64
	CurrentBlock        uint64
}
