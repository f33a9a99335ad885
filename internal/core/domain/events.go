package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type EventType string

const (
	EventTypeDeposited           EventType = "deposited"
	EventTypeWithdrawalInitiated EventType = "withdrawal_initiated"
	EventTypeWithdrawalReady     EventType = "withdrawal_ready"
	EventTypeWithdrawalCompleted EventType = "withdrawal_completed"
	EventTypeGatewayBurned       EventType = "gateway_burned"
	EventTypeInsufficientBalance EventType = "insufficient_balance"
	EventTypeBurnSignerChanged   EventType = "burn_signer_changed"
	EventTypeFeeRecipientChanged EventType = "fee_recipient_changed"
	EventTypeTokenSupported      EventType = "token_supported"
	EventTypeTokenUnsupported    EventType = "token_unsupported"
	EventTypeDelegateAdded       EventType = "delegate_added"
	EventTypeDelegateRevoked     EventType = "delegate_revoked"
)

// Event is the settlement event stream consumed by off-chain indexers.
type Event interface {
	Type() EventType
}

type Deposited struct {
	Token     common.Address
	Depositor common.Address
	Value     *uint256.Int
}

func (e Deposited) Type() EventType { return EventTypeDeposited }

type WithdrawalInitiated struct {
	Token               common.Address
	Depositor           common.Address
	Value               *uint256.Int
	WithdrawableAtBlock uint64
}

func (e WithdrawalInitiated) Type() EventType { return EventTypeWithdrawalInitiated }

type WithdrawalReady struct {
	Token     common.Address
	Depositor common.Address
}

func (e WithdrawalReady) Type() EventType { return EventTypeWithdrawalReady }

type WithdrawalCompleted struct {
	Token     common.Address
	Depositor common.Address
	Value     *uint256.Int
}

func (e WithdrawalCompleted) Type() EventType { return EventTypeWithdrawalCompleted }

// GatewayBurned is emitted once per executed burn intent.
type GatewayBurned struct {
	Token     common.Address
	Depositor common.Address
	SpecHash  common.Hash
	Value     *uint256.Int
	Fee       *uint256.Int
}

func (e GatewayBurned) Type() EventType { return EventTypeGatewayBurned }

// InsufficientBalance is a diagnostic, not a failure: a burn debit found less balance
// than the intent's value plus fee. It signals a latent accounting bug, the burn
// itself proceeds with whatever could be debited.
type InsufficientBalance struct {
	Token     common.Address
	Depositor common.Address
	SpecHash  common.Hash
	Requested *uint256.Int
	Debited   *uint256.Int
}

func (e InsufficientBalance) Type() EventType { return EventTypeInsufficientBalance }

type BurnSignerChanged struct {
	OldSigner common.Address
	NewSigner common.Address
}

func (e BurnSignerChanged) Type() EventType { return EventTypeBurnSignerChanged }

type FeeRecipientChanged struct {
	OldRecipient common.Address
	NewRecipient common.Address
}

func (e FeeRecipientChanged) Type() EventType { return EventTypeFeeRecipientChanged }

type TokenSupported struct {
	Token common.Address
}

func (e TokenSupported) Type() EventType { return EventTypeTokenSupported }

type TokenUnsupported struct {
	Token common.Address
}

func (e TokenUnsupported) Type() EventType { return EventTypeTokenUnsupported }

type DelegateAdded struct {
	Token     common.Address
	Depositor common.Address
	Delegate  common.Address
}

func (e DelegateAdded) Type() EventType { return EventTypeDelegateAdded }

type DelegateRevoked struct {
	Token     common.Address
	Depositor common.Address
	Delegate  common.Address
}

func (e DelegateRevoked) Type() EventType { return EventTypeDelegateRevoked }
