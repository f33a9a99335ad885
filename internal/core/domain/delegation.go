package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Delegation records that a delegate was authorized to sign burn intents for a
// (token, depositor) balance. Revocation flips the Revoked flag but the row is never
// deleted: an intent signed while the delegation was live must remain executable, so
// "was ever authorized" is the question burns ask.
type Delegation struct {
	Token     common.Address
	Depositor common.Address
	Delegate  common.Address
	Revoked   bool
	CreatedAt int64
	RevokedAt int64
}

type DelegationRepository interface {
	Add(ctx context.Context, delegation Delegation) error
	Revoke(ctx context.Context, token, depositor, delegate common.Address) error
	IsAuthorized(ctx context.Context, token, depositor, delegate common.Address) (bool, error)
	WasEverAuthorized(ctx context.Context, token, depositor, delegate common.Address) (bool, error)
	Close()
}
