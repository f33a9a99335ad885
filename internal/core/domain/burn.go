package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Burn is the persisted record of one executed burn intent: what was debited, from
// which buckets, and under which spec hash. The spec hash is unique per record, it
// doubles as the replay-guard key for off-chain indexers.
type Burn struct {
	Id              string
	Token           common.Address
	Depositor       common.Address
	SpecHash        common.Hash
	Value           *uint256.Int
	Fee             *uint256.Int
	FromAvailable   *uint256.Int
	FromWithdrawing *uint256.Int
	BlockHeight     uint64
	CreatedAt       int64
}

type BurnRepository interface {
	Add(ctx context.Context, burns []Burn) error
	GetBySpecHash(ctx context.Context, specHash common.Hash) (*Burn, error)
	GetAll(ctx context.Context) ([]Burn, error)
	Close()
}
