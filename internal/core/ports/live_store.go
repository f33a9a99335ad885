package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type LiveStore interface {
	SpecHashes() SpecHashStore
	ChainTip() ChainTipStore
}

// SpecHashStore is the used-transfer-spec-hash set: every spec hash ever processed by
// a burn is recorded here to forbid replay. Marking is exactly-once: Add reports
// whether the hash was newly inserted.
type SpecHashStore interface {
	Add(ctx context.Context, hash common.Hash) (bool, error)
	Includes(ctx context.Context, hash common.Hash) (bool, error)
}

// ChainTipStore caches the source-chain tip height observed by the chain clock.
type ChainTipStore interface {
	Set(ctx context.Context, height uint64) error
	Get(ctx context.Context) (uint64, error)
}
