package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenService is the token burn/transfer primitive the settlement core delegates to
// after a batch is fully accounted: the accumulated fee goes to the fee recipient,
// the burned remainder is retired.
type TokenService interface {
	Burn(ctx context.Context, token common.Address, value *uint256.Int) error
	Transfer(ctx context.Context, token, to common.Address, value *uint256.Int) error
}
