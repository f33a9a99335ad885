package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type TokenRepository interface {
	Support(ctx context.Context, token common.Address) error
	Unsupport(ctx context.Context, token common.Address) error
	IsSupported(ctx context.Context, token common.Address) (bool, error)
	GetAll(ctx context.Context) ([]common.Address, error)
	Close()
}
