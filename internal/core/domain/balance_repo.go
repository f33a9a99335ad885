package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type BalanceRepository interface {
	Get(ctx context.Context, token, depositor common.Address) (*Balance, error)
	Upsert(ctx context.Context, balance Balance) error
	GetAllForDepositor(ctx context.Context, depositor common.Address) ([]Balance, error)
	GetAll(ctx context.Context) ([]Balance, error)
	Close()
}
