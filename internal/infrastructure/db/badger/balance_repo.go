package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"

	"github.com/gateway-os/gatewayd/internal/core/domain"
)

const balanceStoreDir = "balances"

type balanceRepository struct {
	store *badgerhold.Store
}

type balanceDTO struct {
	Token               string
	Depositor           string
	Available           string
	Withdrawing         string
	WithdrawableAtBlock uint64
	UpdatedAt           int64
}

func NewBalanceRepository(config ...interface{}) (domain.BalanceRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, balanceStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open balance store: %s", err)
	}

	return &balanceRepository{store}, nil
}

func (r *balanceRepository) Get(
	ctx context.Context, token, depositor common.Address,
) (*domain.Balance, error) {
	var dto balanceDTO
	err := r.store.Get(balanceStoreKey(token, depositor), &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return dto.toBalance()
}

func (r *balanceRepository) Upsert(ctx context.Context, balance domain.Balance) error {
	dto := newBalanceDTO(balance)
	dto.UpdatedAt = time.Now().Unix()
	return upsertWithRetry(r.store, balanceStoreKey(balance.Token, balance.Depositor), &dto)
}

func (r *balanceRepository) GetAllForDepositor(
	ctx context.Context, depositor common.Address,
) ([]domain.Balance, error) {
	var dtos []balanceDTO
	query := badgerhold.Where("Depositor").Eq(depositor.Hex())
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, err
	}
	return toBalances(dtos)
}

func (r *balanceRepository) GetAll(ctx context.Context) ([]domain.Balance, error) {
	var dtos []balanceDTO
	if err := r.store.Find(&dtos, nil); err != nil {
		return nil, err
	}
	return toBalances(dtos)
}

func (r *balanceRepository) Close() {
	// nolint:all
	r.store.Close()
}

func balanceStoreKey(token, depositor common.Address) string {
	return fmt.Sprintf("%s:%s", token.Hex(), depositor.Hex())
}

func newBalanceDTO(balance domain.Balance) balanceDTO {
	return balanceDTO{
		Token:               balance.Token.Hex(),
		Depositor:           balance.Depositor.Hex(),
		Available:           encodeAmount(balance.Available),
		Withdrawing:         encodeAmount(balance.Withdrawing),
		WithdrawableAtBlock: balance.WithdrawableAtBlock,
	}
}

func (d balanceDTO) toBalance() (*domain.Balance, error) {
	available, err := parseAmount(d.Available)
	if err != nil {
		return nil, err
	}
	withdrawing, err := parseAmount(d.Withdrawing)
	if err != nil {
		return nil, err
	}
	return &domain.Balance{
		Token:               common.HexToAddress(d.Token),
		Depositor:           common.HexToAddress(d.Depositor),
		Available:           available,
		Withdrawing:         withdrawing,
		WithdrawableAtBlock: d.WithdrawableAtBlock,
		UpdatedAt:           d.UpdatedAt,
	}, nil
}

func toBalances(dtos []balanceDTO) ([]domain.Balance, error) {
	balances := make([]domain.Balance, 0, len(dtos))
	for _, dto := range dtos {
		balance, err := dto.toBalance()
		if err != nil {
			return nil, err
		}
		balances = append(balances, *balance)
	}
	return balances, nil
}
