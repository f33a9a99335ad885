package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"

	"github.com/gateway-os/gatewayd/internal/core/domain"
)

const burnStoreDir = "burns"

type burnRepository struct {
	store *badgerhold.Store
}

type burnDTO struct {
	Id              string
	Token           string
	Depositor       string
	SpecHash        string
	Value           string
	Fee             string
	FromAvailable   string
	FromWithdrawing string
	BlockHeight     uint64
	CreatedAt       int64
}

func NewBurnRepository(config ...interface{}) (domain.BurnRepository, error) {
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
		dir = filepath.Join(baseDir, burnStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open burn store: %s", err)
	}

	return &burnRepository{store}, nil
}

func (r *burnRepository) Add(ctx context.Context, burns []domain.Burn) error {
	for _, burn := range burns {
		dto := newBurnDTO(burn)
		if err := upsertWithRetry(r.store, burn.Id, &dto); err != nil {
			return err
		}
	}
	return nil
}

func (r *burnRepository) GetBySpecHash(
	ctx context.Context, specHash common.Hash,
) (*domain.Burn, error) {
	var dtos []burnDTO
	query := badgerhold.Where("SpecHash").Eq(specHash.Hex())
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, err
	}
	if len(dtos) == 0 {
		return nil, nil
	}
	return dtos[0].toBurn()
}

func (r *burnRepository) GetAll(ctx context.Context) ([]domain.Burn, error) {
	var dtos []burnDTO
	if err := r.store.Find(&dtos, nil); err != nil {
		return nil, err
	}

	burns := make([]domain.Burn, 0, len(dtos))
	for _, dto := range dtos {
		burn, err := dto.toBurn()
		if err != nil {
			return nil, err
		}
		burns = append(burns, *burn)
	}
	sort.SliceStable(burns, func(i, j int) bool {
		return burns[i].CreatedAt < burns[j].CreatedAt
	})
	return burns, nil
}

func (r *burnRepository) Close() {
	// nolint:all
	r.store.Close()
}

func newBurnDTO(burn domain.Burn) burnDTO {
	return burnDTO{
		Id:              burn.Id,
		Token:           burn.Token.Hex(),
		Depositor:       burn.Depositor.Hex(),
		SpecHash:        burn.SpecHash.Hex(),
		Value:           encodeAmount(burn.Value),
		Fee:             encodeAmount(burn.Fee),
		FromAvailable:   encodeAmount(burn.FromAvailable),
		FromWithdrawing: encodeAmount(burn.FromWithdrawing),
		BlockHeight:     burn.BlockHeight,
		CreatedAt:       burn.CreatedAt,
	}
}

func (d burnDTO) toBurn() (*domain.Burn, error) {
	value, err := parseAmount(d.Value)
	if err != nil {
		return nil, err
	}
	fee, err := parseAmount(d.Fee)
	if err != nil {
		return nil, err
	}
	fromAvailable, err := parseAmount(d.FromAvailable)
	if err != nil {
		return nil, err
	}
	fromWithdrawing, err := parseAmount(d.FromWithdrawing)
	if err != nil {
		return nil, err
	}
	return &domain.Burn{
		Id:              d.Id,
		Token:           common.HexToAddress(d.Token),
		Depositor:       common.HexToAddress(d.Depositor),
		SpecHash:        common.HexToHash(d.SpecHash),
		Value:           value,
		Fee:             fee,
		FromAvailable:   fromAvailable,
		FromWithdrawing: fromWithdrawing,
		BlockHeight:     d.BlockHeight,
		CreatedAt:       d.CreatedAt,
	}, nil
}
