package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"

	"github.com/gateway-os/gatewayd/internal/core/domain"
)

const tokenStoreDir = "tokens"

type tokenRepository struct {
	store *badgerhold.Store
}

type tokenDTO struct {
	Token     string
	CreatedAt int64
}

func NewTokenRepository(config ...interface{}) (domain.TokenRepository, error) {
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
		dir = filepath.Join(baseDir, tokenStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %s", err)
	}

	return &tokenRepository{store}, nil
}

func (r *tokenRepository) Support(ctx context.Context, token common.Address) error {
	dto := tokenDTO{Token: token.Hex(), CreatedAt: time.Now().Unix()}
	return upsertWithRetry(r.store, token.Hex(), &dto)
}

func (r *tokenRepository) Unsupport(ctx context.Context, token common.Address) error {
	var dto tokenDTO
	if err := r.store.Delete(token.Hex(), &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *tokenRepository) IsSupported(
	ctx context.Context, token common.Address,
) (bool, error) {
	var dto tokenDTO
	err := r.store.Get(token.Hex(), &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *tokenRepository) GetAll(ctx context.Context) ([]common.Address, error) {
	var dtos []tokenDTO
	if err := r.store.Find(&dtos, nil); err != nil {
		return nil, err
	}

	tokens := make([]common.Address, 0, len(dtos))
	for _, dto := range dtos {
		tokens = append(tokens, common.HexToAddress(dto.Token))
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Hex() < tokens[j].Hex()
	})
	return tokens, nil
}

func (r *tokenRepository) Close() {
	// nolint:all
	r.store.Close()
}
