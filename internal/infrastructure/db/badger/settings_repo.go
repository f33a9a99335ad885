package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"

	"github.com/gateway-os/gatewayd/internal/core/domain"
)

const (
	settingsStoreDir = "settings"
	settingsKey      = "settings"
)

type settingsRepository struct {
	store *badgerhold.Store
}

type settingsDTO struct {
	BurnSigner   string
	FeeRecipient string
}

func NewSettingsRepository(config ...interface{}) (domain.SettingsRepository, error) {
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
		dir = filepath.Join(baseDir, settingsStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %s", err)
	}

	return &settingsRepository{store}, nil
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var dto settingsDTO
	err := r.store.Get(settingsKey, &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &domain.Settings{
		BurnSigner:   common.HexToAddress(dto.BurnSigner),
		FeeRecipient: common.HexToAddress(dto.FeeRecipient),
	}, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings domain.Settings) error {
	dto := settingsDTO{
		BurnSigner:   settings.BurnSigner.Hex(),
		FeeRecipient: settings.FeeRecipient.Hex(),
	}
	return upsertWithRetry(r.store, settingsKey, &dto)
}

func (r *settingsRepository) Clear(ctx context.Context) error {
	var dto settingsDTO
	if err := r.store.Delete(settingsKey, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *settingsRepository) Close() {
	// nolint:all
	r.store.Close()
}
