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

const delegationStoreDir = "delegations"

type delegationRepository struct {
	store *badgerhold.Store
}

type delegationDTO struct {
	Token     string
	Depositor string
	Delegate  string
	Revoked   bool
	CreatedAt int64
	RevokedAt int64
}

func NewDelegationRepository(config ...interface{}) (domain.DelegationRepository, error) {
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
		dir = filepath.Join(baseDir, delegationStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open delegation store: %s", err)
	}

	return &delegationRepository{store}, nil
}

func (r *delegationRepository) Add(ctx context.Context, delegation domain.Delegation) error {
	key := delegationStoreKey(delegation.Token, delegation.Depositor, delegation.Delegate)

	// re-adding a revoked delegation reactivates it but keeps the original
	// creation time
	var existing delegationDTO
	err := r.store.Get(key, &existing)
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}
	if err == nil {
		existing.Revoked = false
		existing.RevokedAt = 0
		return upsertWithRetry(r.store, key, &existing)
	}

	dto := delegationDTO{
		Token:     delegation.Token.Hex(),
		Depositor: delegation.Depositor.Hex(),
		Delegate:  delegation.Delegate.Hex(),
		Revoked:   delegation.Revoked,
		CreatedAt: delegation.CreatedAt,
		RevokedAt: delegation.RevokedAt,
	}
	return upsertWithRetry(r.store, key, &dto)
}

func (r *delegationRepository) Revoke(
	ctx context.Context, token, depositor, delegate common.Address,
) error {
	key := delegationStoreKey(token, depositor, delegate)

	var dto delegationDTO
	err := r.store.Get(key, &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delegation not found")
	}
	if err != nil {
		return err
	}

	dto.Revoked = true
	dto.RevokedAt = time.Now().Unix()
	return upsertWithRetry(r.store, key, &dto)
}

func (r *delegationRepository) IsAuthorized(
	ctx context.Context, token, depositor, delegate common.Address,
) (bool, error) {
	dto, err := r.get(token, depositor, delegate)
	if err != nil {
		return false, err
	}
	return dto != nil && !dto.Revoked, nil
}

func (r *delegationRepository) WasEverAuthorized(
	ctx context.Context, token, depositor, delegate common.Address,
) (bool, error) {
	dto, err := r.get(token, depositor, delegate)
	if err != nil {
		return false, err
	}
	return dto != nil, nil
}

func (r *delegationRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *delegationRepository) get(
	token, depositor, delegate common.Address,
) (*delegationDTO, error) {
	var dto delegationDTO
	err := r.store.Get(delegationStoreKey(token, depositor, delegate), &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func delegationStoreKey(token, depositor, delegate common.Address) string {
	return fmt.Sprintf("%s:%s:%s", token.Hex(), depositor.Hex(), delegate.Hex())
}
