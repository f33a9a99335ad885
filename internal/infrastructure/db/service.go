package db

import (
	"fmt"

	"github.com/gateway-os/gatewayd/internal/core/domain"
	"github.com/gateway-os/gatewayd/internal/core/ports"
	badgerdb "github.com/gateway-os/gatewayd/internal/infrastructure/db/badger"
)

var (
	balanceStoreTypes = map[string]func(...interface{}) (domain.BalanceRepository, error){
		"badger": badgerdb.NewBalanceRepository,
	}
	delegationStoreTypes = map[string]func(...interface{}) (domain.DelegationRepository, error){
		"badger": badgerdb.NewDelegationRepository,
	}
	burnStoreTypes = map[string]func(...interface{}) (domain.BurnRepository, error){
		"badger": badgerdb.NewBurnRepository,
	}
	tokenStoreTypes = map[string]func(...interface{}) (domain.TokenRepository, error){
		"badger": badgerdb.NewTokenRepository,
	}
	settingsStoreTypes = map[string]func(...interface{}) (domain.SettingsRepository, error){
		"badger": badgerdb.NewSettingsRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	balanceStore    domain.BalanceRepository
	delegationStore domain.DelegationRepository
	burnStore       domain.BurnRepository
	tokenStore      domain.TokenRepository
	settingsStore   domain.SettingsRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	balanceStoreFactory, ok := balanceStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	delegationStoreFactory, ok := delegationStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	burnStoreFactory, ok := burnStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	tokenStoreFactory, ok := tokenStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	settingsStoreFactory, ok := settingsStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	balanceStore, err := balanceStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open balance store: %s", err)
	}
	delegationStore, err := delegationStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open delegation store: %s", err)
	}
	burnStore, err := burnStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open burn store: %s", err)
	}
	tokenStore, err := tokenStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %s", err)
	}
	settingsStore, err := settingsStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %s", err)
	}

	return &service{
		balanceStore:    balanceStore,
		delegationStore: delegationStore,
		burnStore:       burnStore,
		tokenStore:      tokenStore,
		settingsStore:   settingsStore,
	}, nil
}

func (s *service) Balances() domain.BalanceRepository {
	return s.balanceStore
}

func (s *service) Delegations() domain.DelegationRepository {
	return s.delegationStore
}

func (s *service) Burns() domain.BurnRepository {
	return s.burnStore
}

func (s *service) Tokens() domain.TokenRepository {
	return s.tokenStore
}

func (s *service) Settings() domain.SettingsRepository {
	return s.settingsStore
}

func (s *service) Close() {
	s.balanceStore.Close()
	s.delegationStore.Close()
	s.burnStore.Close()
	s.tokenStore.Close()
	s.settingsStore.Close()
}
