package inmemorylivestore

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

type specHashStore struct {
	lock   sync.RWMutex
	hashes map[common.Hash]struct{}
}

func NewSpecHashStore() ports.SpecHashStore {
	return &specHashStore{
		hashes: make(map[common.Hash]struct{}),
	}
}

func (s *specHashStore) Add(_ context.Context, hash common.Hash) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.hashes[hash]; ok {
		return false, nil
	}
	s.hashes[hash] = struct{}{}
	return true, nil
}

func (s *specHashStore) Includes(_ context.Context, hash common.Hash) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.hashes[hash]
	return ok, nil
}
