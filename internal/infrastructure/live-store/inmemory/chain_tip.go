package inmemorylivestore

import (
	"context"
	"sync"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

type chainTipStore struct {
	lock   sync.RWMutex
	height uint64
}

func NewChainTipStore() ports.ChainTipStore {
	return &chainTipStore{}
}

func (s *chainTipStore) Set(_ context.Context, height uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	// the tip only moves forward, a stale poller must not rewind it
	if height > s.height {
		s.height = height
	}
	return nil
}

func (s *chainTipStore) Get(_ context.Context) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.height, nil
}
