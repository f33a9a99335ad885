package manualchainclock

import (
	"context"
	"sync"
)

// Service is a chain clock driven by hand, used in development setups and tests
// where no chain indexer is reachable.
type Service struct {
	lock   sync.RWMutex
	height uint64
}

func NewChainClock() *Service {
	return &Service{}
}

func (s *Service) CurrentHeight(_ context.Context) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.height, nil
}

func (s *Service) SetHeight(height uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.height = height
}
