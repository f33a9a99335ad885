package inmemorylivestore

import (
	"github.com/gateway-os/gatewayd/internal/core/ports"
)

type liveStore struct {
	specHashes ports.SpecHashStore
	chainTip   ports.ChainTipStore
}

func NewLiveStore() ports.LiveStore {
	return &liveStore{
		specHashes: NewSpecHashStore(),
		chainTip:   NewChainTipStore(),
	}
}

func (s *liveStore) SpecHashes() ports.SpecHashStore {
	return s.specHashes
}

func (s *liveStore) ChainTip() ports.ChainTipStore {
	return s.chainTip
}
