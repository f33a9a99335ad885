package redislivestore

import (
	"github.com/redis/go-redis/v9"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

type liveStore struct {
	specHashes ports.SpecHashStore
	chainTip   ports.ChainTipStore
}

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	return &liveStore{
		specHashes: NewSpecHashStore(rdb, numOfRetries),
		chainTip:   NewChainTipStore(rdb, numOfRetries),
	}
}

func (s *liveStore) SpecHashes() ports.SpecHashStore {
	return s.specHashes
}

func (s *liveStore) ChainTip() ports.ChainTipStore {
	return s.chainTip
}
