package redislivestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

const chainTipKey = "chainTipStore:height"

type chainTipStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewChainTipStore(rdb *redis.Client, numOfRetries int) ports.ChainTipStore {
	return &chainTipStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *chainTipStore) Set(ctx context.Context, height uint64) error {
	var err error
	for i := 0; i < s.numOfRetries; i++ {
		// the tip only moves forward, concurrent pollers must not rewind it
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, chainTipKey).Uint64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if height <= current {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, chainTipKey, strconv.FormatUint(height, 10), 0)
				return nil
			})
			return err
		}, chainTipKey); err == nil {
			return nil
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf(
		"failed to set chain tip %d after max number of retries: %v", height, err,
	)
}

func (s *chainTipStore) Get(ctx context.Context) (uint64, error) {
	height, err := s.rdb.Get(ctx, chainTipKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return height, nil
}
