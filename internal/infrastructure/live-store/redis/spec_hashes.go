package redislivestore

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

const specHashesSetKey = "specHashStore:hashes"

type specHashStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewSpecHashStore(rdb *redis.Client, numOfRetries int) ports.SpecHashStore {
	return &specHashStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *specHashStore) Add(ctx context.Context, hash common.Hash) (bool, error) {
	var (
		added int64
		err   error
	)
	for i := 0; i < s.numOfRetries; i++ {
		added, err = s.rdb.SAdd(ctx, specHashesSetKey, hash.Hex()).Result()
		if err == nil {
			return added > 0, nil
		}
		time.Sleep(s.retryDelay)
	}
	return false, fmt.Errorf(
		"failed to mark spec hash %s after max number of retries: %v", hash, err,
	)
}

func (s *specHashStore) Includes(ctx context.Context, hash common.Hash) (bool, error) {
	return s.rdb.SIsMember(ctx, specHashesSetKey, hash.Hex()).Result()
}
