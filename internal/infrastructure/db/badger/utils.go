package badgerdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/holiman/uint256"
	"github.com/timshannon/badgerhold/v4"
)

const maxRetries = 5

// createDB opens a badgerhold store at the given directory, or a throwaway
// in-memory store when the directory is empty.
func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// upsertWithRetry retries transient badger write conflicts the same way every store
// in this package does.
func upsertWithRetry(store *badgerhold.Store, key, value interface{}) error {
	err := store.Upsert(key, value)
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = store.Upsert(key, value)
			attempts++
		}
	}
	return err
}

func parseAmount(s string) (*uint256.Int, error) {
	if len(s) == 0 {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %s", s, err)
	}
	return v, nil
}

func encodeAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
