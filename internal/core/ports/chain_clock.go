package ports

import "context"

// ChainClock reports the current height of the source chain. Withdrawal delays and
// burn intent expiries are block-height thresholds, not wall-clock timeouts.
type ChainClock interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}
