package domain

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/gateway-os/gatewayd/pkg/errors"
)

// Balance is the per (token, depositor) ledger entry. Funds move
// available -> withdrawing -> (withdrawn | burned); available + withdrawing is the
// depositor's total at all times.
type Balance struct {
	Token       common.Address
	Depositor   common.Address
	Available   *uint256.Int
	Withdrawing *uint256.Int
	// WithdrawableAtBlock is the block height at which the withdrawing bucket
	// unlocks. 0 means no pending withdrawal.
	WithdrawableAtBlock uint64
	// UpdatedAt is stamped by the repository on every write.
	UpdatedAt int64
}

func NewBalance(token, depositor common.Address) *Balance {
	return &Balance{
		Token:       token,
		Depositor:   depositor,
		Available:   uint256.NewInt(0),
		Withdrawing: uint256.NewInt(0),
	}
}

func (b Balance) String() string {
	// nolint
	buf, _ := json.MarshalIndent(b, "", "  ")
	return string(buf)
}

// Total returns available + withdrawing.
func (b *Balance) Total() *uint256.Int {
	return new(uint256.Int).Add(b.Available, b.Withdrawing)
}

// IncreaseAvailable credits the available bucket. There are no error cases.
func (b *Balance) IncreaseAvailable(value *uint256.Int) {
	b.Available = new(uint256.Int).Add(b.Available, value)
}

// MoveToWithdrawing moves value from available to withdrawing and stamps the block
// height at which the withdrawal unlocks.
func (b *Balance) MoveToWithdrawing(value *uint256.Int, withdrawableAtBlock uint64) error {
	if b.Available.Lt(value) {
		return errors.INSUFFICIENT_AVAILABLE_BALANCE.New(
			"cannot move %s to withdrawing, only %s available", value, b.Available,
		).WithMetadata(errors.BalanceMetadata{
			Token:     b.Token.Hex(),
			Depositor: b.Depositor.Hex(),
			Requested: value.String(),
			Available: b.Available.String(),
		})
	}
	b.Available = new(uint256.Int).Sub(b.Available, value)
	b.Withdrawing = new(uint256.Int).Add(b.Withdrawing, value)
	b.WithdrawableAtBlock = withdrawableAtBlock
	return nil
}

// EmptyWithdrawing zeroes the withdrawing bucket and returns the prior value. The
// caller must have already confirmed the withdrawal delay has elapsed.
func (b *Balance) EmptyWithdrawing() (*uint256.Int, error) {
	if b.Withdrawing.IsZero() {
		return nil, errors.NO_WITHDRAWING_BALANCE.New(
			"no withdrawing balance for depositor %s", b.Depositor,
		).WithMetadata(errors.BalanceMetadata{
			Token:     b.Token.Hex(),
			Depositor: b.Depositor.Hex(),
		})
	}
	withdrawn := b.Withdrawing
	b.Withdrawing = uint256.NewInt(0)
	b.WithdrawableAtBlock = 0
	return withdrawn, nil
}

// Reduce is the debit primitive used by burns: it drains available first, then
// withdrawing, and never fails on a shortfall. It returns how much was actually
// removed from each bucket; the caller detects and reports any shortfall.
func (b *Balance) Reduce(value *uint256.Int) (fromAvailable, fromWithdrawing *uint256.Int) {
	fromAvailable = value.Clone()
	if b.Available.Lt(fromAvailable) {
		fromAvailable = b.Available.Clone()
	}
	b.Available = new(uint256.Int).Sub(b.Available, fromAvailable)

	fromWithdrawing = new(uint256.Int).Sub(value, fromAvailable)
	if b.Withdrawing.Lt(fromWithdrawing) {
		fromWithdrawing = b.Withdrawing.Clone()
	}
	b.Withdrawing = new(uint256.Int).Sub(b.Withdrawing, fromWithdrawing)
	return fromAvailable, fromWithdrawing
}

// WithdrawableAt returns the amount withdrawable at the given block height: the full
// withdrawing bucket once the delay elapsed, zero before.
func (b *Balance) WithdrawableAt(height uint64) *uint256.Int {
	if b.WithdrawableAtBlock == 0 || height < b.WithdrawableAtBlock {
		return uint256.NewInt(0)
	}
	return b.Withdrawing.Clone()
}
