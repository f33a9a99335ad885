package domain_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/gateway-os/gatewayd/internal/core/domain"
	"github.com/gateway-os/gatewayd/pkg/errors"
)

var (
	testToken     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testDepositor = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestNewBalance(t *testing.T) {
	t.Parallel()

	balance := domain.NewBalance(testToken, testDepositor)
	require.True(t, balance.Available.IsZero())
	require.True(t, balance.Withdrawing.IsZero())
	require.Zero(t, balance.WithdrawableAtBlock)
	require.True(t, balance.Total().IsZero())
}

func TestIncreaseAvailable(t *testing.T) {
	t.Parallel()

	balance := domain.NewBalance(testToken, testDepositor)
	balance.IncreaseAvailable(uint256.NewInt(100))
	balance.IncreaseAvailable(uint256.NewInt(50))

	require.Equal(t, uint256.NewInt(150), balance.Available)
	require.Equal(t, uint256.NewInt(150), balance.Total())
}

func TestMoveToWithdrawing(t *testing.T) {
	t.Parallel()

	balance := domain.NewBalance(testToken, testDepositor)
	balance.IncreaseAvailable(uint256.NewInt(100))

	require.NoError(t, balance.MoveToWithdrawing(uint256.NewInt(60), 500))
	require.Equal(t, uint256.NewInt(40), balance.Available)
	require.Equal(t, uint256.NewInt(60), balance.Withdrawing)
	require.Equal(t, uint64(500), balance.WithdrawableAtBlock)
	// funds are conserved across buckets
	require.Equal(t, uint256.NewInt(100), balance.Total())

	t.Run("insufficient available", func(t *testing.T) {
		err := balance.MoveToWithdrawing(uint256.NewInt(50), 600)
		require.Error(t, err)

		var typed errors.Error
		require.ErrorAs(t, err, &typed)
		require.Equal(t, errors.INSUFFICIENT_AVAILABLE_BALANCE.Name, typed.CodeName())

		// a failed move leaves the balance untouched
		require.Equal(t, uint256.NewInt(40), balance.Available)
		require.Equal(t, uint256.NewInt(60), balance.Withdrawing)
		require.Equal(t, uint64(500), balance.WithdrawableAtBlock)
	})
}

func TestEmptyWithdrawing(t *testing.T) {
	t.Parallel()

	balance := domain.NewBalance(testToken, testDepositor)
	balance.IncreaseAvailable(uint256.NewInt(100))
	require.NoError(t, balance.MoveToWithdrawing(uint256.NewInt(60), 500))

	withdrawn, err := balance.EmptyWithdrawing()
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(60), withdrawn)
	require.True(t, balance.Withdrawing.IsZero())
	require.Zero(t, balance.WithdrawableAtBlock)

	t.Run("nothing withdrawing", func(t *testing.T) {
		_, err := balance.EmptyWithdrawing()
		require.Error(t, err)

		var typed errors.Error
		require.ErrorAs(t, err, &typed)
		require.Equal(t, errors.NO_WITHDRAWING_BALANCE.Name, typed.CodeName())
	})
}

func TestReduce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                string
		available           uint64
		withdrawing         uint64
		value               uint64
		wantFromAvailable   uint64
		wantFromWithdrawing uint64
	}{
		{
			name:      "available covers everything",
			available: 100, withdrawing: 50, value: 80,
			wantFromAvailable: 80, wantFromWithdrawing: 0,
		},
		{
			name:      "spills into withdrawing",
			available: 100, withdrawing: 50, value: 120,
			wantFromAvailable: 100, wantFromWithdrawing: 20,
		},
		{
			name:      "drains both buckets",
			available: 100, withdrawing: 50, value: 150,
			wantFromAvailable: 100, wantFromWithdrawing: 50,
		},
		{
			name:      "shortfall never fails",
			available: 100, withdrawing: 50, value: 200,
			wantFromAvailable: 100, wantFromWithdrawing: 50,
		},
		{
			name:      "zero value",
			available: 100, withdrawing: 50, value: 0,
			wantFromAvailable: 0, wantFromWithdrawing: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance := domain.NewBalance(testToken, testDepositor)
			balance.Available = uint256.NewInt(tt.available)
			balance.Withdrawing = uint256.NewInt(tt.withdrawing)

			fromAvailable, fromWithdrawing := balance.Reduce(uint256.NewInt(tt.value))
			require.Equal(t, uint256.NewInt(tt.wantFromAvailable), fromAvailable)
			require.Equal(t, uint256.NewInt(tt.wantFromWithdrawing), fromWithdrawing)

			// conservation: what left the buckets equals what was debited
			remaining := new(uint256.Int).Add(balance.Available, balance.Withdrawing)
			debited := new(uint256.Int).Add(fromAvailable, fromWithdrawing)
			total := uint256.NewInt(tt.available + tt.withdrawing)
			require.Equal(t, total, new(uint256.Int).Add(remaining, debited))
		})
	}
}

func TestWithdrawableAt(t *testing.T) {
	t.Parallel()

	balance := domain.NewBalance(testToken, testDepositor)
	balance.IncreaseAvailable(uint256.NewInt(100))
	require.NoError(t, balance.MoveToWithdrawing(uint256.NewInt(60), 500))

	require.True(t, balance.WithdrawableAt(499).IsZero())
	require.Equal(t, uint256.NewInt(60), balance.WithdrawableAt(500))
	require.Equal(t, uint256.NewInt(60), balance.WithdrawableAt(501))

	t.Run("no pending withdrawal", func(t *testing.T) {
		fresh := domain.NewBalance(testToken, testDepositor)
		require.True(t, fresh.WithdrawableAt(1000).IsZero())
	})
}
