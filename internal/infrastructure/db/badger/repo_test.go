package badgerdb_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/gateway-os/gatewayd/internal/core/domain"
	badgerdb "github.com/gateway-os/gatewayd/internal/infrastructure/db/badger"
)

var (
	token     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	depositor = common.HexToAddress("0x0000000000000000000000000000000000000001")
	delegate  = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func TestBalanceRepository(t *testing.T) {
	t.Parallel()

	repo, err := badgerdb.NewBalanceRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	ctx := context.Background()

	balance, err := repo.Get(ctx, token, depositor)
	require.NoError(t, err)
	require.Nil(t, balance)

	toStore := domain.NewBalance(token, depositor)
	toStore.IncreaseAvailable(uint256.NewInt(1000))
	require.NoError(t, toStore.MoveToWithdrawing(uint256.NewInt(400), 110))
	require.NoError(t, repo.Upsert(ctx, *toStore))

	balance, err = repo.Get(ctx, token, depositor)
	require.NoError(t, err)
	require.NotNil(t, balance)
	require.Equal(t, token, balance.Token)
	require.Equal(t, depositor, balance.Depositor)
	require.Equal(t, uint256.NewInt(600), balance.Available)
	require.Equal(t, uint256.NewInt(400), balance.Withdrawing)
	require.Equal(t, uint64(110), balance.WithdrawableAtBlock)
	// the write path stamps the update time
	require.Greater(t, balance.UpdatedAt, int64(0))

	otherToken := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	other := domain.NewBalance(otherToken, depositor)
	other.IncreaseAvailable(uint256.NewInt(5))
	require.NoError(t, repo.Upsert(ctx, *other))

	balances, err := repo.GetAllForDepositor(ctx, depositor)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestDelegationRepository(t *testing.T) {
	t.Parallel()

	repo, err := badgerdb.NewDelegationRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	ctx := context.Background()

	authorized, err := repo.IsAuthorized(ctx, token, depositor, delegate)
	require.NoError(t, err)
	require.False(t, authorized)

	require.NoError(t, repo.Add(ctx, domain.Delegation{
		Token: token, Depositor: depositor, Delegate: delegate, CreatedAt: 1000,
	}))

	authorized, err = repo.IsAuthorized(ctx, token, depositor, delegate)
	require.NoError(t, err)
	require.True(t, authorized)

	t.Run("revocation keeps the record", func(t *testing.T) {
		require.NoError(t, repo.Revoke(ctx, token, depositor, delegate))

		authorized, err := repo.IsAuthorized(ctx, token, depositor, delegate)
		require.NoError(t, err)
		require.False(t, authorized)

		wasEver, err := repo.WasEverAuthorized(ctx, token, depositor, delegate)
		require.NoError(t, err)
		require.True(t, wasEver)
	})

	t.Run("re-adding reactivates", func(t *testing.T) {
		require.NoError(t, repo.Add(ctx, domain.Delegation{
			Token: token, Depositor: depositor, Delegate: delegate, CreatedAt: 2000,
		}))

		authorized, err := repo.IsAuthorized(ctx, token, depositor, delegate)
		require.NoError(t, err)
		require.True(t, authorized)
	})

	t.Run("revoking an unknown delegation fails", func(t *testing.T) {
		stranger := common.HexToAddress("0x0000000000000000000000000000000000000099")
		require.Error(t, repo.Revoke(ctx, token, depositor, stranger))
	})
}

func TestBurnRepository(t *testing.T) {
	t.Parallel()

	repo, err := badgerdb.NewBurnRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	ctx := context.Background()

	hash1 := common.HexToHash("0x01")
	hash2 := common.HexToHash("0x02")
	require.NoError(t, repo.Add(ctx, []domain.Burn{
		{
			Id: "burn-2", Token: token, Depositor: depositor, SpecHash: hash2,
			Value: uint256.NewInt(50), Fee: uint256.NewInt(2),
			FromAvailable: uint256.NewInt(52), FromWithdrawing: uint256.NewInt(0),
			BlockHeight: 101, CreatedAt: 2000,
		},
		{
			Id: "burn-1", Token: token, Depositor: depositor, SpecHash: hash1,
			Value: uint256.NewInt(100), Fee: uint256.NewInt(5),
			FromAvailable: uint256.NewInt(80), FromWithdrawing: uint256.NewInt(25),
			BlockHeight: 100, CreatedAt: 1000,
		},
	}))

	burn, err := repo.GetBySpecHash(ctx, hash1)
	require.NoError(t, err)
	require.NotNil(t, burn)
	require.Equal(t, "burn-1", burn.Id)
	require.Equal(t, uint256.NewInt(100), burn.Value)
	require.Equal(t, uint256.NewInt(5), burn.Fee)
	require.Equal(t, uint256.NewInt(80), burn.FromAvailable)
	require.Equal(t, uint256.NewInt(25), burn.FromWithdrawing)
	require.Equal(t, uint64(100), burn.BlockHeight)

	missing, err := repo.GetBySpecHash(ctx, common.HexToHash("0xff"))
	require.NoError(t, err)
	require.Nil(t, missing)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// oldest first
	require.Equal(t, "burn-1", all[0].Id)
	require.Equal(t, "burn-2", all[1].Id)
}

func TestTokenRepository(t *testing.T) {
	t.Parallel()

	repo, err := badgerdb.NewTokenRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	ctx := context.Background()

	supported, err := repo.IsSupported(ctx, token)
	require.NoError(t, err)
	require.False(t, supported)

	require.NoError(t, repo.Support(ctx, token))

	supported, err = repo.IsSupported(ctx, token)
	require.NoError(t, err)
	require.True(t, supported)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []common.Address{token}, all)

	require.NoError(t, repo.Unsupport(ctx, token))

	supported, err = repo.IsSupported(ctx, token)
	require.NoError(t, err)
	require.False(t, supported)
}

func TestSettingsRepository(t *testing.T) {
	t.Parallel()

	repo, err := badgerdb.NewSettingsRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	ctx := context.Background()

	settings, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, settings)

	signer := common.HexToAddress("0x0000000000000000000000000000000000000123")
	recipient := common.HexToAddress("0x0000000000000000000000000000000000000456")
	require.NoError(t, repo.Upsert(ctx, domain.Settings{
		BurnSigner: signer, FeeRecipient: recipient,
	}))

	settings, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings)
	require.Equal(t, signer, settings.BurnSigner)
	require.Equal(t, recipient, settings.FeeRecipient)

	require.NoError(t, repo.Clear(ctx))

	settings, err = repo.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, settings)
}
